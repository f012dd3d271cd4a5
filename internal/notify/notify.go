// Package notify maintains the user-visible tracking status notification.
//
// The notification is a small JSON file rewritten atomically on every state
// change and on every delivered sample. Desktop integrations and `geotrack
// status` read it; nothing in the tracking pipeline ever depends on a write
// succeeding.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldline-systems/geotrack/internal/gps"
)

// Tracking states surfaced to the user.
const (
	StateStarted     = "started"
	StateTracking    = "tracking"
	StateStopped     = "stopped"
	StateInterrupted = "interrupted"
)

// Status is the persisted notification payload.
type Status struct {
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
	Latest    *Fix      `json:"latest,omitempty"`
}

// Fix is the latest sample as shown to the user.
type Fix struct {
	CapturedAt time.Time `json:"captured_at"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
}

// Presenter writes the status file.
type Presenter struct {
	path string
}

// NewPresenter creates a presenter writing to path.
func NewPresenter(path string) *Presenter {
	return &Presenter{path: path}
}

// Present rewrites the status file with state and, when non-nil, the latest
// sample. The write is atomic (temp file + rename) so readers never observe
// a partial notification. Errors are returned for logging; callers treat
// presentation as best-effort.
func (p *Presenter) Present(state string, latest *gps.Sample) error {
	st := Status{
		State:     state,
		UpdatedAt: time.Now(),
	}
	if latest != nil {
		st.Latest = &Fix{
			CapturedAt: latest.CapturedAt,
			Lat:        latest.Lat,
			Lon:        latest.Lon,
		}
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("notify: marshal status: %w", err)
	}

	dir := filepath.Dir(p.path)
	tmpPath := filepath.Join(dir, ".notify.tmp")
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("notify: write temp status: %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		return fmt.Errorf("notify: rename status: %w", err)
	}
	return nil
}

// Read loads the status file at path. Returns (nil, nil) when no
// notification has been presented yet.
func Read(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notify: read status: %w", err)
	}

	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("notify: parse status: %w", err)
	}
	return &st, nil
}
