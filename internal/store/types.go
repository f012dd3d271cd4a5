package store

import "time"

// ToggleRecord is the persisted tracking intent for one widget instance.
// The flag records what the user last asked for, not whether the tracker is
// actually running; the two are reconciled by the tracker itself.
type ToggleRecord struct {
	WidgetID  int
	On        bool
	UpdatedAt time.Time
}

// Run records one contiguous tracking interval between a start and its
// matching stop.
type Run struct {
	ID          string
	StartedAt   time.Time
	StoppedAt   *time.Time // nil while the run is still open
	StopReason  string     // "stopped", "interrupted", "log-failure"
	SampleCount int
	LogPath     string
}
