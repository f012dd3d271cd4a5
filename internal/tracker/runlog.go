package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldline-systems/geotrack/internal/gps"
)

// RunLog is the append-only sample log for one tracking run. Every append is
// fsynced before returning: the sample cadence is seconds-scale, so
// durability wins over throughput.
type RunLog struct {
	f    *os.File
	path string
}

// OpenRunLog creates the log file for a run starting at start, named from
// the start timestamp (e.g. track-20260830-153000.csv). If a file for that
// second already exists, a numeric suffix keeps runs from sharing a file.
func OpenRunLog(dir string, start time.Time) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("runlog: create directory: %w", err)
	}

	base := "track-" + start.Format("20060102-150405")
	for i := 0; ; i++ {
		name := base + ".csv"
		if i > 0 {
			name = fmt.Sprintf("%s-%d.csv", base, i)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return &RunLog{f: f, path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("runlog: create %s: %w", path, err)
		}
	}
}

// Append writes one "<unix_nano>,<lat>,<lon>" line and syncs it to disk.
func (l *RunLog) Append(s gps.Sample) error {
	if _, err := l.f.WriteString(gps.FormatLine(s) + "\n"); err != nil {
		return fmt.Errorf("runlog: write: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("runlog: sync: %w", err)
	}
	return nil
}

// Close closes the log file.
func (l *RunLog) Close() error {
	if err := l.f.Close(); err != nil {
		return fmt.Errorf("runlog: close: %w", err)
	}
	return nil
}

// Path returns the log file path.
func (l *RunLog) Path() string {
	return l.path
}
