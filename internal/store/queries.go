package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Toggle operations

// GetToggle returns the persisted flag for widgetID. A widget that has never
// been toggled defaults to false.
func (s *Store) GetToggle(widgetID int) (bool, error) {
	mu := s.lockToggle(widgetID)
	mu.Lock()
	defer mu.Unlock()

	return s.getToggleLocked(widgetID)
}

func (s *Store) getToggleLocked(widgetID int) (bool, error) {
	var on bool
	err := s.db.QueryRow(`SELECT is_on FROM toggles WHERE widget_id = ?`, widgetID).Scan(&on)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: get toggle %d: %w", widgetID, err)
	}
	return on, nil
}

// SetToggle persists the flag for widgetID, overwriting any prior value.
func (s *Store) SetToggle(widgetID int, on bool) error {
	mu := s.lockToggle(widgetID)
	mu.Lock()
	defer mu.Unlock()

	return s.setToggleLocked(widgetID, on)
}

func (s *Store) setToggleLocked(widgetID int, on bool) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO toggles (widget_id, is_on, updated_at)
		VALUES (?, ?, ?)
	`, widgetID, on, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: set toggle %d: %w", widgetID, err)
	}
	return nil
}

// FlipToggle inverts the flag for widgetID under the widget's lock and
// returns the new value. The read-invert-write cycle is atomic per widget,
// so two racing flips on the same id net out to the original value.
//
// The flip itself never fails: an unreadable flag is treated as off, and a
// failed write still returns the inverted value. The error reports what went
// wrong underneath; callers decide whether the in-memory flip is enough.
func (s *Store) FlipToggle(widgetID int) (bool, error) {
	mu := s.lockToggle(widgetID)
	mu.Lock()
	defer mu.Unlock()

	cur, rerr := s.getToggleLocked(widgetID)
	if rerr != nil {
		cur = false
	}

	next := !cur
	if err := s.setToggleLocked(widgetID, next); err != nil {
		return next, err
	}
	return next, rerr
}

// ListToggles returns all toggle records ordered by widget id.
func (s *Store) ListToggles() ([]*ToggleRecord, error) {
	rows, err := s.db.Query(`SELECT widget_id, is_on, updated_at FROM toggles ORDER BY widget_id`)
	if err != nil {
		return nil, fmt.Errorf("store: list toggles: %w", err)
	}
	defer rows.Close()

	var records []*ToggleRecord
	for rows.Next() {
		var rec ToggleRecord
		var updatedAt string
		if err := rows.Scan(&rec.WidgetID, &rec.On, &updatedAt); err != nil {
			return nil, fmt.Errorf("store: scan toggle row: %w", err)
		}
		rec.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("store: parse updated_at for widget %d: %w", rec.WidgetID, err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate toggles: %w", err)
	}
	return records, nil
}

// AnyToggleOn reports whether at least one widget currently requests
// tracking.
func (s *Store) AnyToggleOn() (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM toggles WHERE is_on`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("store: count active toggles: %w", err)
	}
	return count > 0, nil
}

// ClearToggles turns every widget flag off. Used when tracking ends for an
// internal reason, so persisted intent does not outlive the run.
func (s *Store) ClearToggles() error {
	_, err := s.db.Exec(`UPDATE toggles SET is_on = 0, updated_at = ? WHERE is_on`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: clear toggles: %w", err)
	}
	return nil
}

// Run operations

// InsertRun records the start of a tracking run.
func (s *Store) InsertRun(run *Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, sample_count, log_path)
		VALUES (?, ?, 0, ?)
	`, run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.LogPath)
	if err != nil {
		return fmt.Errorf("store: insert run %s: %w", run.ID, err)
	}
	return nil
}

// CloseRun finalizes a run with its stop time, reason, and sample count.
func (s *Store) CloseRun(id string, stoppedAt time.Time, reason string, sampleCount int) error {
	res, err := s.db.Exec(`
		UPDATE runs SET stopped_at = ?, stop_reason = ?, sample_count = ?
		WHERE id = ?
	`, stoppedAt.UTC().Format(time.RFC3339), reason, sampleCount, id)
	if err != nil {
		return fmt.Errorf("store: close run %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: close run %s: rows affected: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("store: run %s not found", id)
	}
	return nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, stopped_at, stop_reason, sample_count, log_path
		FROM runs
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt string
		var stoppedAt, stopReason sql.NullString
		if err := rows.Scan(&run.ID, &startedAt, &stoppedAt, &stopReason, &run.SampleCount, &run.LogPath); err != nil {
			return nil, fmt.Errorf("store: scan run row: %w", err)
		}

		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("store: parse started_at for run %s: %w", run.ID, err)
		}
		if stoppedAt.Valid {
			t, err := time.Parse(time.RFC3339, stoppedAt.String)
			if err != nil {
				return nil, fmt.Errorf("store: parse stopped_at for run %s: %w", run.ID, err)
			}
			run.StoppedAt = &t
		}
		if stopReason.Valid {
			run.StopReason = stopReason.String
		}

		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate runs: %w", err)
	}
	return runs, nil
}
