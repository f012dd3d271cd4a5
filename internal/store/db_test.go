package store

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// newTestStore creates an in-memory store with schema and registers cleanup.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: open: %v", err)
	}
	if err := s.CreateSchema(); err != nil {
		s.Close()
		t.Fatalf("newTestStore: schema: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	if s.db == nil {
		t.Error("Store.db should not be nil")
	}
}

func TestCreateSchema(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"toggles", "runs"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestGetToggleDefaultsToOff(t *testing.T) {
	s := newTestStore(t)

	on, err := s.GetToggle(7)
	if err != nil {
		t.Fatalf("GetToggle() failed: %v", err)
	}
	if on {
		t.Error("GetToggle() for unknown widget = true, want false")
	}
}

func TestSetAndGetToggle(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetToggle(1, true); err != nil {
		t.Fatalf("SetToggle() failed: %v", err)
	}

	on, err := s.GetToggle(1)
	if err != nil {
		t.Fatalf("GetToggle() failed: %v", err)
	}
	if !on {
		t.Error("GetToggle() = false, want true")
	}

	// Overwrite with off.
	if err := s.SetToggle(1, false); err != nil {
		t.Fatalf("SetToggle() failed: %v", err)
	}
	on, err = s.GetToggle(1)
	if err != nil {
		t.Fatalf("GetToggle() failed: %v", err)
	}
	if on {
		t.Error("GetToggle() after overwrite = true, want false")
	}
}

func TestFlipToggle(t *testing.T) {
	s := newTestStore(t)

	on, err := s.FlipToggle(3)
	if err != nil {
		t.Fatalf("FlipToggle() failed: %v", err)
	}
	if !on {
		t.Error("first flip = false, want true")
	}

	on, err = s.FlipToggle(3)
	if err != nil {
		t.Fatalf("FlipToggle() failed: %v", err)
	}
	if on {
		t.Error("second flip = true, want false")
	}
}

// TestFlipToggleParityUnderConcurrency verifies that n concurrent flips on
// one widget id net out to the parity of n, while flips on other widget ids
// proceed independently.
func TestFlipToggleParityUnderConcurrency(t *testing.T) {
	s := newTestStore(t)

	const flips = 40 // even
	var wg sync.WaitGroup
	for i := 0; i < flips; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.FlipToggle(1); err != nil {
				t.Errorf("FlipToggle(1) failed: %v", err)
			}
		}()
	}
	// Concurrent activity on an unrelated widget.
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.FlipToggle(2); err != nil {
				t.Errorf("FlipToggle(2) failed: %v", err)
			}
		}()
	}
	wg.Wait()

	on, err := s.GetToggle(1)
	if err != nil {
		t.Fatalf("GetToggle(1) failed: %v", err)
	}
	if on {
		t.Errorf("after %d flips, GetToggle(1) = true, want false", flips)
	}

	on, err = s.GetToggle(2)
	if err != nil {
		t.Fatalf("GetToggle(2) failed: %v", err)
	}
	if !on {
		t.Error("after 5 flips, GetToggle(2) = false, want true")
	}
}

func TestListToggles(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetToggle(2, true); err != nil {
		t.Fatalf("SetToggle() failed: %v", err)
	}
	if err := s.SetToggle(1, false); err != nil {
		t.Fatalf("SetToggle() failed: %v", err)
	}

	records, err := s.ListToggles()
	if err != nil {
		t.Fatalf("ListToggles() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListToggles() returned %d records, want 2", len(records))
	}
	if records[0].WidgetID != 1 || records[1].WidgetID != 2 {
		t.Errorf("records not ordered by widget id: %d, %d", records[0].WidgetID, records[1].WidgetID)
	}
	if records[0].On || !records[1].On {
		t.Errorf("flags = (%v, %v), want (false, true)", records[0].On, records[1].On)
	}
	if records[1].UpdatedAt.IsZero() {
		t.Error("UpdatedAt should not be zero")
	}
}

func TestAnyToggleOnAndClear(t *testing.T) {
	s := newTestStore(t)

	any, err := s.AnyToggleOn()
	if err != nil {
		t.Fatalf("AnyToggleOn() failed: %v", err)
	}
	if any {
		t.Error("AnyToggleOn() on empty store = true, want false")
	}

	if err := s.SetToggle(1, true); err != nil {
		t.Fatalf("SetToggle() failed: %v", err)
	}
	if err := s.SetToggle(2, false); err != nil {
		t.Fatalf("SetToggle() failed: %v", err)
	}

	any, err = s.AnyToggleOn()
	if err != nil {
		t.Fatalf("AnyToggleOn() failed: %v", err)
	}
	if !any {
		t.Error("AnyToggleOn() = false, want true")
	}

	if err := s.ClearToggles(); err != nil {
		t.Fatalf("ClearToggles() failed: %v", err)
	}
	any, err = s.AnyToggleOn()
	if err != nil {
		t.Fatalf("AnyToggleOn() failed: %v", err)
	}
	if any {
		t.Error("AnyToggleOn() after clear = true, want false")
	}
}

func TestInsertAndCloseRun(t *testing.T) {
	s := newTestStore(t)

	started := time.Now().UTC().Truncate(time.Second)
	run := &Run{
		ID:        uuid.New().String(),
		StartedAt: started,
		LogPath:   "/tmp/runs/track-20260830-120000.csv",
	}
	if err := s.InsertRun(run); err != nil {
		t.Fatalf("InsertRun() failed: %v", err)
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
	}
	if runs[0].StoppedAt != nil {
		t.Error("open run should have nil StoppedAt")
	}

	stopped := started.Add(5 * time.Minute)
	if err := s.CloseRun(run.ID, stopped, "stopped", 42); err != nil {
		t.Fatalf("CloseRun() failed: %v", err)
	}

	runs, err = s.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	got := runs[0]
	if got.StoppedAt == nil || !got.StoppedAt.Equal(stopped) {
		t.Errorf("StoppedAt = %v, want %v", got.StoppedAt, stopped)
	}
	if got.StopReason != "stopped" {
		t.Errorf("StopReason = %q, want %q", got.StopReason, "stopped")
	}
	if got.SampleCount != 42 {
		t.Errorf("SampleCount = %d, want 42", got.SampleCount)
	}
}

func TestCloseRunNotFound(t *testing.T) {
	s := newTestStore(t)

	if err := s.CloseRun("missing", time.Now(), "stopped", 0); err == nil {
		t.Error("CloseRun() should return error for unknown run")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		run := &Run{
			ID:        uuid.New().String(),
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			LogPath:   "/tmp/run.csv",
		}
		if err := s.InsertRun(run); err != nil {
			t.Fatalf("InsertRun() failed: %v", err)
		}
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRuns() returned %d runs, want 3", len(runs))
	}
	for i := 0; i < len(runs)-1; i++ {
		if runs[i].StartedAt.Before(runs[i+1].StartedAt) {
			t.Error("runs should be ordered by StartedAt descending")
		}
	}
}

func TestTogglesSurviveReopen(t *testing.T) {
	dbPath := t.TempDir() + "/geotrack.db"

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := s.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	if err := s.SetToggle(9, true); err != nil {
		t.Fatalf("SetToggle() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() on reopen failed: %v", err)
	}
	defer reopened.Close()

	on, err := reopened.GetToggle(9)
	if err != nil {
		t.Fatalf("GetToggle() after reopen failed: %v", err)
	}
	if !on {
		t.Error("toggle flag did not survive reopen")
	}
}
