package notify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fieldline-systems/geotrack/internal/gps"
)

func TestPresentAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notify.json")
	p := NewPresenter(path)

	if err := p.Present(StateStarted, nil); err != nil {
		t.Fatalf("Present() failed: %v", err)
	}

	st, err := Read(path)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if st == nil {
		t.Fatal("Read() returned nil status")
	}
	if st.State != StateStarted {
		t.Errorf("State = %q, want %q", st.State, StateStarted)
	}
	if st.Latest != nil {
		t.Errorf("Latest = %+v, want nil", st.Latest)
	}
	if st.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should not be zero")
	}
}

func TestPresentLatestSampleOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notify.json")
	p := NewPresenter(path)

	first := gps.Sample{CapturedAt: time.Unix(100, 0), Lat: 10.0, Lon: 20.0}
	second := gps.Sample{CapturedAt: time.Unix(101, 0), Lat: 10.1, Lon: 20.1}

	if err := p.Present(StateTracking, &first); err != nil {
		t.Fatalf("Present() failed: %v", err)
	}
	if err := p.Present(StateTracking, &second); err != nil {
		t.Fatalf("Present() failed: %v", err)
	}

	st, err := Read(path)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if st.Latest == nil {
		t.Fatal("Latest should be set")
	}
	if st.Latest.Lat != 10.1 || st.Latest.Lon != 20.1 {
		t.Errorf("Latest = (%v, %v), want (10.1, 20.1)", st.Latest.Lat, st.Latest.Lon)
	}
}

func TestPresentUnwritableDirReturnsError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	dir := t.TempDir()
	if err := os.Chmod(dir, 0500); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	p := NewPresenter(filepath.Join(dir, "notify.json"))
	if err := p.Present(StateStarted, nil); err == nil {
		t.Error("Present() should fail when the directory is unwritable")
	}
}

func TestReadMissingFile(t *testing.T) {
	st, err := Read(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Read() on missing file failed: %v", err)
	}
	if st != nil {
		t.Errorf("Read() on missing file = %+v, want nil", st)
	}
}
