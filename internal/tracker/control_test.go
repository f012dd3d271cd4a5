package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fieldline-systems/geotrack/internal/gps"
)

// startControl runs a ControlServer for the harness tracker and returns a
// client pointed at it.
func startControl(t *testing.T, h *testHarness) *Client {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "control.sock")
	srv := NewControlServer(h.tracker, socketPath)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &Client{SocketPath: socketPath}
}

func TestControlStartStopStatus(t *testing.T) {
	h := newTestTracker(t)
	client := startControl(t, h)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != "stopped" {
		t.Errorf("initial status = %q, want stopped", status)
	}

	if err := client.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.waitState(t, StateRunning)

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != "running" {
		t.Errorf("status after start = %q, want running", status)
	}

	if err := client.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	h.waitState(t, StateStopped)
}

func TestControlFeedStreamsSamples(t *testing.T) {
	h := newTestTracker(t)
	client := startControl(t, h)

	if err := client.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.waitState(t, StateRunning)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan gps.Sample, 8)
	feedDone := make(chan error, 1)
	go func() {
		feedDone <- client.Feed(ctx, func(s gps.Sample) { received <- s })
	}()

	// Wait for the feed subscription to register before emitting.
	waitFor(t, "feed subscriber", func() bool { return h.tracker.Hub().SubscriberCount() == 1 })

	want := sampleAt(1000)
	h.source.Emit(want)

	select {
	case got := <-received:
		if !got.CapturedAt.Equal(want.CapturedAt) {
			t.Errorf("feed sample at %v, want %v", got.CapturedAt, want.CapturedAt)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("feed never delivered the sample")
	}

	cancel()
	select {
	case err := <-feedDone:
		if err != nil {
			t.Errorf("Feed() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Feed() did not return after cancel")
	}
}

func TestControlUnknownVerb(t *testing.T) {
	h := newTestTracker(t)
	client := startControl(t, h)

	reply, err := client.roundTrip("FROBNICATE")
	if err != nil {
		t.Fatalf("roundTrip() error = %v", err)
	}
	if reply != "error: unknown command" {
		t.Errorf("reply = %q, want unknown-command error", reply)
	}
}

func TestControlClientDaemonNotRunning(t *testing.T) {
	client := &Client{SocketPath: filepath.Join(t.TempDir(), "absent.sock")}

	if _, err := client.Status(); err == nil {
		t.Errorf("Status() should fail when no daemon is listening")
	}
}
