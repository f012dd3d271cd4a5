package tracker

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fieldline-systems/geotrack/internal/gps"
)

func TestOpenRunLogNamesByStartTime(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	rl, err := OpenRunLog(dir, start)
	if err != nil {
		t.Fatalf("OpenRunLog() error = %v", err)
	}
	defer rl.Close()

	want := "track-20260314-092653.csv"
	if got := rl.Path(); !strings.HasSuffix(got, want) {
		t.Errorf("Path() = %q, want suffix %q", got, want)
	}
}

func TestOpenRunLogCollisionSuffix(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	first, err := OpenRunLog(dir, start)
	if err != nil {
		t.Fatalf("OpenRunLog() error = %v", err)
	}
	defer first.Close()

	second, err := OpenRunLog(dir, start)
	if err != nil {
		t.Fatalf("second OpenRunLog() error = %v", err)
	}
	defer second.Close()

	if first.Path() == second.Path() {
		t.Errorf("colliding runs share log path %q", first.Path())
	}
	if !strings.Contains(second.Path(), "-1.csv") {
		t.Errorf("second Path() = %q, want -1 suffix", second.Path())
	}
}

func TestAppendWritesOneLinePerSample(t *testing.T) {
	dir := t.TempDir()

	rl, err := OpenRunLog(dir, time.Now())
	if err != nil {
		t.Fatalf("OpenRunLog() error = %v", err)
	}

	samples := []gps.Sample{
		{CapturedAt: time.Unix(0, 1000), Lat: 40.1, Lon: -74.2},
		{CapturedAt: time.Unix(0, 2000), Lat: 40.2, Lon: -74.3},
		{CapturedAt: time.Unix(0, 3000), Lat: 40.3, Lon: -74.4},
	}
	for _, s := range samples {
		if err := rl.Append(s); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := rl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(rl.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != len(samples) {
		t.Fatalf("log has %d lines, want %d", len(lines), len(samples))
	}
	for i, line := range lines {
		got, ok := gps.ParseLine(line)
		if !ok {
			t.Fatalf("line %d unparseable: %q", i, line)
		}
		if !got.CapturedAt.Equal(samples[i].CapturedAt) {
			t.Errorf("line %d timestamp = %v, want %v", i, got.CapturedAt, samples[i].CapturedAt)
		}
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	rl, err := OpenRunLog(t.TempDir(), time.Now())
	if err != nil {
		t.Fatalf("OpenRunLog() error = %v", err)
	}
	if err := rl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := rl.Append(gps.Sample{CapturedAt: time.Now()}); err == nil {
		t.Errorf("Append() after Close() should fail")
	}
}
