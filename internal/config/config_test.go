package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() returned error for missing file: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}
	if cfg.FeedPath != "" {
		t.Errorf("FeedPath = %q, want empty", cfg.FeedPath)
	}
	if cfg.MinInterval != DefaultMinInterval {
		t.Errorf("MinInterval = %v, want %v", cfg.MinInterval, DefaultMinInterval)
	}
	if cfg.MinDistance != DefaultMinDistance {
		t.Errorf("MinDistance = %v, want %v", cfg.MinDistance, DefaultMinDistance)
	}
}

func TestLoad_AllKeys(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `# geotrack config
feed=/var/run/gpsd/fixes
min_interval_ms=2500
min_distance_m=10.5
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.FeedPath != "/var/run/gpsd/fixes" {
		t.Errorf("FeedPath = %q, want /var/run/gpsd/fixes", cfg.FeedPath)
	}
	if cfg.MinInterval != 2500*time.Millisecond {
		t.Errorf("MinInterval = %v, want 2.5s", cfg.MinInterval)
	}
	if cfg.MinDistance != 10.5 {
		t.Errorf("MinDistance = %v, want 10.5", cfg.MinDistance)
	}
}

func TestLoad_CommentsAndBlankLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `# this is a comment
# another comment


feed=/tmp/fixes
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.FeedPath != "/tmp/fixes" {
		t.Errorf("FeedPath = %q, want /tmp/fixes", cfg.FeedPath)
	}
}

func TestLoad_InvalidLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	// Mix of valid and invalid lines.
	writeConfig(t, dir, `noequalssign
=missingkey
min_interval_ms=notanumber
min_interval_ms=-5
min_distance_m=abc
unknown_key=ignored
feed=/tmp/fixes
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.FeedPath != "/tmp/fixes" {
		t.Errorf("FeedPath = %q, want /tmp/fixes", cfg.FeedPath)
	}
	if cfg.MinInterval != DefaultMinInterval {
		t.Errorf("MinInterval = %v, want default after invalid values", cfg.MinInterval)
	}
	if cfg.MinDistance != DefaultMinDistance {
		t.Errorf("MinDistance = %v, want default after invalid values", cfg.MinDistance)
	}
}

func TestLoad_LastValueWins(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `feed=/tmp/first
feed=/tmp/second
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.FeedPath != "/tmp/second" {
		t.Errorf("FeedPath = %q, want /tmp/second", cfg.FeedPath)
	}
}

func TestDir_RespectsXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if dir != "/custom/config/geotrack" {
		t.Errorf("Dir() = %q, want /custom/config/geotrack", dir)
	}
}
