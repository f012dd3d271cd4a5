// Package config provides configuration file parsing for geotrack.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the config file is absent or a key is missing.
const (
	DefaultMinInterval = 1 * time.Second
	DefaultMinDistance = 0.0
)

// Dir returns the geotrack config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/geotrack if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "geotrack"), nil
}

// Config holds the tracking settings declared by the user.
type Config struct {
	// FeedPath is the fix feed file the location source tails. Empty means
	// no feed is configured.
	FeedPath string
	// MinInterval is the minimum time between delivered fixes.
	MinInterval time.Duration
	// MinDistance is the minimum movement in meters between delivered fixes.
	MinDistance float64
}

// Load reads the config file at {dir}/config and returns the parsed
// settings. If the file does not exist, defaults are returned without an
// error. Invalid or malformed lines are silently skipped.
func Load(dir string) (*Config, error) {
	cfg := &Config{
		MinInterval: DefaultMinInterval,
		MinDistance: DefaultMinDistance,
	}

	path := filepath.Join(dir, "config")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Expect exactly one "=" separating key from value.
		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue // no "=" or "=" is first character — invalid, skip
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		if key == "" || value == "" {
			continue // either side is blank — invalid, skip
		}

		switch key {
		case "feed":
			cfg.FeedPath = value
		case "min_interval_ms":
			ms, err := strconv.Atoi(value)
			if err != nil || ms < 0 {
				continue
			}
			cfg.MinInterval = time.Duration(ms) * time.Millisecond
		case "min_distance_m":
			m, err := strconv.ParseFloat(value, 64)
			if err != nil || m < 0 {
				continue
			}
			cfg.MinDistance = m
		}
	}

	if err := scanner.Err(); err != nil {
		return cfg, err
	}

	return cfg, nil
}
