// Package output provides terminal output utilities for geotrack.
//
// This package includes:
//   - Table rendering for tracking runs and widget toggles
//   - Status rendering for the tracking notification state
//   - Spinners for indeterminate operations
//   - Human-readable formatting for dates and durations
//
// All rendering uses ASCII characters and ANSI color codes for terminal
// output. The spinner is thread-safe.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/fieldline-systems/geotrack/internal/notify"
	"github.com/fieldline-systems/geotrack/internal/store"
)

// ANSI color codes for run state display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderRunsTable renders a table of tracking runs, newest first. Expects
// runs pre-sorted by the store.
func RenderRunsTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No tracking runs recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-10s %-13s %-10s %-9s %-12s %s\n",
		"Run", "Started", "Duration", "Samples", "Ended", "Log"))
	sb.WriteString(strings.Repeat("─", 90))
	sb.WriteString("\n")

	for _, run := range runs {
		started := formatRelativeTime(run.StartedAt)
		duration := "running"
		ended := "active"
		if run.StoppedAt != nil {
			duration = formatDuration(run.StoppedAt.Sub(run.StartedAt))
			ended = formatStopReason(run.StopReason)
		}

		sb.WriteString(fmt.Sprintf("%-10s %-13s %-10s %-9d %-12s %s\n",
			shortID(run.ID),
			started,
			duration,
			run.SampleCount,
			ended,
			truncate(run.LogPath, 40)))
	}

	return sb.String()
}

// RenderToggleTable renders the persisted widget flags ordered by widget id.
func RenderToggleTable(toggles []*store.ToggleRecord) string {
	if len(toggles) == 0 {
		return "No widgets have been toggled yet.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-8s %-6s %s\n", "Widget", "Flag", "Updated"))
	sb.WriteString(strings.Repeat("─", 40))
	sb.WriteString("\n")

	for _, rec := range toggles {
		flag := "off"
		color := colorGray
		if rec.On {
			flag = "on"
			color = colorGreen
		}
		sb.WriteString(fmt.Sprintf("%-8d %-6s %s\n",
			rec.WidgetID,
			colorize(color, flag),
			formatRelativeTime(rec.UpdatedAt)))
	}

	return sb.String()
}

// RenderStatus renders the daemon state and, when available, the latest
// notification snapshot.
func RenderStatus(daemonState string, status *notify.Status) string {
	var sb strings.Builder

	switch daemonState {
	case "running":
		sb.WriteString(fmt.Sprintf("Tracking: %s\n", colorize(colorGreen, "running")))
	case "stopped":
		sb.WriteString(fmt.Sprintf("Tracking: %s\n", colorize(colorGray, "stopped")))
	default:
		sb.WriteString(fmt.Sprintf("Tracking: %s\n", daemonState))
	}

	if status == nil {
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Last update: %s (%s)\n",
		formatRelativeTime(status.UpdatedAt), status.State))
	if status.Latest != nil {
		sb.WriteString(fmt.Sprintf("Last fix: %.6f, %.6f at %s\n",
			status.Latest.Lat,
			status.Latest.Lon,
			status.Latest.CapturedAt.Local().Format("15:04:05")))
	}

	return sb.String()
}

// formatStopReason returns the colored display label for a run's end.
func formatStopReason(reason string) string {
	switch reason {
	case "stopped":
		return colorize(colorGray, "stopped")
	case "interrupted":
		return colorize(colorYellow, "interrupted")
	case "log-failure":
		return colorize(colorRed, "log-failure")
	default:
		return reason
	}
}

// formatDuration renders a run duration compactly (e.g. "1h 23m", "45s").
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	case diff < 365*24*time.Hour:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		years := int(diff.Hours() / 24 / 365)
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}

// shortID returns the leading segment of a run id for table display.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return truncate(id, 8)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
