// Package gps provides position samples and the sources that produce them.
//
// A sample is one timestamped fix. The canonical wire/log form is one line
// per sample:
//
//	<unix_nano>,<lat>,<lon>
//
// Example:
//
//	1709012345678901234,52.520008,13.404954
//
// The same line format is used by the fix feed file, the per-run sample log,
// and the control-socket FEED stream.
package gps

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"
)

// Sample is a single position fix. Immutable once produced.
type Sample struct {
	CapturedAt time.Time
	Lat        float64
	Lon        float64
}

// FormatLine renders s in the canonical one-line form (no trailing newline).
func FormatLine(s Sample) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(s.CapturedAt.UnixNano(), 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(s.Lat, 'f', 6, 64))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(s.Lon, 'f', 6, 64))
	return b.String()
}

// ParseLine parses a line of the form "<unix_nano>,<lat>,<lon>".
// Returns (Sample{}, false) on any parse error.
func ParseLine(line string) (Sample, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Sample{}, false
	}

	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || ts <= 0 {
		return Sample{}, false
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || lat < -90 || lat > 90 {
		return Sample{}, false
	}
	lon, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || lon < -180 || lon > 180 {
		return Sample{}, false
	}

	return Sample{CapturedAt: time.Unix(0, ts), Lat: lat, Lon: lon}, true
}

// SubscribeOptions filter the delivered stream. Zero values disable the
// corresponding filter.
type SubscribeOptions struct {
	// MinInterval drops samples captured less than this long after the
	// previously delivered one.
	MinInterval time.Duration

	// MinDistance drops samples closer than this many meters to the
	// previously delivered one.
	MinDistance float64
}

// Source yields asynchronous position updates.
//
// Subscribe returns a sample channel and a fatal-error channel. Transient
// problems (a single malformed fix) are handled inside the source and never
// surface here; anything sent on the error channel means the subscription
// itself is broken and no further samples will arrive. Both channels are
// closed when the subscription ends. Unsubscribing is done by cancelling ctx.
//
// Calling Subscribe while a prior subscription is active replaces it: the
// prior subscription's channels are closed as if its context were cancelled.
type Source interface {
	Subscribe(ctx context.Context, opts SubscribeOptions) (<-chan Sample, <-chan error, error)
}

const earthRadiusM = 6371000.0

// distanceMeters approximates the ground distance between two fixes using
// the equirectangular projection. Adequate for the meters-to-kilometers
// separations seen between consecutive samples.
func distanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	x := (lon2 - lon1) * degToRad * math.Cos((lat1+lat2)/2*degToRad)
	y := (lat2 - lat1) * degToRad
	return math.Sqrt(x*x+y*y) * earthRadiusM
}
