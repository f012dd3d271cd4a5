// Package widget implements the toggle control surface. Each widget carries
// a persisted boolean flag; tapping it flips the flag and commands the
// tracker accordingly.
package widget

import (
	"log"

	"github.com/fieldline-systems/geotrack/internal/store"
)

// Commander issues fire-and-forget tracking commands. Implemented by the
// tracker directly and by the control-socket client when the daemon runs in
// another process.
type Commander interface {
	Start() error
	Stop() error
}

// Surface handles widget taps.
type Surface struct {
	Store     *store.Store
	Commander Commander
}

// OnToggle flips the persisted flag for widgetID and commands the tracker to
// match. The returned flag is what the widget should display.
//
// The flip is the user-visible action and never blocks on downstream
// success: persistence and command failures are logged, and the widget shows
// the flipped value regardless.
func (s *Surface) OnToggle(widgetID int) bool {
	on, err := s.Store.FlipToggle(widgetID)
	if err != nil {
		log.Printf("widget %d: persist toggle: %v", widgetID, err)
	}

	if on {
		if err := s.Commander.Start(); err != nil {
			log.Printf("widget %d: start tracking: %v", widgetID, err)
		}
	} else {
		if err := s.Commander.Stop(); err != nil {
			log.Printf("widget %d: stop tracking: %v", widgetID, err)
		}
	}
	return on
}
