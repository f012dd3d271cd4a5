// Package tracker owns the background location-tracking run loop.
//
// A single Tracker instance per daemon moves between Stopped and Running in
// response to Start/Stop commands. Commands arrive over a serialized queue,
// so transitions never run concurrently and duplicates collapse to no-ops.
// While Running, one consumer goroutine fans each position sample out to the
// per-run sample log, the status notification, and the broadcast hub.
//
// Key properties:
//   - Idempotent Start/Stop (duplicate commands are logged no-ops)
//   - One run lease + one sample log per run, released on every stop path
//   - Internal stops (broken subscription, persistent log failures) are
//     tagged with the run id so a stale request can never kill a newer run
//   - Stop is unconditionally effective, including mid-run
//
// Example usage:
//
//	st, _ := store.New("~/.geotrack/geotrack.db")
//	src := gps.NewFeedSource("~/.geotrack/fixes.log", 0)
//	tr, _ := tracker.New(tracker.Config{
//		Store:     st,
//		Source:    src,
//		Notifier:  notify.NewPresenter("~/.geotrack/notify.json"),
//		RunDir:    "~/.geotrack/runs",
//		LeasePath: "~/.geotrack/track.lease",
//	})
//
//	go tr.Run(ctx)
//	tr.Start()
//	// ...
//	tr.Stop()
package tracker
