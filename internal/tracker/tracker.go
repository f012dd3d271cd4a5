package tracker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline-systems/geotrack/internal/gps"
	"github.com/fieldline-systems/geotrack/internal/notify"
	"github.com/fieldline-systems/geotrack/internal/store"
)

// maxLogFailures is the number of consecutive sample-log append failures
// tolerated before the run is stopped. Protects against a persistently
// broken filesystem while letting a single bad write slide.
const maxLogFailures = 3

// State is the tracker's run state.
type State int

const (
	StateStopped State = iota
	StateRunning
)

// String returns the lowercase state name used on the control socket.
func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// StopReason describes why a run ended.
type StopReason string

const (
	// ReasonStopped is a requested stop (user command or daemon shutdown).
	ReasonStopped StopReason = "stopped"
	// ReasonInterrupted means the location subscription broke underneath
	// the run.
	ReasonInterrupted StopReason = "interrupted"
	// ReasonLogFailure means repeated sample-log writes failed.
	ReasonLogFailure StopReason = "log-failure"
)

// Notifier presents tracking status to the user. Implemented by
// notify.Presenter.
type Notifier interface {
	Present(state string, latest *gps.Sample) error
}

// sampleLog is the per-run log handle the state machine writes through.
// Implemented by RunLog; tests substitute failing implementations.
type sampleLog interface {
	Append(s gps.Sample) error
	Close() error
	Path() string
}

// runLease abstracts the exclusive run lease for testing.
type runLease interface {
	Release() error
}

// Config carries the tracker's collaborators. All fields are required.
type Config struct {
	Store    *store.Store
	Source   gps.Source
	Notifier Notifier

	// RunDir receives one sample log per run.
	RunDir string
	// LeasePath is the exclusive run-lease file.
	LeasePath string

	// Subscription filters passed to the source.
	MinInterval time.Duration
	MinDistance float64
}

// internalStopReq is a stop requested from inside a run's own pipeline.
// The run id guards against a stale request stopping a newer run.
type internalStopReq struct {
	runID  string
	reason StopReason
}

type cmdVerb int

const (
	cmdStart cmdVerb = iota
	cmdStop
)

// activeRun is the state owned by one Running interval.
type activeRun struct {
	id        string
	startedAt time.Time
	lease     runLease
	log       sampleLog
	cancel    context.CancelFunc
	done      chan struct{}
	samples   atomic.Int64
}

// Tracker is the single process-wide tracking state machine.
type Tracker struct {
	cfg Config
	hub *Hub

	commands     chan cmdVerb
	internalStop chan internalStopReq

	mu    sync.Mutex
	state State

	// cur is touched only from the Run loop goroutine.
	cur *activeRun

	// Test seams; New wires the real implementations.
	openLog      func(start time.Time) (sampleLog, error)
	acquireLease func() (runLease, error)
}

// New creates a Tracker in the Stopped state. Call Run to process commands.
func New(cfg Config) (*Tracker, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("tracker: store cannot be nil")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("tracker: source cannot be nil")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("tracker: notifier cannot be nil")
	}

	t := &Tracker{
		cfg:          cfg,
		hub:          NewHub(),
		commands:     make(chan cmdVerb, 16),
		internalStop: make(chan internalStopReq, 1),
		state:        StateStopped,
	}
	t.openLog = func(start time.Time) (sampleLog, error) {
		return OpenRunLog(cfg.RunDir, start)
	}
	t.acquireLease = func() (runLease, error) {
		return AcquireLease(cfg.LeasePath)
	}
	return t, nil
}

// Start requests a transition to Running. Fire-and-forget and idempotent:
// a Start while already Running is a no-op.
func (t *Tracker) Start() {
	t.commands <- cmdStart
}

// Stop requests a transition to Stopped. Fire-and-forget and idempotent.
func (t *Tracker) Stop() {
	t.commands <- cmdStop
}

// State returns the current run state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Hub returns the broadcast hub samples are published on.
func (t *Tracker) Hub() *Hub {
	return t.hub
}

// Run processes commands until ctx is cancelled, stopping any active run on
// the way out. All state transitions happen on this goroutine, so commands
// are serialized in arrival order.
func (t *Tracker) Run(ctx context.Context) {
	t.reconcile()

	for {
		select {
		case <-ctx.Done():
			t.stopRun(ReasonStopped)
			return
		case v := <-t.commands:
			switch v {
			case cmdStart:
				t.startRun()
			case cmdStop:
				t.stopRun(ReasonStopped)
			}
		case req := <-t.internalStop:
			if t.cur == nil || t.cur.id != req.runID {
				// Stale request from a run that already ended.
				continue
			}
			t.stopRun(req.reason)
		}
	}
}

// reconcile aligns actual state with persisted intent at daemon startup.
// A widget flag left on by a previous daemon (killed before it could act)
// means the user still wants tracking, so the run is started now.
func (t *Tracker) reconcile() {
	on, err := t.cfg.Store.AnyToggleOn()
	if err != nil {
		log.Printf("tracker: reconcile: %v", err)
		return
	}
	if on {
		log.Printf("tracker: persisted toggle is on, resuming tracking")
		t.startRun()
	}
}

// startRun performs the Stopped→Running transition. Any acquisition failure
// aborts the whole transition and leaves the tracker Stopped.
func (t *Tracker) startRun() {
	if t.cur != nil {
		log.Printf("tracker: start ignored: already running")
		return
	}

	startedAt := time.Now()

	lease, err := t.acquireLease()
	if err != nil {
		log.Printf("tracker: start failed: %v", err)
		return
	}

	runLog, err := t.openLog(startedAt)
	if err != nil {
		log.Printf("tracker: start failed: %v", err)
		if rerr := lease.Release(); rerr != nil {
			log.Printf("tracker: release lease: %v", rerr)
		}
		return
	}

	subCtx, cancel := context.WithCancel(context.Background())
	samples, errs, err := t.cfg.Source.Subscribe(subCtx, gps.SubscribeOptions{
		MinInterval: t.cfg.MinInterval,
		MinDistance: t.cfg.MinDistance,
	})
	if err != nil {
		log.Printf("tracker: start failed: subscribe: %v", err)
		cancel()
		if cerr := runLog.Close(); cerr != nil {
			log.Printf("tracker: close run log: %v", cerr)
		}
		if rerr := lease.Release(); rerr != nil {
			log.Printf("tracker: release lease: %v", rerr)
		}
		return
	}

	run := &activeRun{
		id:        uuid.New().String(),
		startedAt: startedAt,
		lease:     lease,
		log:       runLog,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	t.cur = run
	t.setState(StateRunning)

	if err := t.cfg.Notifier.Present(notify.StateStarted, nil); err != nil {
		log.Printf("tracker: present started: %v", err)
	}
	if err := t.cfg.Store.InsertRun(&store.Run{
		ID:        run.id,
		StartedAt: startedAt,
		LogPath:   runLog.Path(),
	}); err != nil {
		log.Printf("tracker: record run: %v", err)
	}

	go t.consume(run, samples, errs)

	log.Printf("tracker: run %s started (log %s)", run.id, runLog.Path())
}

// stopRun performs the Running→Stopped transition for the given reason.
// It is unconditionally effective: the subscription is cancelled first, the
// consumer drains out, and every held resource is released.
func (t *Tracker) stopRun(reason StopReason) {
	if t.cur == nil {
		if reason == ReasonStopped {
			log.Printf("tracker: stop ignored: not running")
		}
		return
	}

	run := t.cur
	run.cancel()
	<-run.done

	count := int(run.samples.Load())

	if err := run.log.Close(); err != nil {
		log.Printf("tracker: close run log: %v", err)
	}
	if err := run.lease.Release(); err != nil {
		log.Printf("tracker: release lease: %v", err)
	}

	state := notify.StateStopped
	if reason != ReasonStopped {
		state = notify.StateInterrupted
	}
	if err := t.cfg.Notifier.Present(state, nil); err != nil {
		log.Printf("tracker: present %s: %v", state, err)
	}

	if err := t.cfg.Store.CloseRun(run.id, time.Now(), string(reason), count); err != nil {
		log.Printf("tracker: close run record: %v", err)
	}
	if reason != ReasonStopped {
		// The run ended without the user asking: clear persisted intent so
		// the widgets do not advertise tracking that is no longer happening.
		if err := t.cfg.Store.ClearToggles(); err != nil {
			log.Printf("tracker: clear toggles: %v", err)
		}
	}

	t.cur = nil
	t.setState(StateStopped)

	log.Printf("tracker: run %s stopped (%s, %d samples)", run.id, reason, count)
}

// consume is the single per-run pipeline goroutine. It preserves delivery
// order in the sample log and ends when the subscription's channels close or
// an internal stop is requested.
func (t *Tracker) consume(run *activeRun, samples <-chan gps.Sample, errs <-chan error) {
	defer close(run.done)

	failures := 0
	for {
		select {
		case s, ok := <-samples:
			if !ok {
				return
			}

			if err := run.log.Append(s); err != nil {
				failures++
				log.Printf("tracker: append sample: %v", err)
				if failures >= maxLogFailures {
					log.Printf("tracker: %d consecutive log failures, stopping run %s", failures, run.id)
					t.requestStop(run.id, ReasonLogFailure)
					return
				}
			} else {
				failures = 0
				run.samples.Add(1)
			}

			if err := t.cfg.Notifier.Present(notify.StateTracking, &s); err != nil {
				log.Printf("tracker: present sample: %v", err)
			}
			t.hub.Publish(s)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("tracker: subscription broken: %v", err)
			t.requestStop(run.id, ReasonInterrupted)
			return
		}
	}
}

// requestStop queues an internal stop for the given run. Non-blocking; if a
// stop is already pending the new request is redundant anyway.
func (t *Tracker) requestStop(runID string, reason StopReason) {
	select {
	case t.internalStop <- internalStopReq{runID: runID, reason: reason}:
	default:
	}
}

func (t *Tracker) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}
