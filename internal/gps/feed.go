package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the fallback polling cadence used when filesystem
// events are missed or unavailable.
const DefaultPollInterval = 2 * time.Second

// FeedSource tails a fix feed file that an external receiver appends to,
// one "<unix_nano>,<lat>,<lon>" line per fix.
//
// Delivery is event-driven via fsnotify on the feed's directory, with a
// ticker fallback so a missed event only delays samples by one poll
// interval. Tailing starts at the end of the file at subscribe time; fixes
// recorded before the subscription are not replayed.
//
// Malformed lines and lines whose timestamp goes backwards are transient:
// they are logged and skipped. Truncation or removal of the feed file while
// subscribed is fatal and ends the subscription.
type FeedSource struct {
	path string
	poll time.Duration

	mu         sync.Mutex
	prevCancel context.CancelFunc
}

// NewFeedSource creates a source tailing the feed file at path.
// A poll of 0 means DefaultPollInterval.
func NewFeedSource(path string, poll time.Duration) *FeedSource {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &FeedSource{path: path, poll: poll}
}

// Subscribe implements Source. A prior active subscription is replaced.
func (f *FeedSource) Subscribe(ctx context.Context, opts SubscribeOptions) (<-chan Sample, <-chan error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("feed: create watcher: %w", err)
	}

	// Watch the directory rather than the file so creation of a
	// not-yet-existing feed is observed too.
	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("feed: watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	if f.prevCancel != nil {
		f.prevCancel()
	}
	f.prevCancel = cancel
	f.mu.Unlock()

	samples := make(chan Sample)
	errs := make(chan error, 1)

	// Start tailing from the current end of the feed (0 if absent).
	var offset int64
	if fi, err := os.Stat(f.path); err == nil {
		offset = fi.Size()
	}

	go f.tail(ctx, watcher, offset, opts, samples, errs)

	return samples, errs, nil
}

// tail is the single producer goroutine for one subscription.
func (f *FeedSource) tail(ctx context.Context, watcher *fsnotify.Watcher, offset int64, opts SubscribeOptions, samples chan<- Sample, errs chan<- error) {
	defer close(samples)
	defer close(errs)
	defer watcher.Close()

	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	var last *Sample

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				errs <- fmt.Errorf("feed: watcher closed unexpectedly")
				return
			}
			if ev.Name != f.path {
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				errs <- fmt.Errorf("feed: %s removed while subscribed", f.path)
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			newOffset, done := f.drain(ctx, offset, opts, &last, samples, errs)
			if done {
				return
			}
			offset = newOffset

		case err, ok := <-watcher.Errors:
			if !ok {
				errs <- fmt.Errorf("feed: watcher closed unexpectedly")
				return
			}
			errs <- fmt.Errorf("feed: watcher: %w", err)
			return

		case <-ticker.C:
			newOffset, done := f.drain(ctx, offset, opts, &last, samples, errs)
			if done {
				return
			}
			offset = newOffset
		}
	}
}

// drain reads feed lines appended since offset and delivers the ones that
// pass the subscription filters. Returns the new offset and whether the
// subscription is finished (context cancelled or fatal error sent).
func (f *FeedSource) drain(ctx context.Context, offset int64, opts SubscribeOptions, last **Sample, samples chan<- Sample, errs chan<- error) (int64, bool) {
	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		// Feed not created yet — only fatal once we have tailed it.
		if offset > 0 {
			errs <- fmt.Errorf("feed: %s removed while subscribed", f.path)
			return offset, true
		}
		return offset, false
	}
	if err != nil {
		errs <- fmt.Errorf("feed: open: %w", err)
		return offset, true
	}
	defer file.Close()

	fi, err := file.Stat()
	if err != nil {
		errs <- fmt.Errorf("feed: stat: %w", err)
		return offset, true
	}
	if fi.Size() < offset {
		errs <- fmt.Errorf("feed: %s truncated (size %d below offset %d)", f.path, fi.Size(), offset)
		return offset, true
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		errs <- fmt.Errorf("feed: seek: %w", err)
		return offset, true
	}

	// Consume only complete lines: a fix the receiver is mid-append on is
	// left for the next drain rather than parsed as garbage.
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return offset, false
		}
		if err != nil {
			errs <- fmt.Errorf("feed: read: %w", err)
			return offset, true
		}
		offset += int64(len(line))

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		s, ok := ParseLine(line)
		if !ok {
			log.Printf("feed: skipping malformed line: %q", line)
			continue
		}
		if *last != nil && s.CapturedAt.Before((*last).CapturedAt) {
			log.Printf("feed: skipping out-of-order fix at %s", s.CapturedAt.Format(time.RFC3339Nano))
			continue
		}
		if !f.passes(opts, *last, s) {
			continue
		}

		select {
		case samples <- s:
			cp := s
			*last = &cp
		case <-ctx.Done():
			return offset, true
		}
	}
}

// passes applies the subscription's interval and distance thresholds
// against the previously delivered sample.
func (f *FeedSource) passes(opts SubscribeOptions, last *Sample, s Sample) bool {
	if last == nil {
		return true
	}
	if opts.MinInterval > 0 && s.CapturedAt.Sub(last.CapturedAt) < opts.MinInterval {
		return false
	}
	if opts.MinDistance > 0 && distanceMeters(last.Lat, last.Lon, s.Lat, s.Lon) < opts.MinDistance {
		return false
	}
	return true
}
