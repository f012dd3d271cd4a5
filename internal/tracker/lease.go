package tracker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLeaseHeld is returned when the run lease belongs to a live process.
var ErrLeaseHeld = errors.New("run lease held by another process")

// Lease is an exclusive filesystem lease over the tracking run. It stands in
// for the platform's foreground-execution grant: at most one live process
// holds it, and every run acquires it before touching the sample pipeline.
type Lease struct {
	path string
}

// AcquireLease takes the lease at path, writing the current PID into it.
// A lease file whose recorded process is no longer alive is treated as stale
// and reclaimed. Acquisition failure is fatal for the Start transition and
// is not retried automatically.
func AcquireLease(path string) (*Lease, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("lease: create directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("lease: write pid: %w", errors.Join(werr, cerr))
			}
			return &Lease{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("lease: create: %w", err)
		}
		if leaseHolderAlive(path) {
			return nil, ErrLeaseHeld
		}
		// Stale lease from a dead process — reclaim and retry once.
		os.Remove(path)
	}
	return nil, ErrLeaseHeld
}

// Release removes the lease file. Releasing an already-released lease is a
// no-op.
func (l *Lease) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lease: remove: %w", err)
	}
	return nil
}

// leaseHolderAlive reports whether the PID recorded in the lease file refers
// to a live process. Unreadable or malformed lease files count as dead.
func leaseHolderAlive(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}
	if pid == os.Getpid() {
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
