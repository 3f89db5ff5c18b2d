// Package scan runs the bounded-concurrency discover-and-extract pipeline
// behind start_scan / cancel_scan / get_scan_status (spec §4.4) and the
// refresh sweep that serves cached results while catching up with the
// filesystem (spec §4.5).
package scan

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/prismassets/core/index"
)

// Lifecycle is the terminal-or-not state of a scan.
type Lifecycle string

const (
	LifecycleScanning  Lifecycle = "scanning"
	LifecycleCompleted Lifecycle = "completed"
	LifecycleCancelled Lifecycle = "cancelled"
	LifecycleError     Lifecycle = "error"
)

// Phase is the sub-state while Lifecycle == scanning.
type Phase string

const (
	PhaseEstimating Phase = "estimating"
	PhaseScanning   Phase = "scanning"
	PhaseRefreshing Phase = "refreshing"
)

// State is the mutable, concurrently-observed status of one scan. Counters
// are updated with atomic operations so get_scan_status never takes a lock
// against the worker pool (spec §5).
type State struct {
	ScanID uuid.UUID

	lifecycle atomic.Value // Lifecycle
	phase     atomic.Value // Phase
	cancelled atomic.Bool

	totalContainers   atomic.Int64
	scannedContainers atomic.Int64
	assetCount        atomic.Int64

	errMu sync.Mutex
	err   error

	snapshot atomic.Pointer[index.Snapshot]

	StartedAt time.Time
}

// NewState creates a fresh scanning state with a new random scan id.
func NewState() *State {
	s := &State{ScanID: uuid.New(), StartedAt: timeNow()}
	s.lifecycle.Store(LifecycleScanning)
	s.phase.Store(PhaseEstimating)
	return s
}

func (s *State) Lifecycle() Lifecycle { return s.lifecycle.Load().(Lifecycle) }
func (s *State) Phase() Phase         { return s.phase.Load().(Phase) }

func (s *State) setLifecycle(l Lifecycle) { s.lifecycle.Store(l) }
func (s *State) setPhase(p Phase)         { s.phase.Store(p) }

// Cancel sets the cooperative cancellation flag (spec §4.4 step 6): workers
// check it between containers and before each entry extraction.
func (s *State) Cancel() { s.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called.
func (s *State) Cancelled() bool { return s.cancelled.Load() }

// Counters returns the current progress snapshot.
func (s *State) Counters() (total, scanned, assets int64) {
	return s.totalContainers.Load(), s.scannedContainers.Load(), s.assetCount.Load()
}

// Err returns the terminal error, if lifecycle == error.
func (s *State) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *State) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

// Snapshot returns the current frozen index, or nil before the first commit.
func (s *State) Snapshot() *index.Snapshot { return s.snapshot.Load() }

var timeNow = time.Now
