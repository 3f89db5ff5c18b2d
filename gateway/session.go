// Package gateway hosts the single mutable Session object behind the
// engine's command/event surface (spec §9 "Global mutable state"): a
// cooperative single-threaded loop serializes every command against state
// mutation, while scans and exports run on their own pools and report back
// through buffered event channels (spec §5).
package gateway

import (
	"github.com/prismassets/core/export"
	"github.com/prismassets/core/scan"
	"github.com/prismassets/core/scancache"
	"github.com/prismassets/core/stats"
)

// eventBufferSize bounds the per-channel event queue the publisher drains;
// scan/export producers drop progress frames rather than block on a slow
// consumer (see scan.Events / export.Events coalescing-by-select).
const eventBufferSize = 256

// Session is the single per-process object holding
// {activeScanId, scansById, activeExportOperationId} (spec §9). All
// mutation and lookups run inside loop() via do(); callers never touch the
// maps directly.
type Session struct {
	cache     *scancache.Cache
	collector stats.Collector

	cmdCh chan func()

	scansByID          map[string]*scan.State
	activeScanID       string
	exportsByID        map[string]*export.Operation
	activeExportOpID   string

	scanEvents   chan ScanEvent
	exportEvents chan ExportEvent
}

// ScanEvent is a scan://progress / scan://completed / scan://error frame
// ready for SSE delivery, tagged with the concrete channel name.
type ScanEvent struct {
	Channel string // "scan.progress" | "scan.completed" | "scan.error"
	Payload any
}

// ExportEvent is an export://progress / export://completed frame.
type ExportEvent struct {
	Channel string // "export.progress" | "export.completed"
	Payload any
}

// NewSession constructs a Session and starts its command loop. Callers must
// call Close when the daemon shuts down.
func NewSession(cache *scancache.Cache, collector stats.Collector) *Session {
	if collector == nil {
		collector = stats.NoopCollector{}
	}
	s := &Session{
		cache:        cache,
		collector:    collector,
		cmdCh:        make(chan func()),
		scansByID:    make(map[string]*scan.State),
		exportsByID:  make(map[string]*export.Operation),
		scanEvents:   make(chan ScanEvent, eventBufferSize),
		exportEvents: make(chan ExportEvent, eventBufferSize),
	}
	go s.loop()
	return s
}

// loop is the cooperative single-threaded message loop (spec §9): every
// command handler below submits its state mutation as a closure here
// rather than taking a lock directly, so long operations (scan, export)
// never block it — they run on their own pool and report back through
// ScanEvents/ExportEvents.
func (s *Session) loop() {
	for fn := range s.cmdCh {
		fn()
	}
}

// do submits fn to the loop and blocks until it has run.
func (s *Session) do(fn func()) {
	done := make(chan struct{})
	s.cmdCh <- func() {
		fn()
		close(done)
	}
	<-done
}

// Close stops the command loop. Pending do() calls will block forever if
// issued concurrently with Close; callers must quiesce commands first.
func (s *Session) Close() {
	close(s.cmdCh)
}

// ScanEvents returns the channel an event publisher should drain for
// scan.* SSE frames.
func (s *Session) ScanEvents() <-chan ScanEvent { return s.scanEvents }

// ExportEvents returns the channel an event publisher should drain for
// export.* SSE frames.
func (s *Session) ExportEvents() <-chan ExportEvent { return s.exportEvents }

func (s *Session) publishScanProgress(ev scan.ProgressEvent) {
	select {
	case s.scanEvents <- ScanEvent{Channel: "scan.progress", Payload: ev}:
	default:
	}
}

func (s *Session) publishScanTerminal(ev scan.TerminalEvent) {
	channel := "scan.completed"
	if ev.Lifecycle == scan.LifecycleError {
		channel = "scan.error"
	}
	s.scanEvents <- ScanEvent{Channel: channel, Payload: ev}
}

func (s *Session) publishExportProgress(ev export.ProgressEvent) {
	select {
	case s.exportEvents <- ExportEvent{Channel: "export.progress", Payload: ev}:
	default:
	}
}

func (s *Session) publishExportCompleted(ev export.CompletedEvent) {
	s.exportEvents <- ExportEvent{Channel: "export.completed", Payload: ev}
}

// scanEventsBridge wires a scan.Events pair into the session's publish
// methods; used by StartScan so the background goroutine running
// Orchestrator.Run never touches Session state directly.
func (s *Session) scanEventsBridge() (chan scan.ProgressEvent, chan scan.TerminalEvent, func()) {
	progress := make(chan scan.ProgressEvent, eventBufferSize)
	terminal := make(chan scan.TerminalEvent, 1)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-progress:
				if !ok {
					return
				}
				s.publishScanProgress(ev)
			case ev := <-terminal:
				s.publishScanTerminal(ev)
				return
			case <-stop:
				return
			}
		}
	}()
	return progress, terminal, func() { close(stop) }
}

func (s *Session) exportEventsBridge() (chan export.ProgressEvent, chan export.CompletedEvent) {
	progress := make(chan export.ProgressEvent, eventBufferSize)
	completed := make(chan export.CompletedEvent, 1)
	go func() {
		for {
			select {
			case ev, ok := <-progress:
				if !ok {
					return
				}
				s.publishExportProgress(ev)
			case ev := <-completed:
				s.publishExportCompleted(ev)
				return
			}
		}
	}()
	return progress, completed
}
