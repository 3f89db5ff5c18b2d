package scan

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/prismassets/core/asset"
	"github.com/prismassets/core/container"
	"github.com/prismassets/core/index"
	"github.com/prismassets/core/internal/errkind"
	"github.com/prismassets/core/log"
	"github.com/prismassets/core/scancache"
	"github.com/prismassets/core/stats"
)

// maxWorkers bounds the scan pool (spec §4.4: "default = min(CPUs, 8)").
func maxWorkers() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	if n < 1 {
		return 1
	}
	return n
}

// ProgressEvent is emitted on scan://progress (coalesced to ~20 Hz per scan).
type ProgressEvent struct {
	ScanID            string
	Phase             Phase
	ScannedContainers int64
	TotalContainers   int64
	AssetCount        int64
}

// TerminalEvent is emitted once, on scan://completed or scan://error.
type TerminalEvent struct {
	ScanID   string
	Lifecycle Lifecycle
	Error    error
}

// Events is the sink an Orchestrator run reports to. A nil channel field is
// valid and simply drops that event kind (used by tests and by callers not
// yet wired to the gateway's publisher).
type Events struct {
	Progress chan<- ProgressEvent
	Terminal chan<- TerminalEvent
}

func (e Events) progress(ev ProgressEvent) {
	if e.Progress == nil {
		return
	}
	select {
	case e.Progress <- ev:
	default:
	}
}

func (e Events) terminal(ev TerminalEvent) {
	if e.Terminal == nil {
		return
	}
	e.Terminal <- ev
}

// Orchestrator runs the discover-extract-index pipeline for one scan (spec
// §4.4) and the cache refresh sweep (spec §4.5).
type Orchestrator struct {
	cache     *scancache.Cache
	collector stats.Collector
}

// NewOrchestrator builds an Orchestrator. A nil collector is replaced with
// stats.NoopCollector; a nil cache disables cache-hit/persist entirely
// (every start_scan behaves as a forced rescan).
func NewOrchestrator(cache *scancache.Cache, collector stats.Collector) *Orchestrator {
	if collector == nil {
		collector = stats.NoopCollector{}
	}
	return &Orchestrator{cache: cache, collector: collector}
}

// progressCoalesceInterval bounds progress event emission to ~20 Hz per
// scan (spec §4.4 step 4).
const progressCoalesceInterval = 50 * time.Millisecond

// Run executes a full discover+scan cycle against cfg, returns once the
// scan reaches a terminal lifecycle. It never returns an error itself:
// fatal failures are recorded onto State and published as scan://error.
func (o *Orchestrator) Run(ctx context.Context, st *State, cfg container.DiscoveryConfig, cacheKey scancache.Key, events Events) {
	start := time.Now()

	if o.cache != nil {
		if rec, ok := o.cache.Load(cacheKey); ok {
			st.snapshot.Store(index.NewSnapshot(rec.Records))
			st.assetCount.Store(int64(len(rec.Records)))
			st.setPhase(PhaseRefreshing)
			o.refresh(ctx, st, cfg, cacheKey, rec, events)
			return
		}
	}

	st.setPhase(PhaseEstimating)
	containers, warnings, err := container.Discover(cfg)
	for _, w := range warnings {
		log.Warnf("scan %s: discovery warning: %v", st.ScanID, w)
	}
	if err != nil {
		o.fail(st, events, errors.Wrap(errkind.ErrDiscovery, err.Error()))
		return
	}

	st.totalContainers.Store(int64(len(containers)))
	st.setPhase(PhaseScanning)

	records, fingerprints, scanErr := o.extractAll(ctx, st, containers, events)
	if st.Cancelled() {
		st.setLifecycle(LifecycleCancelled)
		events.terminal(TerminalEvent{ScanID: st.ScanID.String(), Lifecycle: LifecycleCancelled})
		o.collector.AfterScan(time.Since(start), len(records), nil)
		return
	}
	if scanErr != nil {
		o.fail(st, events, scanErr)
		return
	}

	st.snapshot.Store(index.NewSnapshot(records))
	st.assetCount.Store(int64(len(records)))
	st.setLifecycle(LifecycleCompleted)

	if o.cache != nil {
		if err := o.cache.Store(cacheKey, records, fingerprints); err != nil {
			log.Warnf("scan %s: cache store failed: %v", st.ScanID, err)
		}
	}
	events.terminal(TerminalEvent{ScanID: st.ScanID.String(), Lifecycle: LifecycleCompleted})
	log.Infof("scan %s: completed, %d assets, %s", st.ScanID, len(records), humanize.Bytes(uint64(totalBytes(records))))
	o.collector.AfterScan(time.Since(start), len(records), nil)
}

func totalBytes(records []asset.Record) int64 {
	var total int64
	for _, r := range records {
		total += r.SizeBytes
	}
	return total
}

func (o *Orchestrator) fail(st *State, events Events, err error) {
	st.setErr(err)
	st.setLifecycle(LifecycleError)
	events.terminal(TerminalEvent{ScanID: st.ScanID.String(), Lifecycle: LifecycleError, Error: err})
	o.collector.AfterScan(0, 0, err)
}

// extractAll drains containers through a bounded worker pool, appending
// extracted records into a single thread-safe builder (spec §4.4 step 4).
func (o *Orchestrator) extractAll(ctx context.Context, st *State, containers []*container.Container, events Events) ([]asset.Record, map[string]scancache.ContainerFingerprint, error) {
	extractor := asset.NewExtractor(o.collector)

	var mu sync.Mutex
	var records []asset.Record
	fingerprints := make(map[string]scancache.ContainerFingerprint)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers())

	lastEmit := time.Now()
	var emitMu sync.Mutex

	for _, c := range containers {
		c := c
		g.Go(func() error {
			if st.Cancelled() || gctx.Err() != nil {
				return nil
			}

			runtimeStart := time.Now()
			r, err := container.NewReader(c)
			if err != nil {
				log.Warnf("scan %s: container %q: %v", st.ScanID, c.Path, err)
				o.collector.AfterContainerScanned(c.Path, time.Since(runtimeStart), err)
				st.scannedContainers.Add(1)
				return nil
			}
			defer r.Close()

			recs, err := extractor.ExtractContainer(flagContext{Context: gctx, st: st}, c, r)
			o.collector.AfterContainerScanned(c.Path, time.Since(runtimeStart), err)
			if err != nil {
				log.Warnf("scan %s: container %q: %v", st.ScanID, c.Path, err)
			}

			fp, fpErr := fingerprintContainer(gctx, c)
			if fpErr == nil {
				mu.Lock()
				fingerprints[c.Path] = fp
				mu.Unlock()
			}

			mu.Lock()
			records = append(records, recs...)
			total := int64(len(records))
			// Store while still holding mu so concurrent workers' stores land in
			// the same order their totals were computed; storing after unlock
			// lets a later, smaller total overwrite an earlier, larger one.
			st.assetCount.Store(total)
			mu.Unlock()

			scanned := st.scannedContainers.Add(1)

			emitMu.Lock()
			if time.Since(lastEmit) >= progressCoalesceInterval {
				lastEmit = time.Now()
				events.progress(ProgressEvent{
					ScanID:            st.ScanID.String(),
					Phase:             st.Phase(),
					ScannedContainers: scanned,
					TotalContainers:   st.totalContainers.Load(),
					AssetCount:        total,
				})
			}
			emitMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return records, fingerprints, err
	}
	return records, fingerprints, nil
}

// refresh implements the cache refresh sweep (spec §4.5): recompute the
// current container set, diff fingerprints against the cached ones, and
// re-extract only what changed.
func (o *Orchestrator) refresh(ctx context.Context, st *State, cfg container.DiscoveryConfig, cacheKey scancache.Key, prev scancache.Record, events Events) {
	start := time.Now()

	containers, warnings, err := container.Discover(cfg)
	for _, w := range warnings {
		log.Warnf("scan %s: refresh discovery warning: %v", st.ScanID, w)
	}
	if err != nil {
		o.fail(st, events, errors.Wrap(errkind.ErrDiscovery, err.Error()))
		return
	}
	st.totalContainers.Store(int64(len(containers)))

	var toScan []*container.Container
	kept := make([]asset.Record, 0, len(prev.Records))
	byContainerPath := make(map[string][]asset.Record, len(prev.Records))
	for _, r := range prev.Records {
		byContainerPath[r.ContainerPath] = append(byContainerPath[r.ContainerPath], r)
	}

	seen := make(map[string]bool, len(containers))
	for _, c := range containers {
		seen[c.Path] = true
		fp, err := fingerprintContainer(ctx, c)
		if err != nil {
			toScan = append(toScan, c)
			continue
		}
		prevFP, existed := prev.Fingerprints[c.Path]
		if existed && !scancache.Changed(prevFP, fp) {
			kept = append(kept, byContainerPath[c.Path]...)
			continue
		}
		toScan = append(toScan, c)
	}
	// Removed containers: any cached container path absent from the current
	// discovery is simply not carried into `kept`.

	var reExtracted []asset.Record
	var reFingerprints map[string]scancache.ContainerFingerprint
	if len(toScan) > 0 {
		reExtracted, reFingerprints, err = o.extractAll(ctx, st, toScan, events)
		if err != nil {
			o.fail(st, events, err)
			return
		}
	}
	if st.Cancelled() {
		st.setLifecycle(LifecycleCancelled)
		events.terminal(TerminalEvent{ScanID: st.ScanID.String(), Lifecycle: LifecycleCancelled})
		return
	}

	finalRecords := append(kept, reExtracted...)
	finalFingerprints := make(map[string]scancache.ContainerFingerprint, len(prev.Fingerprints))
	for path, fp := range prev.Fingerprints {
		if seen[path] {
			finalFingerprints[path] = fp
		}
	}
	for path, fp := range reFingerprints {
		finalFingerprints[path] = fp
	}

	st.snapshot.Store(index.NewSnapshot(finalRecords))
	st.assetCount.Store(int64(len(finalRecords)))
	st.setLifecycle(LifecycleCompleted)

	if o.cache != nil {
		if err := o.cache.Store(cacheKey, finalRecords, finalFingerprints); err != nil {
			log.Warnf("scan %s: refresh cache store failed: %v", st.ScanID, err)
		}
	}
	events.terminal(TerminalEvent{ScanID: st.ScanID.String(), Lifecycle: LifecycleCompleted})
	log.Infof("scan %s: refresh completed, %d kept, %d rescanned, %s total", st.ScanID, len(kept), len(reExtracted), humanize.Bytes(uint64(totalBytes(finalRecords))))
	o.collector.AfterScan(time.Since(start), len(finalRecords), nil)
}

// flagContext exposes the scan's cooperative cancel flag through Err, so the
// extractor's per-entry ctx.Err() check also stops once State.Cancel is set.
type flagContext struct {
	context.Context
	st *State
}

func (c flagContext) Err() error {
	if c.st.Cancelled() {
		return context.Canceled
	}
	return c.Context.Err()
}

func fingerprintContainer(ctx context.Context, c *container.Container) (scancache.ContainerFingerprint, error) {
	return scancache.Fingerprint(ctx, c)
}
