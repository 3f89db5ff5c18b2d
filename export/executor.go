package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/prismassets/core/asset"
	"github.com/prismassets/core/container"
	"github.com/prismassets/core/index"
	"github.com/prismassets/core/internal/errkind"
	"github.com/prismassets/core/log"
	"github.com/prismassets/core/stats"
)

// Kind distinguishes the two export commands sharing this executor's
// protocol (spec §4.8).
type Kind string

const (
	KindSave Kind = "save"
	KindCopy Kind = "copy"
)

// Failure records one asset that could not be exported.
type Failure struct {
	AssetID string
	Key     string
	Error   error
}

// Operation is the mutable, concurrently-observed status of one export run.
type Operation struct {
	OperationID uuid.UUID
	Kind        Kind

	cancelled atomic.Bool
	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64

	mu       sync.Mutex
	failures []Failure
}

// NewOperation creates a fresh export operation.
func NewOperation(kind Kind) *Operation {
	return &Operation{OperationID: uuid.New(), Kind: kind}
}

// Cancel sets the cooperative cancellation flag; the in-flight item
// finishes, then the operation terminates (spec §4.8 step 6).
func (o *Operation) Cancel() { o.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called.
func (o *Operation) Cancelled() bool { return o.cancelled.Load() }

// Counters returns (processed, success, failed).
func (o *Operation) Counters() (processed, success, failed int64) {
	return o.processed.Load(), o.succeeded.Load(), o.failed.Load()
}

// Failures returns the accumulated per-item failure records.
func (o *Operation) Failures() []Failure {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Failure, len(o.failures))
	copy(out, o.failures)
	return out
}

func (o *Operation) recordFailure(f Failure) {
	o.mu.Lock()
	o.failures = append(o.failures, f)
	o.mu.Unlock()
	o.failed.Add(1)
}

// ProgressEvent is emitted on export://progress (coalesced per item).
type ProgressEvent struct {
	OperationID string
	Processed   int64
	Succeeded   int64
	Failed      int64
}

// CompletedEvent is emitted once on export://completed.
type CompletedEvent struct {
	OperationID string
	Cancelled   bool
	Processed   int64
	Succeeded   int64
	Failed      int64
	Failures    []Failure
}

// Events is the sink an Executor run reports to.
type Events struct {
	Progress chan<- ProgressEvent
	Completed chan<- CompletedEvent
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

func (e Events) completed(ev CompletedEvent) {
	if e.Completed == nil {
		return
	}
	e.Completed <- ev
}

// Executor runs save_assets / copy_assets_to_clipboard against one
// Snapshot. One concurrent export per session is enforced by the caller
// (the gateway session), not here (spec §4.8 step 1).
type Executor struct {
	transcoder Transcoder
	collector  stats.Collector
}

// NewExecutor builds an Executor. A nil transcoder defaults to
// NopTranscoder; a nil collector defaults to stats.NoopCollector.
func NewExecutor(transcoder Transcoder, collector stats.Collector) *Executor {
	if transcoder == nil {
		transcoder = NopTranscoder{}
	}
	if collector == nil {
		collector = stats.NoopCollector{}
	}
	return &Executor{transcoder: transcoder, collector: collector}
}

// resolved pairs a requested assetId with its record, or a resolve failure.
type resolved struct {
	assetID string
	record  asset.Record
	ok      bool
}

func (x *Executor) resolve(snap *index.Snapshot, assetIDs []string) []resolved {
	out := make([]resolved, 0, len(assetIDs))
	for _, id := range assetIDs {
		rec, ok := snap.Get(id)
		out = append(out, resolved{assetID: id, record: rec, ok: ok})
	}
	return out
}

// Save implements save_assets: writes each asset under
// <destinationDir>/<sourceType>/<sourceName>/<namespace>/<relativeAssetPath>,
// creating parent directories and overwriting conflicts (spec §4.8 step 3).
func (x *Executor) Save(ctx context.Context, op *Operation, snap *index.Snapshot, assetIDs []string, destinationDir string, audioFormat AudioFormat, events Events) {
	x.run(ctx, op, snap, assetIDs, audioFormat, events, func(rec asset.Record, data []byte, ext string) error {
		dst := filepath.Join(destinationDir, string(rec.SourceType), rec.SourceName, rec.Namespace, withExtension(rec.RelativeAssetPath, ext))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0o644)
	})
}

// Copy implements copy_assets_to_clipboard: stages files into a temporary
// directory with the same layout as Save, then hands the absolute path list
// to the OS clipboard as a newline-separated file-list payload (spec §4.8
// step 3).
func (x *Executor) Copy(ctx context.Context, op *Operation, snap *index.Snapshot, assetIDs []string, audioFormat AudioFormat, events Events) {
	stageDir, err := os.MkdirTemp("", "prismassets-copy-*")
	if err != nil {
		log.Errorf("export: failed to create staging dir: %v", err)
		events.completed(CompletedEvent{OperationID: op.OperationID.String(), Cancelled: false})
		return
	}

	var pathsMu sync.Mutex
	var paths []string

	x.run(ctx, op, snap, assetIDs, audioFormat, events, func(rec asset.Record, data []byte, ext string) error {
		dst := filepath.Join(stageDir, string(rec.SourceType), rec.SourceName, rec.Namespace, withExtension(rec.RelativeAssetPath, ext))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
		pathsMu.Lock()
		paths = append(paths, dst)
		pathsMu.Unlock()
		return nil
	})

	if len(paths) > 0 {
		payload := ""
		for i, p := range paths {
			if i > 0 {
				payload += "\n"
			}
			payload += p
		}
		if err := clipboard.WriteAll(payload); err != nil {
			log.Warnf("export: writing file list to clipboard failed: %v", err)
		}
	}
}

// run drives the shared single-threaded per-item loop of spec §4.8: resolve
// up front, write one item at a time (sequentially — "a dedicated
// single-threaded executor per export", spec §5), transcode audio when
// requested, and emit progress/completed events.
func (x *Executor) run(ctx context.Context, op *Operation, snap *index.Snapshot, assetIDs []string, audioFormat AudioFormat, events Events, write func(rec asset.Record, data []byte, ext string) error) {
	resolvedItems := x.resolve(snap, assetIDs)

	var aggregated error
	var bytesWritten int64
	cancelled := false

	for _, item := range resolvedItems {
		if op.Cancelled() {
			cancelled = true
			break
		}
		if err := ctx.Err(); err != nil {
			cancelled = true
			break
		}

		if !item.ok {
			op.recordFailure(Failure{AssetID: item.assetID, Error: fmt.Errorf("%w: unknown asset id %q", errkind.ErrState, item.assetID)})
			op.processed.Add(1)
			x.collector.AfterExportItem(item.assetID, 0, errkind.ErrState)
			continue
		}

		rec := item.record
		data, err := x.readAndTranscode(ctx, rec, audioFormat)
		op.processed.Add(1)
		if err != nil {
			aggregated = multierr.Append(aggregated, err)
			op.recordFailure(Failure{AssetID: rec.AssetID, Key: rec.Key, Error: err})
			x.collector.AfterExportItem(rec.AssetID, 0, err)
		} else {
			ext := destinationExtension(rec.Extension, audioFormat, rec.IsAudio)
			if werr := write(rec, data, ext); werr != nil {
				aggregated = multierr.Append(aggregated, werr)
				op.recordFailure(Failure{AssetID: rec.AssetID, Key: rec.Key, Error: werr})
				x.collector.AfterExportItem(rec.AssetID, 0, werr)
			} else {
				op.succeeded.Add(1)
				bytesWritten += int64(len(data))
				x.collector.AfterExportItem(rec.AssetID, int64(len(data)), nil)
			}
		}

		processed, succeeded, failed := op.Counters()
		events.progress(ProgressEvent{OperationID: op.OperationID.String(), Processed: processed, Succeeded: succeeded, Failed: failed})
	}

	if aggregated != nil {
		log.Warnf("export %s: completed with per-item failures: %v", op.OperationID, aggregated)
	}

	processed, succeeded, failed := op.Counters()
	log.Infof("export %s: %d/%d items succeeded, %s written", op.OperationID, succeeded, processed, humanize.Bytes(uint64(bytesWritten)))
	events.completed(CompletedEvent{
		OperationID: op.OperationID.String(),
		Cancelled:   cancelled,
		Processed:   processed,
		Succeeded:   succeeded,
		Failed:      failed,
		Failures:    op.Failures(),
	})
}

func (x *Executor) readAndTranscode(ctx context.Context, rec asset.Record, audioFormat AudioFormat) ([]byte, error) {
	r, err := container.NewReader(&container.Container{Path: rec.ContainerPath, Type: rec.ContainerType})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errkind.ErrRead, err)
	}
	defer r.Close()

	data, err := r.Read(ctx, rec.EntryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errkind.ErrRead, err)
	}

	if rec.IsAudio && audioFormat != AudioFormatOriginal && audioFormat != "" {
		out, err := x.transcoder.Transcode(ctx, data, rec.Extension, audioFormat)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return data, nil
}

// withExtension rewrites the final segment's extension on a forward-slash
// virtual path (relativeAssetPath is always "/"-separated, never an OS
// path, so this works with plain string slicing rather than path/filepath).
// The path is returned unchanged when newExt is empty or already matches the
// current extension case-insensitively.
func withExtension(relativeAssetPath, newExt string) string {
	if newExt == "" {
		return relativeAssetPath
	}
	slash := lastIndexByte(relativeAssetPath, '/')
	dir, base := "", relativeAssetPath
	if slash >= 0 {
		dir, base = relativeAssetPath[:slash], relativeAssetPath[slash+1:]
	}
	if dot := lastIndexByte(base, '.'); dot >= 0 {
		if strings.EqualFold(base[dot+1:], newExt) {
			return relativeAssetPath
		}
		base = base[:dot]
	}
	name := base + "." + newExt
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}
