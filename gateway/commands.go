package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/prismassets/core/container"
	"github.com/prismassets/core/export"
	"github.com/prismassets/core/index"
	"github.com/prismassets/core/internal/errkind"
	"github.com/prismassets/core/log"
	"github.com/prismassets/core/scan"
	"github.com/prismassets/core/scancache"
)

// waitForPriorScanGrace bounds how long start_scan waits for a superseded
// scan to observe cancellation before proceeding regardless (spec §5:
// "bounded grace, ≈6s").
const waitForPriorScanGrace = 6 * time.Second

// PrismRoot describes one candidate launcher root found by detect_prism_roots.
type PrismRoot struct {
	Path   string
	Exists bool
	Valid  bool
	Source string
}

// DetectPrismRoots checks the conventional per-OS Prism Launcher install
// locations. The heuristic set is intentionally small — richer detection is
// a presentation-layer concern (spec §1 Non-goals).
func (s *Session) DetectPrismRoots() []PrismRoot {
	home, _ := os.UserHomeDir()
	candidates := []PrismRoot{
		{Path: filepath.Join(home, ".local", "share", "PrismLauncher"), Source: "xdg-data"},
		{Path: filepath.Join(home, "Library", "Application Support", "PrismLauncher"), Source: "macos"},
		{Path: filepath.Join(home, "AppData", "Roaming", "PrismLauncher"), Source: "appdata"},
	}
	out := make([]PrismRoot, 0, len(candidates))
	for _, c := range candidates {
		info, err := os.Stat(c.Path)
		c.Exists = err == nil
		c.Valid = c.Exists && info.IsDir()
		if c.Valid {
			if _, err := os.Stat(filepath.Join(c.Path, "instances")); err != nil {
				c.Valid = false
			}
		}
		out = append(out, c)
	}
	return out
}

// InstanceInfo describes one discoverable instance under a Prism root.
type InstanceInfo struct {
	FolderName       string
	DisplayName      string
	Path             string
	MinecraftVersion string
}

// ListInstances lists instance folders under prismRoot.
func (s *Session) ListInstances(prismRoot string) ([]InstanceInfo, error) {
	instancesDir := filepath.Join(prismRoot, "instances")
	entries, err := os.ReadDir(instancesDir)
	if err != nil {
		return nil, fmt.Errorf("%w: list instances under %q: %v", errkind.ErrConfig, instancesDir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]InstanceInfo, 0, len(names))
	for _, name := range names {
		out = append(out, InstanceInfo{
			FolderName:  name,
			DisplayName: name,
			Path:        filepath.Join(instancesDir, name),
		})
	}
	return out, nil
}

// StartScanRequest is the body of start_scan.
type StartScanRequest struct {
	PrismRoot            string
	InstanceFolder       string
	IncludeVanilla       bool
	IncludeMods          bool
	IncludeResourcePacks bool
	ForceRescan          bool
}

// StartScanResponse is returned synchronously from start_scan; scanning
// itself continues asynchronously and reports through scan.* events.
type StartScanResponse struct {
	ScanID         string
	CacheHit       bool
	RefreshStarted bool
}

// StartScan implements spec §4.4 step 1-3: supersede any running scan for
// this session and dispatch the new scan to the orchestrator's background
// pool. It clears no presentation-side caches; the session holds none.
func (s *Session) StartScan(ctx context.Context, orch *scan.Orchestrator, req StartScanRequest) (StartScanResponse, error) {
	var resp StartScanResponse

	if !req.IncludeVanilla && !req.IncludeMods && !req.IncludeResourcePacks {
		return resp, fmt.Errorf("%w: start_scan requires at least one source selected", errkind.ErrConfig)
	}

	var priorToCancel *scan.State

	s.do(func() {
		if s.activeScanID != "" {
			if prior, ok := s.scansByID[s.activeScanID]; ok {
				priorToCancel = prior
			}
		}
	})

	if priorToCancel != nil {
		priorToCancel.Cancel()
		waitForTerminal(priorToCancel, waitForPriorScanGrace)
	}

	st := scan.NewState()
	cfg := container.DiscoveryConfig{
		LauncherRoot:         req.PrismRoot,
		InstanceFolder:       req.InstanceFolder,
		IncludeVanilla:       req.IncludeVanilla,
		IncludeMods:          req.IncludeMods,
		IncludeResourcePacks: req.IncludeResourcePacks,
	}
	cacheKey := scancache.Key{
		InstancePath:         filepath.Join(req.PrismRoot, "instances", req.InstanceFolder),
		IncludeVanilla:       req.IncludeVanilla,
		IncludeMods:          req.IncludeMods,
		IncludeResourcePacks: req.IncludeResourcePacks,
	}

	s.do(func() {
		s.scansByID[st.ScanID.String()] = st
		s.activeScanID = st.ScanID.String()
	})

	progress, terminal, _ := s.scanEventsBridge()
	events := scan.Events{Progress: progress, Terminal: terminal}

	if req.ForceRescan && s.cache != nil {
		if err := s.cache.Delete(cacheKey); err != nil {
			log.Warnf("gateway: cache delete for forced rescan failed: %v", err)
		}
	}

	_, cacheHit := s.peekCacheHit(cacheKey)
	resp.ScanID = st.ScanID.String()
	resp.CacheHit = cacheHit
	resp.RefreshStarted = cacheHit

	go orch.Run(context.WithoutCancel(ctx), st, cfg, cacheKey, events)

	return resp, nil
}

func (s *Session) peekCacheHit(key scancache.Key) (scancache.Record, bool) {
	if s.cache == nil {
		return scancache.Record{}, false
	}
	return s.cache.Load(key)
}

func waitForTerminal(st *scan.State, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		switch st.Lifecycle() {
		case scan.LifecycleCompleted, scan.LifecycleCancelled, scan.LifecycleError:
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// CancelScan sets the cancellation flag on scanId, if known.
func (s *Session) CancelScan(scanID string) error {
	var st *scan.State
	s.do(func() { st = s.scansByID[scanID] })
	if st == nil {
		return fmt.Errorf("%w: unknown scanId %q", errkind.ErrState, scanID)
	}
	st.Cancel()
	return nil
}

// ScanStatus is the response to get_scan_status.
type ScanStatus struct {
	ScanID            string
	Lifecycle         scan.Lifecycle
	IsRefreshing      bool
	ScannedContainers int64
	TotalContainers   int64
	AssetCount        int64
	Error             string
}

// GetScanStatus returns the current lifecycle/counters for scanId.
func (s *Session) GetScanStatus(scanID string) (ScanStatus, error) {
	var st *scan.State
	s.do(func() { st = s.scansByID[scanID] })
	if st == nil {
		return ScanStatus{}, fmt.Errorf("%w: unknown scanId %q", errkind.ErrState, scanID)
	}
	total, scanned, assets := st.Counters()
	status := ScanStatus{
		ScanID:            scanID,
		Lifecycle:         st.Lifecycle(),
		IsRefreshing:      st.Phase() == scan.PhaseRefreshing,
		ScannedContainers: scanned,
		TotalContainers:   total,
		AssetCount:        assets,
	}
	if err := st.Err(); err != nil {
		status.Error = err.Error()
	}
	return status, nil
}

func (s *Session) snapshotFor(scanID string) (*index.Snapshot, error) {
	var st *scan.State
	s.do(func() { st = s.scansByID[scanID] })
	if st == nil {
		return nil, fmt.Errorf("%w: unknown scanId %q", errkind.ErrState, scanID)
	}
	snap := st.Snapshot()
	if snap == nil {
		return nil, fmt.Errorf("%w: scan %q has no committed index yet", errkind.ErrState, scanID)
	}
	return snap, nil
}

// ListTreeChildren implements list_tree_children.
func (s *Session) ListTreeChildren(scanID, nodeID string) ([]index.TreeNode, error) {
	snap, err := s.snapshotFor(scanID)
	if err != nil {
		return nil, err
	}
	return snap.Children(nodeID), nil
}

// SearchAssetsRequest is the body of search_assets.
type SearchAssetsRequest struct {
	Query         string
	FolderNodeID  string
	Offset        int
	Limit         int
	IncludeImages bool
	IncludeAudio  bool
	IncludeOther  bool
}

// SearchAssetsResponse is the response to search_assets.
type SearchAssetsResponse struct {
	Total  int
	Assets []indexRecordView
}

// SearchAssets implements search_assets.
func (s *Session) SearchAssets(scanID string, req SearchAssetsRequest) (SearchAssetsResponse, error) {
	snap, err := s.snapshotFor(scanID)
	if err != nil {
		return SearchAssetsResponse{}, err
	}
	kinds := index.KindFilter{IncludeImages: req.IncludeImages, IncludeAudio: req.IncludeAudio, IncludeOther: req.IncludeOther}
	total, page := snap.Search(req.Query, req.FolderNodeID, kinds, req.Offset, req.Limit)
	return SearchAssetsResponse{Total: total, Assets: viewRecords(page)}, nil
}

// GetAssetRecord implements get_asset_record.
func (s *Session) GetAssetRecord(scanID, assetID string) (indexRecordView, error) {
	snap, err := s.snapshotFor(scanID)
	if err != nil {
		return indexRecordView{}, err
	}
	rec, ok := snap.Get(assetID)
	if !ok {
		return indexRecordView{}, fmt.Errorf("%w: unknown assetId %q", errkind.ErrState, assetID)
	}
	return viewRecord(rec), nil
}

// ReconcileAssetIDs implements reconcile_asset_ids. oldRecords must contain
// every id in oldIDs the caller wants matched structurally; ids absent from
// oldRecords are reported unknown.
func (s *Session) ReconcileAssetIDs(scanID string, oldIDs []string, oldRecords map[string]indexRecordView) (index.ReconcileResult, error) {
	snap, err := s.snapshotFor(scanID)
	if err != nil {
		return index.ReconcileResult{}, err
	}
	return snap.Reconcile(oldIDs, oldRecordsToAssetRecords(oldRecords)), nil
}

// ExportHandle groups everything Save/Copy/CancelExport need.
type ExportHandle struct {
	Executor *export.Executor
}

// SaveAssetsRequest is the body of save_assets.
type SaveAssetsRequest struct {
	ScanID         string
	AssetIDs       []string
	DestinationDir string
	AudioFormat    export.AudioFormat
	OperationID    string
}

// SaveResult is the (eventually consistent) response to save_assets: the
// operation is registered and dispatched; callers observe completion via
// export.completed.
type SaveResult struct {
	OperationID string
}

// SaveAssets implements save_assets (spec §4.8), rejecting a second
// concurrent export for this session (step 1).
func (s *Session) SaveAssets(ctx context.Context, handle ExportHandle, req SaveAssetsRequest) (SaveResult, error) {
	snap, err := s.snapshotFor(req.ScanID)
	if err != nil {
		return SaveResult{}, err
	}

	op := export.NewOperation(export.KindSave)
	var rejected bool
	s.do(func() {
		if s.activeExportOpID != "" {
			rejected = true
			return
		}
		s.exportsByID[op.OperationID.String()] = op
		s.activeExportOpID = op.OperationID.String()
	})
	if rejected {
		return SaveResult{}, fmt.Errorf("%w: an export is already in progress for this session", errkind.ErrState)
	}

	progress, completed := s.exportEventsBridge()
	events := export.Events{Progress: progress, Completed: completed}

	go func() {
		handle.Executor.Save(context.WithoutCancel(ctx), op, snap, req.AssetIDs, req.DestinationDir, req.AudioFormat, events)
		s.do(func() {
			if s.activeExportOpID == op.OperationID.String() {
				s.activeExportOpID = ""
			}
		})
	}()

	return SaveResult{OperationID: op.OperationID.String()}, nil
}

// CopyResult mirrors SaveResult for copy_assets_to_clipboard.
type CopyResult struct {
	OperationID string
}

// CopyAssetsToClipboard implements copy_assets_to_clipboard.
func (s *Session) CopyAssetsToClipboard(ctx context.Context, handle ExportHandle, scanID string, assetIDs []string, audioFormat export.AudioFormat) (CopyResult, error) {
	snap, err := s.snapshotFor(scanID)
	if err != nil {
		return CopyResult{}, err
	}

	op := export.NewOperation(export.KindCopy)
	var rejected bool
	s.do(func() {
		if s.activeExportOpID != "" {
			rejected = true
			return
		}
		s.exportsByID[op.OperationID.String()] = op
		s.activeExportOpID = op.OperationID.String()
	})
	if rejected {
		return CopyResult{}, fmt.Errorf("%w: an export is already in progress for this session", errkind.ErrState)
	}

	progress, completed := s.exportEventsBridge()
	events := export.Events{Progress: progress, Completed: completed}

	go func() {
		handle.Executor.Copy(context.WithoutCancel(ctx), op, snap, assetIDs, audioFormat, events)
		s.do(func() {
			if s.activeExportOpID == op.OperationID.String() {
				s.activeExportOpID = ""
			}
		})
	}()

	return CopyResult{OperationID: op.OperationID.String()}, nil
}

// CancelExport sets the cancel flag on operationId, if known.
func (s *Session) CancelExport(operationID string) error {
	var op *export.Operation
	s.do(func() { op = s.exportsByID[operationID] })
	if op == nil {
		return fmt.Errorf("%w: unknown operationId %q", errkind.ErrState, operationID)
	}
	op.Cancel()
	return nil
}
