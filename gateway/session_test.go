package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prismassets/core/export"
	"github.com/prismassets/core/scan"
)

func waitForLifecycle(t *testing.T, s *Session, scanID string, want scan.Lifecycle) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, err := s.GetScanStatus(scanID)
		if err != nil {
			t.Fatalf("GetScanStatus: %v", err)
		}
		if status.Lifecycle == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("scan %s never reached lifecycle %v", scanID, want)
}

func TestSessionStartScanAndSearch(t *testing.T) {
	launcherRoot := t.TempDir()
	packDir := filepath.Join(launcherRoot, "instances", "demo", ".minecraft", "resourcepacks", "cool")
	if err := os.MkdirAll(filepath.Join(packDir, "assets", "minecraft", "textures", "block"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(packDir, "assets", "minecraft", "textures", "block", "stone.png"), []byte("stonebytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(launcherRoot, "instances", "demo"), 0o755); err != nil {
		t.Fatal(err)
	}

	session := NewSession(nil, nil)
	defer session.Close()
	orch := scan.NewOrchestrator(nil, nil)

	resp, err := session.StartScan(context.Background(), orch, StartScanRequest{
		PrismRoot:            launcherRoot,
		InstanceFolder:       "demo",
		IncludeResourcePacks: true,
	})
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if resp.CacheHit {
		t.Fatalf("StartScan: CacheHit = true on first scan, want false")
	}

	waitForLifecycle(t, session, resp.ScanID, scan.LifecycleCompleted)

	status, err := session.GetScanStatus(resp.ScanID)
	if err != nil {
		t.Fatalf("GetScanStatus: %v", err)
	}
	if status.AssetCount != 1 {
		t.Fatalf("AssetCount = %d, want 1", status.AssetCount)
	}

	searchResp, err := session.SearchAssets(resp.ScanID, SearchAssetsRequest{
		Query: "stone", Limit: 10, IncludeImages: true, IncludeAudio: true, IncludeOther: true,
	})
	if err != nil {
		t.Fatalf("SearchAssets: %v", err)
	}
	if searchResp.Total != 1 {
		t.Fatalf("SearchAssets total = %d, want 1", searchResp.Total)
	}

	children, err := session.ListTreeChildren(resp.ScanID, "")
	if err != nil {
		t.Fatalf("ListTreeChildren: %v", err)
	}
	if len(children) != 1 || children[0].Name != "resourcepacks" {
		t.Fatalf("root children = %+v", children)
	}
}

func TestSessionStartScanRejectsEmptySourceSelection(t *testing.T) {
	session := NewSession(nil, nil)
	defer session.Close()
	orch := scan.NewOrchestrator(nil, nil)

	_, err := session.StartScan(context.Background(), orch, StartScanRequest{
		PrismRoot:      t.TempDir(),
		InstanceFolder: "demo",
	})
	if err == nil {
		t.Fatal("StartScan with no source selected: want error, got nil")
	}
}

func TestSessionUnknownScanIDIsStateError(t *testing.T) {
	session := NewSession(nil, nil)
	defer session.Close()

	if _, err := session.GetScanStatus("does-not-exist"); err == nil {
		t.Error("GetScanStatus(unknown): want error, got nil")
	}
	if err := session.CancelScan("does-not-exist"); err == nil {
		t.Error("CancelScan(unknown): want error, got nil")
	}
}

func TestSessionRejectsSecondConcurrentExport(t *testing.T) {
	launcherRoot := t.TempDir()
	packDir := filepath.Join(launcherRoot, "instances", "demo", ".minecraft", "resourcepacks", "cool")
	if err := os.MkdirAll(filepath.Join(packDir, "assets", "minecraft", "textures"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(packDir, "assets", "minecraft", "textures", "a.png"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	session := NewSession(nil, nil)
	defer session.Close()
	orch := scan.NewOrchestrator(nil, nil)

	resp, err := session.StartScan(context.Background(), orch, StartScanRequest{
		PrismRoot:            launcherRoot,
		InstanceFolder:       "demo",
		IncludeResourcePacks: true,
	})
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	waitForLifecycle(t, session, resp.ScanID, scan.LifecycleCompleted)

	searchResp, err := session.SearchAssets(resp.ScanID, SearchAssetsRequest{Limit: 10, IncludeImages: true, IncludeAudio: true, IncludeOther: true})
	if err != nil || searchResp.Total != 1 {
		t.Fatalf("SearchAssets: %v, %+v", err, searchResp)
	}
	assetID := searchResp.Assets[0].AssetID

	handle := ExportHandle{Executor: export.NewExecutor(nil, nil)}
	destDir := t.TempDir()

	first, err := session.SaveAssets(context.Background(), handle, SaveAssetsRequest{
		ScanID: resp.ScanID, AssetIDs: []string{assetID}, DestinationDir: destDir, AudioFormat: export.AudioFormatOriginal,
	})
	if err != nil {
		t.Fatalf("first SaveAssets: %v", err)
	}
	if first.OperationID == "" {
		t.Fatal("first SaveAssets: empty OperationID")
	}

	_, err = session.SaveAssets(context.Background(), handle, SaveAssetsRequest{
		ScanID: resp.ScanID, AssetIDs: []string{assetID}, DestinationDir: destDir, AudioFormat: export.AudioFormatOriginal,
	})
	if err == nil {
		t.Error("second concurrent SaveAssets: want rejection, got nil error")
	}
}
