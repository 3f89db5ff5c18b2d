package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prismassets/core/container"
	"github.com/prismassets/core/scancache"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOrchestratorRunSingleResourcePack(t *testing.T) {
	launcherRoot := t.TempDir()
	instanceDir := filepath.Join(launcherRoot, "instances", "demo")
	packDir := filepath.Join(instanceDir, ".minecraft", "resourcepacks", "cool")
	writeFile(t, filepath.Join(packDir, "assets", "minecraft", "textures", "block", "stone.png"), []byte("png-bytes"))
	writeFile(t, filepath.Join(packDir, "assets", "minecraft", "sounds", "dig", "stone1.ogg"), []byte("ogg-bytes"))
	writeFile(t, filepath.Join(packDir, "pack.mcmeta"), []byte("{}"))

	cfg := container.DiscoveryConfig{
		LauncherRoot:         launcherRoot,
		InstanceFolder:       "demo",
		IncludeResourcePacks: true,
	}

	o := NewOrchestrator(nil, nil)
	st := NewState()
	progress := make(chan ProgressEvent, 64)
	terminal := make(chan TerminalEvent, 1)

	o.Run(context.Background(), st, cfg, scancache.Key{}, Events{Progress: progress, Terminal: terminal})

	if st.Lifecycle() != LifecycleCompleted {
		t.Fatalf("Lifecycle() = %v, want completed (err=%v)", st.Lifecycle(), st.Err())
	}
	_, _, assetCount := st.Counters()
	if assetCount != 2 {
		t.Fatalf("assetCount = %d, want 2", assetCount)
	}

	snap := st.Snapshot()
	if snap == nil || snap.Len() != 2 {
		t.Fatalf("Snapshot = %+v, want 2 records", snap)
	}

	select {
	case term := <-terminal:
		if term.Lifecycle != LifecycleCompleted {
			t.Errorf("terminal event lifecycle = %v, want completed", term.Lifecycle)
		}
	case <-time.After(time.Second):
		t.Fatal("no terminal event received")
	}
}

func TestOrchestratorRunEmptyInstance(t *testing.T) {
	launcherRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(launcherRoot, "instances", "demo"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := container.DiscoveryConfig{
		LauncherRoot:         launcherRoot,
		InstanceFolder:       "demo",
		IncludeVanilla:       true,
		IncludeMods:          true,
		IncludeResourcePacks: true,
	}

	o := NewOrchestrator(nil, nil)
	st := NewState()
	o.Run(context.Background(), st, cfg, scancache.Key{}, Events{})

	if st.Lifecycle() != LifecycleCompleted {
		t.Fatalf("Lifecycle() = %v, want completed (err=%v)", st.Lifecycle(), st.Err())
	}
	total, scanned, assetCount := st.Counters()
	if total != 0 || scanned != 0 || assetCount != 0 {
		t.Fatalf("counters = (%d,%d,%d), want all zero", total, scanned, assetCount)
	}
}

func TestOrchestratorCancellation(t *testing.T) {
	launcherRoot := t.TempDir()
	instanceDir := filepath.Join(launcherRoot, "instances", "demo")
	for i := 0; i < 5; i++ {
		packDir := filepath.Join(instanceDir, ".minecraft", "resourcepacks", "pack"+string(rune('a'+i)))
		writeFile(t, filepath.Join(packDir, "assets", "minecraft", "textures", "x.png"), []byte("x"))
	}

	cfg := container.DiscoveryConfig{
		LauncherRoot:         launcherRoot,
		InstanceFolder:       "demo",
		IncludeResourcePacks: true,
	}

	o := NewOrchestrator(nil, nil)
	st := NewState()
	st.Cancel()
	o.Run(context.Background(), st, cfg, scancache.Key{}, Events{})

	if st.Lifecycle() != LifecycleCancelled {
		t.Fatalf("Lifecycle() = %v, want cancelled", st.Lifecycle())
	}
}
