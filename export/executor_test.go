package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prismassets/core/asset"
	"github.com/prismassets/core/container"
	"github.com/prismassets/core/index"
)

func writeDirFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	packDir := filepath.Join(root, "pack")
	if err := os.MkdirAll(filepath.Join(packDir, "assets", "minecraft", "sounds"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(packDir, "assets", "minecraft", "sounds", "click.ogg"), []byte("clickbytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return packDir
}

func TestExecutorSaveWritesFiles(t *testing.T) {
	containerPath := writeDirFixture(t)
	rec := asset.Record{
		AssetID:           "a1",
		Key:               "cool / minecraft / sounds/click.ogg",
		SourceType:        container.SourceResourcePack,
		SourceName:        "cool",
		Namespace:         "minecraft",
		RelativeAssetPath: "sounds/click.ogg",
		Extension:         "ogg",
		IsAudio:           true,
		ContainerPath:     containerPath,
		ContainerType:     container.TypeDirectory,
		EntryPath:         "assets/minecraft/sounds/click.ogg",
	}
	snap := index.NewSnapshot([]asset.Record{rec})

	destDir := t.TempDir()
	x := NewExecutor(nil, nil)
	op := NewOperation(KindSave)
	x.Save(context.Background(), op, snap, []string{"a1"}, destDir, AudioFormatOriginal, Events{})

	processed, succeeded, failed := op.Counters()
	if processed != 1 || succeeded != 1 || failed != 0 {
		t.Fatalf("counters = (%d,%d,%d), want (1,1,0)", processed, succeeded, failed)
	}

	want := filepath.Join(destDir, "resourcePack", "cool", "minecraft", "sounds", "click.ogg")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("expected output file at %q: %v", want, err)
	}
	if string(data) != "clickbytes" {
		t.Errorf("file contents = %q, want clickbytes", data)
	}
}

func TestExecutorSaveUnknownAssetIsFailure(t *testing.T) {
	snap := index.NewSnapshot(nil)
	destDir := t.TempDir()
	x := NewExecutor(nil, nil)
	op := NewOperation(KindSave)
	x.Save(context.Background(), op, snap, []string{"missing"}, destDir, AudioFormatOriginal, Events{})

	processed, succeeded, failed := op.Counters()
	if processed != 1 || succeeded != 0 || failed != 1 {
		t.Fatalf("counters = (%d,%d,%d), want (1,0,1)", processed, succeeded, failed)
	}
	if len(op.Failures()) != 1 {
		t.Fatalf("Failures() = %v, want one entry", op.Failures())
	}
}

func TestExecutorCancellationStopsEarly(t *testing.T) {
	containerPath := writeDirFixture(t)
	rec := func(id string) asset.Record {
		return asset.Record{
			AssetID:           id,
			SourceType:        container.SourceResourcePack,
			SourceName:        "cool",
			Namespace:         "minecraft",
			RelativeAssetPath: "sounds/click.ogg",
			Extension:         "ogg",
			ContainerPath:     containerPath,
			ContainerType:     container.TypeDirectory,
			EntryPath:         "assets/minecraft/sounds/click.ogg",
		}
	}
	records := []asset.Record{rec("a1"), rec("a2"), rec("a3")}
	snap := index.NewSnapshot(records)

	destDir := t.TempDir()
	x := NewExecutor(nil, nil)
	op := NewOperation(KindSave)
	op.Cancel()
	x.Save(context.Background(), op, snap, []string{"a1", "a2", "a3"}, destDir, AudioFormatOriginal, Events{})

	processed, _, _ := op.Counters()
	if processed != 0 {
		t.Fatalf("processed = %d, want 0 (cancelled before first item)", processed)
	}
}

func TestWithExtensionRewritesOnlyFinalSegment(t *testing.T) {
	got := withExtension("sounds/dig/stone1.ogg", "mp3")
	if got != "sounds/dig/stone1.mp3" {
		t.Errorf("withExtension = %q, want sounds/dig/stone1.mp3", got)
	}
	got = withExtension("click.ogg", "wav")
	if got != "click.wav" {
		t.Errorf("withExtension(no dir) = %q, want click.wav", got)
	}
}
