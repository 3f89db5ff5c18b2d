package container

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func collectEntries(t *testing.T, it EntryIterator) []string {
	t.Helper()
	var got []string
	for {
		e, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, e)
	}
	sort.Strings(got)
	return got
}

func TestDirectoryReader(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "textures", "block"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "textures", "block", "stone.png"), []byte("stonebytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "pack.mcmeta"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := newDirectoryReader(root)
	if err != nil {
		t.Fatalf("newDirectoryReader: %v", err)
	}
	defer r.Close()

	it, err := r.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	got := collectEntries(t, it)
	want := []string{"pack.mcmeta", "textures/block/stone.png"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	b, err := r.Read(context.Background(), "textures/block/stone.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(b) != "stonebytes" {
		t.Errorf("Read = %q, want %q", b, "stonebytes")
	}
}

func TestZipReader(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "pack.zip")
	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("assets/minecraft/sounds/click.ogg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("clickbytes")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := newZipReader(archivePath)
	if err != nil {
		t.Fatalf("newZipReader: %v", err)
	}
	defer r.Close()

	it, err := r.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	got := collectEntries(t, it)
	want := []string{"assets/minecraft/sounds/click.ogg"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	b, err := r.Read(context.Background(), "assets/minecraft/sounds/click.ogg")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(b) != "clickbytes" {
		t.Errorf("Read = %q, want %q", b, "clickbytes")
	}

	if _, err := r.Read(context.Background(), "missing/entry"); err == nil {
		t.Error("Read on missing entry: want error, got nil")
	}
}

func TestAssetIndexReader(t *testing.T) {
	assetsRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(assetsRoot, "indexes"), 0o755); err != nil {
		t.Fatal(err)
	}
	hash := "0123456789abcdef0123456789abcdef01234567"
	if err := os.MkdirAll(filepath.Join(assetsRoot, "objects", hash[:2]), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assetsRoot, "objects", hash[:2], hash), []byte("iconbytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	manifest := assetIndexManifest{
		Objects: map[string]assetIndexObject{
			"icons/icon_16x16.png": {Hash: hash, Size: 9},
		},
	}
	b, err := json.Marshal(manifest)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assetsRoot, "indexes", "1.20.json"), b, 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := newAssetIndexReader(assetsRoot, "1.20")
	if err != nil {
		t.Fatalf("newAssetIndexReader: %v", err)
	}
	defer r.Close()

	it, err := r.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	got := collectEntries(t, it)
	want := []string{"icons/icon_16x16.png"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	data, err := r.Read(context.Background(), "icons/icon_16x16.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "iconbytes" {
		t.Errorf("Read = %q, want %q", data, "iconbytes")
	}
}

func TestNewReaderDispatch(t *testing.T) {
	root := t.TempDir()
	r, err := NewReader(&Container{Path: root, Type: TypeDirectory})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, ok := r.(*directoryReader); !ok {
		t.Errorf("NewReader(directory) = %T, want *directoryReader", r)
	}

	if _, err := NewReader(&Container{Path: root, Type: "bogus"}); err == nil {
		t.Error("NewReader(bogus type): want error, got nil")
	}
}
