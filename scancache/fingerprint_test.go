package scancache

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/prismassets/core/container"
	"github.com/prismassets/core/internal/fakefs"
)

func TestFingerprintArchiveUsesDeterministicStat(t *testing.T) {
	fixedModTime := time.Unix(1700000000, 0)
	orig := statFn
	statFn = func(name string) (fs.FileInfo, error) {
		return fakefs.FakeFileInfo{FileName: "pack.zip", FileSize: 4096, FileModTime: fixedModTime}, nil
	}
	defer func() { statFn = orig }()

	c := &container.Container{Path: "/resourcepacks/pack.zip", Type: container.TypeZip}
	fp, err := Fingerprint(context.Background(), c)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp.Size != 4096 {
		t.Errorf("Size = %d, want 4096", fp.Size)
	}
	if fp.ModifiedTimeNs != fixedModTime.UnixNano() {
		t.Errorf("ModifiedTimeNs = %d, want %d", fp.ModifiedTimeNs, fixedModTime.UnixNano())
	}
}

func TestFingerprintArchiveStatErrorPropagates(t *testing.T) {
	orig := statFn
	statFn = func(name string) (fs.FileInfo, error) {
		return nil, fs.ErrNotExist
	}
	defer func() { statFn = orig }()

	c := &container.Container{Path: "/mods/missing.jar", Type: container.TypeJar}
	if _, err := Fingerprint(context.Background(), c); err == nil {
		t.Error("Fingerprint with failing stat: want error, got nil")
	}
}
