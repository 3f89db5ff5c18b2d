package asset

import (
	"context"
	"io"
	"testing"

	"github.com/prismassets/core/container"
)

type fakeIterator struct {
	entries []string
	pos     int
}

func (it *fakeIterator) Next() (string, error) {
	if it.pos >= len(it.entries) {
		return "", io.EOF
	}
	e := it.entries[it.pos]
	it.pos++
	return e, nil
}

func (it *fakeIterator) Close() error { return nil }

type fakeReader struct {
	entries []string
}

func (r *fakeReader) Enumerate(ctx context.Context) (container.EntryIterator, error) {
	return &fakeIterator{entries: r.entries}, nil
}
func (r *fakeReader) Read(ctx context.Context, entryPath string) ([]byte, error) { return nil, nil }
func (r *fakeReader) Close() error                                               { return nil }

func TestExtractContainerAdmitsAssets(t *testing.T) {
	c := &container.Container{
		Path:   "/packs/cool.zip",
		Type:   container.TypeZip,
		Source: container.SourceResourcePack,
		Name:   "cool",
	}
	r := &fakeReader{entries: []string{
		"assets/minecraft/textures/block/stone.png",
		"assets/minecraft/sounds/click.ogg",
		"pack.mcmeta",
		"assets/minecraft/",
		"../escape.png",
		"assets/minecraft/textures/\x00bad.png",
		"__MACOSX/._stone.png",
	}}

	x := NewExtractor(nil)
	records, err := x.ExtractContainer(context.Background(), c, r)
	if err != nil {
		t.Fatalf("ExtractContainer: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(records), records)
	}

	png := records[0]
	if png.Namespace != "minecraft" {
		t.Errorf("Namespace = %q, want minecraft", png.Namespace)
	}
	if png.RelativeAssetPath != "textures/block/stone.png" {
		t.Errorf("RelativeAssetPath = %q", png.RelativeAssetPath)
	}
	if png.Extension != "png" || !png.IsImage || png.IsAudio {
		t.Errorf("png classification wrong: ext=%q isImage=%v isAudio=%v", png.Extension, png.IsImage, png.IsAudio)
	}
	if png.Key != "cool / minecraft / textures/block/stone.png" {
		t.Errorf("Key = %q", png.Key)
	}

	ogg := records[1]
	if ogg.Extension != "ogg" || !ogg.IsAudio || ogg.IsImage {
		t.Errorf("ogg classification wrong: ext=%q isImage=%v isAudio=%v", ogg.Extension, ogg.IsImage, ogg.IsAudio)
	}
}

func TestExtractContainerAssetIndexNamespace(t *testing.T) {
	c := &container.Container{
		Path:              "/launcher/assets",
		Type:              container.TypeAssetIndex,
		Source:            container.SourceVanilla,
		Name:              "minecraft",
		AssetIndexVersion: "1.20",
	}
	r := &fakeReader{entries: []string{
		"icons/icon_16x16.png",
		"minecraft/textures/gui/title/minecraft.png",
	}}

	x := NewExtractor(nil)
	records, err := x.ExtractContainer(context.Background(), c, r)
	if err != nil {
		t.Fatalf("ExtractContainer: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(records), records)
	}
	for _, rec := range records {
		if rec.Namespace != "minecraft" {
			t.Errorf("Namespace = %q, want minecraft for %+v", rec.Namespace, rec)
		}
	}
	if records[0].RelativeAssetPath != "icons/icon_16x16.png" {
		t.Errorf("RelativeAssetPath = %q", records[0].RelativeAssetPath)
	}
	if records[1].RelativeAssetPath != "textures/gui/title/minecraft.png" {
		t.Errorf("RelativeAssetPath = %q", records[1].RelativeAssetPath)
	}
}

func TestDeriveAssetIDDeterministic(t *testing.T) {
	a := deriveAssetID("/packs/cool.zip", "assets/minecraft/textures/block/stone.png")
	b := deriveAssetID("/packs/cool.zip", "assets/minecraft/textures/block/stone.png")
	if a != b {
		t.Errorf("deriveAssetID not deterministic: %q vs %q", a, b)
	}
	c := deriveAssetID("/packs/cool.zip", "assets/minecraft/textures/block/dirt.png")
	if a == c {
		t.Errorf("deriveAssetID collided for distinct entry paths")
	}
}
