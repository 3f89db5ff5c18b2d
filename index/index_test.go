package index

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/prismassets/core/asset"
	"github.com/prismassets/core/container"
)

func sampleRecords() []asset.Record {
	mk := func(name, ns, rel, ext string, img, aud bool) asset.Record {
		key := name + " / " + ns + " / " + rel
		return asset.Record{
			AssetID:           name + ":" + rel,
			Key:               key,
			KeyLower:          keyLower(key),
			SourceType:        container.SourceResourcePack,
			SourceName:        name,
			Namespace:         ns,
			RelativeAssetPath: rel,
			Extension:         ext,
			IsImage:           img,
			IsAudio:           aud,
		}
	}
	return []asset.Record{
		mk("cool", "minecraft", "textures/block/stone.png", "png", true, false),
		mk("cool", "minecraft", "sounds/dig/stone1.ogg", "ogg", false, true),
	}
}

func keyLower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func TestSearchTokensAndKind(t *testing.T) {
	s := NewSnapshot(sampleRecords())
	allKinds := KindFilter{IncludeImages: true, IncludeAudio: true, IncludeOther: true}

	total, page := s.Search("", "", allKinds, 0, 100)
	if total != 2 || len(page) != 2 {
		t.Fatalf("empty query: total=%d len(page)=%d, want 2/2", total, len(page))
	}

	total, page = s.Search("Stone Block", "", allKinds, 0, 100)
	if total != 1 || page[0].Extension != "png" {
		t.Fatalf("Stone Block query: total=%d page=%+v, want png match only", total, page)
	}

	imagesOnly := KindFilter{IncludeImages: true}
	total, _ = s.Search("", "", imagesOnly, 0, 100)
	if total != 1 {
		t.Fatalf("images-only filter: total=%d, want 1", total)
	}
}

func TestSearchPaginationStable(t *testing.T) {
	records := sampleRecords()
	s := NewSnapshot(records)
	allKinds := KindFilter{IncludeImages: true, IncludeAudio: true, IncludeOther: true}

	_, full := s.Search("", "", allKinds, 0, 100)
	var windowed []asset.Record
	for offset := 0; offset < len(full); offset++ {
		_, page := s.Search("", "", allKinds, offset, 1)
		windowed = append(windowed, page...)
	}
	if diff := cmp.Diff(full, windowed); diff != "" {
		t.Errorf("paginated concatenation mismatch (-full +windowed):\n%s", diff)
	}
}

func TestTreeChildren(t *testing.T) {
	s := NewSnapshot(sampleRecords())
	root := s.Children("")
	var names []string
	for _, n := range root {
		names = append(names, n.Name)
	}
	sort.Strings(names)
	if diff := cmp.Diff([]string{"resourcepacks"}, names); diff != "" {
		t.Errorf("root children mismatch (-want +got):\n%s", diff)
	}

	packs := s.Children("resourcepacks")
	if len(packs) != 1 || packs[0].Name != "cool" || !packs[0].IsFolder {
		t.Fatalf("resourcepacks children = %+v", packs)
	}

	textures := s.Children("resourcepacks/cool/minecraft/textures/block")
	if len(textures) != 1 || textures[0].IsFolder {
		t.Fatalf("leaf children = %+v, want single file leaf", textures)
	}
	if textures[0].AssetID != "cool:textures/block/stone.png" {
		t.Errorf("leaf AssetID = %q", textures[0].AssetID)
	}
}

func TestReconcileVerbatimAndStructural(t *testing.T) {
	records := sampleRecords()
	s := NewSnapshot(records)

	oldRecords := map[string]asset.Record{
		"cool:textures/block/stone.png": records[0],
		"renamed-old-id":                records[1],
	}

	result := s.Reconcile([]string{"cool:textures/block/stone.png", "renamed-old-id", "totally-unknown"}, oldRecords)

	if result.IDMap["cool:textures/block/stone.png"] != "cool:textures/block/stone.png" {
		t.Errorf("verbatim id not preserved: %+v", result.IDMap)
	}
	if result.IDMap["renamed-old-id"] != "cool:sounds/dig/stone1.ogg" {
		t.Errorf("structural match failed: %+v", result.IDMap)
	}
	if len(result.UnknownIDs) != 1 || result.UnknownIDs[0] != "totally-unknown" {
		t.Errorf("UnknownIDs = %v, want [totally-unknown]", result.UnknownIDs)
	}
}
