package scancache

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/prismassets/core/asset"
)

func TestStoreLoadRoundTrip(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	key := Key{InstancePath: "/instances/demo", IncludeVanilla: true, IncludeMods: true}
	records := []asset.Record{{AssetID: "a1", Key: "demo / minecraft / foo.png"}}
	fps := map[string]ContainerFingerprint{
		"/mods/a.jar": {ContainerPath: "/mods/a.jar", ContainerType: "jar", Size: 10, ModifiedTimeNs: 5},
	}

	if err := c.Store(key, records, fps); err != nil {
		t.Fatalf("Store: %v", err)
	}

	rec, ok := c.Load(key)
	if !ok {
		t.Fatal("Load: want hit, got miss")
	}
	if diff := cmp.Diff(records, rec.Records); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fps, rec.Fingerprints); diff != "" {
		t.Errorf("Fingerprints mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissForUnknownKey(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if _, ok := c.Load(Key{InstancePath: "/nope"}); ok {
		t.Error("Load on unknown key: want miss, got hit")
	}
}

func TestLoadMissOnSchemaMismatch(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	key := Key{InstancePath: "/instances/demo"}
	if err := c.Store(key, nil, nil); err != nil {
		t.Fatalf("Store: %v", err)
	}

	oldVersion := schemaVersion
	schemaVersion = oldVersion + 1
	defer func() { schemaVersion = oldVersion }()

	if _, ok := c.Load(key); ok {
		t.Error("Load after schema bump: want miss, got hit")
	}
}

func TestChangedDetectsDrift(t *testing.T) {
	a := ContainerFingerprint{ContainerType: "jar", Size: 10, ModifiedTimeNs: 100}
	b := a
	if Changed(a, b) {
		t.Error("Changed(a, a) = true, want false")
	}
	b.Size = 20
	if !Changed(a, b) {
		t.Error("Changed after size drift = false, want true")
	}
}
