// Package scancache persists completed scan snapshots keyed by
// (instance path, source toggle set) so reopening the same instance skips a
// full rescan (spec §4.5). Storage is a single embedded key/value file per
// cache directory; each record is a self-describing, schema-versioned JSON
// blob.
package scancache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/prismassets/core/asset"
	"github.com/prismassets/core/internal/errkind"
	"github.com/prismassets/core/log"
)

// schemaVersion is bumped whenever Record's on-disk shape changes
// incompatibly; a mismatched version is treated as a cache miss rather than
// an error (spec §7 CacheError: "downgraded to cache miss").
var schemaVersion = 1

var bucketName = []byte("scans")

// ContainerFingerprint identifies a container's content cheaply enough to
// check on every refresh sweep without rereading its bytes (spec §4.5).
type ContainerFingerprint struct {
	ContainerPath  string
	ContainerType  string
	Size           int64
	ModifiedTimeNs int64
	// ContentHash holds the sorted-listing hash for directory containers; for
	// archives and the asset index it is only populated when mtime is absent
	// or zero and a stat-only comparison would be ambiguous.
	ContentHash string
}

// Record is the serialized snapshot for one cache key.
type Record struct {
	SchemaVersion int
	CachedAt      time.Time
	Records       []asset.Record
	Fingerprints  map[string]ContainerFingerprint // by containerPath
}

// Key identifies a cache entry: an instance path plus its normalized source
// toggle set.
type Key struct {
	InstancePath   string
	IncludeVanilla bool
	IncludeMods    bool
	IncludeResourcePacks bool
}

// hash renders a Key to the filename-safe digest used as its bbolt key.
func (k Key) hash() []byte {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%v|%v|%v", k.InstancePath, k.IncludeVanilla, k.IncludeMods, k.IncludeResourcePacks)
	sum := h.Sum(nil)
	return []byte(hex.EncodeToString(sum))
}

// Cache is a handle on the persistent scan cache for one application data
// directory. A single bbolt file backs every cache key; cross-process
// access is serialized by bbolt's own file lock.
type Cache struct {
	db *bolt.DB
}

// Open opens (creating if absent) the cache file under dataDir.
func Open(dataDir string) (*Cache, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(errkind.ErrCache, err.Error())
	}
	path := filepath.Join(dataDir, "scancache.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(errkind.ErrCache, "open %q: %v", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(errkind.ErrCache, err.Error())
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error { return c.db.Close() }

// Load returns the Record for key, or ok=false on a cache miss (including a
// schema-version mismatch, which is treated as a miss rather than an
// error). A read failure is logged and downgraded to a miss, never fatal
// (spec §7 CacheError).
func (c *Cache) Load(key Key) (rec Record, ok bool) {
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		v := b.Get(key.hash())
		if v == nil {
			return nil
		}
		var r Record
		if err := json.Unmarshal(v, &r); err != nil {
			log.Warnf("scancache: corrupt record for key %x: %v", key.hash(), err)
			return nil
		}
		if r.SchemaVersion != schemaVersion {
			log.Debugf("scancache: schema version mismatch (have %d, want %d), treating as miss", r.SchemaVersion, schemaVersion)
			return nil
		}
		rec = r
		ok = true
		return nil
	})
	if err != nil {
		log.Warnf("scancache: load failed: %v", err)
		return Record{}, false
	}
	return rec, ok
}

// Store writes rec for key using bbolt's own transactional, durable commit
// (an fsync'd B+tree write, atomic with respect to concurrent readers and
// crash-safe without an external temp-then-rename step).
func (c *Cache) Store(key Key, records []asset.Record, fingerprints map[string]ContainerFingerprint) error {
	rec := Record{
		SchemaVersion: schemaVersion,
		CachedAt:      timeNow(),
		Records:       records,
		Fingerprints:  fingerprints,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(errkind.ErrCache, err.Error())
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key.hash(), b)
	})
	if err != nil {
		log.Warnf("scancache: store failed: %v", err)
		return errors.Wrap(errkind.ErrCache, err.Error())
	}
	return nil
}

// Delete removes the cache entry for key, if present.
func (c *Cache) Delete(key Key) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key.hash())
	})
}

// timeNow is a seam so tests can be deterministic without pulling in a
// clock abstraction for the whole package.
var timeNow = time.Now
