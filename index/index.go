// Package index holds the read-mostly in-memory catalog a completed or
// refreshing scan builds (spec §4.6): search, virtual tree derivation, and
// asset id reconciliation across a container replacement.
package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/prismassets/core/asset"
	"github.com/prismassets/core/container"
)

// Snapshot is an immutable, queryable view of a scan's records. The
// Orchestrator swaps Snapshots atomically (spec §5: "the index builder swaps
// in a new frozen snapshot atomically on completion and on each refresh
// commit"); readers never observe a partially-built index.
type Snapshot struct {
	records []asset.Record
	byID    map[string]int

	treeOnce sync.Once
	tree     map[string][]string // nodeId -> distinct child segments, folders and leaves
	leafOf   map[string]string   // child nodeId -> asset id, only for file leaves
}

// NewSnapshot freezes records into a queryable Snapshot. Insertion order is
// preserved for stable pagination.
func NewSnapshot(records []asset.Record) *Snapshot {
	s := &Snapshot{
		records: records,
		byID:    make(map[string]int, len(records)),
	}
	for i, r := range records {
		s.byID[r.AssetID] = i
	}
	return s
}

// Len returns the total record count.
func (s *Snapshot) Len() int { return len(s.records) }

// Get returns the record for assetId, or ok=false.
func (s *Snapshot) Get(assetID string) (asset.Record, bool) {
	i, ok := s.byID[assetID]
	if !ok {
		return asset.Record{}, false
	}
	return s.records[i], true
}

// KindFilter selects which asset kinds a search admits.
type KindFilter struct {
	IncludeImages bool
	IncludeAudio  bool
	IncludeOther  bool
}

func (f KindFilter) matches(r asset.Record) bool {
	switch {
	case r.IsImage:
		return f.IncludeImages
	case r.IsAudio:
		return f.IncludeAudio
	default:
		return f.IncludeOther
	}
}

// pathOf returns the full virtual tree path of a record, as described in
// spec §4.6: sourceRootSegment(sourceType) / sourceName / namespace / relativeAssetPath.
func pathOf(r asset.Record) string {
	return sourceRootSegment(r.SourceType) + "/" + r.SourceName + "/" + r.Namespace + "/" + r.RelativeAssetPath
}

func sourceRootSegment(t container.SourceType) string {
	switch t {
	case container.SourceVanilla:
		return "vanilla"
	case container.SourceMod:
		return "mods"
	case container.SourceResourcePack:
		return "resourcepacks"
	default:
		return string(t)
	}
}

// Search implements spec §4.6 search(): restrict by folderNodeId, filter by
// kind, AND-match whitespace-split lowercased tokens against the lowercased
// key, then paginate in stable insertion order.
func (s *Snapshot) Search(query, folderNodeID string, kinds KindFilter, offset, limit int) (total int, page []asset.Record) {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	prefix := s.treePathPrefix(folderNodeID)

	var matched []asset.Record
	for _, r := range s.records {
		if prefix != "" && !strings.HasPrefix(pathOf(r), prefix) {
			continue
		}
		if !kinds.matches(r) {
			continue
		}
		if !matchesAllTokens(r.KeyLower, tokens) {
			continue
		}
		matched = append(matched, r)
	}

	total = len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return total, nil
	}
	end := offset + limit
	if limit < 0 || end > total {
		end = total
	}
	return total, matched[offset:end]
}

func matchesAllTokens(keyLower string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(keyLower, tok) {
			return false
		}
	}
	return true
}

// treePathPrefix converts a tree nodeId back into the path prefix used by
// Search's folder restriction. The root node ("" or "/") matches everything.
func (s *Snapshot) treePathPrefix(folderNodeID string) string {
	if folderNodeID == "" || folderNodeID == "/" {
		return ""
	}
	return strings.TrimSuffix(folderNodeID, "/") + "/"
}

// TreeNode is a virtual folder or file node, derived lazily from the index.
type TreeNode struct {
	ID       string
	Name     string
	IsFolder bool
	AssetID  string // only set for file leaves
}

// buildTree lazily computes the parent->children adjacency used by Children.
func (s *Snapshot) buildTree() {
	s.treeOnce.Do(func() {
		s.tree = make(map[string][]string)
		s.leafOf = make(map[string]string)
		seen := make(map[string]bool)

		for _, r := range s.records {
			segs := append([]string{sourceRootSegment(r.SourceType), r.SourceName, r.Namespace}, strings.Split(r.RelativeAssetPath, "/")...)
			parent := ""
			for i, seg := range segs {
				childID := seg
				if parent != "" {
					childID = parent + "/" + seg
				}
				isLeaf := i == len(segs)-1
				if isLeaf {
					childID = childID + "/file:" + r.AssetID
					s.leafOf[childID] = r.AssetID
				}
				key := parent + "\x00" + childID
				if !seen[key] {
					seen[key] = true
					s.tree[parent] = append(s.tree[parent], childID)
				}
				parent = childID
			}
		}
		for k := range s.tree {
			sort.Strings(s.tree[k])
		}
	})
}

// Children returns the child nodes of nodeId ("" or "/" for the root).
func (s *Snapshot) Children(nodeID string) []TreeNode {
	s.buildTree()
	if nodeID == "/" {
		nodeID = ""
	}
	childIDs := s.tree[nodeID]
	nodes := make([]TreeNode, 0, len(childIDs))
	for _, childID := range childIDs {
		assetID, isLeaf := s.leafOf[childID]
		name := childID
		if idx := strings.LastIndex(childID, "/"); idx >= 0 {
			name = childID[idx+1:]
		}
		if isLeaf {
			name = strings.TrimPrefix(name, "file:")
		}
		nodes = append(nodes, TreeNode{
			ID:       childID,
			Name:     name,
			IsFolder: !isLeaf,
			AssetID:  assetID,
		})
	}
	return nodes
}

// ReconcileResult is the outcome of matching a prior scan's asset ids
// against this Snapshot (spec §4.6 reconcileAssetIds).
type ReconcileResult struct {
	IDMap     map[string]string // old id -> new id
	UnknownIDs []string
}

type structuralKey struct {
	sourceName, namespace, relativeAssetPath, extension string
}

// Reconcile maps oldIDs onto s: an id present verbatim maps to itself;
// otherwise a unique structural match (sourceName, namespace,
// relativeAssetPath, extension) is attempted; otherwise the id is reported
// unknown.
func (s *Snapshot) Reconcile(oldIDs []string, oldRecords map[string]asset.Record) ReconcileResult {
	byStructure := make(map[structuralKey][]string)
	for _, r := range s.records {
		k := structuralKey{r.SourceName, r.Namespace, r.RelativeAssetPath, r.Extension}
		byStructure[k] = append(byStructure[k], r.AssetID)
	}

	result := ReconcileResult{IDMap: make(map[string]string, len(oldIDs))}
	for _, oldID := range oldIDs {
		if _, ok := s.byID[oldID]; ok {
			result.IDMap[oldID] = oldID
			continue
		}
		old, ok := oldRecords[oldID]
		if !ok {
			result.UnknownIDs = append(result.UnknownIDs, oldID)
			continue
		}
		k := structuralKey{old.SourceName, old.Namespace, old.RelativeAssetPath, old.Extension}
		candidates := byStructure[k]
		if len(candidates) == 1 {
			result.IDMap[oldID] = candidates[0]
		} else {
			result.UnknownIDs = append(result.UnknownIDs, oldID)
		}
	}
	return result
}
