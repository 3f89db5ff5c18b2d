// Package container discovers and reads the three container families a scan
// draws assets from: a vanilla asset-index store, mod archives, and
// resource-pack archives/directories (spec §4.1, §4.2).
package container

import "time"

// Type is the physical shape of a container.
type Type string

// Container type values (spec §6).
const (
	TypeDirectory  Type = "directory"
	TypeZip        Type = "zip"
	TypeJar        Type = "jar"
	TypeAssetIndex Type = "assetIndex"
)

// SourceType is the family a container belongs to.
type SourceType string

// Source type values (spec §6).
const (
	SourceVanilla      SourceType = "vanilla"
	SourceMod          SourceType = "mod"
	SourceResourcePack SourceType = "resourcePack"
)

// Container is a scannable unit discovered under a launcher instance.
// Containers are created during Discovery and are immutable for the life of
// the scan that discovered them.
type Container struct {
	// Path is the absolute filesystem path of the container (a directory, a
	// zip/jar archive, or the assets root housing indexes/ and objects/).
	Path string
	// Type is the physical container shape.
	Type Type
	// Source is the family this container belongs to.
	Source SourceType
	// Name is a human-readable label derived from the filename or pack id.
	Name string
	// AssetIndexVersion is set only for Type == TypeAssetIndex: the
	// Minecraft version name whose index JSON this container wraps.
	AssetIndexVersion string
	// DiscoveredAt records when Discovery produced this container, used only
	// for cache-freshness logging.
	DiscoveredAt time.Time
}
