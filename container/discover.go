package container

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/prismassets/core/internal/errkind"
	"github.com/prismassets/core/log"
)

// DiscoveryConfig selects which source families Discover should admit.
type DiscoveryConfig struct {
	LauncherRoot        string
	InstanceFolder      string
	IncludeVanilla      bool
	IncludeMods         bool
	IncludeResourcePacks bool
}

// Discover produces the ordered container list for one instance (spec
// §4.1). Ordering is deterministic: vanilla first, then mods sorted by
// filename, then resource packs sorted by filename.
func Discover(cfg DiscoveryConfig) ([]*Container, []error, error) {
	instanceDir := filepath.Join(cfg.LauncherRoot, "instances", cfg.InstanceFolder)
	info, err := os.Stat(instanceDir)
	if err != nil || !info.IsDir() {
		return nil, nil, errors.Wrapf(errkind.ErrConfig, "instance folder %q not found under %q", cfg.InstanceFolder, cfg.LauncherRoot)
	}

	var containers []*Container
	var warnings []error

	if cfg.IncludeVanilla {
		vanilla, vwarn := discoverVanilla(cfg.LauncherRoot, instanceDir)
		containers = append(containers, vanilla...)
		warnings = append(warnings, vwarn...)
	}
	if cfg.IncludeMods {
		mods, mwarn := discoverMods(instanceDir)
		containers = append(containers, mods...)
		warnings = append(warnings, mwarn...)
	}
	if cfg.IncludeResourcePacks {
		packs, pwarn := discoverResourcePacks(instanceDir)
		containers = append(containers, packs...)
		warnings = append(warnings, pwarn...)
	}

	now := time.Now()
	for _, c := range containers {
		c.DiscoveredAt = now
	}
	return containers, warnings, nil
}

// minecraftDir returns the .minecraft subtree of an instance, falling back
// to the instance dir itself for layouts that skip the nested folder.
func minecraftDir(instanceDir string) string {
	nested := filepath.Join(instanceDir, ".minecraft")
	if info, err := os.Stat(nested); err == nil && info.IsDir() {
		return nested
	}
	return instanceDir
}

func discoverVanilla(launcherRoot, instanceDir string) ([]*Container, []error) {
	var containers []*Container
	var warnings []error
	mcDir := minecraftDir(instanceDir)

	version, err := resolveIntendedVersion(instanceDir, mcDir)
	if err != nil {
		warnings = append(warnings, errors.Wrap(errkind.ErrContainer, err.Error()))
		return containers, warnings
	}

	indexPath := filepath.Join(launcherRoot, "assets", "indexes", version+".json")
	if _, err := os.Stat(indexPath); err == nil {
		containers = append(containers, &Container{
			Path:              filepath.Join(launcherRoot, "assets"),
			Type:              TypeAssetIndex,
			Source:            SourceVanilla,
			Name:              "minecraft",
			AssetIndexVersion: version,
		})
	} else {
		warnings = append(warnings, errors.Wrapf(errkind.ErrContainer, "asset index for version %q not found", version))
	}

	versionJar := filepath.Join(mcDir, "versions", version, version+".jar")
	if _, err := os.Stat(versionJar); err == nil {
		containers = append(containers, &Container{
			Path:   versionJar,
			Type:   TypeJar,
			Source: SourceVanilla,
			Name:   version,
		})
	}

	return containers, warnings
}

// resolveIntendedVersion reads instance.cfg's IntendedVersion field
// (Prism/MultiMC instance layout); if absent, falls back to the sole
// subdirectory of .minecraft/versions/.
func resolveIntendedVersion(instanceDir, mcDir string) (string, error) {
	cfgPath := filepath.Join(instanceDir, "instance.cfg")
	if _, err := os.Stat(cfgPath); err == nil {
		icfg, err := ini.Load(cfgPath)
		if err == nil {
			v := icfg.Section("General").Key("IntendedVersion").String()
			if v == "" {
				v = icfg.Section("").Key("IntendedVersion").String()
			}
			if v != "" {
				return v, nil
			}
		} else {
			log.Debugf("container: failed parsing instance.cfg %q: %v", cfgPath, err)
		}
	}

	versionsDir := filepath.Join(mcDir, "versions")
	entries, err := os.ReadDir(versionsDir)
	if err != nil {
		return "", fmt.Errorf("no instance.cfg version and no versions dir at %q: %w", versionsDir, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) != 1 {
		return "", fmt.Errorf("cannot resolve intended version under %q (found %d candidates)", versionsDir, len(dirs))
	}
	return dirs[0], nil
}

func discoverMods(instanceDir string) ([]*Container, []error) {
	modsDir := filepath.Join(minecraftDir(instanceDir), "mods")
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		// Missing mods/ is not an error: spec §4.1 "missing sub-trees yield an empty slice."
		return nil, nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".disabled") {
			continue
		}
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".jar") || strings.HasSuffix(lower, ".zip") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	containers := make([]*Container, 0, len(names))
	for _, name := range names {
		typ := TypeJar
		if strings.HasSuffix(strings.ToLower(name), ".zip") {
			typ = TypeZip
		}
		containers = append(containers, &Container{
			Path:   filepath.Join(modsDir, name),
			Type:   typ,
			Source: SourceMod,
			Name:   strings.TrimSuffix(name, filepath.Ext(name)),
		})
	}
	return containers, nil
}

func discoverResourcePacks(instanceDir string) ([]*Container, []error) {
	packsDir := filepath.Join(minecraftDir(instanceDir), "resourcepacks")
	entries, err := os.ReadDir(packsDir)
	if err != nil {
		return nil, nil
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var containers []*Container
	var warnings []error
	for _, name := range names {
		full := filepath.Join(packsDir, name)
		info, err := os.Stat(full)
		if err != nil {
			warnings = append(warnings, errors.Wrapf(errkind.ErrContainer, "stat resource pack %q: %v", name, err))
			continue
		}
		if info.IsDir() {
			if looksLikeResourcePackDir(full) {
				containers = append(containers, &Container{
					Path:   full,
					Type:   TypeDirectory,
					Source: SourceResourcePack,
					Name:   name,
				})
			} else {
				warnings = append(warnings, errors.Wrapf(errkind.ErrContainer, "skipping %q: not a resource pack directory (no assets/ or pack.mcmeta)", name))
			}
			continue
		}
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".zip") {
			containers = append(containers, &Container{
				Path:   full,
				Type:   TypeZip,
				Source: SourceResourcePack,
				Name:   strings.TrimSuffix(name, filepath.Ext(name)),
			})
			continue
		}
		warnings = append(warnings, errors.Wrapf(errkind.ErrContainer, "skipping %q: not a directory or zip", name))
	}
	return containers, warnings
}

func looksLikeResourcePackDir(path string) bool {
	if _, err := os.Stat(filepath.Join(path, "assets")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(path, "pack.mcmeta")); err == nil {
		return true
	}
	return false
}
