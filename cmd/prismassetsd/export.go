package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prismassets/core/export"
	"github.com/prismassets/core/index"
	"github.com/prismassets/core/scancache"
)

var exportConfiguration struct {
	prismRoot     string
	instance      string
	vanilla       bool
	mods          bool
	resourcePacks bool
	query         string
	destDir       string
	cacheDir      string
}

var exportCommand = &cobra.Command{
	Use:   "export",
	Short: "Scan an instance and save matching assets to a directory",
	RunE:  exportMain,
}

func init() {
	flags := exportCommand.Flags()
	flags.StringVar(&exportConfiguration.prismRoot, "prism-root", "", "Path to the Prism Launcher data directory")
	flags.StringVar(&exportConfiguration.instance, "instance", "", "Instance folder name under instances/")
	flags.BoolVar(&exportConfiguration.vanilla, "vanilla", true, "Include vanilla assets")
	flags.BoolVar(&exportConfiguration.mods, "mods", true, "Include mod jars")
	flags.BoolVar(&exportConfiguration.resourcePacks, "resource-packs", true, "Include resource packs")
	flags.StringVar(&exportConfiguration.query, "query", "", "Search query restricting which assets to save")
	flags.StringVar(&exportConfiguration.destDir, "dest", "", "Destination directory for saved assets")
	flags.StringVar(&exportConfiguration.cacheDir, "cache-dir", "", "Override the config file's scan cache directory")
}

func exportMain(cmd *cobra.Command, args []string) error {
	if exportConfiguration.destDir == "" {
		return fmt.Errorf("prismassetsd: --dest is required")
	}

	cfg := mustLoadConfig(cmd)
	if exportConfiguration.cacheDir != "" {
		cfg.CacheDir = exportConfiguration.cacheDir
	}
	if exportConfiguration.prismRoot == "" {
		exportConfiguration.prismRoot = cfg.PrismRoot
	}

	cache, err := scancache.Open(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("prismassetsd: opening scan cache: %w", err)
	}
	defer cache.Close()

	scanConfiguration.prismRoot = exportConfiguration.prismRoot
	scanConfiguration.instance = exportConfiguration.instance
	scanConfiguration.vanilla = exportConfiguration.vanilla
	scanConfiguration.mods = exportConfiguration.mods
	scanConfiguration.resourcePacks = exportConfiguration.resourcePacks

	st, err := runOneShotScan(cmd.Context(), cache)
	if err != nil {
		return err
	}

	snap := st.Snapshot()
	if snap == nil {
		return fmt.Errorf("prismassetsd: scan produced no index")
	}

	kinds := index.KindFilter{IncludeImages: true, IncludeAudio: true, IncludeOther: true}
	_, page := snap.Search(exportConfiguration.query, "", kinds, 0, snap.Len())
	if len(page) == 0 {
		fmt.Println("prismassetsd: no assets matched, nothing exported")
		return nil
	}

	assetIDs := make([]string, len(page))
	for i, rec := range page {
		assetIDs[i] = rec.AssetID
	}

	op := export.NewOperation(export.KindSave)
	executor := export.NewExecutor(nil, nil)
	executor.Save(cmd.Context(), op, snap, assetIDs, exportConfiguration.destDir, export.AudioFormatOriginal, export.Events{})

	processed, succeeded, failed := op.Counters()
	fmt.Printf("export %s: %d/%d saved, %d failed\n", op.OperationID, succeeded, processed, failed)
	return nil
}
