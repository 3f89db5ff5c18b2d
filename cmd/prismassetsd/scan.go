package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prismassets/core/container"
	"github.com/prismassets/core/scan"
	"github.com/prismassets/core/scancache"
)

var scanConfiguration struct {
	prismRoot     string
	instance      string
	vanilla       bool
	mods          bool
	resourcePacks bool
	cacheDir      string
}

var scanCommand = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan against an instance and print a summary",
	RunE:  scanMain,
}

func init() {
	flags := scanCommand.Flags()
	flags.StringVar(&scanConfiguration.prismRoot, "prism-root", "", "Path to the Prism Launcher data directory")
	flags.StringVar(&scanConfiguration.instance, "instance", "", "Instance folder name under instances/")
	flags.BoolVar(&scanConfiguration.vanilla, "vanilla", true, "Include vanilla assets")
	flags.BoolVar(&scanConfiguration.mods, "mods", true, "Include mod jars")
	flags.BoolVar(&scanConfiguration.resourcePacks, "resource-packs", true, "Include resource packs")
	flags.StringVar(&scanConfiguration.cacheDir, "cache-dir", "", "Override the config file's scan cache directory")
}

// runOneShotScan drives a scan to completion synchronously: Orchestrator.Run
// blocks until the scan reaches a terminal lifecycle (spec §4.4), after which
// the terminal event is drained from its buffered channel.
func runOneShotScan(ctx context.Context, cache *scancache.Cache) (*scan.State, error) {
	if scanConfiguration.prismRoot == "" || scanConfiguration.instance == "" {
		return nil, fmt.Errorf("prismassetsd: --prism-root and --instance are required")
	}

	cfg := container.DiscoveryConfig{
		LauncherRoot:         scanConfiguration.prismRoot,
		InstanceFolder:       scanConfiguration.instance,
		IncludeVanilla:       scanConfiguration.vanilla,
		IncludeMods:          scanConfiguration.mods,
		IncludeResourcePacks: scanConfiguration.resourcePacks,
	}
	cacheKey := scancache.Key{
		InstancePath:         scanConfiguration.prismRoot + "/instances/" + scanConfiguration.instance,
		IncludeVanilla:       scanConfiguration.vanilla,
		IncludeMods:          scanConfiguration.mods,
		IncludeResourcePacks: scanConfiguration.resourcePacks,
	}

	orch := scan.NewOrchestrator(cache, nil)
	st := scan.NewState()

	terminal := make(chan scan.TerminalEvent, 1)
	orch.Run(ctx, st, cfg, cacheKey, scan.Events{Terminal: terminal})
	<-terminal

	if err := st.Err(); err != nil {
		return st, err
	}
	return st, nil
}

func scanMain(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig(cmd)
	if scanConfiguration.cacheDir != "" {
		cfg.CacheDir = scanConfiguration.cacheDir
	}
	if scanConfiguration.prismRoot == "" {
		scanConfiguration.prismRoot = cfg.PrismRoot
	}

	cache, err := scancache.Open(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("prismassetsd: opening scan cache: %w", err)
	}
	defer cache.Close()

	st, err := runOneShotScan(cmd.Context(), cache)
	if err != nil {
		return err
	}

	_, _, assets := st.Counters()
	fmt.Printf("scan %s: %s, %d assets\n", st.ScanID, st.Lifecycle(), assets)
	return nil
}
