package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/prismassets/core/export"
	"github.com/prismassets/core/gateway"
	"github.com/prismassets/core/log"
	"github.com/prismassets/core/scan"
	"github.com/prismassets/core/scancache"
)

var serveConfiguration struct {
	addr     string
	cacheDir string
}

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Run the Command/Event Gateway on a loopback address",
	RunE:  serveMain,
}

func init() {
	flags := serveCommand.Flags()
	flags.StringVar(&serveConfiguration.addr, "addr", "", "Override the config file's HTTP bind address")
	flags.StringVar(&serveConfiguration.cacheDir, "cache-dir", "", "Override the config file's scan cache directory")
}

func serveMain(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig(cmd)
	if serveConfiguration.addr != "" {
		cfg.Addr = serveConfiguration.addr
	}
	if serveConfiguration.cacheDir != "" {
		cfg.CacheDir = serveConfiguration.cacheDir
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return fmt.Errorf("prismassetsd: creating cache dir %q: %w", cfg.CacheDir, err)
	}

	cache, err := scancache.Open(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("prismassetsd: opening scan cache: %w", err)
	}
	defer cache.Close()

	collector := gateway.NewPromCollector(prometheus.DefaultRegisterer)

	var transcoder export.Transcoder
	if ct, err := export.NewCommandTranscoder(); err != nil {
		log.Warnf("prismassetsd: audio transcoding disabled: %v", err)
	} else {
		transcoder = ct
	}

	session := gateway.NewSession(cache, collector)
	defer session.Close()

	orch := scan.NewOrchestrator(cache, collector)
	executor := export.NewExecutor(transcoder, collector)
	handle := gateway.ExportHandle{Executor: executor}

	server := gateway.NewServer(session, orch, handle)

	log.Infof("prismassetsd: listening on %s", cfg.Addr)
	return server.ListenAndServe(cfg.Addr)
}
