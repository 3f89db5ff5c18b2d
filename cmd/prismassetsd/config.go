package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// config holds the daemon's non-request-scoped settings: everything
// start_scan/search_assets/etc. take as request fields stays out of this
// file entirely. Loaded from YAML, then overridden by command-line flags.
type config struct {
	Addr       string `yaml:"addr"`
	CacheDir   string `yaml:"cacheDir"`
	LogVerbose bool   `yaml:"logVerbose"`
	PrismRoot  string `yaml:"prismRoot"`
}

// defaultConfig matches the engine's defaults when no file and no flags
// override them (spec §9: daemon listens on a loopback address by default).
func defaultConfig() config {
	home, _ := os.UserHomeDir()
	return config{
		Addr:     "127.0.0.1:7890",
		CacheDir: filepath.Join(home, ".cache", "prismassetsd"),
	}
}

// loadConfig reads path, if present, layering it over defaultConfig(). A
// missing file is not an error: the daemon runs on defaults and flags alone.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
