package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rustsafe/internal/config"
	"rustsafe/internal/driver"
)

const cacheApp = "rustsafe"

// loadConfig reads --config or discovers rustsafe.toml above target.
// A missing file yields the defaults.
func loadConfig(cmd *cobra.Command, target string) (config.Config, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if explicit != "" {
		return config.Load(explicit)
	}

	dir := target
	if info, statErr := os.Stat(target); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(target)
	}
	cfg, err := config.Discover(dir)
	if errors.Is(err, config.ErrNotFound) {
		return cfg, nil
	}
	return cfg, err
}

// scanOptions maps config onto driver options and applies the persistent
// CLI overrides.
func scanOptions(cmd *cobra.Command, cfg config.Config) (driver.Options, error) {
	opts, err := driver.OptionsFromConfig(cfg)
	if err != nil {
		return driver.Options{}, err
	}
	flags := cmd.Root().PersistentFlags()

	if flags.Changed("max-diagnostics") {
		maxDiagnostics, err := flags.GetInt("max-diagnostics")
		if err != nil {
			return driver.Options{}, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
		opts.MaxDiagnostics = maxDiagnostics
	}

	showTimings, err := flags.GetBool("timings")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get timings flag: %w", err)
	}
	opts.Timings = showTimings

	cache, err := openCache(cmd, cfg)
	if err != nil {
		return driver.Options{}, err
	}
	opts.Cache = cache
	return opts, nil
}

// openCache returns nil when caching is off. A cache that cannot be opened
// is reported and skipped; it never fails the run.
func openCache(cmd *cobra.Command, cfg config.Config) (*driver.DiskCache, error) {
	noCache, err := cmd.Root().PersistentFlags().GetBool("no-cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	if noCache || !cfg.Scan.Cache {
		return nil, nil
	}
	cache, err := driver.OpenDiskCache(cacheApp)
	if err != nil {
		quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
		if !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: scan cache disabled: %v\n", err)
		}
		return nil, nil
	}
	return cache, nil
}
