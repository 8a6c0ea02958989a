// Package config loads rustsafe.toml.
package config

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"rustsafe/internal/assist"
	"rustsafe/internal/diag"
)

var (
	// ErrNotFound is returned by Discover when no rustsafe.toml exists above the start dir.
	ErrNotFound = errors.New("no rustsafe.toml found")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid configuration")
)

// Config mirrors rustsafe.toml.
type Config struct {
	Path string `toml:"-"`
	Root string `toml:"-"`

	Rewrite Rewrite `toml:"rewrite"`
	Scan    Scan    `toml:"scan"`
}

// Rewrite is the [rewrite] section.
type Rewrite struct {
	Disabled []string `toml:"disabled"`
	Severity string   `toml:"severity"`
}

// Scan is the [scan] section.
type Scan struct {
	Jobs           int      `toml:"jobs"`
	MaxDiagnostics int      `toml:"max-diagnostics"`
	Exclude        []string `toml:"exclude"`
	Cache          bool     `toml:"cache"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Rewrite: Rewrite{Severity: "warning"},
		Scan: Scan{
			MaxDiagnostics: 200,
			Exclude:        []string{"target", ".git"},
			Cache:          true,
		},
	}
}

// Load parses the file at path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: %w: unknown keys %s", path, ErrInvalid, strings.Join(keys, ", "))
	}
	if meta.IsDefined("rewrite", "severity") {
		cfg.Rewrite.Severity = strings.ToLower(strings.TrimSpace(cfg.Rewrite.Severity))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	cfg.Root = filepath.Dir(path)
	return cfg, nil
}

// Discover finds and loads the nearest rustsafe.toml. When none exists it
// returns Default together with ErrNotFound.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Default(), err
	}
	if !ok {
		return Default(), ErrNotFound
	}
	return Load(path)
}

// Validate checks value ranges and idiom names.
func (c Config) Validate() error {
	switch c.Rewrite.Severity {
	case "info", "warning":
	default:
		return fmt.Errorf("%w: [rewrite].severity must be info or warning, got %q", ErrInvalid, c.Rewrite.Severity)
	}
	if c.Scan.Jobs < 0 {
		return fmt.Errorf("%w: [scan].jobs must be >= 0", ErrInvalid)
	}
	if c.Scan.MaxDiagnostics < 0 {
		return fmt.Errorf("%w: [scan].max-diagnostics must be >= 0", ErrInvalid)
	}
	if _, err := c.DisabledIdioms(); err != nil {
		return fmt.Errorf("%w: [rewrite].disabled: %w", ErrInvalid, err)
	}
	return nil
}

// DisabledIdioms resolves [rewrite].disabled.
func (c Config) DisabledIdioms() ([]assist.IdiomKind, error) {
	out := make([]assist.IdiomKind, 0, len(c.Rewrite.Disabled))
	for _, name := range c.Rewrite.Disabled {
		k, err := assist.ParseIdiom(name)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// Severity maps [rewrite].severity to a diagnostic severity.
func (c Config) Severity() diag.Severity {
	if sev, ok := diag.ParseSeverity(c.Rewrite.Severity); ok && sev != diag.SevError {
		return sev
	}
	return diag.SevWarning
}

// Excluded reports whether a directory name is skipped by directory scans.
func (c Config) Excluded(name string) bool {
	return slices.Contains(c.Scan.Exclude, name)
}

// Fingerprint hashes the settings that change scan results; the scan cache
// keys on it. Jobs and cache toggles do not take part.
func (c Config) Fingerprint() [32]byte {
	disabled := append([]string(nil), c.Rewrite.Disabled...)
	slices.Sort(disabled)
	canon := struct {
		Disabled []string `toml:"disabled"`
		Severity string   `toml:"severity"`
		Max      int      `toml:"max"`
	}{disabled, c.Rewrite.Severity, c.Scan.MaxDiagnostics}

	var buf bytes.Buffer
	_ = toml.NewEncoder(&buf).Encode(canon)
	return sha256.Sum256(buf.Bytes())
}
