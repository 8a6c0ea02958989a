package lsp

import (
	"encoding/json"
	"errors"
	"path/filepath"

	"rustsafe/internal/config"
	"rustsafe/internal/driver"
)

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	params, err := decodeParams[didChangeConfigurationParams](msg)
	if err != nil {
		return nil
	}
	if s.applySettings(params.Settings) {
		s.scheduleAll()
	}
	return nil
}

// applySettings merges client settings; it reports whether anything changed.
func (s *Server) applySettings(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logf("ignoring malformed settings: %v", err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = settings.Rustsafe
	if settings.Rustsafe.LSP.Trace != nil {
		s.traceLSP = *settings.Rustsafe.LSP.Trace
	}
	return true
}

// configFor returns rustsafe.toml governing path, with client overrides
// applied. Configs are cached per directory until the server restarts.
func (s *Server) configFor(path string) config.Config {
	dir := filepath.Dir(path)

	s.mu.Lock()
	cfg, ok := s.configs[dir]
	overrides := s.overrides
	s.mu.Unlock()

	if !ok {
		var err error
		cfg, err = config.Discover(dir)
		if err != nil && !errors.Is(err, config.ErrNotFound) {
			s.logf("config for %s: %v", dir, err)
			cfg = config.Default()
		}
		s.mu.Lock()
		s.configs[dir] = cfg
		s.mu.Unlock()
	}

	merged := cfg
	if len(overrides.Disabled) > 0 {
		merged.Rewrite.Disabled = append(append([]string(nil), cfg.Rewrite.Disabled...), overrides.Disabled...)
	}
	if overrides.Severity != "" {
		merged.Rewrite.Severity = overrides.Severity
	}
	if err := merged.Validate(); err != nil {
		s.logf("ignoring client settings: %v", err)
		return cfg
	}
	return merged
}

func (s *Server) scanOptions(path string) driver.Options {
	opts, err := driver.OptionsFromConfig(s.configFor(path))
	if err != nil {
		s.logf("scan options: %v", err)
		opts, _ = driver.OptionsFromConfig(config.Default())
	}
	if s.maxDiagnostics > 0 {
		opts.MaxDiagnostics = s.maxDiagnostics
	}
	return opts
}
