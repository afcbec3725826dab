// Package config loads the jsdocify tool's own JSON configuration: the
// tunables known collectively as the host contract, plus the driver-level
// settings that decide what gets translated and how.
package config

import (
	"fmt"
	"os"

	"github.com/go-json-experiment/json"
)

// Config is jsdocify's on-disk configuration file shape.
type Config struct {
	// TypeBlacklist lists source paths whose declared types must render
	// as `?` regardless of what they actually resolve to.
	TypeBlacklist []string `json:"typeBlacklist,omitempty"`
	// Untyped forces every type string the Type-String Translator
	// produces to `?`.
	Untyped bool `json:"untyped,omitempty"`
	// ConvertIndexImportShorthand is copied into moduletranslate.Host. No
	// translation step reads it: import paths are used as written and a
	// trailing "/index" is never rewritten.
	ConvertIndexImportShorthand bool `json:"convertIndexImportShorthand,omitempty"`
	// DisableAutoQuoting is copied into moduletranslate.Host. No
	// translation step reads it: quotes around property accessors are never
	// rewritten, whether or not it is set.
	DisableAutoQuoting bool `json:"disableAutoQuoting,omitempty"`
	// ModuleFormat is the output module format this run targets ("esm" or
	// "cjs"); type-alias emission is gated on whether it matches.
	ModuleFormat string `json:"moduleFormat,omitempty"`
	// EmitExterns additionally runs the Externs Generator over any
	// declaration-only input in the project.
	EmitExterns bool `json:"emitExterns,omitempty"`
	// Quiet suppresses non-fatal diagnostics; Strict promotes warnings to
	// errors. Both feed diagnostic.NewCollector.
	Quiet  bool `json:"quiet,omitempty"`
	Strict bool `json:"strict,omitempty"`
}

// DefaultConfig returns a config with sensible defaults: esm output, no
// blacklist, normal diagnostic verbosity.
func DefaultConfig() Config {
	return Config{
		ModuleFormat: "esm",
	}
}

// Load reads and parses a jsdocify config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %q: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks the config for logical errors.
func (c *Config) Validate() error {
	switch c.ModuleFormat {
	case "esm", "cjs", "":
	default:
		return fmt.Errorf("moduleFormat must be %q or %q, got %q", "esm", "cjs", c.ModuleFormat)
	}
	return nil
}

// BlacklistSet returns TypeBlacklist as a lookup set, the shape
// internal/moduletranslate.Host.TypeBlacklistPaths expects.
func (c *Config) BlacklistSet() map[string]bool {
	set := make(map[string]bool, len(c.TypeBlacklist))
	for _, p := range c.TypeBlacklist {
		set[p] = true
	}
	return set
}
