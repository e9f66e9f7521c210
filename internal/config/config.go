// Package config loads tool configuration by layering defaults, an optional
// YAML file, and PINSTATS_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the tool-level settings. Statistical floors (percentile
// population, interval samples, pick opportunities) are deliberately not
// configurable; they live as constants next to the code that applies them.
type Config struct {
	DBPath          string `koanf:"db_path"`
	ConfidenceLevel int    `koanf:"confidence_level"` // 95 or 90
	TopMachines     int    `koanf:"top_machines"`     // per-player preference list length
	MinGames        int    `koanf:"min_games"`        // aggregate minimum-games threshold
	LogLevel        string `koanf:"log_level"`
}

// New returns the defaults.
func New() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DBPath:          filepath.Join(home, ".pinstats", "league.db"),
		ConfidenceLevel: 95,
		TopMachines:     5,
		MinGames:        3,
		LogLevel:        "info",
	}
}

// Load builds a Config. Order of precedence (low -> high):
//  1. defaults (New())
//  2. YAML file named by PINSTATS_CONFIG, if set
//  3. environment variables with the PINSTATS_ prefix
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("PINSTATS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// PINSTATS_DB_PATH -> db_path, PINSTATS_TOP_MACHINES -> top_machines, ...
	envProvider := env.Provider("PINSTATS_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "pinstats_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ConfidenceLevel != 95 && cfg.ConfidenceLevel != 90 {
		return nil, fmt.Errorf("confidence_level must be 95 or 90, got %d", cfg.ConfidenceLevel)
	}
	if cfg.TopMachines < 1 {
		return nil, fmt.Errorf("top_machines must be positive, got %d", cfg.TopMachines)
	}
	if cfg.MinGames < 1 {
		return nil, fmt.Errorf("min_games must be positive, got %d", cfg.MinGames)
	}
	return &cfg, nil
}
