// Package config loads and validates bdx configuration from an optional YAML
// file with environment-variable overrides. bdx is usable with zero
// configuration; this exists for checked-in per-repository defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level bdx configuration.
type Config struct {
	Indexer IndexerConfig `yaml:"indexer"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// IndexerConfig controls the ELF reader and the indexing pipeline's worker
// pool, mirroring §4.1/§4.4/§5 of the specification.
type IndexerConfig struct {
	NumProcesses    int    `yaml:"numProcesses"`
	IndexRelocations bool  `yaml:"indexRelocations"`
	MinSymbolSize   int64  `yaml:"minSymbolSize"`
	UseDwarfdump    bool   `yaml:"useDwarfdump"`
	DemanglerPath   string `yaml:"demanglerPath"`
	DwarfdumpPath   string `yaml:"dwarfdumpPath"`
	ByteBudget      int64  `yaml:"byteBudget"`
}

// StoreConfig holds the on-disk store location.
type StoreConfig struct {
	IndexDir string `yaml:"indexDir"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the optional Prometheus metrics server used during
// long-running index commands.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

// Load reads a YAML config file (if path is non-empty) and applies
// environment-variable overrides. It returns a Config populated with
// sensible defaults for anything left unset.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Indexer: IndexerConfig{
			NumProcesses:     4,
			IndexRelocations: true,
			MinSymbolSize:    0,
			UseDwarfdump:     false,
			DemanglerPath:    "c++filt",
			DwarfdumpPath:    "dwarfdump",
			ByteBudget:       64 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
	}
}

// applyEnvOverrides reads BDX_* environment variables and overrides the
// corresponding config fields. BDX_INDEX_DIR is the one documented in the
// CLI surface; the rest extend the same convention to every tunable.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BDX_INDEX_DIR"); v != "" {
		cfg.Store.IndexDir = v
	}
	if v := os.Getenv("BDX_NUM_PROCESSES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.NumProcesses = n
		}
	}
	if v := os.Getenv("BDX_INDEX_RELOCATIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Indexer.IndexRelocations = b
		}
	}
	if v := os.Getenv("BDX_MIN_SYMBOL_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Indexer.MinSymbolSize = n
		}
	}
	if v := os.Getenv("BDX_USE_DWARFDUMP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Indexer.UseDwarfdump = b
		}
	}
	if v := os.Getenv("BDX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BDX_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("BDX_METRICS_ADDR"); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = v
	}
}
