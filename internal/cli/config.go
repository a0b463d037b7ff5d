package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"

	"github.com/taurusgroup/cmp-keygen/internal/params"
	"github.com/taurusgroup/cmp-keygen/protocols/cmp/config"
)

// EnvPrefix is the prefix of environment variables overriding the configuration file.
// A double underscore separates levels, e.g. CMPKEYGEN_KEYGEN__THRESHOLD.
const EnvPrefix = "CMPKEYGEN_"

// Config contains the CLI configuration.
type Config struct {
	Keygen  KeygenConfig   `koanf:"keygen"`
	Storage StorageConfig  `koanf:"storage"`
	Log     LogConfig      `koanf:"log"`
	Metrics *MetricsConfig `koanf:"metrics"`
}

// KeygenConfig describes the simulated keygen.
type KeygenConfig struct {
	// Parties is the number of parties, ignored if PartyIDs is set.
	Parties   int           `koanf:"parties"`
	Threshold int           `koanf:"threshold"`
	PartyIDs  []string      `koanf:"party_ids"`
	Timeout   time.Duration `koanf:"timeout"`
}

// StorageConfig is the location of the config store.
type StorageConfig struct {
	Path string `koanf:"path"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"keygen.parties":   3,
		"keygen.threshold": 1,
		"keygen.timeout":   params.NetworkTimeout.String(),
		"storage.path":     "./cmp-keygen-data",
		"log.level":        "info",
		"log.format":       "console",
	}
}

// Validate performs config validation.
func (cfg *Config) Validate() error {
	if err := cfg.Keygen.Validate(); err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	if cfg.Storage.Path == "" {
		return errors.New("storage: path is empty")
	}
	if err := cfg.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if cfg.Metrics != nil && cfg.Metrics.Addr == "" {
		return errors.New("metrics: addr is empty")
	}
	return nil
}

// Validate validates the keygen configuration.
func (cfg *KeygenConfig) Validate() error {
	n := cfg.N()
	if !config.ValidThreshold(cfg.Threshold, n) {
		return fmt.Errorf("threshold %d is invalid for %d parties", cfg.Threshold, n)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	seen := make(map[string]bool, len(cfg.PartyIDs))
	for _, id := range cfg.PartyIDs {
		if id == "" {
			return errors.New("empty party id")
		}
		if seen[id] {
			return fmt.Errorf("duplicate party id %s", id)
		}
		seen[id] = true
	}
	return nil
}

// N is the number of parties.
func (cfg *KeygenConfig) N() int {
	if len(cfg.PartyIDs) > 0 {
		return len(cfg.PartyIDs)
	}
	return cfg.Parties
}

// Validate validates the log configuration.
func (cfg *LogConfig) Validate() error {
	if _, err := parseLevel(cfg.Level); err != nil {
		return err
	}
	switch cfg.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("unknown format %q", cfg.Format)
	}
}

// InitConfig loads the defaults, then the yaml file f if given, then the environment.
func InitConfig(f string) (*Config, error) {
	var cfg Config
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, err
	}

	// Load configuration from the yaml config.
	if f != "" {
		if err := k.Load(file.Provider(f), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Load environment variables and merge into the loaded config.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		// `__` is used as a hierarchy delimiter.
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
