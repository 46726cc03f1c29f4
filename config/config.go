package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the runtime configuration for a coverchain node.
type Config struct {
	DataDir        string `toml:"DataDir"`
	StorageBackend string `toml:"StorageBackend"`
	GenesisFile    string `toml:"GenesisFile"`
	Environment    string `toml:"Environment"`

	// Bech32 addresses for the global protocol-state authority and the
	// premium treasury.
	Authority string `toml:"Authority"`
	Treasury  string `toml:"Treasury"`

	Pauses     Pauses       `toml:"pauses"`
	ClaimQuota Quota        `toml:"claim_quota"`
	Pools      []PoolConfig `toml:"pools"`
}

// PoolConfig declares a capital pool to create at genesis.
type PoolConfig struct {
	Tier         string `toml:"Tier"`
	YieldRateBps uint64 `toml:"YieldRateBps"`
	Custody      string `toml:"Custody"`
}

// Pauses administratively halts individual protocol modules.
type Pauses struct {
	Registry bool `toml:"Registry"`
	Capital  bool `toml:"Capital"`
	Policy   bool `toml:"Policy"`
	Claims   bool `toml:"Claims"`
	Alerts   bool `toml:"Alerts"`
}

// IsPaused satisfies the module pause guard.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "registry":
		return p.Registry
	case "capital":
		return p.Capital
	case "policy":
		return p.Policy
	case "claims":
		return p.Claims
	case "alerts":
		return p.Alerts
	default:
		return false
	}
}

// Quota defines per-address rate limits for claim submission.
type Quota struct {
	MaxRequestsPerEpoch uint32 `toml:"MaxRequestsPerEpoch"`
	EpochSeconds        uint32 `toml:"EpochSeconds"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./cover-data"
	}
	if strings.TrimSpace(cfg.StorageBackend) == "" {
		cfg.StorageBackend = "leveldb"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:        "./cover-data",
		StorageBackend: "leveldb",
		Environment:    "local",
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
