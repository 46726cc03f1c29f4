package config

import (
	"fmt"
	"strings"

	"coverchain/crypto"
	"coverchain/native/insurance"
)

var validBackends = map[string]bool{
	"memory":  true,
	"leveldb": true,
	"sqlite":  true,
}

// Validate checks the configuration for values that would fail at runtime:
// unknown storage backends, malformed bech32 addresses and unknown pool
// tiers.
func (c *Config) Validate() error {
	if !validBackends[c.StorageBackend] {
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if err := checkAddress("Authority", c.Authority); err != nil {
		return err
	}
	if err := checkAddress("Treasury", c.Treasury); err != nil {
		return err
	}
	if c.ClaimQuota.MaxRequestsPerEpoch > 0 && c.ClaimQuota.EpochSeconds == 0 {
		return fmt.Errorf("claim_quota: EpochSeconds required when MaxRequestsPerEpoch is set")
	}

	seen := make(map[insurance.PoolTier]bool)
	for i, pool := range c.Pools {
		tier, err := insurance.ParsePoolTier(pool.Tier)
		if err != nil {
			return fmt.Errorf("pools[%d]: %w", i, err)
		}
		if seen[tier] {
			return fmt.Errorf("pools[%d]: duplicate tier %q", i, pool.Tier)
		}
		seen[tier] = true
		if strings.TrimSpace(pool.Custody) == "" {
			return fmt.Errorf("pools[%d]: Custody required", i)
		}
		if err := checkAddress(fmt.Sprintf("pools[%d].Custody", i), pool.Custody); err != nil {
			return err
		}
	}
	return nil
}

func checkAddress(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	if _, err := crypto.DecodeAddress(value); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}
