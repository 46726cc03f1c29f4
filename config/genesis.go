package config

import (
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"coverchain/crypto"
)

// Genesis seeds the ledger before the first operation runs: funded accounts,
// pre-registered protocols and their opening risk posture.
type Genesis struct {
	Accounts  []GenesisAccount  `yaml:"accounts"`
	Protocols []GenesisProtocol `yaml:"protocols"`
}

// GenesisAccount funds a bech32 address with an opening balance in base
// units. Balances are decimal strings so large figures survive YAML parsing.
type GenesisAccount struct {
	Address string `yaml:"address"`
	Balance string `yaml:"balance"`
}

// GenesisProtocol pre-registers an insurable protocol.
type GenesisProtocol struct {
	Authority string `yaml:"authority"`
	Name      string `yaml:"name"`
	TVLUSD    uint64 `yaml:"tvl_usd"`
}

// LoadGenesis parses a YAML genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	genesis := &Genesis{}
	if err := yaml.Unmarshal(raw, genesis); err != nil {
		return nil, fmt.Errorf("genesis file %s: %w", path, err)
	}
	if err := genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis file %s: %w", path, err)
	}
	return genesis, nil
}

// Validate rejects malformed addresses and balances before any of the seed is
// applied.
func (g *Genesis) Validate() error {
	for i, account := range g.Accounts {
		if _, err := crypto.DecodeAddress(account.Address); err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
		if _, err := g.ParseBalance(account.Balance); err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
	}
	for i, protocol := range g.Protocols {
		if _, err := crypto.DecodeAddress(protocol.Authority); err != nil {
			return fmt.Errorf("protocols[%d]: %w", i, err)
		}
		if protocol.Name == "" {
			return fmt.Errorf("protocols[%d]: name required", i)
		}
	}
	return nil
}

// ParseBalance interprets a genesis balance string as a non-negative integer
// in base units.
func (g *Genesis) ParseBalance(value string) (*big.Int, error) {
	balance, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid balance %q", value)
	}
	if balance.Sign() < 0 {
		return nil, fmt.Errorf("negative balance %q", value)
	}
	return balance, nil
}
