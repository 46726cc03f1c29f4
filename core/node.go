package core

import (
	"fmt"
	"log/slog"
	"math/big"
	"path/filepath"

	"coverchain/config"
	"coverchain/core/events"
	"coverchain/core/types"
	"coverchain/crypto"
	"coverchain/native/bank"
	nativecommon "coverchain/native/common"
	"coverchain/native/insurance"
	"coverchain/native/risk"
	"coverchain/observability/logging"
	"coverchain/state"
	"coverchain/storage"
)

// Node hosts the insurance engine against a persistent state backend. Every
// mutating operation runs inside the state manager's staging-then-commit
// envelope, so a failed transfer or guard error leaves the store untouched.
type Node struct {
	log       *slog.Logger
	db        storage.Database
	manager   *state.Manager
	ledger    *bank.AccountLedger
	engine    *insurance.Engine
	authority [20]byte
}

// NewNode opens the configured storage backend and wires the ledger stack.
// Pools declared in the configuration are created if missing; custody
// delegations are re-registered for pools that already exist.
func NewNode(cfg *config.Config) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logging.Setup("coverchain", cfg.Environment)

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	manager := state.NewManager(db)
	ledger := bank.NewAccountLedger(manager)

	engine := insurance.NewEngine()
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetPauses(cfg.Pauses)
	engine.SetClaimQuota(nativecommon.Quota{
		MaxRequestsPerEpoch: cfg.ClaimQuota.MaxRequestsPerEpoch,
		EpochSeconds:        cfg.ClaimQuota.EpochSeconds,
	})
	var authority [20]byte
	if cfg.Authority != "" {
		authority = crypto.MustDecodeAddress(cfg.Authority).Raw()
		engine.SetAuthority(authority)
	}
	if cfg.Treasury != "" {
		engine.SetTreasury(crypto.MustDecodeAddress(cfg.Treasury).Raw())
	}

	node := &Node{
		log:       log,
		db:        db,
		manager:   manager,
		ledger:    ledger,
		engine:    engine,
		authority: authority,
	}
	if err := node.ensurePools(cfg); err != nil {
		_ = db.Close()
		return nil, err
	}
	return node, nil
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemDB(), nil
	case "leveldb":
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	case "sqlite":
		return storage.NewSQLiteDB(filepath.Join(cfg.DataDir, "ledger.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (n *Node) ensurePools(cfg *config.Config) error {
	authority := n.authority
	for _, declared := range cfg.Pools {
		tier, err := insurance.ParsePoolTier(declared.Tier)
		if err != nil {
			return err
		}
		var (
			pool *insurance.CapitalPool
			ok   bool
		)
		err = n.manager.RunView(func() error {
			pool, ok, err = n.manager.PoolGet(tier)
			return err
		})
		if err != nil {
			return err
		}
		if ok {
			n.ledger.Delegate(pool.Custody, pool.Authority)
			continue
		}
		custody := crypto.MustDecodeAddress(declared.Custody).Raw()
		err = n.manager.RunAtomic(func() error {
			_, err := n.engine.InitializePool(authority, tier, declared.YieldRateBps, custody)
			return err
		})
		if err != nil {
			return fmt.Errorf("initialize %s pool: %w", declared.Tier, err)
		}
		n.ledger.Delegate(custody, authority)
		n.log.Info("capital pool initialized", "tier", declared.Tier, "yield_bps", declared.YieldRateBps)
	}
	return nil
}

// ApplyGenesis seeds accounts and protocol registrations. Genesis is applied
// as one atomic unit; a malformed entry leaves the store empty.
func (n *Node) ApplyGenesis(genesis *config.Genesis) error {
	if err := genesis.Validate(); err != nil {
		return err
	}
	return n.manager.RunAtomic(func() error {
		for _, account := range genesis.Accounts {
			addr := crypto.MustDecodeAddress(account.Address).Raw()
			balance, err := genesis.ParseBalance(account.Balance)
			if err != nil {
				return err
			}
			if err := n.manager.PutAccount(addr, &types.Account{Balance: balance}); err != nil {
				return err
			}
		}
		for _, protocol := range genesis.Protocols {
			authority := crypto.MustDecodeAddress(protocol.Authority).Raw()
			if _, err := n.engine.RegisterProtocol(authority, protocol.Name, protocol.TVLUSD); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetEmitter routes engine events to the supplied sink.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.engine.SetEmitter(emitter)
}

// Close releases the storage backend.
func (n *Node) Close() error {
	return n.db.Close()
}

// --- protocol registry ---

func (n *Node) RegisterProtocol(authority [20]byte, name string, tvlUSD uint64) (info *insurance.ProtocolInfo, err error) {
	err = n.manager.RunAtomic(func() error {
		info, err = n.engine.RegisterProtocol(authority, name, tvlUSD)
		return err
	})
	return info, err
}

func (n *Node) UpdateProtocolRisk(
	caller [20]byte,
	protocolID [32]byte,
	code risk.CodeRiskParams,
	economic risk.EconomicRiskParams,
	operational risk.OperationalRiskParams,
) (score uint8, err error) {
	err = n.manager.RunAtomic(func() error {
		score, err = n.engine.UpdateProtocolRisk(caller, protocolID, code, economic, operational)
		return err
	})
	return score, err
}

func (n *Node) Protocol(protocolID [32]byte) (info *insurance.ProtocolInfo, err error) {
	verr := n.manager.RunView(func() error {
		info, err = n.engine.Protocol(protocolID)
		return err
	})
	return info, verr
}

func (n *Node) ProtocolCount() (count uint64, err error) {
	verr := n.manager.RunView(func() error {
		count, err = n.engine.ProtocolCount()
		return err
	})
	return count, verr
}

// --- capital pools ---

func (n *Node) ProvideCapital(owner [20]byte, tier insurance.PoolTier, amount *big.Int) (provider *insurance.CapitalProvider, err error) {
	err = n.manager.RunAtomic(func() error {
		provider, err = n.engine.ProvideCapital(owner, tier, amount)
		return err
	})
	return provider, err
}

func (n *Node) WithdrawCapital(owner [20]byte, tier insurance.PoolTier, amount *big.Int) (provider *insurance.CapitalProvider, err error) {
	err = n.manager.RunAtomic(func() error {
		provider, err = n.engine.WithdrawCapital(owner, tier, amount)
		return err
	})
	return provider, err
}

func (n *Node) Pool(tier insurance.PoolTier) (pool *insurance.CapitalPool, err error) {
	verr := n.manager.RunView(func() error {
		pool, err = n.engine.Pool(tier)
		return err
	})
	return pool, verr
}

func (n *Node) Provider(owner [20]byte, tier insurance.PoolTier) (provider *insurance.CapitalProvider, err error) {
	verr := n.manager.RunView(func() error {
		provider, err = n.engine.Provider(owner, tier)
		return err
	})
	return provider, verr
}

// --- policies ---

func (n *Node) CreatePolicy(insured [20]byte, protocolID [32]byte, coverage, premium *big.Int, durationDays uint16) (policy *insurance.Policy, err error) {
	err = n.manager.RunAtomic(func() error {
		policy, err = n.engine.CreatePolicy(insured, protocolID, coverage, premium, durationDays)
		return err
	})
	return policy, err
}

func (n *Node) QuotePremium(protocolID [32]byte, coverage *big.Int, durationDays uint16) (premium *big.Int, err error) {
	verr := n.manager.RunView(func() error {
		premium, err = n.engine.QuotePremium(protocolID, coverage, durationDays)
		return err
	})
	return premium, verr
}

func (n *Node) Policy(id [32]byte) (policy *insurance.Policy, err error) {
	verr := n.manager.RunView(func() error {
		policy, err = n.engine.PolicyByID(id)
		return err
	})
	return policy, verr
}

// --- claims ---

func (n *Node) SubmitClaim(claimant [20]byte, policyID [32]byte, amount *big.Int, evidence string) (claim *insurance.Claim, err error) {
	err = n.manager.RunAtomic(func() error {
		claim, err = n.engine.SubmitClaim(claimant, policyID, amount, evidence)
		return err
	})
	return claim, err
}

func (n *Node) ResolveClaim(resolver [20]byte, policyID [32]byte, tier insurance.PoolTier, approve bool, notes string) (claim *insurance.Claim, err error) {
	err = n.manager.RunAtomic(func() error {
		claim, err = n.engine.ResolveClaim(resolver, policyID, tier, approve, notes)
		return err
	})
	return claim, err
}

func (n *Node) ClaimByPolicy(policyID [32]byte) (claim *insurance.Claim, err error) {
	verr := n.manager.RunView(func() error {
		claim, err = n.engine.ClaimByPolicy(policyID)
		return err
	})
	return claim, verr
}

// --- exploit alerts ---

func (n *Node) CreateExploitAlert(reporter [20]byte, protocolID [32]byte, anomaly insurance.AnomalyType, severity uint8, details string) (alert *insurance.ExploitAlert, err error) {
	err = n.manager.RunAtomic(func() error {
		alert, err = n.engine.CreateExploitAlert(reporter, protocolID, anomaly, severity, details)
		return err
	})
	return alert, err
}

func (n *Node) ResolveExploitAlert(resolver [20]byte, alertID string, confirmed bool, notes string) (alert *insurance.ExploitAlert, err error) {
	err = n.manager.RunAtomic(func() error {
		alert, err = n.engine.ResolveExploitAlert(resolver, alertID, confirmed, notes)
		return err
	})
	return alert, err
}

func (n *Node) Alert(alertID string) (alert *insurance.ExploitAlert, err error) {
	verr := n.manager.RunView(func() error {
		alert, err = n.engine.Alert(alertID)
		return err
	})
	return alert, verr
}

// Balance reads an account's quote-asset balance; missing accounts read as
// zero.
func (n *Node) Balance(addr [20]byte) (*big.Int, error) {
	balance := big.NewInt(0)
	err := n.manager.RunView(func() error {
		account, err := n.manager.GetAccount(addr)
		if err != nil {
			return err
		}
		if account != nil && account.Balance != nil {
			balance.Set(account.Balance)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}
