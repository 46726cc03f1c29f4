package insurance

import (
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"coverchain/core/events"
	"coverchain/native/bank"
	nativecommon "coverchain/native/common"
	"coverchain/observability"
)

// Module names used for pause guards and metrics labels.
const (
	moduleRegistry = "registry"
	moduleCapital  = "capital"
	modulePolicy   = "policy"
	moduleClaims   = "claims"
	moduleAlerts   = "alerts"
)

type engineState interface {
	PoolCreate(*CapitalPool) error
	PoolGet(tier PoolTier) (*CapitalPool, bool, error)
	PoolPut(*CapitalPool) error

	ProviderGet(owner [20]byte, tier PoolTier) (*CapitalProvider, bool, error)
	ProviderPut(*CapitalProvider) error
	ProviderRetire(owner [20]byte, tier PoolTier) error

	ProtocolCreate(*ProtocolInfo) error
	ProtocolGet(id [32]byte) (*ProtocolInfo, bool, error)
	ProtocolPut(*ProtocolInfo) error
	ProtocolCount() (uint64, error)
	SetProtocolCount(count uint64) error

	PolicyCreate(*Policy) error
	PolicyGet(id [32]byte) (*Policy, bool, error)
	PolicyPut(*Policy) error

	ClaimCreate(*Claim) error
	ClaimGet(id [32]byte) (*Claim, bool, error)
	ClaimPut(*Claim) error

	AlertCreate(*ExploitAlert) error
	AlertGet(id string) (*ExploitAlert, bool, error)
	AlertPut(*ExploitAlert) error

	ClaimQuotaGet(addr [20]byte) (nativecommon.QuotaNow, error)
	ClaimQuotaPut(addr [20]byte, quota nativecommon.QuotaNow) error
}

// Engine wires the insurance business logic with external state, the value
// transfer ledger and event emission. Each public operation is one atomic unit
// of work: the host runs it inside a staging-then-commit envelope, so a failed
// transfer or guard error leaves no partial bookkeeping behind.
type Engine struct {
	state      engineState
	ledger     bank.Ledger
	emitter    events.Emitter
	nowFn      func() int64
	authority  [20]byte
	treasury   [20]byte
	claimQuota nativecommon.Quota
	pauses     nativecommon.PauseView
	metrics    *observability.EngineMetrics
}

// NewEngine creates an insurance engine with a no-op emitter. Callers can
// override collaborators via the setters.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		metrics: observability.Metrics(),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the value-transfer primitive used for deposits,
// premiums and payouts.
func (e *Engine) SetLedger(ledger bank.Ledger) { e.ledger = ledger }

// SetAuthority configures the global protocol-state authority. It may resolve
// risk updates for any protocol and resolves exploit alerts.
func (e *Engine) SetAuthority(addr [20]byte) { e.authority = addr }

// SetTreasury configures the account that receives policy premiums.
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

// SetClaimQuota configures the per-claimant submission quota. The zero value
// disables the check.
func (e *Engine) SetClaimQuota(q nativecommon.Quota) { e.claimQuota = q }

// SetPauses wires the administrative pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) observe(module, op string, started time.Time, err error) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Record(module, op, started, err)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

// ProtocolID derives the storage identity for a protocol from its registering
// authority: one authority registers at most one protocol.
func ProtocolID(authority [20]byte) [32]byte {
	return ethcrypto.Keccak256Hash([]byte("protocol"), authority[:])
}

// PolicyID derives the storage identity for a policy from the insured party
// and the protocol: one policy per (insured, protocol) pair.
func PolicyID(insured [20]byte, protocol [32]byte) [32]byte {
	return ethcrypto.Keccak256Hash([]byte("policy"), insured[:], protocol[:])
}

// ClaimID derives the storage identity for a claim from its policy: at most
// one live claim per policy.
func ClaimID(policy [32]byte) [32]byte {
	return ethcrypto.Keccak256Hash([]byte("claim"), policy[:])
}

func (e *Engine) loadPool(tier PoolTier) (*CapitalPool, error) {
	if !tier.Valid() {
		return nil, ErrInvalidPoolType
	}
	pool, ok, err := e.state.PoolGet(tier)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPoolNotFound
	}
	return pool, nil
}

func (e *Engine) loadProtocol(id [32]byte) (*ProtocolInfo, error) {
	info, ok, err := e.state.ProtocolGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProtocolNotFound
	}
	return info, nil
}

func (e *Engine) loadPolicy(id [32]byte) (*Policy, error) {
	policy, ok, err := e.state.PolicyGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPolicyNotFound
	}
	return policy, nil
}

func (e *Engine) storePool(pool *CapitalPool) error {
	sanitized, err := SanitizePool(pool)
	if err != nil {
		return err
	}
	return e.state.PoolPut(sanitized)
}
