package insurance

import (
	"bytes"
	"errors"
	"math/big"

	"coverchain/core/events"
	nativecommon "coverchain/native/common"
)

var (
	errUnauthorizedMockTransfer = errors.New("mock ledger: unauthorized transfer")
	errInsufficientMockBalance  = errors.New("mock ledger: insufficient balance")
	errDuplicateAlert           = errors.New("mock state: alert already exists")
)

type providerKey struct {
	owner [20]byte
	tier  PoolTier
}

type mockState struct {
	pools         map[PoolTier]*CapitalPool
	providers     map[providerKey]*CapitalProvider
	protocols     map[[32]byte]*ProtocolInfo
	protocolCount uint64
	policies      map[[32]byte]*Policy
	claims        map[[32]byte]*Claim
	alerts        map[string]*ExploitAlert
	quotas        map[[20]byte]nativecommon.QuotaNow
}

func newMockState() *mockState {
	return &mockState{
		pools:     make(map[PoolTier]*CapitalPool),
		providers: make(map[providerKey]*CapitalProvider),
		protocols: make(map[[32]byte]*ProtocolInfo),
		policies:  make(map[[32]byte]*Policy),
		claims:    make(map[[32]byte]*Claim),
		alerts:    make(map[string]*ExploitAlert),
		quotas:    make(map[[20]byte]nativecommon.QuotaNow),
	}
}

func (m *mockState) PoolCreate(pool *CapitalPool) error {
	if _, ok := m.pools[pool.Tier]; ok {
		return ErrPoolExists
	}
	m.pools[pool.Tier] = pool.Clone()
	return nil
}

func (m *mockState) PoolGet(tier PoolTier) (*CapitalPool, bool, error) {
	pool, ok := m.pools[tier]
	if !ok {
		return nil, false, nil
	}
	return pool.Clone(), true, nil
}

func (m *mockState) PoolPut(pool *CapitalPool) error {
	sanitized, err := SanitizePool(pool)
	if err != nil {
		return err
	}
	m.pools[sanitized.Tier] = sanitized
	return nil
}

func (m *mockState) ProviderGet(owner [20]byte, tier PoolTier) (*CapitalProvider, bool, error) {
	p, ok := m.providers[providerKey{owner, tier}]
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

func (m *mockState) ProviderPut(p *CapitalProvider) error {
	m.providers[providerKey{p.Owner, p.Tier}] = p.Clone()
	return nil
}

func (m *mockState) ProviderRetire(owner [20]byte, tier PoolTier) error {
	delete(m.providers, providerKey{owner, tier})
	return nil
}

func (m *mockState) ProtocolCreate(info *ProtocolInfo) error {
	if _, ok := m.protocols[info.ID]; ok {
		return ErrProtocolExists
	}
	m.protocols[info.ID] = info.Clone()
	return nil
}

func (m *mockState) ProtocolGet(id [32]byte) (*ProtocolInfo, bool, error) {
	info, ok := m.protocols[id]
	if !ok {
		return nil, false, nil
	}
	return info.Clone(), true, nil
}

func (m *mockState) ProtocolPut(info *ProtocolInfo) error {
	m.protocols[info.ID] = info.Clone()
	return nil
}

func (m *mockState) ProtocolCount() (uint64, error) { return m.protocolCount, nil }

func (m *mockState) SetProtocolCount(count uint64) error {
	m.protocolCount = count
	return nil
}

func (m *mockState) PolicyCreate(policy *Policy) error {
	if _, ok := m.policies[policy.ID]; ok {
		return ErrPolicyExists
	}
	m.policies[policy.ID] = policy.Clone()
	return nil
}

func (m *mockState) PolicyGet(id [32]byte) (*Policy, bool, error) {
	policy, ok := m.policies[id]
	if !ok {
		return nil, false, nil
	}
	return policy.Clone(), true, nil
}

func (m *mockState) PolicyPut(policy *Policy) error {
	m.policies[policy.ID] = policy.Clone()
	return nil
}

func (m *mockState) ClaimCreate(claim *Claim) error {
	if _, ok := m.claims[claim.ID]; ok {
		return ErrClaimExists
	}
	m.claims[claim.ID] = claim.Clone()
	return nil
}

func (m *mockState) ClaimGet(id [32]byte) (*Claim, bool, error) {
	claim, ok := m.claims[id]
	if !ok {
		return nil, false, nil
	}
	return claim.Clone(), true, nil
}

func (m *mockState) ClaimPut(claim *Claim) error {
	m.claims[claim.ID] = claim.Clone()
	return nil
}

func (m *mockState) AlertCreate(alert *ExploitAlert) error {
	if _, ok := m.alerts[alert.ID]; ok {
		return errDuplicateAlert
	}
	m.alerts[alert.ID] = alert.Clone()
	return nil
}

func (m *mockState) AlertGet(id string) (*ExploitAlert, bool, error) {
	alert, ok := m.alerts[id]
	if !ok {
		return nil, false, nil
	}
	return alert.Clone(), true, nil
}

func (m *mockState) AlertPut(alert *ExploitAlert) error {
	m.alerts[alert.ID] = alert.Clone()
	return nil
}

func (m *mockState) ClaimQuotaGet(addr [20]byte) (nativecommon.QuotaNow, error) {
	return m.quotas[addr], nil
}

func (m *mockState) ClaimQuotaPut(addr [20]byte, quota nativecommon.QuotaNow) error {
	m.quotas[addr] = quota
	return nil
}

type transferRecord struct {
	from, to, authority [20]byte
	amount              *big.Int
}

// mockLedger mirrors bank.AccountLedger semantics against an in-memory
// balance map and records every transfer for assertions.
type mockLedger struct {
	balances  map[[20]byte]*big.Int
	delegates map[[20]byte][20]byte
	transfers []transferRecord
	failWith  error
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		balances:  make(map[[20]byte]*big.Int),
		delegates: make(map[[20]byte][20]byte),
	}
}

func (l *mockLedger) fund(addr [20]byte, amount int64) {
	l.balances[addr] = big.NewInt(amount)
}

func (l *mockLedger) balance(addr [20]byte) *big.Int {
	bal, ok := l.balances[addr]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

func (l *mockLedger) delegate(custody, authority [20]byte) {
	l.delegates[custody] = authority
}

func (l *mockLedger) Transfer(from, to [20]byte, authority [20]byte, amount *big.Int) error {
	if l.failWith != nil {
		return l.failWith
	}
	if authority != from {
		if delegate, ok := l.delegates[from]; !ok || delegate != authority {
			return errUnauthorizedMockTransfer
		}
	}
	bal := l.balance(from)
	if bal.Cmp(amount) < 0 {
		return errInsufficientMockBalance
	}
	l.balances[from] = bal.Sub(bal, amount)
	l.balances[to] = new(big.Int).Add(l.balance(to), amount)
	l.transfers = append(l.transfers, transferRecord{from: from, to: to, authority: authority, amount: new(big.Int).Set(amount)})
	return nil
}

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func (c *capturingEmitter) lastType() string {
	if len(c.events) == 0 {
		return ""
	}
	return c.events[len(c.events)-1].EventType()
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	testAuthority = newTestAddress(0x01)
	testTreasury  = newTestAddress(0x02)
	testCustody   = newTestAddress(0xAA)
)

const testNow = int64(1_700_000_000)

// newTestEngine wires an engine against fresh mocks with a fixed clock.
func newTestEngine() (*Engine, *mockState, *mockLedger, *capturingEmitter) {
	state := newMockState()
	ledger := newMockLedger()
	emitter := &capturingEmitter{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetLedger(ledger)
	engine.SetEmitter(emitter)
	engine.SetAuthority(testAuthority)
	engine.SetTreasury(testTreasury)
	engine.SetNowFunc(func() int64 { return testNow })
	return engine, state, ledger, emitter
}
