package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"coverchain/core/types"
	nativecommon "coverchain/native/common"
	"coverchain/native/insurance"
	"coverchain/storage"
)

// Manager persists the ledger's records in a key-value store. Records are
// JSON-encoded; identifiers are hex-expanded into readable keys (see keys.go).
//
// Writes normally land in the backing store immediately. Inside RunAtomic they
// are staged in an overlay and flushed only when the wrapped function
// succeeds, which gives engine operations their all-or-nothing envelope.
//
// Staged writes are visible only inside the atomic section that made them.
// Concurrent readers go through RunView, which waits out any in-flight
// section and then reads committed state.
type Manager struct {
	db storage.Database

	mu       sync.Mutex
	atomicMu sync.RWMutex
	staging  bool
	overlay  map[string][]byte // nil value marks a staged delete
}

func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// RunAtomic executes fn with all writes staged. If fn returns nil every
// staged write is flushed to the backing store; any error discards the
// overlay and leaves the store untouched. Atomic sections are serialized.
func (m *Manager) RunAtomic(fn func() error) error {
	m.atomicMu.Lock()
	defer m.atomicMu.Unlock()

	m.mu.Lock()
	m.staging = true
	m.overlay = make(map[string][]byte)
	m.mu.Unlock()

	err := fn()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.staging = false
	overlay := m.overlay
	m.overlay = nil
	if err != nil {
		return err
	}
	return m.flush(overlay)
}

// RunView executes fn against committed state. It blocks while an atomic
// section is in flight, so fn never observes staged writes that may still be
// rolled back.
func (m *Manager) RunView(fn func() error) error {
	m.atomicMu.RLock()
	defer m.atomicMu.RUnlock()
	return fn()
}

// flush commits the overlay, preferring the backend's atomic batch write so a
// storage error cannot leave a section half-applied.
func (m *Manager) flush(overlay map[string][]byte) error {
	if len(overlay) == 0 {
		return nil
	}
	if batcher, ok := m.db.(storage.Batcher); ok {
		if err := batcher.WriteBatch(overlay); err != nil {
			return fmt.Errorf("state: flush batch: %w", err)
		}
		return nil
	}
	for key, value := range overlay {
		if value == nil {
			if derr := m.db.Delete([]byte(key)); derr != nil && !errors.Is(derr, storage.ErrKeyNotFound) {
				return fmt.Errorf("state: flush delete %q: %w", key, derr)
			}
			continue
		}
		if perr := m.db.Put([]byte(key), value); perr != nil {
			return fmt.Errorf("state: flush put %q: %w", key, perr)
		}
	}
	return nil
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	m.mu.Lock()
	if m.staging {
		if value, ok := m.overlay[string(key)]; ok {
			m.mu.Unlock()
			if value == nil {
				return nil, false, nil
			}
			return value, true, nil
		}
	}
	m.mu.Unlock()

	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) put(key, value []byte) error {
	m.mu.Lock()
	if m.staging {
		m.overlay[string(key)] = value
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return m.db.Put(key, value)
}

func (m *Manager) delete(key []byte) error {
	m.mu.Lock()
	if m.staging {
		m.overlay[string(key)] = nil
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	err := m.db.Delete(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (m *Manager) has(key []byte) (bool, error) {
	_, ok, err := m.get(key)
	return ok, err
}

func (m *Manager) load(key []byte, out any) (bool, error) {
	raw, ok, err := m.get(key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) store(key []byte, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.put(key, raw)
}

func (m *Manager) create(key []byte, record any, existsErr error) error {
	ok, err := m.has(key)
	if err != nil {
		return err
	}
	if ok {
		return existsErr
	}
	return m.store(key, record)
}

// --- capital pools ---

func (m *Manager) PoolCreate(pool *insurance.CapitalPool) error {
	sanitized, err := insurance.SanitizePool(pool)
	if err != nil {
		return err
	}
	return m.create(poolKey(sanitized.Tier), sanitized, insurance.ErrPoolExists)
}

func (m *Manager) PoolGet(tier insurance.PoolTier) (*insurance.CapitalPool, bool, error) {
	pool := new(insurance.CapitalPool)
	ok, err := m.load(poolKey(tier), pool)
	if err != nil || !ok {
		return nil, ok, err
	}
	return pool, true, nil
}

func (m *Manager) PoolPut(pool *insurance.CapitalPool) error {
	sanitized, err := insurance.SanitizePool(pool)
	if err != nil {
		return err
	}
	return m.store(poolKey(sanitized.Tier), sanitized)
}

// --- capital providers ---

func (m *Manager) ProviderGet(owner [20]byte, tier insurance.PoolTier) (*insurance.CapitalProvider, bool, error) {
	provider := new(insurance.CapitalProvider)
	ok, err := m.load(providerKey(owner, tier), provider)
	if err != nil || !ok {
		return nil, ok, err
	}
	return provider, true, nil
}

func (m *Manager) ProviderPut(provider *insurance.CapitalProvider) error {
	return m.store(providerKey(provider.Owner, provider.Tier), provider)
}

// ProviderRetire reclaims the storage for a fully withdrawn position.
func (m *Manager) ProviderRetire(owner [20]byte, tier insurance.PoolTier) error {
	return m.delete(providerKey(owner, tier))
}

// --- protocol registry ---

func (m *Manager) ProtocolCreate(info *insurance.ProtocolInfo) error {
	return m.create(protocolKey(info.ID), info, insurance.ErrProtocolExists)
}

func (m *Manager) ProtocolGet(id [32]byte) (*insurance.ProtocolInfo, bool, error) {
	info := new(insurance.ProtocolInfo)
	ok, err := m.load(protocolKey(id), info)
	if err != nil || !ok {
		return nil, ok, err
	}
	return info, true, nil
}

func (m *Manager) ProtocolPut(info *insurance.ProtocolInfo) error {
	return m.store(protocolKey(info.ID), info)
}

func (m *Manager) ProtocolCount() (uint64, error) {
	raw, ok, err := m.get(protocolCountKey)
	if err != nil || !ok {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("state: malformed protocol counter (%d bytes)", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (m *Manager) SetProtocolCount(count uint64) error {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, count)
	return m.put(protocolCountKey, raw)
}

// --- policies ---

func (m *Manager) PolicyCreate(policy *insurance.Policy) error {
	return m.create(policyKey(policy.ID), policy, insurance.ErrPolicyExists)
}

func (m *Manager) PolicyGet(id [32]byte) (*insurance.Policy, bool, error) {
	policy := new(insurance.Policy)
	ok, err := m.load(policyKey(id), policy)
	if err != nil || !ok {
		return nil, ok, err
	}
	return policy, true, nil
}

func (m *Manager) PolicyPut(policy *insurance.Policy) error {
	return m.store(policyKey(policy.ID), policy)
}

// --- claims ---

func (m *Manager) ClaimCreate(claim *insurance.Claim) error {
	return m.create(claimKey(claim.ID), claim, insurance.ErrClaimExists)
}

func (m *Manager) ClaimGet(id [32]byte) (*insurance.Claim, bool, error) {
	claim := new(insurance.Claim)
	ok, err := m.load(claimKey(id), claim)
	if err != nil || !ok {
		return nil, ok, err
	}
	return claim, true, nil
}

func (m *Manager) ClaimPut(claim *insurance.Claim) error {
	return m.store(claimKey(claim.ID), claim)
}

// --- exploit alerts ---

func (m *Manager) AlertCreate(alert *insurance.ExploitAlert) error {
	return m.create(alertKey(alert.ID), alert, fmt.Errorf("state: alert %s already exists", alert.ID))
}

func (m *Manager) AlertGet(id string) (*insurance.ExploitAlert, bool, error) {
	alert := new(insurance.ExploitAlert)
	ok, err := m.load(alertKey(id), alert)
	if err != nil || !ok {
		return nil, ok, err
	}
	return alert, true, nil
}

func (m *Manager) AlertPut(alert *insurance.ExploitAlert) error {
	return m.store(alertKey(alert.ID), alert)
}

// --- claim quotas ---

func (m *Manager) ClaimQuotaGet(addr [20]byte) (nativecommon.QuotaNow, error) {
	var quota nativecommon.QuotaNow
	if _, err := m.load(claimQuotaKey(addr), &quota); err != nil {
		return nativecommon.QuotaNow{}, err
	}
	return quota, nil
}

func (m *Manager) ClaimQuotaPut(addr [20]byte, quota nativecommon.QuotaNow) error {
	return m.store(claimQuotaKey(addr), quota)
}

// --- accounts ---

// GetAccount reads the account record; a missing account reads as nil so the
// ledger can treat it as zero-balance.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	account := new(types.Account)
	ok, err := m.load(accountKey(addr), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return account, nil
}

func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	return m.store(accountKey(addr), account)
}
