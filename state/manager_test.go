package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"coverchain/core/types"
	nativecommon "coverchain/native/common"
	"coverchain/native/insurance"
	"coverchain/storage"
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func testPool(tier insurance.PoolTier) *insurance.CapitalPool {
	return &insurance.CapitalPool{
		Tier:             tier,
		TotalCapital:     big.NewInt(1_000),
		AvailableCapital: big.NewInt(800),
		ReservedCapital:  big.NewInt(200),
		YieldRateBps:     500,
		Custody:          testAddr(0xAA),
		Authority:        testAddr(0x01),
	}
}

func TestManagerPoolRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	_, ok, err := m.PoolGet(insurance.PoolTierLow)
	require.NoError(t, err)
	require.False(t, ok)

	pool := testPool(insurance.PoolTierLow)
	require.NoError(t, m.PoolCreate(pool))

	got, ok, err := m.PoolGet(insurance.PoolTierLow)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pool.Tier, got.Tier)
	require.Zero(t, got.TotalCapital.Cmp(pool.TotalCapital))
	require.Zero(t, got.ReservedCapital.Cmp(pool.ReservedCapital))
	require.Equal(t, pool.Custody, got.Custody)
}

func TestManagerPoolCreateRejectsDuplicate(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	require.NoError(t, m.PoolCreate(testPool(insurance.PoolTierLow)))
	err := m.PoolCreate(testPool(insurance.PoolTierLow))
	require.ErrorIs(t, err, insurance.ErrPoolExists)
}

func TestManagerPoolPutRejectsBrokenInvariant(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	pool := testPool(insurance.PoolTierLow)
	pool.ReservedCapital = big.NewInt(999)
	require.Error(t, m.PoolPut(pool))
}

func TestManagerProviderLifecycle(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	owner := testAddr(0x10)

	provider := &insurance.CapitalProvider{
		Owner:         owner,
		Tier:          insurance.PoolTierMedium,
		CapitalAmount: big.NewInt(500),
		RewardsEarned: big.NewInt(0),
		DepositTime:   1_700_000_000,
	}
	require.NoError(t, m.ProviderPut(provider))

	got, ok, err := m.ProviderGet(owner, insurance.PoolTierMedium)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, got.CapitalAmount.Cmp(provider.CapitalAmount))
	require.Equal(t, provider.DepositTime, got.DepositTime)

	// Positions are keyed per (owner, tier).
	_, ok, err = m.ProviderGet(owner, insurance.PoolTierHigh)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.ProviderRetire(owner, insurance.PoolTierMedium))
	_, ok, err = m.ProviderGet(owner, insurance.PoolTierMedium)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestManagerProtocolCounter(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	count, err := m.ProtocolCount()
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, m.SetProtocolCount(3))
	count, err = m.ProtocolCount()
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)
}

func TestManagerClaimRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	id := [32]byte{0x01, 0x02}

	claim := &insurance.Claim{
		ID:            id,
		Policy:        [32]byte{0x03},
		Claimant:      testAddr(0x30),
		Amount:        big.NewInt(42),
		Evidence:      "drained vault",
		SubmittedTime: 1_700_000_000,
		Status:        insurance.ClaimPending,
	}
	require.NoError(t, m.ClaimCreate(claim))
	require.ErrorIs(t, m.ClaimCreate(claim), insurance.ErrClaimExists)

	got, ok, err := m.ClaimGet(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, insurance.ClaimPending, got.Status)
	require.Equal(t, "drained vault", got.Evidence)

	got.Status = insurance.ClaimApproved
	require.NoError(t, m.ClaimPut(got))
	reread, ok, err := m.ClaimGet(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, insurance.ClaimApproved, reread.Status)
}

func TestManagerClaimQuotaRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := testAddr(0x30)

	quota, err := m.ClaimQuotaGet(addr)
	require.NoError(t, err)
	require.Zero(t, quota.ReqCount)

	require.NoError(t, m.ClaimQuotaPut(addr, nativecommon.QuotaNow{ReqCount: 2, EpochID: 7}))
	quota, err = m.ClaimQuotaGet(addr)
	require.NoError(t, err)
	require.Equal(t, uint32(2), quota.ReqCount)
	require.Equal(t, uint64(7), quota.EpochID)
}

func TestManagerAccountMissingReadsNil(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	account, err := m.GetAccount(testAddr(0x40))
	require.NoError(t, err)
	require.Nil(t, account)

	require.NoError(t, m.PutAccount(testAddr(0x40), &types.Account{Nonce: 1, Balance: big.NewInt(99)}))
	account, err = m.GetAccount(testAddr(0x40))
	require.NoError(t, err)
	require.NotNil(t, account)
	require.Zero(t, account.Balance.Cmp(big.NewInt(99)))
}

func TestRunAtomicCommitsOnSuccess(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	err := m.RunAtomic(func() error {
		if err := m.PoolCreate(testPool(insurance.PoolTierLow)); err != nil {
			return err
		}
		return m.SetProtocolCount(1)
	})
	require.NoError(t, err)

	_, ok, err := m.PoolGet(insurance.PoolTierLow)
	require.NoError(t, err)
	require.True(t, ok)
	count, err := m.ProtocolCount()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

func TestRunAtomicDiscardsOnFailure(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	boom := errors.New("transfer failed")

	err := m.RunAtomic(func() error {
		if err := m.PoolCreate(testPool(insurance.PoolTierLow)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, ok, err := m.PoolGet(insurance.PoolTierLow)
	require.NoError(t, err)
	require.False(t, ok, "staged writes must be discarded on failure")
}

func TestRunAtomicReadsSeeStagedWrites(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	err := m.RunAtomic(func() error {
		if err := m.PoolCreate(testPool(insurance.PoolTierLow)); err != nil {
			return err
		}
		// The duplicate guard must see the staged record.
		if err := m.PoolCreate(testPool(insurance.PoolTierLow)); !errors.Is(err, insurance.ErrPoolExists) {
			return errors.New("staged pool invisible to create guard")
		}
		pool, ok, err := m.PoolGet(insurance.PoolTierLow)
		if err != nil || !ok {
			return errors.New("staged pool invisible to read")
		}
		pool.AvailableCapital = big.NewInt(700)
		pool.ReservedCapital = big.NewInt(300)
		return m.PoolPut(pool)
	})
	require.NoError(t, err)

	pool, ok, err := m.PoolGet(insurance.PoolTierLow)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, pool.ReservedCapital.Cmp(big.NewInt(300)))
}

func TestRunAtomicStagedDelete(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	owner := testAddr(0x10)
	provider := &insurance.CapitalProvider{
		Owner:         owner,
		Tier:          insurance.PoolTierLow,
		CapitalAmount: big.NewInt(1),
		RewardsEarned: big.NewInt(0),
	}
	require.NoError(t, m.ProviderPut(provider))

	err := m.RunAtomic(func() error {
		if err := m.ProviderRetire(owner, insurance.PoolTierLow); err != nil {
			return err
		}
		if _, ok, err := m.ProviderGet(owner, insurance.PoolTierLow); err != nil || ok {
			return errors.New("staged delete still visible")
		}
		return nil
	})
	require.NoError(t, err)

	_, ok, err := m.ProviderGet(owner, insurance.PoolTierLow)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRunViewDoesNotObserveInFlightSection(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	boom := errors.New("rolled back")
	staged := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- m.RunAtomic(func() error {
			if err := m.PoolCreate(testPool(insurance.PoolTierLow)); err != nil {
				return err
			}
			close(staged)
			<-release
			return boom
		})
	}()
	<-staged

	// The view blocks behind the in-flight section, so it reads committed
	// state only after the rollback has completed.
	var ok bool
	read := make(chan struct{})
	go func() {
		defer close(read)
		_ = m.RunView(func() error {
			var err error
			_, ok, err = m.PoolGet(insurance.PoolTierLow)
			return err
		})
	}()
	close(release)

	require.ErrorIs(t, <-done, boom)
	<-read
	require.False(t, ok, "view must not observe an uncommitted pool")
}

func TestRunViewReadsCommittedState(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	require.NoError(t, m.RunAtomic(func() error {
		return m.PoolCreate(testPool(insurance.PoolTierLow))
	}))

	var ok bool
	err := m.RunView(func() error {
		var err error
		_, ok, err = m.PoolGet(insurance.PoolTierLow)
		return err
	})
	require.NoError(t, err)
	require.True(t, ok)
}
