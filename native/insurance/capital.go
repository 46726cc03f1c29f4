package insurance

import (
	"math/big"
	"time"

	nativecommon "coverchain/native/common"
)

const secondsPerDay = 86_400

var (
	basisPoints = big.NewInt(10_000)
	daysPerYear = big.NewInt(365)
)

// InitializePool creates a zeroed capital pool for the tier. The custody
// account holds the pooled funds; payouts and withdrawals are signed with the
// pool authority's delegation, never the caller's.
func (e *Engine) InitializePool(authority [20]byte, tier PoolTier, yieldRateBps uint64, custody [20]byte) (pool *CapitalPool, err error) {
	started := time.Now()
	defer func() { e.observe(moduleCapital, "initialize_pool", started, err) }()
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err = nativecommon.Guard(e.pauses, moduleCapital); err != nil {
		return nil, err
	}
	if !tier.Valid() {
		return nil, ErrInvalidPoolType
	}

	pool = &CapitalPool{
		Tier:             tier,
		TotalCapital:     big.NewInt(0),
		AvailableCapital: big.NewInt(0),
		ReservedCapital:  big.NewInt(0),
		YieldRateBps:     yieldRateBps,
		Custody:          custody,
		Authority:        authority,
	}
	if err = e.state.PoolCreate(pool); err != nil {
		return nil, err
	}

	e.emit(poolInitializedEvent(pool))
	return pool.Clone(), nil
}

// ProvideCapital deposits `amount` into the tier's pool. A first deposit
// creates the provider record; a repeat deposit credits the balance and
// restarts the accrual clock for the blended position. The deposit transfer is
// authorized by the owner; if it fails the whole operation rolls back.
func (e *Engine) ProvideCapital(owner [20]byte, tier PoolTier, amount *big.Int) (provider *CapitalProvider, err error) {
	started := time.Now()
	defer func() { e.observe(moduleCapital, "provide_capital", started, err) }()
	if err = e.ready(); err != nil {
		return nil, err
	}
	if err = nativecommon.Guard(e.pauses, moduleCapital); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	pool, err := e.loadPool(tier)
	if err != nil {
		return nil, err
	}

	provider, ok, err := e.state.ProviderGet(owner, tier)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if !ok {
		provider = &CapitalProvider{
			Owner:         owner,
			Tier:          tier,
			CapitalAmount: big.NewInt(0),
			RewardsEarned: big.NewInt(0),
		}
	}
	provider.CapitalAmount = new(big.Int).Add(provider.CapitalAmount, amount)
	provider.DepositTime = now

	pool.TotalCapital = new(big.Int).Add(pool.TotalCapital, amount)
	pool.AvailableCapital = new(big.Int).Add(pool.AvailableCapital, amount)

	if err = e.ledger.Transfer(owner, pool.Custody, owner, amount); err != nil {
		return nil, err
	}
	if err = e.state.ProviderPut(provider); err != nil {
		return nil, err
	}
	if err = e.storePool(pool); err != nil {
		return nil, err
	}

	e.emit(capitalProvidedEvent(pool, provider, amount))
	return provider.Clone(), nil
}

// WithdrawCapital returns `amount` of principal to the owner and books the
// accrued yield for the holding period into RewardsEarned. Same-day
// withdrawals still accrue one full day. Accrued rewards are bookkeeping only;
// no reward transfer happens here. A full withdrawal retires the provider
// record.
func (e *Engine) WithdrawCapital(owner [20]byte, tier PoolTier, amount *big.Int) (provider *CapitalProvider, err error) {
	started := time.Now()
	defer func() { e.observe(moduleCapital, "withdraw_capital", started, err) }()
	if err = e.ready(); err != nil {
		return nil, err
	}
	if err = nativecommon.Guard(e.pauses, moduleCapital); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	pool, err := e.loadPool(tier)
	if err != nil {
		return nil, err
	}
	provider, ok, err := e.state.ProviderGet(owner, tier)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProviderNotFound
	}

	rewards := accruedYield(provider.CapitalAmount, pool.YieldRateBps, provider.DepositTime, e.now())
	provider.RewardsEarned = new(big.Int).Add(provider.RewardsEarned, rewards)

	if amount.Cmp(pool.AvailableCapital) > 0 {
		return nil, ErrInsufficientPoolCapital
	}
	if amount.Cmp(provider.CapitalAmount) > 0 {
		return nil, ErrInsufficientProviderCapital
	}

	provider.CapitalAmount = new(big.Int).Sub(provider.CapitalAmount, amount)
	pool.TotalCapital = new(big.Int).Sub(pool.TotalCapital, amount)
	pool.AvailableCapital = new(big.Int).Sub(pool.AvailableCapital, amount)

	if err = e.ledger.Transfer(pool.Custody, owner, pool.Authority, amount); err != nil {
		return nil, err
	}

	retired := provider.CapitalAmount.Sign() == 0
	if retired {
		if err = e.state.ProviderRetire(owner, tier); err != nil {
			return nil, err
		}
	} else {
		if err = e.state.ProviderPut(provider); err != nil {
			return nil, err
		}
	}
	if err = e.storePool(pool); err != nil {
		return nil, err
	}

	e.emit(capitalWithdrawnEvent(pool, provider, amount, rewards, retired))
	return provider.Clone(), nil
}

// Pool returns a copy of the tier's capital pool.
func (e *Engine) Pool(tier PoolTier) (*CapitalPool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, err := e.loadPool(tier)
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// Provider returns a copy of the owner's position in the tier's pool.
func (e *Engine) Provider(owner [20]byte, tier PoolTier) (*CapitalProvider, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	provider, ok, err := e.state.ProviderGet(owner, tier)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProviderNotFound
	}
	return provider.Clone(), nil
}

// accruedYield computes (principal * yieldBps / 10000) / 365 * daysHeld with
// truncation at each division. Days held floor at one, even for a same-day
// withdrawal; the truncation order is part of the payout contract.
func accruedYield(principal *big.Int, yieldRateBps uint64, depositTime, now int64) *big.Int {
	if principal == nil || principal.Sign() <= 0 {
		return big.NewInt(0)
	}
	daysHeld := (now - depositTime) / secondsPerDay
	if daysHeld < 1 {
		daysHeld = 1
	}
	annual := new(big.Int).Mul(principal, new(big.Int).SetUint64(yieldRateBps))
	annual.Quo(annual, basisPoints)
	daily := annual.Quo(annual, daysPerYear)
	return daily.Mul(daily, big.NewInt(daysHeld))
}
