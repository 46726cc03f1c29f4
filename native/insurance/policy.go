package insurance

import (
	"math/big"
	"time"

	nativecommon "coverchain/native/common"
	"coverchain/native/risk"
)

// CreatePolicy sells a coverage policy on an active protocol. The premium is
// recorded as supplied and transferred from the insured to the treasury; this
// operation never prices the policy itself — callers are expected to have
// quoted it beforehand (see QuotePremium).
func (e *Engine) CreatePolicy(insured [20]byte, protocolID [32]byte, coverageAmount, premiumAmount *big.Int, durationDays uint16) (policy *Policy, err error) {
	started := time.Now()
	defer func() { e.observe(modulePolicy, "create_policy", started, err) }()
	if err = e.ready(); err != nil {
		return nil, err
	}
	if err = nativecommon.Guard(e.pauses, modulePolicy); err != nil {
		return nil, err
	}
	if coverageAmount == nil || coverageAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if premiumAmount == nil || premiumAmount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	info, err := e.loadProtocol(protocolID)
	if err != nil {
		return nil, err
	}
	if !info.Active {
		return nil, ErrProtocolNotActive
	}

	now := e.now()
	policy = &Policy{
		ID:             PolicyID(insured, protocolID),
		Insured:        insured,
		Protocol:       protocolID,
		CoverageAmount: new(big.Int).Set(coverageAmount),
		PremiumAmount:  new(big.Int).Set(premiumAmount),
		StartTime:      now,
		EndTime:        now + int64(durationDays)*secondsPerDay,
		Active:         true,
		Claimed:        false,
	}
	if err = e.state.PolicyCreate(policy); err != nil {
		return nil, err
	}
	if premiumAmount.Sign() > 0 {
		if err = e.ledger.Transfer(insured, e.treasury, insured, premiumAmount); err != nil {
			return nil, err
		}
	}

	e.emit(policyCreatedEvent(policy))
	return policy.Clone(), nil
}

// QuotePremium prices coverage against the protocol's current risk score. The
// quote is advisory: CreatePolicy records whatever premium the caller settles
// on, so a quote obtained here can go stale if the risk score moves before
// purchase.
func (e *Engine) QuotePremium(protocolID [32]byte, coverageAmount *big.Int, durationDays uint16) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	info, err := e.loadProtocol(protocolID)
	if err != nil {
		return nil, err
	}
	rate := risk.PremiumRateBps(info.RiskScore)
	return risk.PremiumAmount(coverageAmount, rate, durationDays), nil
}

// PolicyByID returns a copy of the stored policy.
func (e *Engine) PolicyByID(id [32]byte) (*Policy, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	policy, err := e.loadPolicy(id)
	if err != nil {
		return nil, err
	}
	return policy.Clone(), nil
}
