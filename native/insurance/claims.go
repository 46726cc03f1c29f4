package insurance

import (
	"math/big"
	"time"

	"lukechampine.com/blake3"

	nativecommon "coverchain/native/common"
)

const (
	maxEvidenceLen = 96
	maxNotesLen    = 96
)

// SubmitClaim opens a pending claim against a policy. The claim identity is
// derived from the policy, so a second submission before resolution fails at
// the storage layer with ErrClaimExists.
func (e *Engine) SubmitClaim(claimant [20]byte, policyID [32]byte, amount *big.Int, evidence string) (claim *Claim, err error) {
	started := time.Now()
	defer func() { e.observe(moduleClaims, "submit_claim", started, err) }()
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err = nativecommon.Guard(e.pauses, moduleClaims); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(evidence) > maxEvidenceLen {
		return nil, ErrEvidenceTooLong
	}

	policy, err := e.loadPolicy(policyID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if !policy.Active {
		return nil, ErrPolicyNotActive
	}
	if now >= policy.EndTime {
		return nil, ErrPolicyExpired
	}
	if policy.Claimed {
		return nil, ErrPolicyAlreadyClaimed
	}
	if claimant != policy.Insured {
		return nil, ErrUnauthorizedClaim
	}
	if amount.Cmp(policy.CoverageAmount) > 0 {
		return nil, ErrExcessClaimAmount
	}

	if err = e.consumeClaimQuota(claimant, now); err != nil {
		return nil, err
	}

	claim = &Claim{
		ID:            ClaimID(policyID),
		Policy:        policyID,
		Claimant:      claimant,
		Amount:        new(big.Int).Set(amount),
		Evidence:      evidence,
		EvidenceHash:  blake3.Sum256([]byte(evidence)),
		SubmittedTime: now,
		Status:        ClaimPending,
	}
	if err = e.state.ClaimCreate(claim); err != nil {
		return nil, err
	}

	e.emit(claimSubmittedEvent(claim))
	return claim.Clone(), nil
}

// ResolveClaim settles a pending claim. Only the insured protocol's designated
// authority may resolve. Approval marks the policy as claimed, moves the claim
// amount from the pool's available capital into its reserved bucket and pays
// the claimant out of pool custody under the pool's delegated authority.
// Rejection records the outcome and touches nothing else. Either way the claim
// reaches a terminal state and can never be reopened.
func (e *Engine) ResolveClaim(resolver [20]byte, policyID [32]byte, tier PoolTier, approve bool, notes string) (claim *Claim, err error) {
	started := time.Now()
	defer func() { e.observe(moduleClaims, "resolve_claim", started, err) }()
	if err = e.ready(); err != nil {
		return nil, err
	}
	if err = nativecommon.Guard(e.pauses, moduleClaims); err != nil {
		return nil, err
	}
	if len(notes) > maxNotesLen {
		return nil, ErrNotesTooLong
	}

	claim, ok, err := e.state.ClaimGet(ClaimID(policyID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrClaimNotFound
	}
	policy, err := e.loadPolicy(policyID)
	if err != nil {
		return nil, err
	}
	info, err := e.loadProtocol(policy.Protocol)
	if err != nil {
		return nil, err
	}
	if resolver != info.Authority {
		return nil, ErrUnauthorizedResolver
	}
	if claim.Status != ClaimPending {
		return nil, ErrClaimAlreadyResolved
	}

	claim.ResolutionTime = e.now()
	claim.Resolver = resolver
	claim.ResolutionNotes = notes

	if !approve {
		claim.Status = ClaimRejected
		if err = e.state.ClaimPut(claim); err != nil {
			return nil, err
		}
		e.emit(claimResolvedEvent(claim))
		return claim.Clone(), nil
	}

	pool, err := e.loadPool(tier)
	if err != nil {
		return nil, err
	}
	if claim.Amount.Cmp(pool.AvailableCapital) > 0 {
		return nil, ErrInsufficientPoolCapital
	}

	claim.Status = ClaimApproved
	policy.Claimed = true
	pool.AvailableCapital = new(big.Int).Sub(pool.AvailableCapital, claim.Amount)
	pool.ReservedCapital = new(big.Int).Add(pool.ReservedCapital, claim.Amount)

	if err = e.ledger.Transfer(pool.Custody, claim.Claimant, pool.Authority, claim.Amount); err != nil {
		return nil, err
	}
	if err = e.state.ClaimPut(claim); err != nil {
		return nil, err
	}
	if err = e.state.PolicyPut(policy); err != nil {
		return nil, err
	}
	if err = e.storePool(pool); err != nil {
		return nil, err
	}

	e.emit(claimResolvedEvent(claim))
	return claim.Clone(), nil
}

// ClaimByPolicy returns a copy of the claim filed against the policy.
func (e *Engine) ClaimByPolicy(policyID [32]byte) (*Claim, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	claim, ok, err := e.state.ClaimGet(ClaimID(policyID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrClaimNotFound
	}
	return claim.Clone(), nil
}

func (e *Engine) consumeClaimQuota(claimant [20]byte, now int64) error {
	if e.claimQuota.MaxRequestsPerEpoch == 0 {
		return nil
	}
	prev, err := e.state.ClaimQuotaGet(claimant)
	if err != nil {
		return err
	}
	next, err := nativecommon.CheckQuota(e.claimQuota, e.claimQuota.Epoch(now), prev, 1)
	if err != nil {
		return err
	}
	return e.state.ClaimQuotaPut(claimant, next)
}
