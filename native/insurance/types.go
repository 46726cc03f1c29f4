package insurance

import (
	"fmt"
	"math/big"
	"strings"
)

// PoolTier identifies the risk bucket capital is pooled under. Each tier has
// its own yield rate, custody account and balances.
type PoolTier uint8

const (
	PoolTierLow PoolTier = iota + 1
	PoolTierMedium
	PoolTierHigh
)

// Valid reports whether the tier value is within the supported range.
func (t PoolTier) Valid() bool {
	switch t {
	case PoolTierLow, PoolTierMedium, PoolTierHigh:
		return true
	default:
		return false
	}
}

func (t PoolTier) String() string {
	switch t {
	case PoolTierLow:
		return "low"
	case PoolTierMedium:
		return "medium"
	case PoolTierHigh:
		return "high"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// ParsePoolTier maps a configuration string onto a pool tier.
func ParsePoolTier(value string) (PoolTier, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return PoolTierLow, nil
	case "medium":
		return PoolTierMedium, nil
	case "high":
		return PoolTierHigh, nil
	default:
		return 0, fmt.Errorf("unknown pool tier %q", value)
	}
}

// CapitalPool tracks the pooled capital for one risk tier.
//
// TotalCapital == AvailableCapital + ReservedCapital holds after every deposit
// and withdrawal. ReservedCapital is incremented when a claim is approved and
// never drained afterwards, so it doubles as the cumulative payout ledger; see
// the resolution notes in DESIGN.md.
type CapitalPool struct {
	Tier             PoolTier
	TotalCapital     *big.Int
	AvailableCapital *big.Int
	ReservedCapital  *big.Int
	YieldRateBps     uint64
	Custody          [20]byte
	Authority        [20]byte
}

// Clone returns a deep copy of the pool so callers can mutate the copy without
// affecting the stored instance.
func (p *CapitalPool) Clone() *CapitalPool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.TotalCapital = cloneBigInt(p.TotalCapital)
	clone.AvailableCapital = cloneBigInt(p.AvailableCapital)
	clone.ReservedCapital = cloneBigInt(p.ReservedCapital)
	return &clone
}

// SanitizePool validates pool accounting before it is persisted: a recognised
// tier, non-negative balances and the capital conservation invariant.
func SanitizePool(p *CapitalPool) (*CapitalPool, error) {
	if p == nil {
		return nil, fmt.Errorf("nil capital pool")
	}
	if !p.Tier.Valid() {
		return nil, fmt.Errorf("invalid pool tier %d", p.Tier)
	}
	clone := p.Clone()
	if clone.TotalCapital.Sign() < 0 || clone.AvailableCapital.Sign() < 0 || clone.ReservedCapital.Sign() < 0 {
		return nil, fmt.Errorf("pool %s: negative capital balance", clone.Tier)
	}
	sum := new(big.Int).Add(clone.AvailableCapital, clone.ReservedCapital)
	if clone.TotalCapital.Cmp(sum) != 0 {
		return nil, fmt.Errorf("pool %s: total capital %s != available %s + reserved %s",
			clone.Tier, clone.TotalCapital, clone.AvailableCapital, clone.ReservedCapital)
	}
	return clone, nil
}

// CapitalProvider records one owner's stake in one pool. A repeat deposit
// restarts the accrual clock for the blended balance; a full withdrawal
// retires the record.
type CapitalProvider struct {
	Owner         [20]byte
	Tier          PoolTier
	CapitalAmount *big.Int
	RewardsEarned *big.Int
	DepositTime   int64
}

// Clone returns a deep copy of the provider record.
func (p *CapitalProvider) Clone() *CapitalProvider {
	if p == nil {
		return nil
	}
	clone := *p
	clone.CapitalAmount = cloneBigInt(p.CapitalAmount)
	clone.RewardsEarned = cloneBigInt(p.RewardsEarned)
	return &clone
}

// ProtocolInfo describes a registered insured protocol. The identifier is the
// keccak256 hash of the registering authority, so one authority maps to at
// most one protocol.
type ProtocolInfo struct {
	ID        [32]byte
	Authority [20]byte
	Name      string
	TVLUSD    uint64
	RiskScore uint8
	Active    bool
}

// Clone returns a copy of the protocol record.
func (p *ProtocolInfo) Clone() *ProtocolInfo {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Policy is a time-boxed coverage contract between an insured party and the
// pool, keyed by keccak256(insured, protocol).
type Policy struct {
	ID             [32]byte
	Insured        [20]byte
	Protocol       [32]byte
	CoverageAmount *big.Int
	PremiumAmount  *big.Int
	StartTime      int64
	EndTime        int64
	Active         bool
	Claimed        bool
}

// Clone returns a deep copy of the policy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	clone := *p
	clone.CoverageAmount = cloneBigInt(p.CoverageAmount)
	clone.PremiumAmount = cloneBigInt(p.PremiumAmount)
	return &clone
}

// ClaimStatus tracks the claim settlement state machine: Pending transitions
// exactly once to Approved or Rejected and is never reopened.
type ClaimStatus uint8

const (
	ClaimPending ClaimStatus = iota
	ClaimApproved
	ClaimRejected
)

func (s ClaimStatus) String() string {
	switch s {
	case ClaimPending:
		return "pending"
	case ClaimApproved:
		return "approved"
	case ClaimRejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Terminal reports whether the status admits no further transitions.
func (s ClaimStatus) Terminal() bool {
	return s == ClaimApproved || s == ClaimRejected
}

// Claim is a request to draw against a policy's coverage. The identifier is
// derived from the policy, so at most one live claim exists per policy;
// resubmission before resolution fails at the storage layer.
type Claim struct {
	ID              [32]byte
	Policy          [32]byte
	Claimant        [20]byte
	Amount          *big.Int
	Evidence        string
	EvidenceHash    [32]byte
	SubmittedTime   int64
	Status          ClaimStatus
	ResolutionTime  int64
	Resolver        [20]byte
	ResolutionNotes string
}

// Clone returns a deep copy of the claim.
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Amount = cloneBigInt(c.Amount)
	return &clone
}

// AnomalyType classifies an exploit alert.
type AnomalyType uint8

const (
	AnomalyFundDrain AnomalyType = iota + 1
	AnomalyOracleManipulation
	AnomalyGovernanceTakeover
	AnomalyAccessControl
)

// Valid reports whether the anomaly type is recognised.
func (a AnomalyType) Valid() bool {
	switch a {
	case AnomalyFundDrain, AnomalyOracleManipulation, AnomalyGovernanceTakeover, AnomalyAccessControl:
		return true
	default:
		return false
	}
}

func (a AnomalyType) String() string {
	switch a {
	case AnomalyFundDrain:
		return "fund_drain"
	case AnomalyOracleManipulation:
		return "oracle_manipulation"
	case AnomalyGovernanceTakeover:
		return "governance_takeover"
	case AnomalyAccessControl:
		return "access_control"
	default:
		return fmt.Sprintf("anomaly(%d)", uint8(a))
	}
}

// AlertStatus tracks the exploit alert lifecycle.
type AlertStatus uint8

const (
	AlertOpen AlertStatus = iota
	AlertConfirmed
	AlertDismissed
)

func (s AlertStatus) String() string {
	switch s {
	case AlertOpen:
		return "open"
	case AlertConfirmed:
		return "confirmed"
	case AlertDismissed:
		return "dismissed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// ExploitAlert is an anomaly report raised against a registered protocol.
// Unlike claims, several alerts may be open for the same protocol at once, so
// alerts carry random identifiers instead of derived ones.
type ExploitAlert struct {
	ID              string
	Protocol        [32]byte
	Reporter        [20]byte
	Anomaly         AnomalyType
	Severity        uint8
	Details         string
	DetailsHash     [32]byte
	CreatedTime     int64
	Status          AlertStatus
	ResolutionTime  int64
	Resolver        [20]byte
	ResolutionNotes string
}

// Clone returns a copy of the alert.
func (a *ExploitAlert) Clone() *ExploitAlert {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
