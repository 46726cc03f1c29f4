package risk

import "math/big"

// Composite score weights applied across the three risk dimensions. Economic
// risk dominates the blend.
const (
	CodeRiskWeight        = 30
	EconomicRiskWeight    = 40
	OperationalRiskWeight = 30
)

// Score bands: 0-25 low, 26-50 medium-low, 51-75 medium-high, 76-100 high.

var (
	basisPoints = big.NewInt(10_000)
	daysPerYear = big.NewInt(365)
)

// AssessCodeRisk maps audit coverage, bug bounty size and implementation
// complexity onto a 0-100 code risk factor. More audits, a larger bounty and
// lower complexity all reduce the score. Integer division truncates toward
// zero; the truncation order is part of the pricing contract.
func AssessCodeRisk(auditCount uint8, bugBountySize uint64, complexityScore uint8) uint8 {
	auditFactor := 100 - int(minU8(auditCount, 5))*20

	var bountyFactor int
	switch {
	case bugBountySize == 0:
		bountyFactor = 100
	case bugBountySize <= 50_000:
		bountyFactor = 75
	case bugBountySize <= 250_000:
		bountyFactor = 50
	case bugBountySize <= 1_000_000:
		bountyFactor = 25
	default:
		bountyFactor = 0
	}

	complexityFactor := int(minU8(complexityScore, 100))

	return uint8((auditFactor + bountyFactor + complexityFactor) / 3)
}

// AssessEconomicRisk maps TVL, liquidity depth and caller-supplied
// concentration risk onto a 0-100 economic risk factor. Higher TVL and lower
// liquidity both raise the score; concentrationRisk is trusted to already be
// on the 0-100 scale.
func AssessEconomicRisk(tvlUSD, liquidityDepth uint64, concentrationRisk uint8) uint8 {
	var tvlFactor int
	switch {
	case tvlUSD <= 1_000_000:
		tvlFactor = 25
	case tvlUSD <= 10_000_000:
		tvlFactor = 50
	case tvlUSD <= 100_000_000:
		tvlFactor = 75
	default:
		tvlFactor = 100
	}

	var liquidityFactor int
	switch {
	case liquidityDepth <= 100_000:
		liquidityFactor = 100
	case liquidityDepth <= 1_000_000:
		liquidityFactor = 75
	case liquidityDepth <= 10_000_000:
		liquidityFactor = 50
	default:
		liquidityFactor = 25
	}

	return uint8((tvlFactor + liquidityFactor + int(concentrationRisk)) / 3)
}

// AssessOperationalRisk maps governance participation, admin key count and
// oracle dependency onto a 0-100 operational risk factor.
func AssessOperationalRisk(governanceCount, adminCount uint8, oracleDependency bool) uint8 {
	governanceFactor := 100 - int(minU8(governanceCount, 10))*10
	adminFactor := 100 - int(minU8(adminCount, 5))*20
	oracleFactor := 0
	if oracleDependency {
		oracleFactor = 100
	}

	return uint8((governanceFactor + adminFactor + oracleFactor) / 3)
}

// CompositeScore blends the three risk factors with the fixed 30/40/30
// weights, integer-divided by 100.
func CompositeScore(codeRisk, economicRisk, operationalRisk uint8) uint8 {
	weighted := int(codeRisk)*CodeRiskWeight +
		int(economicRisk)*EconomicRiskWeight +
		int(operationalRisk)*OperationalRiskWeight
	return uint8(weighted / 100)
}

// PremiumRateBps looks up the annualized premium rate in basis points for a
// composite risk score.
func PremiumRateBps(riskScore uint8) uint64 {
	switch {
	case riskScore <= 25:
		return 25
	case riskScore <= 50:
		return 50
	case riskScore <= 75:
		return 100
	default:
		return 200
	}
}

// PremiumAmount prices a policy: coverage * rateBps / 10000, truncated, then
// divided by 365, truncated, then multiplied by the duration in days. Each
// division truncates before the next step; callers relying on compatible
// pricing must not reorder the arithmetic.
func PremiumAmount(coverageAmount *big.Int, rateBps uint64, durationDays uint16) *big.Int {
	if coverageAmount == nil || coverageAmount.Sign() <= 0 {
		return big.NewInt(0)
	}
	annual := new(big.Int).Mul(coverageAmount, new(big.Int).SetUint64(rateBps))
	annual.Quo(annual, basisPoints)
	daily := annual.Quo(annual, daysPerYear)
	return daily.Mul(daily, new(big.Int).SetUint64(uint64(durationDays)))
}

func minU8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}
