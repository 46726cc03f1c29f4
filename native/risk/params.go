package risk

// CodeRiskParams carries the caller-supplied inputs for the code risk factor.
type CodeRiskParams struct {
	AuditCount      uint8
	BugBountySize   uint64
	ComplexityScore uint8
}

// EconomicRiskParams carries the caller-supplied inputs for the economic risk
// factor. TVL is intentionally absent: the registry always prices against the
// protocol's stored TVL, never a caller-supplied figure.
type EconomicRiskParams struct {
	LiquidityDepth    uint64
	ConcentrationRisk uint8
}

// OperationalRiskParams carries the caller-supplied inputs for the
// operational risk factor.
type OperationalRiskParams struct {
	GovernanceCount  uint8
	AdminCount       uint8
	OracleDependency bool
}
