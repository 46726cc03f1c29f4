package insurance

import (
	"fmt"
	"math"
	"strings"
	"time"

	nativecommon "coverchain/native/common"
	"coverchain/native/risk"
)

const maxProtocolNameLen = 32

// RegisterProtocol records a protocol as insurable. The protocol starts with a
// default medium risk score of 50 and is immediately active. Registering the
// same authority twice fails with ErrProtocolExists rather than overwriting.
func (e *Engine) RegisterProtocol(authority [20]byte, name string, tvlUSD uint64) (info *ProtocolInfo, err error) {
	started := time.Now()
	defer func() { e.observe(moduleRegistry, "register_protocol", started, err) }()
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err = nativecommon.Guard(e.pauses, moduleRegistry); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrNameRequired
	}
	if len(trimmed) > maxProtocolNameLen {
		return nil, ErrNameTooLong
	}

	info = &ProtocolInfo{
		ID:        ProtocolID(authority),
		Authority: authority,
		Name:      trimmed,
		TVLUSD:    tvlUSD,
		RiskScore: 50,
		Active:    true,
	}
	if err = e.state.ProtocolCreate(info); err != nil {
		return nil, err
	}

	count, err := e.state.ProtocolCount()
	if err != nil {
		return nil, err
	}
	if count == math.MaxUint64 {
		return nil, fmt.Errorf("insurance engine: protocol counter overflow")
	}
	if err = e.state.SetProtocolCount(count + 1); err != nil {
		return nil, err
	}

	e.emit(protocolRegisteredEvent(info))
	return info.Clone(), nil
}

// UpdateProtocolRisk recomputes the protocol's composite risk score from
// caller-supplied risk factors and the stored TVL. Only the protocol's own
// authority or the global protocol-state authority may update the score.
func (e *Engine) UpdateProtocolRisk(
	caller [20]byte,
	protocolID [32]byte,
	code risk.CodeRiskParams,
	economic risk.EconomicRiskParams,
	operational risk.OperationalRiskParams,
) (score uint8, err error) {
	started := time.Now()
	defer func() { e.observe(moduleRegistry, "update_protocol_risk", started, err) }()
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err = nativecommon.Guard(e.pauses, moduleRegistry); err != nil {
		return 0, err
	}

	info, err := e.loadProtocol(protocolID)
	if err != nil {
		return 0, err
	}
	if caller != info.Authority && caller != e.authority {
		return 0, ErrUnauthorizedAccess
	}

	codeRisk := risk.AssessCodeRisk(code.AuditCount, code.BugBountySize, code.ComplexityScore)
	economicRisk := risk.AssessEconomicRisk(info.TVLUSD, economic.LiquidityDepth, economic.ConcentrationRisk)
	operationalRisk := risk.AssessOperationalRisk(operational.GovernanceCount, operational.AdminCount, operational.OracleDependency)
	score = risk.CompositeScore(codeRisk, economicRisk, operationalRisk)

	info.RiskScore = score
	if err = e.state.ProtocolPut(info); err != nil {
		return 0, err
	}

	e.emit(protocolRiskUpdatedEvent(info, codeRisk, economicRisk, operationalRisk))
	return score, nil
}

// Protocol returns a copy of the registered protocol record.
func (e *Engine) Protocol(protocolID [32]byte) (*ProtocolInfo, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	info, err := e.loadProtocol(protocolID)
	if err != nil {
		return nil, err
	}
	return info.Clone(), nil
}

// ProtocolCount returns the number of registered protocols.
func (e *Engine) ProtocolCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.ProtocolCount()
}
