package insurance

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"coverchain/core/types"
	"coverchain/crypto"
)

const (
	EventTypePoolInitialized     = "insurance.pool.initialized"
	EventTypeCapitalProvided     = "insurance.capital.provided"
	EventTypeCapitalWithdrawn    = "insurance.capital.withdrawn"
	EventTypeProtocolRegistered  = "insurance.protocol.registered"
	EventTypeProtocolRiskUpdated = "insurance.protocol.risk_updated"
	EventTypePolicyCreated       = "insurance.policy.created"
	EventTypeClaimSubmitted      = "insurance.claim.submitted"
	EventTypeClaimResolved       = "insurance.claim.resolved"
	EventTypeAlertCreated        = "insurance.alert.created"
	EventTypeAlertResolved       = "insurance.alert.resolved"
)

type insuranceEvent struct {
	evt *types.Event
}

func (e insuranceEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e insuranceEvent) Event() *types.Event { return e.evt }

func newEvent(eventType string, attrs map[string]string) insuranceEvent {
	return insuranceEvent{evt: &types.Event{Type: eventType, Attributes: attrs}}
}

func poolInitializedEvent(pool *CapitalPool) insuranceEvent {
	return newEvent(EventTypePoolInitialized, map[string]string{
		"tier":         pool.Tier.String(),
		"yieldRateBps": strconv.FormatUint(pool.YieldRateBps, 10),
		"custody":      formatAddr(pool.Custody),
		"authority":    formatAddr(pool.Authority),
	})
}

func capitalProvidedEvent(pool *CapitalPool, provider *CapitalProvider, amount *big.Int) insuranceEvent {
	return newEvent(EventTypeCapitalProvided, map[string]string{
		"tier":      pool.Tier.String(),
		"owner":     formatAddr(provider.Owner),
		"amount":    formatAmount(amount),
		"total":     formatAmount(pool.TotalCapital),
		"available": formatAmount(pool.AvailableCapital),
	})
}

func capitalWithdrawnEvent(pool *CapitalPool, provider *CapitalProvider, amount, rewards *big.Int, retired bool) insuranceEvent {
	return newEvent(EventTypeCapitalWithdrawn, map[string]string{
		"tier":      pool.Tier.String(),
		"owner":     formatAddr(provider.Owner),
		"amount":    formatAmount(amount),
		"rewards":   formatAmount(rewards),
		"retired":   strconv.FormatBool(retired),
		"total":     formatAmount(pool.TotalCapital),
		"available": formatAmount(pool.AvailableCapital),
	})
}

func protocolRegisteredEvent(info *ProtocolInfo) insuranceEvent {
	return newEvent(EventTypeProtocolRegistered, map[string]string{
		"id":        hex.EncodeToString(info.ID[:]),
		"authority": formatAddr(info.Authority),
		"name":      info.Name,
		"tvlUsd":    strconv.FormatUint(info.TVLUSD, 10),
		"riskScore": strconv.FormatUint(uint64(info.RiskScore), 10),
	})
}

func protocolRiskUpdatedEvent(info *ProtocolInfo, codeRisk, economicRisk, operationalRisk uint8) insuranceEvent {
	return newEvent(EventTypeProtocolRiskUpdated, map[string]string{
		"id":              hex.EncodeToString(info.ID[:]),
		"riskScore":       strconv.FormatUint(uint64(info.RiskScore), 10),
		"codeRisk":        strconv.FormatUint(uint64(codeRisk), 10),
		"economicRisk":    strconv.FormatUint(uint64(economicRisk), 10),
		"operationalRisk": strconv.FormatUint(uint64(operationalRisk), 10),
	})
}

func policyCreatedEvent(policy *Policy) insuranceEvent {
	return newEvent(EventTypePolicyCreated, map[string]string{
		"id":       hex.EncodeToString(policy.ID[:]),
		"insured":  formatAddr(policy.Insured),
		"protocol": hex.EncodeToString(policy.Protocol[:]),
		"coverage": formatAmount(policy.CoverageAmount),
		"premium":  formatAmount(policy.PremiumAmount),
		"start":    strconv.FormatInt(policy.StartTime, 10),
		"end":      strconv.FormatInt(policy.EndTime, 10),
	})
}

func claimSubmittedEvent(claim *Claim) insuranceEvent {
	return newEvent(EventTypeClaimSubmitted, map[string]string{
		"id":           hex.EncodeToString(claim.ID[:]),
		"policy":       hex.EncodeToString(claim.Policy[:]),
		"claimant":     formatAddr(claim.Claimant),
		"amount":       formatAmount(claim.Amount),
		"evidenceHash": hex.EncodeToString(claim.EvidenceHash[:]),
		"submittedAt":  strconv.FormatInt(claim.SubmittedTime, 10),
	})
}

func claimResolvedEvent(claim *Claim) insuranceEvent {
	return newEvent(EventTypeClaimResolved, map[string]string{
		"id":         hex.EncodeToString(claim.ID[:]),
		"policy":     hex.EncodeToString(claim.Policy[:]),
		"status":     claim.Status.String(),
		"resolver":   formatAddr(claim.Resolver),
		"amount":     formatAmount(claim.Amount),
		"resolvedAt": strconv.FormatInt(claim.ResolutionTime, 10),
	})
}

func alertCreatedEvent(alert *ExploitAlert) insuranceEvent {
	return newEvent(EventTypeAlertCreated, map[string]string{
		"id":          alert.ID,
		"protocol":    hex.EncodeToString(alert.Protocol[:]),
		"reporter":    formatAddr(alert.Reporter),
		"anomaly":     alert.Anomaly.String(),
		"severity":    strconv.FormatUint(uint64(alert.Severity), 10),
		"detailsHash": hex.EncodeToString(alert.DetailsHash[:]),
	})
}

func alertResolvedEvent(alert *ExploitAlert) insuranceEvent {
	return newEvent(EventTypeAlertResolved, map[string]string{
		"id":         alert.ID,
		"protocol":   hex.EncodeToString(alert.Protocol[:]),
		"status":     alert.Status.String(),
		"resolver":   formatAddr(alert.Resolver),
		"resolvedAt": strconv.FormatInt(alert.ResolutionTime, 10),
	})
}

func formatAddr(addr [20]byte) string {
	return crypto.NewAddress(crypto.CovPrefix, addr[:]).String()
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
