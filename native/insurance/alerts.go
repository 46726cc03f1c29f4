package insurance

import (
	"time"

	"github.com/google/uuid"
	"lukechampine.com/blake3"

	nativecommon "coverchain/native/common"
)

const (
	maxAlertDetailsLen = 96
	minAlertSeverity   = 1
	maxAlertSeverity   = 10
)

// CreateExploitAlert raises an anomaly report against a registered protocol.
// Any identity may report; severity grades the urgency on a 1-10 scale.
func (e *Engine) CreateExploitAlert(reporter [20]byte, protocolID [32]byte, anomaly AnomalyType, severity uint8, details string) (alert *ExploitAlert, err error) {
	started := time.Now()
	defer func() { e.observe(moduleAlerts, "create_exploit_alert", started, err) }()
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err = nativecommon.Guard(e.pauses, moduleAlerts); err != nil {
		return nil, err
	}
	if !anomaly.Valid() {
		return nil, ErrInvalidAnomalyType
	}
	if severity < minAlertSeverity || severity > maxAlertSeverity {
		return nil, ErrInvalidSeverity
	}
	if len(details) > maxAlertDetailsLen {
		return nil, ErrDetailsTooLong
	}
	if _, err = e.loadProtocol(protocolID); err != nil {
		return nil, err
	}

	alert = &ExploitAlert{
		ID:          uuid.NewString(),
		Protocol:    protocolID,
		Reporter:    reporter,
		Anomaly:     anomaly,
		Severity:    severity,
		Details:     details,
		DetailsHash: blake3.Sum256([]byte(details)),
		CreatedTime: e.now(),
		Status:      AlertOpen,
	}
	if err = e.state.AlertCreate(alert); err != nil {
		return nil, err
	}

	e.emit(alertCreatedEvent(alert))
	return alert.Clone(), nil
}

// ResolveExploitAlert confirms or dismisses an open alert. Only the global
// protocol-state authority or the affected protocol's authority may resolve.
// Resolution is terminal; confirmed alerts are a signal for the resolver, they
// do not themselves suspend the protocol.
func (e *Engine) ResolveExploitAlert(resolver [20]byte, alertID string, confirmed bool, notes string) (alert *ExploitAlert, err error) {
	started := time.Now()
	defer func() { e.observe(moduleAlerts, "resolve_exploit_alert", started, err) }()
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err = nativecommon.Guard(e.pauses, moduleAlerts); err != nil {
		return nil, err
	}
	if len(notes) > maxNotesLen {
		return nil, ErrNotesTooLong
	}

	alert, ok, err := e.state.AlertGet(alertID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlertNotFound
	}
	info, err := e.loadProtocol(alert.Protocol)
	if err != nil {
		return nil, err
	}
	if resolver != e.authority && resolver != info.Authority {
		return nil, ErrUnauthorizedAccess
	}
	if alert.Status != AlertOpen {
		return nil, ErrAlertAlreadyResolved
	}

	if confirmed {
		alert.Status = AlertConfirmed
	} else {
		alert.Status = AlertDismissed
	}
	alert.ResolutionTime = e.now()
	alert.Resolver = resolver
	alert.ResolutionNotes = notes
	if err = e.state.AlertPut(alert); err != nil {
		return nil, err
	}

	e.emit(alertResolvedEvent(alert))
	return alert.Clone(), nil
}

// Alert returns a copy of the stored alert.
func (e *Engine) Alert(alertID string) (*ExploitAlert, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	alert, ok, err := e.state.AlertGet(alertID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlertNotFound
	}
	return alert.Clone(), nil
}
