package insurance

import "errors"

var (
	errNilState  = errors.New("insurance engine: state not configured")
	errNilLedger = errors.New("insurance engine: transfer ledger not configured")

	// Registry and policy preconditions.
	ErrUnauthorizedAccess = errors.New("insurance engine: unauthorized access")
	ErrProtocolNotFound   = errors.New("insurance engine: protocol not registered")
	ErrProtocolNotActive  = errors.New("insurance engine: protocol not active")
	ErrProtocolExists     = errors.New("insurance engine: protocol already registered")
	ErrPolicyExists       = errors.New("insurance engine: policy already exists")
	ErrPolicyNotFound     = errors.New("insurance engine: policy not found")

	// Capital pool preconditions.
	ErrInvalidPoolType             = errors.New("insurance engine: invalid pool type")
	ErrPoolExists                  = errors.New("insurance engine: capital pool already initialized")
	ErrPoolNotFound                = errors.New("insurance engine: capital pool not found")
	ErrProviderNotFound            = errors.New("insurance engine: capital provider not found")
	ErrInsufficientPoolCapital     = errors.New("insurance engine: insufficient pool capital")
	ErrInsufficientProviderCapital = errors.New("insurance engine: insufficient provider capital")

	// Claim submission preconditions.
	ErrPolicyNotActive      = errors.New("insurance engine: policy not active")
	ErrPolicyExpired        = errors.New("insurance engine: policy expired")
	ErrPolicyAlreadyClaimed = errors.New("insurance engine: policy already claimed")
	ErrUnauthorizedClaim    = errors.New("insurance engine: claimant is not the insured")
	ErrExcessClaimAmount    = errors.New("insurance engine: claim exceeds coverage")
	ErrClaimExists          = errors.New("insurance engine: live claim already exists for policy")
	ErrClaimNotFound        = errors.New("insurance engine: claim not found")

	// Claim resolution preconditions.
	ErrUnauthorizedResolver = errors.New("insurance engine: unauthorized resolver")
	ErrClaimAlreadyResolved = errors.New("insurance engine: claim already resolved")

	// Exploit alert preconditions.
	ErrInvalidAnomalyType   = errors.New("insurance engine: invalid anomaly type")
	ErrInvalidSeverity      = errors.New("insurance engine: severity out of range")
	ErrAlertNotFound        = errors.New("insurance engine: alert not found")
	ErrAlertAlreadyResolved = errors.New("insurance engine: alert already resolved")

	// Shared input validation.
	ErrInvalidAmount   = errors.New("insurance engine: amount must be positive")
	ErrNameTooLong     = errors.New("insurance engine: protocol name exceeds length cap")
	ErrNameRequired    = errors.New("insurance engine: protocol name required")
	ErrEvidenceTooLong = errors.New("insurance engine: claim evidence exceeds length cap")
	ErrNotesTooLong    = errors.New("insurance engine: resolution notes exceed length cap")
	ErrDetailsTooLong  = errors.New("insurance engine: alert details exceed length cap")
)
