package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaRequestsExceeded = errors.New("quota requests exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// QuotaNow captures the current submission counters for an address inside one
// quota epoch.
type QuotaNow struct {
	ReqCount uint32
	EpochID  uint64
}

// Quota defines the per-address submission limits enforced for a module
// operation. A zero MaxRequestsPerEpoch disables the check.
type Quota struct {
	MaxRequestsPerEpoch uint32
	EpochSeconds        uint32
}

// Epoch maps a unix timestamp onto the quota epoch identifier. A zero
// EpochSeconds collapses everything into a single epoch.
func (q Quota) Epoch(now int64) uint64 {
	if q.EpochSeconds == 0 || now <= 0 {
		return 0
	}
	return uint64(now) / uint64(q.EpochSeconds)
}

// CheckQuota verifies whether the additional submissions fit within the
// configured quota. The returned QuotaNow reflects the updated counters when
// the quota is not exceeded; on failure the previous counters are returned
// untouched.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addReq uint32) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerEpoch > 0 && next.ReqCount > q.MaxRequestsPerEpoch {
		return prev, ErrQuotaRequestsExceeded
	}

	return next, nil
}
