package common

import (
	"errors"
	"math"
	"testing"
)

func TestCheckQuotaResetsOnNewEpoch(t *testing.T) {
	q := Quota{MaxRequestsPerEpoch: 2, EpochSeconds: 3600}
	now, err := CheckQuota(q, 1, QuotaNow{EpochID: 0, ReqCount: 2}, 1)
	if err != nil {
		t.Fatalf("expected fresh epoch to reset counters: %v", err)
	}
	if now.EpochID != 1 || now.ReqCount != 1 {
		t.Fatalf("unexpected counters: %+v", now)
	}
}

func TestCheckQuotaRejectsOverLimit(t *testing.T) {
	q := Quota{MaxRequestsPerEpoch: 2, EpochSeconds: 3600}
	prev := QuotaNow{EpochID: 7, ReqCount: 2}
	got, err := CheckQuota(q, 7, prev, 1)
	if !errors.Is(err, ErrQuotaRequestsExceeded) {
		t.Fatalf("expected ErrQuotaRequestsExceeded, got %v", err)
	}
	if got != prev {
		t.Fatalf("counters must be untouched on rejection: %+v", got)
	}
}

func TestCheckQuotaUnlimitedWhenZero(t *testing.T) {
	if _, err := CheckQuota(Quota{}, 0, QuotaNow{ReqCount: math.MaxUint32 - 1}, 1); err != nil {
		t.Fatalf("zero quota must disable the check: %v", err)
	}
}

func TestCheckQuotaCounterOverflow(t *testing.T) {
	prev := QuotaNow{EpochID: 3, ReqCount: math.MaxUint32}
	if _, err := CheckQuota(Quota{}, 3, prev, 1); !errors.Is(err, ErrQuotaCounterOverflow) {
		t.Fatalf("expected ErrQuotaCounterOverflow, got %v", err)
	}
}

func TestQuotaEpoch(t *testing.T) {
	q := Quota{EpochSeconds: 86400}
	if got := q.Epoch(86400*3 + 5); got != 3 {
		t.Fatalf("epoch = %d, want 3", got)
	}
	if got := (Quota{}).Epoch(123456); got != 0 {
		t.Fatalf("zero epoch seconds must map to epoch 0, got %d", got)
	}
}
