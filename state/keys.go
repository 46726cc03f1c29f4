package state

import (
	"encoding/hex"
	"fmt"

	"coverchain/native/insurance"
)

// Key layout. Every record lives under a readable prefix so the raw store can
// be inspected with stock tooling.
func poolKey(tier insurance.PoolTier) []byte {
	return []byte(fmt.Sprintf("pool/%d", tier))
}

func providerKey(owner [20]byte, tier insurance.PoolTier) []byte {
	return []byte(fmt.Sprintf("provider/%s/%d", hex.EncodeToString(owner[:]), tier))
}

func protocolKey(id [32]byte) []byte {
	return []byte("protocol/" + hex.EncodeToString(id[:]))
}

func policyKey(id [32]byte) []byte {
	return []byte("policy/" + hex.EncodeToString(id[:]))
}

func claimKey(id [32]byte) []byte {
	return []byte("claim/" + hex.EncodeToString(id[:]))
}

func alertKey(id string) []byte {
	return []byte("alert/" + id)
}

func accountKey(addr [20]byte) []byte {
	return []byte("account/" + hex.EncodeToString(addr[:]))
}

func claimQuotaKey(addr [20]byte) []byte {
	return []byte("quota/claims/" + hex.EncodeToString(addr[:]))
}

var protocolCountKey = []byte("registry/count")
