package types

import "math/big"

// Account holds the quote-asset position for a single address. Pools are
// single-asset, so one balance field is sufficient; Nonce tracks the number of
// state mutations applied on behalf of the account and exists purely for
// bookkeeping by the host.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// Clone returns a deep copy of the account so callers can mutate the copy
// without touching the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	clone := &Account{Nonce: a.Nonce, Balance: big.NewInt(0)}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return clone
}
