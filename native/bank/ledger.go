package bank

import (
	"errors"
	"math/big"

	"coverchain/core/types"
)

var (
	errNilState             = errors.New("bank: account state not configured")
	ErrInvalidAmount        = errors.New("bank: transfer amount must be positive")
	ErrInsufficientBalance  = errors.New("bank: insufficient balance")
	ErrUnauthorizedTransfer = errors.New("bank: authority not permitted to move funds")
	ErrSelfTransfer         = errors.New("bank: transfer to self")
)

// Ledger is the value-transfer primitive consumed by the insurance engine.
// Deposits, premium payments and claim payouts all route through a single
// Transfer call; the engine supplies the pool's delegated authority (never the
// caller's) when moving funds out of pool custody.
type Ledger interface {
	Transfer(from, to [20]byte, authority [20]byte, amount *big.Int) error
}

// AccountState is the minimal account access the ledger needs. A missing
// account reads as zero-balance.
type AccountState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// AccountLedger moves the quote asset between accounts held in state. Custody
// accounts (pool vaults, the treasury) register a delegated authority; every
// other account may only be debited by itself.
type AccountLedger struct {
	state     AccountState
	delegates map[[20]byte][20]byte
}

func NewAccountLedger(state AccountState) *AccountLedger {
	return &AccountLedger{
		state:     state,
		delegates: make(map[[20]byte][20]byte),
	}
}

// Delegate authorizes the supplied authority to debit the custody account.
// Registering a new authority replaces the previous delegation.
func (l *AccountLedger) Delegate(custody, authority [20]byte) {
	if l == nil {
		return
	}
	l.delegates[custody] = authority
}

func (l *AccountLedger) authorized(from, authority [20]byte) bool {
	if authority == from {
		return true
	}
	delegate, ok := l.delegates[from]
	return ok && delegate == authority
}

// Transfer debits `from` and credits `to` after checking the authority is
// either the owner of `from` or its registered delegate. The balance check and
// both account writes happen inside the caller's transaction boundary, so a
// failure leaves no partial state behind.
func (l *AccountLedger) Transfer(from, to [20]byte, authority [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return ErrSelfTransfer
	}
	if !l.authorized(from, authority) {
		return ErrUnauthorizedTransfer
	}

	fromAcc, err := l.state.GetAccount(from)
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	if fromAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toAcc, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	toAcc = ensureAccount(toAcc)

	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	fromAcc.Nonce++
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)

	if err := l.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return l.state.PutAccount(to, toAcc)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}
