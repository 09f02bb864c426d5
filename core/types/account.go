package types

import "math/big"

// Account tracks the token balances held by a single address. Balances are
// keyed by token symbol and are always non-nil once accessed through
// BalanceOf.
type Account struct {
	Nonce    uint64              `json:"nonce"`
	Balances map[string]*big.Int `json:"balances"`
}

// NewAccount returns an account with an initialised balance table.
func NewAccount() *Account {
	return &Account{Balances: make(map[string]*big.Int)}
}

// BalanceOf returns the balance held in the given token, materialising a zero
// entry when the token has not been seen before.
func (a *Account) BalanceOf(token string) *big.Int {
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	bal, ok := a.Balances[token]
	if !ok || bal == nil {
		bal = big.NewInt(0)
		a.Balances[token] = bal
	}
	return bal
}

// SetBalance overwrites the balance held in the given token.
func (a *Account) SetBalance(token string, amount *big.Int) {
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.Balances[token] = new(big.Int).Set(amount)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return NewAccount()
	}
	clone := &Account{Nonce: a.Nonce, Balances: make(map[string]*big.Int, len(a.Balances))}
	for token, bal := range a.Balances {
		if bal == nil {
			bal = big.NewInt(0)
		}
		clone.Balances[token] = new(big.Int).Set(bal)
	}
	return clone
}
