package token

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"settlechain/storage"
)

// Ledger keeps token balances and spender allowances behind the storage
// interface. It provides the transfer primitive consumed by the payment
// conditions; token issuance happens only through Mint at genesis.
type Ledger struct {
	mu      sync.Mutex
	db      storage.Database
	symbols map[string]struct{}
}

// NewLedger creates a ledger supporting the given token symbols.
func NewLedger(db storage.Database, symbols ...string) *Ledger {
	supported := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		normalized := strings.ToUpper(strings.TrimSpace(sym))
		if normalized != "" {
			supported[normalized] = struct{}{}
		}
	}
	return &Ledger{db: db, symbols: supported}
}

// Normalize canonicalises a token symbol and rejects unsupported tokens.
func (l *Ledger) Normalize(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if _, ok := l.symbols[trimmed]; !ok {
		return "", fmt.Errorf("token: unsupported token %s", symbol)
	}
	return trimmed, nil
}

func balanceKey(token string, addr [20]byte) []byte {
	return []byte("token/bal/" + token + "/" + hex.EncodeToString(addr[:]))
}

func allowanceKey(token string, owner, spender [20]byte) []byte {
	return []byte("token/alw/" + token + "/" + hex.EncodeToString(owner[:]) + "/" + hex.EncodeToString(spender[:]))
}

func (l *Ledger) read(key []byte) (*big.Int, error) {
	raw, err := l.db.Get(key)
	if err != nil {
		if err == storage.ErrKeyNotFound {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

func (l *Ledger) write(key []byte, amount *big.Int) error {
	return l.db.Put(key, amount.Bytes())
}

func checkAmount(amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("token: nil amount")
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("token: negative amount")
	}
	return nil
}

// Mint credits freshly issued units to the given address.
func (l *Ledger) Mint(token string, addr [20]byte, amount *big.Int) error {
	normalized, err := l.Normalize(token)
	if err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, err := l.read(balanceKey(normalized, addr))
	if err != nil {
		return err
	}
	return l.write(balanceKey(normalized, addr), new(big.Int).Add(balance, amount))
}

// BalanceOf returns the current balance of the address.
func (l *Ledger) BalanceOf(token string, addr [20]byte) (*big.Int, error) {
	normalized, err := l.Normalize(token)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read(balanceKey(normalized, addr))
}

// Approve grants the spender an allowance over the owner's balance. The
// allowance is overwritten, not accumulated.
func (l *Ledger) Approve(token string, owner, spender [20]byte, amount *big.Int) error {
	normalized, err := l.Normalize(token)
	if err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.write(allowanceKey(normalized, owner, spender), amount)
}

// Allowance returns the remaining allowance granted by owner to spender.
func (l *Ledger) Allowance(token string, owner, spender [20]byte) (*big.Int, error) {
	normalized, err := l.Normalize(token)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read(allowanceKey(normalized, owner, spender))
}

// Transfer moves units between accounts.
func (l *Ledger) Transfer(token string, from, to [20]byte, amount *big.Int) error {
	normalized, err := l.Normalize(token)
	if err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(normalized, from, to, amount)
}

// TransferFrom moves units from the owner using the spender's allowance.
func (l *Ledger) TransferFrom(token string, spender, from, to [20]byte, amount *big.Int) error {
	normalized, err := l.Normalize(token)
	if err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	allowance, err := l.read(allowanceKey(normalized, from, spender))
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("token: allowance of %s for %x below %s", allowance, spender, amount)
	}
	if err := l.move(normalized, from, to, amount); err != nil {
		return err
	}
	return l.write(allowanceKey(normalized, from, spender), new(big.Int).Sub(allowance, amount))
}

func (l *Ledger) move(token string, from, to [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	fromBal, err := l.read(balanceKey(token, from))
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("token: insufficient balance of %x", from)
	}
	// debit and credit would hit the same key; the balance is unchanged
	if from == to {
		return nil
	}
	toBal, err := l.read(balanceKey(token, to))
	if err != nil {
		return err
	}
	if err := l.write(balanceKey(token, from), new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return l.write(balanceKey(token, to), new(big.Int).Add(toBal, amount))
}
