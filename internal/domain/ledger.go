package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRole identifies which tier of the branch a cash ledger belongs to.
type LedgerRole string

const (
	LedgerRoleVault         LedgerRole = "vault"
	LedgerRolePrimaryTeller LedgerRole = "primary_teller"
	LedgerRoleSubTeller     LedgerRole = "sub_teller"
)

// Valid reports whether r is a known role.
func (r LedgerRole) Valid() bool {
	switch r {
	case LedgerRoleVault, LedgerRolePrimaryTeller, LedgerRoleSubTeller:
		return true
	}
	return false
}

// CashLedger holds physical cash as both an aggregate balance and per-denomination
// counts. Balance must always equal Denominations.Total().
type CashLedger struct {
	ID                  string
	BranchID            string
	TellerID            string // empty for vaults
	Role                LedgerRole
	Balance             decimal.Decimal
	Denominations       DenominationSet
	Ceiling             decimal.Decimal // zero means unlimited
	LastOperationType   OperationType
	LastOperationAmount decimal.Decimal
	Active              bool
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewVault creates an empty vault ledger for a branch.
func NewVault(id, branchID string, now time.Time) *CashLedger {
	return &CashLedger{
		ID:            id,
		BranchID:      branchID,
		Role:          LedgerRoleVault,
		Balance:       decimal.Zero,
		Denominations: DenominationSet{},
		Active:        true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewTellerLedger creates an empty ledger for a teller.
func NewTellerLedger(id string, teller *Teller, now time.Time) *CashLedger {
	role := LedgerRolePrimaryTeller
	if teller.Kind == TellerKindSub {
		role = LedgerRoleSubTeller
	}
	return &CashLedger{
		ID:            id,
		BranchID:      teller.BranchID,
		TellerID:      teller.ID,
		Role:          role,
		Balance:       decimal.Zero,
		Denominations: DenominationSet{},
		Ceiling:       teller.Ceiling,
		Active:        true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// VerifySufficientFunds is the aggregate-only pre-check.
func (l *CashLedger) VerifySufficientFunds(amount decimal.Decimal) error {
	if l.Balance.LessThan(amount) {
		return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, l.Balance, amount)
	}
	return nil
}

// VerifyCeiling fails when receiving amount would push the balance above the ceiling.
func (l *CashLedger) VerifyCeiling(amount decimal.Decimal) error {
	if !l.Ceiling.IsPositive() {
		return nil
	}
	projected := l.Balance.Add(amount)
	if projected.GreaterThan(l.Ceiling) {
		return fmt.Errorf("%w: projected %s, ceiling %s", ErrCeilingExceeded, projected, l.Ceiling)
	}
	return nil
}

// CheckInvariant verifies balance == Total(denominations).
func (l *CashLedger) CheckInvariant() error {
	if total := l.Denominations.Total(); !total.Equal(l.Balance) {
		return fmt.Errorf("%w: ledger %s balance %s, denominations %s", ErrLedgerInvariant, l.ID, l.Balance, total)
	}
	return nil
}

// ApplyCashIn adds set to the ledger. The ledger is left untouched on error.
func (l *CashLedger) ApplyCashIn(op OperationType, amount decimal.Decimal, set DenominationSet, now time.Time) error {
	if err := ValidateAmountMatches(amount, set); err != nil {
		return err
	}

	next, err := Merge(l.Denominations, set, SignAdd)
	if err != nil {
		return err
	}

	l.commit(op, amount, l.Balance.Add(amount), next, now)
	return nil
}

// ApplyCashOut removes set from the ledger. It fails with an
// InsufficientDenominationsError when any single denomination is short, even
// if the aggregate balance covers amount. The ledger is left untouched on error.
func (l *CashLedger) ApplyCashOut(op OperationType, amount decimal.Decimal, set DenominationSet, now time.Time) error {
	if err := ValidateAmountMatches(amount, set); err != nil {
		return err
	}

	if shortfall, ok := CheckSufficiency(set, l.Denominations); !ok {
		return NewInsufficientDenominations(shortfall)
	}

	if err := l.VerifySufficientFunds(amount); err != nil {
		return err
	}

	next, err := Merge(l.Denominations, set, SignSubtract)
	if err != nil {
		return err
	}

	l.commit(op, amount, l.Balance.Sub(amount), next, now)
	return nil
}

// ApplyExchange pays out given from the current stock and absorbs received.
// Both sets must carry the same value, so the balance does not move. The
// payout is checked against the stock held before received is counted in.
func (l *CashLedger) ApplyExchange(received, given DenominationSet, now time.Time) error {
	if err := ValidateAmountMatches(received.Total(), given); err != nil {
		return err
	}

	if shortfall, ok := CheckSufficiency(given, l.Denominations); !ok {
		return NewInsufficientDenominations(shortfall)
	}

	paid, err := Merge(l.Denominations, given, SignSubtract)
	if err != nil {
		return err
	}

	next, err := Merge(paid, received, SignAdd)
	if err != nil {
		return err
	}

	l.commit(OperationChange, received.Total(), l.Balance, next, now)
	return nil
}

func (l *CashLedger) commit(op OperationType, amount, balance decimal.Decimal, set DenominationSet, now time.Time) {
	l.Balance = balance
	l.Denominations = set
	l.LastOperationType = op
	l.LastOperationAmount = amount
	l.Version++
	l.UpdatedAt = now
}

// Clone returns a deep copy.
func (l *CashLedger) Clone() *CashLedger {
	if l == nil {
		return nil
	}
	c := *l
	c.Denominations = l.Denominations.Clone()
	return &c
}
