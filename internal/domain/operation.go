package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType describes what happened to a ledger.
type OperationType string

const (
	OperationCashIn        OperationType = "cash_in"
	OperationCashOut       OperationType = "cash_out"
	OperationTransfer      OperationType = "transfer"
	OperationReplenishment OperationType = "replenishment"
	OperationChange        OperationType = "change"
)

// Direction is the effect an operation had on the ledger balance.
type Direction string

const (
	DirectionCredit  Direction = "credit"
	DirectionDebit   Direction = "debit"
	DirectionNeutral Direction = "neutral"
)

// LedgerOperation is an append-only history record of one ledger mutation.
// Amount is always positive; Direction carries the sign.
type LedgerOperation struct {
	ID            string
	LedgerID      string
	Type          OperationType
	Direction     Direction
	Amount        decimal.Decimal
	Denominations DenominationSet
	BalanceAfter  decimal.Decimal
	ActorID       string
	Reference     string
	Note          string
	CreatedAt     time.Time
}

// SignedAmount returns the operation's effect on the balance.
func (o *LedgerOperation) SignedAmount() decimal.Decimal {
	switch o.Direction {
	case DirectionCredit:
		return o.Amount
	case DirectionDebit:
		return o.Amount.Neg()
	default:
		return decimal.Zero
	}
}
