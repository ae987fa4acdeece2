package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashChangeRecord is the append-only record of a same-value denomination exchange.
type CashChangeRecord struct {
	ID             string
	LedgerID       string
	Reference      string
	AmountGiven    decimal.Decimal
	AmountReceived decimal.Decimal
	RequestedGiven DenominationSet // what the customer asked for
	Given          DenominationSet // what the desk actually paid out
	Received       DenominationSet
	Substituted    bool
	Reason         string
	ActorID        string
	CreatedAt      time.Time
}
