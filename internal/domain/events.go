package domain

import "time"

// Event types
const (
	EventTypeLedgerOpened           = "ledger.opened"
	EventTypeCashIn                 = "cash.in"
	EventTypeCashOut                = "cash.out"
	EventTypeCashTransferred        = "cash.transferred"
	EventTypeCashExchanged          = "cash.exchanged"
	EventTypeReplenishmentRequested = "replenishment.requested"
	EventTypeReplenishmentApproved  = "replenishment.approved"
	EventTypeReplenishmentRejected  = "replenishment.rejected"
	EventTypePostingRequested       = "accounting.posting_requested"
)

// Aggregate types
const (
	AggregateTypeLedger        = "cash_ledger"
	AggregateTypeReplenishment = "replenishment"
	AggregateTypeChange        = "cash_change"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// DenominationPayload renders a set for event and audit payloads.
func DenominationPayload(set DenominationSet) map[string]int64 {
	out := make(map[string]int64, len(set))
	for _, e := range set.Entries() {
		out[e.Denomination.String()] = e.Count
	}
	return out
}
