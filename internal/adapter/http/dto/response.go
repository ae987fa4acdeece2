package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope opens every response body.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Success builds a success envelope.
func Success(message string) Envelope {
	return Envelope{Status: StatusSuccess, Message: message}
}

// LedgerResponse represents a cash ledger in API responses.
type LedgerResponse struct {
	ID                  string          `json:"id"`
	BranchID            string          `json:"branch_id"`
	TellerID            string          `json:"teller_id,omitempty"`
	Role                string          `json:"role"`
	Balance             decimal.Decimal `json:"balance"`
	Denominations       Denominations   `json:"denominations"`
	Ceiling             decimal.Decimal `json:"ceiling"`
	LastOperationType   string          `json:"last_operation_type,omitempty"`
	LastOperationAmount decimal.Decimal `json:"last_operation_amount"`
	Active              bool            `json:"active"`
	Version             int64           `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// LedgerFromDomain converts a domain ledger to a response.
func LedgerFromDomain(l *domain.CashLedger) *LedgerResponse {
	if l == nil {
		return nil
	}
	return &LedgerResponse{
		ID:                  l.ID,
		BranchID:            l.BranchID,
		TellerID:            l.TellerID,
		Role:                string(l.Role),
		Balance:             l.Balance,
		Denominations:       DenominationsFromDomain(l.Denominations),
		Ceiling:             l.Ceiling,
		LastOperationType:   string(l.LastOperationType),
		LastOperationAmount: l.LastOperationAmount,
		Active:              l.Active,
		Version:             l.Version,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}

// LedgerEnvelope wraps a single ledger.
type LedgerEnvelope struct {
	Envelope
	Ledger *LedgerResponse `json:"ledger"`
}

// OperationResponse represents one ledger history row.
type OperationResponse struct {
	ID            string          `json:"id"`
	LedgerID      string          `json:"ledger_id"`
	Type          string          `json:"type"`
	Direction     string          `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	Denominations Denominations   `json:"denominations"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ActorID       string          `json:"actor_id"`
	Reference     string          `json:"reference"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OperationsFromDomain converts domain operations to responses.
func OperationsFromDomain(ops []*domain.LedgerOperation) []*OperationResponse {
	result := make([]*OperationResponse, len(ops))
	for i, op := range ops {
		result[i] = &OperationResponse{
			ID:            op.ID,
			LedgerID:      op.LedgerID,
			Type:          string(op.Type),
			Direction:     string(op.Direction),
			Amount:        op.Amount,
			Denominations: DenominationsFromDomain(op.Denominations),
			BalanceAfter:  op.BalanceAfter,
			ActorID:       op.ActorID,
			Reference:     op.Reference,
			Note:          op.Note,
			CreatedAt:     op.CreatedAt,
		}
	}
	return result
}

// OperationsEnvelope wraps a page of history.
type OperationsEnvelope struct {
	Envelope
	Operations []*OperationResponse `json:"operations"`
}

// CashResultEnvelope is returned by cash in, cash out and transfers.
type CashResultEnvelope struct {
	Envelope
	Ledger     *LedgerResponse      `json:"ledger"`
	Operations []*OperationResponse `json:"operations"`
}

// CashResultFromUseCase converts a use case result to a response.
func CashResultFromUseCase(message string, res *usecase.CashResult) *CashResultEnvelope {
	return &CashResultEnvelope{
		Envelope:   Success(message),
		Ledger:     LedgerFromDomain(res.Ledger),
		Operations: OperationsFromDomain(res.Operations),
	}
}

// ChangeResponse represents an exchange record.
type ChangeResponse struct {
	ID             string          `json:"id"`
	LedgerID       string          `json:"ledger_id"`
	Reference      string          `json:"reference"`
	AmountGiven    decimal.Decimal `json:"amount_given"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	RequestedGiven Denominations   `json:"requested_given"`
	Given          Denominations   `json:"given"`
	Received       Denominations   `json:"received"`
	Substituted    bool            `json:"substituted"`
	Reason         string          `json:"reason,omitempty"`
	ActorID        string          `json:"actor_id"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ChangeEnvelope wraps an exchange record.
type ChangeEnvelope struct {
	Envelope
	Change *ChangeResponse `json:"change"`
}

// ChangeFromDomain converts an exchange record to a response.
func ChangeFromDomain(c *domain.CashChangeRecord) *ChangeResponse {
	return &ChangeResponse{
		ID:             c.ID,
		LedgerID:       c.LedgerID,
		Reference:      c.Reference,
		AmountGiven:    c.AmountGiven,
		AmountReceived: c.AmountReceived,
		RequestedGiven: DenominationsFromDomain(c.RequestedGiven),
		Given:          DenominationsFromDomain(c.Given),
		Received:       DenominationsFromDomain(c.Received),
		Substituted:    c.Substituted,
		Reason:         c.Reason,
		ActorID:        c.ActorID,
		CreatedAt:      c.CreatedAt,
	}
}

// ReplenishmentResponse represents a replenishment request.
type ReplenishmentResponse struct {
	ID                  string          `json:"id"`
	Kind                string          `json:"kind"`
	BranchID            string          `json:"branch_id"`
	RequestedBy         string          `json:"requested_by"`
	TellerID            string          `json:"teller_id"`
	DonorLedgerID       string          `json:"donor_ledger_id"`
	DestinationLedgerID string          `json:"destination_ledger_id"`
	RequestedAmount     decimal.Decimal `json:"requested_amount"`
	ConfirmedAmount     decimal.Decimal `json:"confirmed_amount"`
	Status              string          `json:"status"`
	Denominations       Denominations   `json:"denominations,omitempty"`
	ApprovedBy          string          `json:"approved_by,omitempty"`
	Reference           string          `json:"reference"`
	RejectionReason     string          `json:"rejection_reason,omitempty"`
	InitiatedAt         time.Time       `json:"initiated_at"`
	ApprovedAt          *time.Time      `json:"approved_at,omitempty"`
	RejectedAt          *time.Time      `json:"rejected_at,omitempty"`
}

// ReplenishmentFromDomain converts a request to a response.
func ReplenishmentFromDomain(r *domain.ReplenishmentRequest) *ReplenishmentResponse {
	return &ReplenishmentResponse{
		ID:                  r.ID,
		Kind:                string(r.Kind),
		BranchID:            r.BranchID,
		RequestedBy:         r.RequestedBy,
		TellerID:            r.TellerID,
		DonorLedgerID:       r.DonorLedgerID,
		DestinationLedgerID: r.DestinationLedgerID,
		RequestedAmount:     r.RequestedAmount,
		ConfirmedAmount:     r.ConfirmedAmount,
		Status:              string(r.Status),
		Denominations:       DenominationsFromDomain(r.Denominations),
		ApprovedBy:          r.ApprovedBy,
		Reference:           r.Reference,
		RejectionReason:     r.RejectionReason,
		InitiatedAt:         r.InitiatedAt,
		ApprovedAt:          r.ApprovedAt,
		RejectedAt:          r.RejectedAt,
	}
}

// ReplenishmentEnvelope wraps a single request. PostingWarning is set when the
// cash moved but the accounting posting failed.
type ReplenishmentEnvelope struct {
	Envelope
	Request        *ReplenishmentResponse `json:"request"`
	Operations     []*OperationResponse   `json:"operations,omitempty"`
	PostingWarning string                 `json:"posting_warning,omitempty"`
}

// ReplenishmentsEnvelope wraps a list of requests.
type ReplenishmentsEnvelope struct {
	Envelope
	Requests []*ReplenishmentResponse `json:"requests"`
}

// ReplenishmentsFromDomain converts requests to responses.
func ReplenishmentsFromDomain(reqs []*domain.ReplenishmentRequest) []*ReplenishmentResponse {
	result := make([]*ReplenishmentResponse, len(reqs))
	for i, r := range reqs {
		result[i] = ReplenishmentFromDomain(r)
	}
	return result
}

// EventResponse is an outbox event recorded for an aggregate.
type EventResponse struct {
	ID          string         `json:"id"`
	EventType   string         `json:"event_type"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
	Published   bool           `json:"published"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
}

// EventsEnvelope wraps the events of one aggregate.
type EventsEnvelope struct {
	Envelope
	AggregateID string           `json:"aggregate_id"`
	Events      []*EventResponse `json:"events"`
}

// EventsFromDomain converts outbox events to responses.
func EventsFromDomain(events []*domain.OutboxEvent) []*EventResponse {
	result := make([]*EventResponse, len(events))
	for i, e := range events {
		result[i] = &EventResponse{
			ID:          e.ID,
			EventType:   e.EventType,
			Payload:     e.Payload,
			CreatedAt:   e.CreatedAt,
			Published:   e.Published,
			PublishedAt: e.PublishedAt,
		}
	}
	return result
}

// ReconciliationResponse reports one ledger check.
type ReconciliationResponse struct {
	LedgerID           string          `json:"ledger_id"`
	Role               string          `json:"role"`
	RecordedBalance    decimal.Decimal `json:"recorded_balance"`
	DenominationTotal  decimal.Decimal `json:"denomination_total"`
	CalculatedBalance  decimal.Decimal `json:"calculated_balance"`
	DenominationsMatch bool            `json:"denominations_match"`
	HistoryMatches     bool            `json:"history_matches"`
	IsReconciled       bool            `json:"is_reconciled"`
	LastChecked        time.Time       `json:"last_checked"`
}

// ReconciliationFromUseCase converts a result to a response.
func ReconciliationFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		LedgerID:           r.LedgerID,
		Role:               string(r.Role),
		RecordedBalance:    r.RecordedBalance,
		DenominationTotal:  r.DenominationTotal,
		CalculatedBalance:  r.CalculatedBalance,
		DenominationsMatch: r.DenominationsMatch,
		HistoryMatches:     r.HistoryMatches,
		IsReconciled:       r.IsReconciled,
		LastChecked:        r.LastChecked,
	}
}

// ReconciliationEnvelope wraps a ledger check.
type ReconciliationEnvelope struct {
	Envelope
	Result *ReconciliationResponse `json:"result"`
}

// ReportEnvelope wraps a branch report.
type ReportEnvelope struct {
	Envelope
	BranchID          string                    `json:"branch_id"`
	TotalLedgers      int                       `json:"total_ledgers"`
	ReconciledLedgers int                       `json:"reconciled_ledgers"`
	BranchCash        decimal.Decimal           `json:"branch_cash"`
	Discrepancies     []*ReconciliationResponse `json:"discrepancies"`
	CheckedAt         time.Time                 `json:"checked_at"`
}

// ReportFromUseCase converts a branch report to a response.
func ReportFromUseCase(r *usecase.ReconciliationReport) *ReportEnvelope {
	message := "branch reconciled"
	if len(r.Discrepancies) > 0 {
		message = "discrepancies found"
	}
	out := &ReportEnvelope{
		Envelope:          Success(message),
		BranchID:          r.BranchID,
		TotalLedgers:      r.TotalLedgers,
		ReconciledLedgers: r.ReconciledLedgers,
		BranchCash:        r.BranchCash,
		Discrepancies:     make([]*ReconciliationResponse, len(r.Discrepancies)),
		CheckedAt:         r.CheckedAt,
	}
	for i, d := range r.Discrepancies {
		out.Discrepancies[i] = ReconciliationFromUseCase(d)
	}
	return out
}

// ErrorResponse represents an error in API responses. Shortfall is set for
// insufficient denominations.
type ErrorResponse struct {
	Envelope
	Error     string        `json:"error"`
	Kind      string        `json:"kind,omitempty"`
	Shortfall Denominations `json:"shortfall,omitempty"`
}

// BalanceEnvelope reports a ledger balance, and whether a requested amount
// is covered when one was asked about.
type BalanceEnvelope struct {
	Envelope
	LedgerID   string           `json:"ledger_id"`
	Balance    decimal.Decimal  `json:"balance"`
	Requested  *decimal.Decimal `json:"requested,omitempty"`
	Sufficient *bool            `json:"sufficient,omitempty"`
}
