package domain

import "github.com/shopspring/decimal"

// Accounting event codes sent to the general ledger.
const (
	PostingCodeReplenishment = "CASH_REPLENISHMENT"
	PostingCodeVaultTransfer = "VAULT_TRANSFER"
)

// PostingRequest asks the accounting system to book a cash movement.
type PostingRequest struct {
	EventCode string          `json:"event_code"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	Narration string          `json:"narration"`
	BranchID  string          `json:"branch_id"`
}

// PostingResult is the accounting system's answer.
type PostingResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
