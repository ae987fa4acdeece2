package dto

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

// Denominations is a denomination breakdown keyed by face value, e.g.
// {"5000": 2, "100": 3}.
type Denominations map[string]int64

// ToDomain parses the face-value keys and validates the set.
func (d Denominations) ToDomain() (domain.DenominationSet, error) {
	counts := make(map[domain.Denomination]int64, len(d))
	for key, count := range d {
		v, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDenomination, key)
		}
		if count < 0 {
			return nil, fmt.Errorf("%w: %s=%d", domain.ErrNegativeCount, key, count)
		}
		if count > math.MaxInt64-counts[domain.Denomination(v)] {
			return nil, fmt.Errorf("%w: count for %s overflows", domain.ErrAmountTooLarge, key)
		}
		counts[domain.Denomination(v)] += count
	}
	return domain.NewDenominationSet(counts)
}

// DenominationsFromDomain renders a set with face-value keys.
func DenominationsFromDomain(set domain.DenominationSet) Denominations {
	out := make(Denominations, len(set))
	for _, e := range set.Entries() {
		out[strconv.FormatInt(int64(e.Denomination), 10)] = e.Count
	}
	return out
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, raw)
	}
	return amount, nil
}

// OpenVaultRequest opens the vault of a branch.
type OpenVaultRequest struct {
	BranchID string `json:"branch_id"`
}

// OpenTellerLedgerRequest opens the ledger of a teller.
type OpenTellerLedgerRequest struct {
	TellerID string `json:"teller_id"`
}

// CashRequest is the body of cash in and cash out. LedgerID may be empty when
// BranchID names the branch whose vault is meant.
type CashRequest struct {
	LedgerID      string        `json:"ledger_id"`
	BranchID      string        `json:"branch_id,omitempty"`
	Amount        string        `json:"amount"`
	Denominations Denominations `json:"denominations"`
	Reference     string        `json:"reference"`
	Note          string        `json:"note,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CashRequest) ToUseCaseInput() (usecase.CashInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.CashInput{}, err
	}
	set, err := r.Denominations.ToDomain()
	if err != nil {
		return usecase.CashInput{}, err
	}

	return usecase.CashInput{
		LedgerID:      r.LedgerID,
		BranchID:      r.BranchID,
		Amount:        amount,
		Denominations: set,
		Reference:     r.Reference,
		Note:          r.Note,
	}, nil
}

// TransferRequest moves cash between two ledgers.
type TransferRequest struct {
	FromLedgerID  string        `json:"from_ledger_id"`
	ToLedgerID    string        `json:"to_ledger_id"`
	FromBranchID  string        `json:"from_branch_id,omitempty"`
	ToBranchID    string        `json:"to_branch_id,omitempty"`
	Amount        string        `json:"amount"`
	Denominations Denominations `json:"denominations"`
	Reference     string        `json:"reference"`
	Note          string        `json:"note,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput() (usecase.TransferCashInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.TransferCashInput{}, err
	}
	set, err := r.Denominations.ToDomain()
	if err != nil {
		return usecase.TransferCashInput{}, err
	}

	return usecase.TransferCashInput{
		FromLedgerID:  r.FromLedgerID,
		ToLedgerID:    r.ToLedgerID,
		FromBranchID:  r.FromBranchID,
		ToBranchID:    r.ToBranchID,
		Amount:        amount,
		Denominations: set,
		Reference:     r.Reference,
		Note:          r.Note,
	}, nil
}

// ExchangeRequest swaps one breakdown for another of equal value.
type ExchangeRequest struct {
	LedgerID  string        `json:"ledger_id"`
	Given     Denominations `json:"given"`
	Received  Denominations `json:"received"`
	Reference string        `json:"reference"`
	Reason    string        `json:"reason,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ExchangeRequest) ToUseCaseInput() (usecase.ExchangeInput, error) {
	given, err := r.Given.ToDomain()
	if err != nil {
		return usecase.ExchangeInput{}, err
	}
	received, err := r.Received.ToDomain()
	if err != nil {
		return usecase.ExchangeInput{}, err
	}

	return usecase.ExchangeInput{
		LedgerID:  r.LedgerID,
		Given:     given,
		Received:  received,
		Reference: r.Reference,
		Reason:    r.Reason,
	}, nil
}

// ReplenishmentRequestBody asks for cash for a teller.
type ReplenishmentRequestBody struct {
	TellerID string `json:"teller_id"`
	Amount   string `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *ReplenishmentRequestBody) ToUseCaseInput() (usecase.RequestInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.RequestInput{}, err
	}
	return usecase.RequestInput{TellerID: r.TellerID, Amount: amount}, nil
}

// ApproveRequest confirms an amount and the notes handed over.
type ApproveRequest struct {
	ConfirmedAmount string        `json:"confirmed_amount"`
	Denominations   Denominations `json:"denominations"`
}

// ToUseCaseInput converts to use case input.
func (r *ApproveRequest) ToUseCaseInput(requestID string) (usecase.ApproveInput, error) {
	amount, err := parseAmount(r.ConfirmedAmount)
	if err != nil {
		return usecase.ApproveInput{}, err
	}
	set, err := r.Denominations.ToDomain()
	if err != nil {
		return usecase.ApproveInput{}, err
	}
	return usecase.ApproveInput{RequestID: requestID, ConfirmedAmount: amount, Denominations: set}, nil
}

// RejectRequest closes a request without moving cash.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// ToUseCaseInput converts to use case input.
func (r *RejectRequest) ToUseCaseInput(requestID string) usecase.RejectInput {
	return usecase.RejectInput{RequestID: requestID, Reason: r.Reason}
}
