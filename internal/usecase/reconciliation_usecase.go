package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
)

// ReconciliationUseCase checks that ledgers agree with their own history.
type ReconciliationUseCase struct {
	ledgers    LedgerRepository
	operations OperationRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(ledgers LedgerRepository, operations OperationRepository) (*ReconciliationUseCase, error) {
	if ledgers == nil || operations == nil {
		return nil, fmt.Errorf("%w: ledgers and operations", ErrMissingDependency)
	}
	return &ReconciliationUseCase{
		ledgers:    ledgers,
		operations: operations,
	}, nil
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	LedgerID           string
	Role               domain.LedgerRole
	RecordedBalance    decimal.Decimal
	DenominationTotal  decimal.Decimal
	CalculatedBalance  decimal.Decimal
	DenominationsMatch bool
	HistoryMatches     bool
	IsReconciled       bool
	LastChecked        time.Time
}

// ReconcileLedger compares the stored balance with the denomination total and
// with the balance rebuilt from the operation history.
func (uc *ReconciliationUseCase) ReconcileLedger(ctx context.Context, ledgerID string) (*ReconciliationResult, error) {
	ledger, err := uc.ledgers.GetByID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	calculated, err := uc.operations.NetAmountByLedger(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	total := ledger.Denominations.Total()
	result := &ReconciliationResult{
		LedgerID:           ledger.ID,
		Role:               ledger.Role,
		RecordedBalance:    ledger.Balance,
		DenominationTotal:  total,
		CalculatedBalance:  calculated,
		DenominationsMatch: total.Equal(ledger.Balance),
		HistoryMatches:     calculated.Equal(ledger.Balance),
		LastChecked:        time.Now().UTC(),
	}
	result.IsReconciled = result.DenominationsMatch && result.HistoryMatches

	return result, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	BranchID          string
	TotalLedgers      int
	ReconciledLedgers int
	BranchCash        decimal.Decimal
	Discrepancies     []*ReconciliationResult
	CheckedAt         time.Time
}

// GenerateReport reconciles every ledger of a branch.
func (uc *ReconciliationUseCase) GenerateReport(ctx context.Context, branchID string) (*ReconciliationReport, error) {
	ledgers, err := uc.ledgers.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		BranchID:      branchID,
		TotalLedgers:  len(ledgers),
		BranchCash:    decimal.Zero,
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     time.Now().UTC(),
	}

	for _, ledger := range ledgers {
		result, err := uc.ReconcileLedger(ctx, ledger.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile ledger %s: %w", ledger.ID, err)
		}

		report.BranchCash = report.BranchCash.Add(result.RecordedBalance)
		if result.IsReconciled {
			report.ReconciledLedgers++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
