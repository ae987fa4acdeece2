package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
)

// CashLedgerUseCase moves cash into, out of and between ledgers.
type CashLedgerUseCase struct {
	cashBook
}

// NewCashLedgerUseCase creates a new CashLedgerUseCase.
func NewCashLedgerUseCase(d Deps) (*CashLedgerUseCase, error) {
	b, err := newCashBook(d)
	if err != nil {
		return nil, err
	}
	return &CashLedgerUseCase{cashBook: b}, nil
}

// CashInput identifies a ledger by id or, when LedgerID is empty, by the
// vault of BranchID.
type CashInput struct {
	LedgerID      string
	BranchID      string
	Amount        decimal.Decimal
	Denominations domain.DenominationSet
	Reference     string
	Note          string
}

// TransferCashInput moves cash between two ledgers. Empty ledger ids resolve
// to the vault of the matching branch.
type TransferCashInput struct {
	FromLedgerID  string
	ToLedgerID    string
	FromBranchID  string
	ToBranchID    string
	Amount        decimal.Decimal
	Denominations domain.DenominationSet
	Reference     string
	Note          string
}

// CashResult reports the ledger state after a committed movement.
type CashResult struct {
	Success    bool
	Ledger     *domain.CashLedger
	Operations []*domain.LedgerOperation
}

// CashIn adds notes and coins to a ledger.
func (uc *CashLedgerUseCase) CashIn(ctx context.Context, actor domain.Actor, input CashInput) (*CashResult, error) {
	start := time.Now()
	result, err := uc.cashIn(ctx, actor, input)
	uc.observe(string(domain.OperationCashIn), start, input.Amount, err)
	uc.audit(ctx, actor, domain.AuditActionCashIn, input.Reference, cashPayload(input.LedgerID, input.Amount, input.Denominations), err)
	return result, wrapInternal("cash in", err)
}

func (uc *CashLedgerUseCase) cashIn(ctx context.Context, actor domain.Actor, input CashInput) (*CashResult, error) {
	if err := validateCashInput(actor, input.Amount, input.Denominations, input.Reference); err != nil {
		return nil, err
	}

	ledgerID, err := uc.resolveLedger(ctx, input.LedgerID, input.BranchID)
	if err != nil {
		return nil, err
	}

	var result *CashResult
	err = uc.inTx(ctx, func(ctx context.Context, tx Transaction) error {
		ledgers, err := uc.lock(ctx, tx, ledgerID)
		if err != nil {
			return err
		}
		l := ledgers[ledgerID]

		if err := actor.CanActOn(l.BranchID); err != nil {
			return err
		}
		if err := uc.ensureFreshReference(ctx, tx, l.ID, input.Reference); err != nil {
			return err
		}

		now := time.Now().UTC()
		op, err := uc.credit(ctx, tx, l, movement{
			Type:          domain.OperationCashIn,
			Amount:        input.Amount,
			Denominations: input.Denominations,
			Reference:     input.Reference,
			Note:          input.Note,
			ActorID:       actor.ID,
			At:            now,
		})
		if err != nil {
			return err
		}

		if err := uc.emit(ctx, tx, domain.AggregateTypeLedger, l.ID, domain.EventTypeCashIn, operationPayload(op), now); err != nil {
			return err
		}

		result = &CashResult{Success: true, Ledger: l, Operations: []*domain.LedgerOperation{op}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// CashOut removes notes and coins from a ledger. It fails with an
// InsufficientDenominationsError when a requested note is short even if the
// balance covers the amount.
func (uc *CashLedgerUseCase) CashOut(ctx context.Context, actor domain.Actor, input CashInput) (*CashResult, error) {
	start := time.Now()
	result, err := uc.cashOut(ctx, actor, input)
	uc.observe(string(domain.OperationCashOut), start, input.Amount, err)
	uc.audit(ctx, actor, domain.AuditActionCashOut, input.Reference, cashPayload(input.LedgerID, input.Amount, input.Denominations), err)
	return result, wrapInternal("cash out", err)
}

func (uc *CashLedgerUseCase) cashOut(ctx context.Context, actor domain.Actor, input CashInput) (*CashResult, error) {
	if err := validateCashInput(actor, input.Amount, input.Denominations, input.Reference); err != nil {
		return nil, err
	}

	ledgerID, err := uc.resolveLedger(ctx, input.LedgerID, input.BranchID)
	if err != nil {
		return nil, err
	}

	var result *CashResult
	err = uc.inTx(ctx, func(ctx context.Context, tx Transaction) error {
		ledgers, err := uc.lock(ctx, tx, ledgerID)
		if err != nil {
			return err
		}
		l := ledgers[ledgerID]

		if err := actor.CanActOn(l.BranchID); err != nil {
			return err
		}
		if err := uc.ensureFreshReference(ctx, tx, l.ID, input.Reference); err != nil {
			return err
		}

		now := time.Now().UTC()
		op, err := uc.debit(ctx, tx, l, movement{
			Type:          domain.OperationCashOut,
			Amount:        input.Amount,
			Denominations: input.Denominations,
			Reference:     input.Reference,
			Note:          input.Note,
			ActorID:       actor.ID,
			At:            now,
		})
		if err != nil {
			return err
		}

		if err := uc.emit(ctx, tx, domain.AggregateTypeLedger, l.ID, domain.EventTypeCashOut, operationPayload(op), now); err != nil {
			return err
		}

		result = &CashResult{Success: true, Ledger: l, Operations: []*domain.LedgerOperation{op}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// TransferCash debits one ledger and credits another in a single transaction.
// Total cash across the two ledgers is unchanged.
func (uc *CashLedgerUseCase) TransferCash(ctx context.Context, actor domain.Actor, input TransferCashInput) (*CashResult, error) {
	start := time.Now()
	result, err := uc.transferCash(ctx, actor, input)
	uc.observe(string(domain.OperationTransfer), start, input.Amount, err)
	uc.audit(ctx, actor, domain.AuditActionCashTransfer, input.Reference, domain.JSON{
		"from_ledger_id": input.FromLedgerID,
		"to_ledger_id":   input.ToLedgerID,
		"from_branch_id": input.FromBranchID,
		"to_branch_id":   input.ToBranchID,
		"amount":         input.Amount.String(),
		"denominations":  domain.DenominationPayload(input.Denominations),
	}, err)
	return result, wrapInternal("transfer cash", err)
}

func (uc *CashLedgerUseCase) transferCash(ctx context.Context, actor domain.Actor, input TransferCashInput) (*CashResult, error) {
	if err := validateCashInput(actor, input.Amount, input.Denominations, input.Reference); err != nil {
		return nil, err
	}

	fromID, err := uc.resolveLedger(ctx, input.FromLedgerID, input.FromBranchID)
	if err != nil {
		return nil, err
	}
	toID, err := uc.resolveLedger(ctx, input.ToLedgerID, input.ToBranchID)
	if err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, domain.ErrSameLedger
	}

	var result *CashResult
	err = uc.inTx(ctx, func(ctx context.Context, tx Transaction) error {
		ledgers, err := uc.lock(ctx, tx, fromID, toID)
		if err != nil {
			return err
		}
		from, to := ledgers[fromID], ledgers[toID]

		if err := actor.CanActOn(from.BranchID); err != nil {
			return err
		}
		for _, id := range []string{fromID, toID} {
			if err := uc.ensureFreshReference(ctx, tx, id, input.Reference); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		ops, err := uc.transfer(ctx, tx, from, to, movement{
			Type:          domain.OperationTransfer,
			Amount:        input.Amount,
			Denominations: input.Denominations,
			Reference:     input.Reference,
			Note:          input.Note,
			ActorID:       actor.ID,
			At:            now,
		})
		if err != nil {
			return err
		}

		payload := map[string]any{
			"from_ledger_id": from.ID,
			"to_ledger_id":   to.ID,
			"amount":         input.Amount.String(),
			"denominations":  domain.DenominationPayload(input.Denominations),
			"reference":      input.Reference,
		}
		if err := uc.emit(ctx, tx, domain.AggregateTypeLedger, from.ID, domain.EventTypeCashTransferred, payload, now); err != nil {
			return err
		}

		result = &CashResult{Success: true, Ledger: from, Operations: ops}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// VerifySufficientFunds is the aggregate-only pre-check against a ledger.
func (uc *CashLedgerUseCase) VerifySufficientFunds(ctx context.Context, ledgerID string, amount decimal.Decimal) error {
	l, err := uc.Ledgers.GetByID(ctx, ledgerID)
	if err != nil {
		return err
	}
	return l.VerifySufficientFunds(amount)
}

// GetBalance returns the ledger's current balance.
func (uc *CashLedgerUseCase) GetBalance(ctx context.Context, ledgerID string) (decimal.Decimal, error) {
	l, err := uc.Ledgers.GetByID(ctx, ledgerID)
	if err != nil {
		return decimal.Zero, err
	}
	return l.Balance, nil
}

// ListOperations returns a page of the ledger's history, newest first.
func (uc *CashLedgerUseCase) ListOperations(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.LedgerOperation, error) {
	if _, err := uc.Ledgers.GetByID(ctx, ledgerID); err != nil {
		return nil, err
	}
	limit, offset, _ = domain.ValidatePagination(limit, offset)
	return uc.Operations.ListByLedger(ctx, ledgerID, limit, offset)
}

func (uc *CashLedgerUseCase) resolveLedger(ctx context.Context, ledgerID, branchID string) (string, error) {
	if ledgerID != "" {
		return ledgerID, nil
	}
	if branchID == "" {
		return "", domain.ErrLedgerNotFound
	}
	vault, err := uc.Ledgers.GetVaultByBranch(ctx, branchID)
	if err != nil {
		return "", err
	}
	return vault.ID, nil
}

func validateCashInput(actor domain.Actor, amount decimal.Decimal, set domain.DenominationSet, reference string) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	if err := domain.ValidateReference(reference); err != nil {
		return err
	}
	return domain.ValidateAmountMatches(amount, set)
}

func cashPayload(ledgerID string, amount decimal.Decimal, set domain.DenominationSet) domain.JSON {
	return domain.JSON{
		"ledger_id":     ledgerID,
		"amount":        amount.String(),
		"denominations": domain.DenominationPayload(set),
	}
}

func operationPayload(op *domain.LedgerOperation) map[string]any {
	return map[string]any{
		"operation_id":  op.ID,
		"ledger_id":     op.LedgerID,
		"type":          string(op.Type),
		"direction":     string(op.Direction),
		"amount":        op.Amount.String(),
		"balance_after": op.BalanceAfter.String(),
		"denominations": domain.DenominationPayload(op.Denominations),
		"reference":     op.Reference,
		"actor_id":      op.ActorID,
	}
}
