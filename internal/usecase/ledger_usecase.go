package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/cashdesk/internal/domain"
)

// LedgerUseCase opens cash ledgers and reads them back.
type LedgerUseCase struct {
	cashBook
	directory Directory
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(d Deps, directory Directory) (*LedgerUseCase, error) {
	b, err := newCashBook(d)
	if err != nil {
		return nil, err
	}
	if directory == nil {
		return nil, fmt.Errorf("%w: Directory", ErrMissingDependency)
	}
	return &LedgerUseCase{cashBook: b, directory: directory}, nil
}

// OpenVault creates the single vault ledger of a branch.
func (uc *LedgerUseCase) OpenVault(ctx context.Context, actor domain.Actor, branchID string) (*domain.CashLedger, error) {
	ledger, err := uc.openVault(ctx, actor, branchID)
	uc.audit(ctx, actor, domain.AuditActionLedgerOpen, "", domain.JSON{"branch_id": branchID, "role": string(domain.LedgerRoleVault)}, err)
	return ledger, wrapInternal("open vault", err)
}

func (uc *LedgerUseCase) openVault(ctx context.Context, actor domain.Actor, branchID string) (*domain.CashLedger, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := actor.CanActOn(branchID); err != nil {
		return nil, err
	}

	branch, err := uc.directory.GetBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if !branch.Active {
		return nil, fmt.Errorf("%w: branch %s is inactive", domain.ErrBranchNotFound, branch.ID)
	}

	if existing, err := uc.Ledgers.GetVaultByBranch(ctx, branch.ID); err == nil {
		return nil, fmt.Errorf("%w: vault %s", domain.ErrLedgerAlreadyExists, existing.ID)
	} else if !errors.Is(err, domain.ErrLedgerNotFound) {
		return nil, err
	}

	return uc.open(ctx, domain.NewVault(uc.IDGen.Generate(), branch.ID, time.Now().UTC()))
}

// OpenTellerLedger creates the single ledger of a teller. The teller's ceiling
// is copied from the directory.
func (uc *LedgerUseCase) OpenTellerLedger(ctx context.Context, actor domain.Actor, tellerID string) (*domain.CashLedger, error) {
	ledger, err := uc.openTellerLedger(ctx, actor, tellerID)
	uc.audit(ctx, actor, domain.AuditActionLedgerOpen, "", domain.JSON{"teller_id": tellerID}, err)
	return ledger, wrapInternal("open teller ledger", err)
}

func (uc *LedgerUseCase) openTellerLedger(ctx context.Context, actor domain.Actor, tellerID string) (*domain.CashLedger, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	teller, err := uc.directory.GetTeller(ctx, tellerID)
	if err != nil {
		return nil, err
	}
	if err := actor.CanActOn(teller.BranchID); err != nil {
		return nil, err
	}

	if existing, err := uc.Ledgers.GetByTeller(ctx, teller.ID); err == nil {
		return nil, fmt.Errorf("%w: teller ledger %s", domain.ErrLedgerAlreadyExists, existing.ID)
	} else if !errors.Is(err, domain.ErrLedgerNotFound) {
		return nil, err
	}

	return uc.open(ctx, domain.NewTellerLedger(uc.IDGen.Generate(), teller, time.Now().UTC()))
}

func (uc *LedgerUseCase) open(ctx context.Context, ledger *domain.CashLedger) (*domain.CashLedger, error) {
	err := uc.inTx(ctx, func(ctx context.Context, tx Transaction) error {
		if err := uc.Ledgers.Create(ctx, tx, ledger); err != nil {
			return err
		}
		return uc.emit(ctx, tx, domain.AggregateTypeLedger, ledger.ID, domain.EventTypeLedgerOpened, map[string]any{
			"ledger_id": ledger.ID,
			"branch_id": ledger.BranchID,
			"teller_id": ledger.TellerID,
			"role":      string(ledger.Role),
		}, ledger.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	uc.Metrics.LedgersOpened.WithLabelValues(string(ledger.Role)).Inc()
	uc.Logger.Info().
		Str("ledger_id", ledger.ID).
		Str("branch_id", ledger.BranchID).
		Str("role", string(ledger.Role)).
		Msg("cash ledger opened")

	return ledger, nil
}

// GetLedger returns a ledger by id.
func (uc *LedgerUseCase) GetLedger(ctx context.Context, id string) (*domain.CashLedger, error) {
	return uc.Ledgers.GetByID(ctx, id)
}

// ListByBranch returns every ledger of a branch.
func (uc *LedgerUseCase) ListByBranch(ctx context.Context, branchID string) ([]*domain.CashLedger, error) {
	return uc.Ledgers.ListByBranch(ctx, branchID)
}
