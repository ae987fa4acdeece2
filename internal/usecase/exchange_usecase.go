package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/cashdesk/internal/domain"
)

// ExchangeDeps extends Deps with the change record store.
type ExchangeDeps struct {
	Deps
	Changes ChangeRepository
}

// ExchangeUseCase swaps one mix of notes and coins for another of equal value.
type ExchangeUseCase struct {
	cashBook
	changes ChangeRepository
}

// NewExchangeUseCase creates a new ExchangeUseCase.
func NewExchangeUseCase(d ExchangeDeps) (*ExchangeUseCase, error) {
	b, err := newCashBook(d.Deps)
	if err != nil {
		return nil, err
	}
	if d.Changes == nil {
		return nil, fmt.Errorf("%w: Changes", ErrMissingDependency)
	}
	return &ExchangeUseCase{cashBook: b, changes: d.Changes}, nil
}

// ExchangeInput describes one exchange at a desk. Given is what the desk pays
// out, Received is what the customer hands in.
type ExchangeInput struct {
	LedgerID  string
	Given     domain.DenominationSet
	Received  domain.DenominationSet
	Reference string
	Reason    string
}

// Exchange pays out Given and absorbs Received. When the desk lacks the exact
// notes for Given, the reconciler builds an equal-value substitute from the
// desk's stock; the record carries what was actually paid.
func (uc *ExchangeUseCase) Exchange(ctx context.Context, actor domain.Actor, input ExchangeInput) (*domain.CashChangeRecord, error) {
	start := time.Now()
	record, err := uc.exchange(ctx, actor, input)
	uc.observe(string(domain.OperationChange), start, input.Received.Total(), err)
	if err == nil {
		uc.Metrics.ExchangesCompleted.Inc()
		if record.Substituted {
			uc.Metrics.ExchangeSubstituted.Inc()
		}
	}
	uc.audit(ctx, actor, domain.AuditActionCashExchange, input.Reference, domain.JSON{
		"ledger_id": input.LedgerID,
		"given":     domain.DenominationPayload(input.Given),
		"received":  domain.DenominationPayload(input.Received),
		"reason":    input.Reason,
	}, err)
	return record, wrapInternal("exchange cash", err)
}

func (uc *ExchangeUseCase) exchange(ctx context.Context, actor domain.Actor, input ExchangeInput) (*domain.CashChangeRecord, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateReference(input.Reference); err != nil {
		return nil, err
	}
	if err := input.Received.Validate(); err != nil {
		return nil, err
	}

	amount := input.Received.Total()
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmountMatches(amount, input.Given); err != nil {
		return nil, err
	}

	var record *domain.CashChangeRecord
	err := uc.inTx(ctx, func(ctx context.Context, tx Transaction) error {
		ledgers, err := uc.lock(ctx, tx, input.LedgerID)
		if err != nil {
			return err
		}
		l := ledgers[input.LedgerID]

		if err := actor.CanActOn(l.BranchID); err != nil {
			return err
		}
		if err := uc.ensureFreshReference(ctx, tx, l.ID, input.Reference); err != nil {
			return err
		}

		// The payout comes from the stock held before the customer's notes
		// are counted in.
		if err := l.VerifySufficientFunds(amount); err != nil {
			return err
		}

		payout := input.Given.Clone()
		substituted := false
		if shortfall, ok := uc.Reconciler.CheckSufficiency(payout, l.Denominations); !ok {
			sub, found := uc.Reconciler.OptimizeSubstitute(amount, l.Denominations)
			if !found {
				return domain.NewInsufficientDenominations(shortfall)
			}
			payout = sub
			substituted = true
		}

		now := time.Now().UTC()
		if err := l.ApplyExchange(input.Received, payout, now); err != nil {
			return err
		}

		op, err := uc.persist(ctx, tx, l, movement{
			Type:          domain.OperationChange,
			Amount:        amount,
			Denominations: payout,
			Reference:     input.Reference,
			Note:          input.Reason,
			ActorID:       actor.ID,
			At:            now,
		}, domain.DirectionNeutral)
		if err != nil {
			return err
		}

		record = &domain.CashChangeRecord{
			ID:             uc.IDGen.Generate(),
			LedgerID:       l.ID,
			Reference:      input.Reference,
			AmountGiven:    payout.Total(),
			AmountReceived: amount,
			RequestedGiven: input.Given.Clone(),
			Given:          payout,
			Received:       input.Received.Clone(),
			Substituted:    substituted,
			Reason:         input.Reason,
			ActorID:        actor.ID,
			CreatedAt:      now,
		}
		if err := uc.changes.Create(ctx, tx, record); err != nil {
			return err
		}

		payload := operationPayload(op)
		payload["change_id"] = record.ID
		payload["received"] = domain.DenominationPayload(record.Received)
		payload["substituted"] = substituted
		return uc.emit(ctx, tx, domain.AggregateTypeChange, record.ID, domain.EventTypeCashExchanged, payload, now)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetChange returns an exchange record made at a desk of the actor's branch.
func (uc *ExchangeUseCase) GetChange(ctx context.Context, actor domain.Actor, id string) (*domain.CashChangeRecord, error) {
	record, err := uc.changes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l, err := uc.Ledgers.GetByID(ctx, record.LedgerID)
	if err != nil {
		return nil, err
	}
	if err := actor.CanActOn(l.BranchID); err != nil {
		return nil, err
	}
	return record, nil
}
