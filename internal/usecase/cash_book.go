package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/infrastructure/metrics"
)

// Deps carries the ports shared by every cash use case. All fields except
// TxTimeout are required.
type Deps struct {
	TxManager  TransactionManager
	Ledgers    LedgerRepository
	Operations OperationRepository
	Outbox     OutboxRepository
	Audit      AuditSink
	Reconciler Reconciler
	IDGen      IDGenerator
	Retrier    Retrier
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
	TxTimeout  time.Duration
}

func (d Deps) validate() error {
	required := []struct {
		name string
		set  bool
	}{
		{"TxManager", d.TxManager != nil},
		{"Ledgers", d.Ledgers != nil},
		{"Operations", d.Operations != nil},
		{"Outbox", d.Outbox != nil},
		{"Audit", d.Audit != nil},
		{"Reconciler", d.Reconciler != nil},
		{"IDGen", d.IDGen != nil},
		{"Retrier", d.Retrier != nil},
		{"Metrics", d.Metrics != nil},
	}
	for _, r := range required {
		if !r.set {
			return fmt.Errorf("%w: %s", ErrMissingDependency, r.name)
		}
	}
	return nil
}

// cashBook holds the transactional steps every cash use case is built from.
type cashBook struct {
	Deps
}

func newCashBook(d Deps) (cashBook, error) {
	if err := d.validate(); err != nil {
		return cashBook{}, err
	}
	if d.TxTimeout <= 0 {
		d.TxTimeout = DefaultTransactionTimeout
	}
	return cashBook{Deps: d}, nil
}

// inTx runs fn inside a serializable transaction and retries the whole unit on
// serialization failures. fn must not have side effects outside tx.
func (b *cashBook) inTx(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error {
	return b.Retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, b.TxTimeout)
		defer cancel()

		tx, err := b.TxManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
}

// lock takes row locks on every ledger in ascending id order and returns them by id.
func (b *cashBook) lock(ctx context.Context, tx Transaction, ids ...string) (map[string]*domain.CashLedger, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Strings(unique)

	ledgers, err := b.Ledgers.GetByIDsForUpdate(ctx, tx, unique)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.CashLedger, len(ledgers))
	for _, l := range ledgers {
		byID[l.ID] = l
	}
	for _, id := range unique {
		l, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrLedgerNotFound, id)
		}
		if !l.Active {
			return nil, fmt.Errorf("%w: %s", domain.ErrLedgerInactive, id)
		}
	}

	return byID, nil
}

// ensureFreshReference rejects a reference already applied to the ledger.
func (b *cashBook) ensureFreshReference(ctx context.Context, tx Transaction, ledgerID, reference string) error {
	exists, err := b.Operations.ExistsByReference(ctx, tx, ledgerID, reference)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s on %s", domain.ErrDuplicateReference, reference, ledgerID)
	}
	return nil
}

type movement struct {
	Type          domain.OperationType
	Amount        decimal.Decimal
	Denominations domain.DenominationSet
	Reference     string
	Note          string
	ActorID       string
	At            time.Time
}

// debit takes cash out of a locked ledger. The aggregate balance is checked
// first, then each denomination through the reconciler.
func (b *cashBook) debit(ctx context.Context, tx Transaction, l *domain.CashLedger, m movement) (*domain.LedgerOperation, error) {
	if err := domain.ValidateAmountMatches(m.Amount, m.Denominations); err != nil {
		return nil, err
	}

	if err := l.VerifySufficientFunds(m.Amount); err != nil {
		return nil, err
	}

	if shortfall, ok := b.Reconciler.CheckSufficiency(m.Denominations, l.Denominations); !ok {
		return nil, domain.NewInsufficientDenominations(shortfall)
	}

	if err := l.ApplyCashOut(m.Type, m.Amount, m.Denominations, m.At); err != nil {
		return nil, err
	}

	return b.persist(ctx, tx, l, m, domain.DirectionDebit)
}

// credit puts cash into a locked ledger.
func (b *cashBook) credit(ctx context.Context, tx Transaction, l *domain.CashLedger, m movement) (*domain.LedgerOperation, error) {
	if err := l.ApplyCashIn(m.Type, m.Amount, m.Denominations, m.At); err != nil {
		return nil, err
	}

	return b.persist(ctx, tx, l, m, domain.DirectionCredit)
}

// transfer debits from and credits to as one unit. Both ledgers must already
// be locked in tx; a failure on either side leaves tx to be rolled back.
func (b *cashBook) transfer(ctx context.Context, tx Transaction, from, to *domain.CashLedger, m movement) ([]*domain.LedgerOperation, error) {
	if from.ID == to.ID {
		return nil, domain.ErrSameLedger
	}

	out, err := b.debit(ctx, tx, from, m)
	if err != nil {
		return nil, err
	}

	in, err := b.credit(ctx, tx, to, m)
	if err != nil {
		return nil, err
	}

	return []*domain.LedgerOperation{out, in}, nil
}

func (b *cashBook) persist(ctx context.Context, tx Transaction, l *domain.CashLedger, m movement, dir domain.Direction) (*domain.LedgerOperation, error) {
	if err := l.CheckInvariant(); err != nil {
		return nil, err
	}

	if err := b.Ledgers.Update(ctx, tx, l); err != nil {
		return nil, err
	}

	op := &domain.LedgerOperation{
		ID:            b.IDGen.Generate(),
		LedgerID:      l.ID,
		Type:          m.Type,
		Direction:     dir,
		Amount:        m.Amount,
		Denominations: m.Denominations.Clone(),
		BalanceAfter:  l.Balance,
		ActorID:       m.ActorID,
		Reference:     m.Reference,
		Note:          m.Note,
		CreatedAt:     m.At,
	}
	if err := b.Operations.Create(ctx, tx, op); err != nil {
		return nil, err
	}

	return op, nil
}

// emit writes an outbox event in tx.
func (b *cashBook) emit(ctx context.Context, tx Transaction, aggregateType, aggregateID, eventType string, payload map[string]any, now time.Time) error {
	event := &domain.OutboxEvent{
		ID:            b.IDGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
		Published:     false,
	}
	return b.Outbox.Create(ctx, tx, event)
}

// audit logs after commit. Failures are only logged locally.
func (b *cashBook) audit(ctx context.Context, actor domain.Actor, action domain.AuditAction, reference string, payload domain.JSON, err error) {
	entry := &domain.AuditEntry{
		ID:         b.IDGen.Generate(),
		ActorID:    actor.ID,
		BranchID:   actor.BranchID,
		Action:     action,
		Payload:    payload,
		Level:      domain.AuditLevelInfo,
		StatusCode: statusFor(err),
		Reference:  reference,
		CreatedAt:  time.Now().UTC(),
	}
	if err != nil {
		entry.Detail = err.Error()
		entry.Level = domain.AuditLevelWarning
		if domain.KindOf(err) == domain.KindInternal {
			entry.Level = domain.AuditLevelError
		}
	}

	if auditErr := b.Audit.Log(ctx, entry); auditErr != nil {
		b.Metrics.AuditFailures.Inc()
		b.Logger.Warn().Err(auditErr).
			Str("action", string(action)).
			Str("reference", reference).
			Msg("audit entry dropped")
	}
}

// observe records the outcome of an operation and logs failures by kind.
func (b *cashBook) observe(op string, start time.Time, amount decimal.Decimal, err error) {
	b.Metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err == nil {
		b.Metrics.CashOperations.WithLabelValues(op).Inc()
		f, _ := amount.Float64()
		b.Metrics.CashAmount.WithLabelValues(op).Observe(f)
		return
	}

	kind := domain.KindOf(err)
	b.Metrics.OperationErrors.WithLabelValues(op, string(kind)).Inc()

	if kind == domain.KindInternal {
		b.Logger.Error().Err(err).Str("operation", op).Msg("cash operation failed")
		return
	}
	b.Logger.Warn().Err(err).Str("operation", op).Msg("cash operation rejected")
}

// statusFor maps an error to the status code recorded with an audit entry.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case "":
		return 200
	case domain.KindValidation:
		return 400
	case domain.KindNotFound:
		return 404
	case domain.KindConflict:
		return 409
	case domain.KindForbidden:
		return 403
	case domain.KindInsufficient:
		return 422
	default:
		return 500
	}
}

// wrapInternal prefixes internal failures with the operation name. Domain
// errors pass through unchanged.
func wrapInternal(op string, err error) error {
	if err == nil || domain.KindOf(err) != domain.KindInternal {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
