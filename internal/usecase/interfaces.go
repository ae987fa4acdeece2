package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
)

// LedgerRepository defines data access for cash ledgers.
type LedgerRepository interface {
	Create(ctx context.Context, tx Transaction, ledger *domain.CashLedger) error
	GetByID(ctx context.Context, id string) (*domain.CashLedger, error)
	// GetByIDsForUpdate locks the rows in the order given; callers sort ids first.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.CashLedger, error)
	GetVaultByBranch(ctx context.Context, branchID string) (*domain.CashLedger, error)
	GetByTeller(ctx context.Context, tellerID string) (*domain.CashLedger, error)
	Update(ctx context.Context, tx Transaction, ledger *domain.CashLedger) error
	ListByBranch(ctx context.Context, branchID string) ([]*domain.CashLedger, error)
}

// OperationRepository defines data access for the append-only ledger history.
type OperationRepository interface {
	Create(ctx context.Context, tx Transaction, op *domain.LedgerOperation) error
	ExistsByReference(ctx context.Context, tx Transaction, ledgerID, reference string) (bool, error)
	ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.LedgerOperation, error)
	// NetAmountByLedger sums credits minus debits over the whole history.
	NetAmountByLedger(ctx context.Context, ledgerID string) (decimal.Decimal, error)
}

// ReplenishmentRepository defines data access for replenishment requests.
type ReplenishmentRepository interface {
	Create(ctx context.Context, tx Transaction, req *domain.ReplenishmentRequest) error
	GetByID(ctx context.Context, id string) (*domain.ReplenishmentRequest, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.ReplenishmentRequest, error)
	// FindOpenForUpdate returns the open request for the teller, or nil when there is none.
	FindOpenForUpdate(ctx context.Context, tx Transaction, tellerID, branchID string) (*domain.ReplenishmentRequest, error)
	Update(ctx context.Context, tx Transaction, req *domain.ReplenishmentRequest) error
	ListPending(ctx context.Context, branchID string, kind domain.ReplenishmentKind, limit, offset int) ([]*domain.ReplenishmentRequest, error)
}

// ChangeRepository defines data access for exchange records.
type ChangeRepository interface {
	Create(ctx context.Context, tx Transaction, record *domain.CashChangeRecord) error
	GetByID(ctx context.Context, id string) (*domain.CashChangeRecord, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, lease time.Duration) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditSink records audit entries. Callers ignore its errors.
type AuditSink interface {
	Log(ctx context.Context, entry *domain.AuditEntry) error
}

// AccountingPoster books cash movements in the general ledger.
type AccountingPoster interface {
	Post(ctx context.Context, req domain.PostingRequest) (domain.PostingResult, error)
}

// Directory resolves tellers, branches and customers. Read-only.
type Directory interface {
	GetTeller(ctx context.Context, id string) (*domain.Teller, error)
	GetBranch(ctx context.Context, id string) (*domain.Branch, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
}

// Reconciler decides denomination sufficiency and builds substitute breakdowns.
type Reconciler interface {
	CheckSufficiency(requested, available domain.DenominationSet) (domain.Shortfall, bool)
	OptimizeSubstitute(amount decimal.Decimal, available domain.DenominationSet) (domain.DenominationSet, bool)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs fn when it fails with a transient serialization error.
type Retrier interface {
	Retry(ctx context.Context, fn func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request produced no response to replay.
	Release(ctx context.Context, key string) error
}
