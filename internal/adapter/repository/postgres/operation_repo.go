package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

const operationColumns = `id, ledger_id, type, direction, amount, denominations, balance_after,
	actor_id, reference, note, created_at`

// OperationRepository implements usecase.OperationRepository.
type OperationRepository struct {
	db DB
}

// NewOperationRepository creates a new OperationRepository.
func NewOperationRepository(db DB) *OperationRepository {
	return &OperationRepository{db: db}
}

// Create appends an operation within a transaction.
func (r *OperationRepository) Create(ctx context.Context, tx usecase.Transaction, op *domain.LedgerOperation) error {
	denominations, err := encodeSet(op.Denominations)
	if err != nil {
		return err
	}

	_, err = txDB(tx).Exec(ctx, `
		INSERT INTO ledger_operations (`+operationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		op.ID,
		op.LedgerID,
		string(op.Type),
		string(op.Direction),
		decimalToNumeric(op.Amount),
		denominations,
		decimalToNumeric(op.BalanceAfter),
		op.ActorID,
		op.Reference,
		op.Note,
		timeToPgTimestamptz(op.CreatedAt),
	)

	return translate(err)
}

// ExistsByReference reports whether the reference was already applied to the ledger.
func (r *OperationRepository) ExistsByReference(ctx context.Context, tx usecase.Transaction, ledgerID, reference string) (bool, error) {
	var exists bool
	err := txDB(tx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_operations WHERE ledger_id = $1 AND reference = $2)`,
		ledgerID, reference,
	).Scan(&exists)

	return exists, err
}

// ListByLedger lists a ledger's operations, newest first.
func (r *OperationRepository) ListByLedger(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.LedgerOperation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+operationColumns+`
		FROM ledger_operations
		WHERE ledger_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		ledgerID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*domain.LedgerOperation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

// NetAmountByLedger sums credits minus debits over the ledger's history.
func (r *OperationRepository) NetAmountByLedger(ctx context.Context, ledgerID string) (decimal.Decimal, error) {
	var net pgtype.Numeric
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE direction
			WHEN 'credit' THEN amount
			WHEN 'debit' THEN -amount
			ELSE 0 END), 0)
		FROM ledger_operations
		WHERE ledger_id = $1`,
		ledgerID,
	).Scan(&net)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(net), nil
}

func scanOperation(row pgx.Row) (*domain.LedgerOperation, error) {
	var (
		op                   domain.LedgerOperation
		opType, direction    string
		amount, balanceAfter pgtype.Numeric
		denominations        []byte
		created              pgtype.Timestamptz
	)

	err := row.Scan(
		&op.ID, &op.LedgerID, &opType, &direction, &amount, &denominations,
		&balanceAfter, &op.ActorID, &op.Reference, &op.Note, &created,
	)
	if err != nil {
		return nil, err
	}

	set, err := decodeSet(denominations)
	if err != nil {
		return nil, err
	}

	op.Type = domain.OperationType(opType)
	op.Direction = domain.Direction(direction)
	op.Amount = numericToDecimal(amount)
	op.BalanceAfter = numericToDecimal(balanceAfter)
	op.Denominations = set
	op.CreatedAt = created.Time

	return &op, nil
}
