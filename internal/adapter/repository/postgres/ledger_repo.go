package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

// denominationColumns holds one count column per denomination, largest first.
var denominationColumns = func() []string {
	cols := make([]string, 0, len(domain.Denominations()))
	for _, d := range domain.Denominations() {
		cols = append(cols, fmt.Sprintf("d_%d", int64(d)))
	}
	return cols
}()

var ledgerColumns = "id, branch_id, teller_id, role, balance, ceiling, last_operation_type, " +
	"last_operation_amount, active, version, created_at, updated_at, " + strings.Join(denominationColumns, ", ")

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db DB
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Create inserts a new ledger.
func (r *LedgerRepository) Create(ctx context.Context, tx usecase.Transaction, l *domain.CashLedger) error {
	placeholders := make([]string, 0, 12+len(denominationColumns))
	for i := 1; i <= 12+len(denominationColumns); i++ {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
	}
	query := "INSERT INTO cash_ledgers (" + ledgerColumns + ") VALUES (" + strings.Join(placeholders, ", ") + ")"

	args := []any{
		l.ID,
		l.BranchID,
		optionalText(l.TellerID),
		string(l.Role),
		decimalToNumeric(l.Balance),
		decimalToNumeric(l.Ceiling),
		optionalText(string(l.LastOperationType)),
		decimalToNumeric(l.LastOperationAmount),
		l.Active,
		l.Version,
		timeToPgTimestamptz(l.CreatedAt),
		timeToPgTimestamptz(l.UpdatedAt),
	}
	args = append(args, denominationArgs(l.Denominations)...)

	_, err := txDB(tx).Exec(ctx, query, args...)
	return translate(err)
}

// GetByID retrieves a ledger by ID.
func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*domain.CashLedger, error) {
	row := r.db.QueryRow(ctx, "SELECT "+ledgerColumns+" FROM cash_ledgers WHERE id = $1", id)
	return scanLedgerRow(row)
}

// GetByIDsForUpdate retrieves ledgers with FOR UPDATE locks, taken in id order.
func (r *LedgerRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.CashLedger, error) {
	rows, err := txDB(tx).Query(ctx,
		"SELECT "+ledgerColumns+" FROM cash_ledgers WHERE id = ANY($1) ORDER BY id FOR UPDATE", ids)
	if err != nil {
		return nil, err
	}
	return collectLedgers(rows)
}

// GetVaultByBranch retrieves the active vault of a branch.
func (r *LedgerRepository) GetVaultByBranch(ctx context.Context, branchID string) (*domain.CashLedger, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+ledgerColumns+" FROM cash_ledgers WHERE branch_id = $1 AND role = 'vault' AND active", branchID)
	return scanLedgerRow(row)
}

// GetByTeller retrieves the ledger owned by a teller.
func (r *LedgerRepository) GetByTeller(ctx context.Context, tellerID string) (*domain.CashLedger, error) {
	row := r.db.QueryRow(ctx, "SELECT "+ledgerColumns+" FROM cash_ledgers WHERE teller_id = $1", tellerID)
	return scanLedgerRow(row)
}

// Update writes the balance, counts and bookkeeping fields of a locked ledger.
func (r *LedgerRepository) Update(ctx context.Context, tx usecase.Transaction, l *domain.CashLedger) error {
	sets := make([]string, 0, len(denominationColumns))
	for i, col := range denominationColumns {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, 9+i))
	}
	query := `UPDATE cash_ledgers SET
		balance = $2, ceiling = $3, last_operation_type = $4, last_operation_amount = $5,
		active = $6, version = $7, updated_at = $8, ` + strings.Join(sets, ", ") + `
		WHERE id = $1`

	args := []any{
		l.ID,
		decimalToNumeric(l.Balance),
		decimalToNumeric(l.Ceiling),
		optionalText(string(l.LastOperationType)),
		decimalToNumeric(l.LastOperationAmount),
		l.Active,
		l.Version,
		timeToPgTimestamptz(l.UpdatedAt),
	}
	args = append(args, denominationArgs(l.Denominations)...)

	tag, err := txDB(tx).Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLedgerNotFound
	}
	return nil
}

// ListByBranch lists every ledger of a branch, vault first.
func (r *LedgerRepository) ListByBranch(ctx context.Context, branchID string) ([]*domain.CashLedger, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+ledgerColumns+" FROM cash_ledgers WHERE branch_id = $1 ORDER BY role <> 'vault', role, id", branchID)
	if err != nil {
		return nil, err
	}
	return collectLedgers(rows)
}

func denominationArgs(set domain.DenominationSet) []any {
	args := make([]any, 0, len(denominationColumns))
	for _, d := range domain.Denominations() {
		args = append(args, set.Count(d))
	}
	return args
}

func collectLedgers(rows pgx.Rows) ([]*domain.CashLedger, error) {
	defer rows.Close()

	var ledgers []*domain.CashLedger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, rows.Err()
}

func scanLedgerRow(row pgx.Row) (*domain.CashLedger, error) {
	l, err := scanLedger(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLedgerNotFound
	}
	return l, err
}

func scanLedger(row pgx.Row) (*domain.CashLedger, error) {
	var (
		l                            domain.CashLedger
		tellerID, role, lastOp       pgtype.Text
		balance, ceiling, lastAmount pgtype.Numeric
		created, updated             pgtype.Timestamptz
	)
	counts := make([]int64, len(denominationColumns))

	dest := []any{
		&l.ID, &l.BranchID, &tellerID, &role, &balance, &ceiling, &lastOp,
		&lastAmount, &l.Active, &l.Version, &created, &updated,
	}
	for i := range counts {
		dest = append(dest, &counts[i])
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	l.TellerID = tellerID.String
	l.Role = domain.LedgerRole(role.String)
	l.Balance = numericToDecimal(balance)
	l.Ceiling = numericToDecimal(ceiling)
	l.LastOperationType = domain.OperationType(lastOp.String)
	l.LastOperationAmount = numericToDecimal(lastAmount)
	l.CreatedAt = created.Time
	l.UpdatedAt = updated.Time

	l.Denominations = domain.DenominationSet{}
	for i, d := range domain.Denominations() {
		if counts[i] != 0 {
			l.Denominations[d] = counts[i]
		}
	}

	return &l, nil
}
