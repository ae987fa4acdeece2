package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

const replenishmentColumns = `id, kind, branch_id, requested_by, teller_id, donor_ledger_id,
	destination_ledger_id, requested_amount, confirmed_amount, status, denominations,
	approved_by, reference, rejection_reason, initiated_at, approved_at, rejected_at, deleted_at`

// ReplenishmentRepository implements usecase.ReplenishmentRepository.
type ReplenishmentRepository struct {
	db DB
}

// NewReplenishmentRepository creates a new ReplenishmentRepository.
func NewReplenishmentRepository(db DB) *ReplenishmentRepository {
	return &ReplenishmentRepository{db: db}
}

// Create inserts a pending request. The partial unique index on open requests
// backs the one-open-request-per-teller rule.
func (r *ReplenishmentRepository) Create(ctx context.Context, tx usecase.Transaction, req *domain.ReplenishmentRequest) error {
	denominations, err := encodeSet(req.Denominations)
	if err != nil {
		return err
	}

	_, err = txDB(tx).Exec(ctx, `
		INSERT INTO replenishment_requests (`+replenishmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		req.ID,
		string(req.Kind),
		req.BranchID,
		req.RequestedBy,
		req.TellerID,
		req.DonorLedgerID,
		req.DestinationLedgerID,
		decimalToNumeric(req.RequestedAmount),
		decimalToNumeric(req.ConfirmedAmount),
		string(req.Status),
		denominations,
		req.ApprovedBy,
		req.Reference,
		req.RejectionReason,
		timeToPgTimestamptz(req.InitiatedAt),
		optionalTimestamptz(req.ApprovedAt),
		optionalTimestamptz(req.RejectedAt),
		optionalTimestamptz(req.DeletedAt),
	)

	return translate(err)
}

// GetByID retrieves a request by ID.
func (r *ReplenishmentRepository) GetByID(ctx context.Context, id string) (*domain.ReplenishmentRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+replenishmentColumns+` FROM replenishment_requests WHERE id = $1`, id)
	return scanReplenishmentRow(row)
}

// GetByIDForUpdate retrieves a request by ID with a FOR UPDATE lock.
func (r *ReplenishmentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.ReplenishmentRequest, error) {
	row := txDB(tx).QueryRow(ctx, `SELECT `+replenishmentColumns+` FROM replenishment_requests WHERE id = $1 FOR UPDATE`, id)
	return scanReplenishmentRow(row)
}

// FindOpenForUpdate locks and returns the open request of a teller, or nil.
func (r *ReplenishmentRepository) FindOpenForUpdate(ctx context.Context, tx usecase.Transaction, tellerID, branchID string) (*domain.ReplenishmentRequest, error) {
	row := txDB(tx).QueryRow(ctx, `
		SELECT `+replenishmentColumns+`
		FROM replenishment_requests
		WHERE teller_id = $1 AND branch_id = $2 AND status = 'pending' AND deleted_at IS NULL
		FOR UPDATE`,
		tellerID, branchID,
	)

	req, err := scanReplenishment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

// Update writes the workflow fields of a locked request.
func (r *ReplenishmentRepository) Update(ctx context.Context, tx usecase.Transaction, req *domain.ReplenishmentRequest) error {
	denominations, err := encodeSet(req.Denominations)
	if err != nil {
		return err
	}

	tag, err := txDB(tx).Exec(ctx, `
		UPDATE replenishment_requests SET
			confirmed_amount = $2, status = $3, denominations = $4, approved_by = $5,
			rejection_reason = $6, approved_at = $7, rejected_at = $8, deleted_at = $9
		WHERE id = $1`,
		req.ID,
		decimalToNumeric(req.ConfirmedAmount),
		string(req.Status),
		denominations,
		req.ApprovedBy,
		req.RejectionReason,
		optionalTimestamptz(req.ApprovedAt),
		optionalTimestamptz(req.RejectedAt),
		optionalTimestamptz(req.DeletedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReplenishmentNotFound
	}
	return nil
}

// ListPending lists open requests of one kind in a branch, oldest first.
func (r *ReplenishmentRepository) ListPending(ctx context.Context, branchID string, kind domain.ReplenishmentKind, limit, offset int) ([]*domain.ReplenishmentRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+replenishmentColumns+`
		FROM replenishment_requests
		WHERE branch_id = $1 AND kind = $2 AND status = 'pending' AND deleted_at IS NULL
		ORDER BY initiated_at, id
		LIMIT $3 OFFSET $4`,
		branchID, string(kind), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ReplenishmentRequest
	for rows.Next() {
		req, err := scanReplenishment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}

	return out, rows.Err()
}

func scanReplenishmentRow(row pgx.Row) (*domain.ReplenishmentRequest, error) {
	req, err := scanReplenishment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReplenishmentNotFound
	}
	return req, err
}

func scanReplenishment(row pgx.Row) (*domain.ReplenishmentRequest, error) {
	var (
		req                           domain.ReplenishmentRequest
		kind, status                  string
		requested, confirmed          pgtype.Numeric
		denominations                 []byte
		initiated                     pgtype.Timestamptz
		approvedAt, rejectedAt, delAt pgtype.Timestamptz
	)

	err := row.Scan(
		&req.ID, &kind, &req.BranchID, &req.RequestedBy, &req.TellerID, &req.DonorLedgerID,
		&req.DestinationLedgerID, &requested, &confirmed, &status, &denominations,
		&req.ApprovedBy, &req.Reference, &req.RejectionReason, &initiated, &approvedAt, &rejectedAt, &delAt,
	)
	if err != nil {
		return nil, err
	}

	set, err := decodeSet(denominations)
	if err != nil {
		return nil, err
	}

	req.Kind = domain.ReplenishmentKind(kind)
	req.Status = domain.ReplenishmentStatus(status)
	req.RequestedAmount = numericToDecimal(requested)
	req.ConfirmedAmount = numericToDecimal(confirmed)
	req.Denominations = set
	req.InitiatedAt = initiated.Time
	req.ApprovedAt = timestamptzPtr(approvedAt)
	req.RejectedAt = timestamptzPtr(rejectedAt)
	req.DeletedAt = timestamptzPtr(delAt)

	return &req, nil
}
