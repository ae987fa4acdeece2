package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/cashdesk/internal/domain"
)

// DirectoryRepository implements usecase.Directory over the branch, teller
// and customer tables. It never writes.
type DirectoryRepository struct {
	db DB
}

// NewDirectoryRepository creates a new DirectoryRepository.
func NewDirectoryRepository(db DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetTeller retrieves a teller by ID.
func (r *DirectoryRepository) GetTeller(ctx context.Context, id string) (*domain.Teller, error) {
	var (
		t             domain.Teller
		kind          string
		ceiling       pgtype.Numeric
		primaryTeller pgtype.Text
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, branch_id, name, kind, ceiling, primary_teller_id, active
		FROM tellers
		WHERE id = $1`, id,
	).Scan(&t.ID, &t.BranchID, &t.Name, &kind, &ceiling, &primaryTeller, &t.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTellerNotFound
		}
		return nil, err
	}

	t.Kind = domain.TellerKind(kind)
	t.Ceiling = numericToDecimal(ceiling)
	t.PrimaryTellerID = primaryTeller.String

	return &t, nil
}

// GetBranch retrieves a branch by ID.
func (r *DirectoryRepository) GetBranch(ctx context.Context, id string) (*domain.Branch, error) {
	var b domain.Branch

	err := r.db.QueryRow(ctx, `SELECT id, code, name, active FROM branches WHERE id = $1`, id).
		Scan(&b.ID, &b.Code, &b.Name, &b.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBranchNotFound
		}
		return nil, err
	}

	return &b, nil
}

// GetCustomer retrieves a customer by ID.
func (r *DirectoryRepository) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer

	err := r.db.QueryRow(ctx, `SELECT id, branch_id, name FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.BranchID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}

	return &c, nil
}
