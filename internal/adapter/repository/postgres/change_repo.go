package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

// ChangeRepository implements usecase.ChangeRepository.
type ChangeRepository struct {
	db DB
}

// NewChangeRepository creates a new ChangeRepository.
func NewChangeRepository(db DB) *ChangeRepository {
	return &ChangeRepository{db: db}
}

// Create appends an exchange record within a transaction.
func (r *ChangeRepository) Create(ctx context.Context, tx usecase.Transaction, c *domain.CashChangeRecord) error {
	sets := make([][]byte, 0, 3)
	for _, set := range []domain.DenominationSet{c.RequestedGiven, c.Given, c.Received} {
		raw, err := encodeSet(set)
		if err != nil {
			return err
		}
		sets = append(sets, raw)
	}

	_, err := txDB(tx).Exec(ctx, `
		INSERT INTO cash_changes (
			id, ledger_id, reference, amount_given, amount_received,
			requested_given, given, received, substituted, reason, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID,
		c.LedgerID,
		c.Reference,
		decimalToNumeric(c.AmountGiven),
		decimalToNumeric(c.AmountReceived),
		sets[0],
		sets[1],
		sets[2],
		c.Substituted,
		c.Reason,
		c.ActorID,
		timeToPgTimestamptz(c.CreatedAt),
	)

	return err
}

// GetByID retrieves an exchange record by ID.
func (r *ChangeRepository) GetByID(ctx context.Context, id string) (*domain.CashChangeRecord, error) {
	var (
		c                           domain.CashChangeRecord
		given, received             pgtype.Numeric
		requestedRaw, givenRaw, rcv []byte
		created                     pgtype.Timestamptz
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, ledger_id, reference, amount_given, amount_received,
		       requested_given, given, received, substituted, reason, actor_id, created_at
		FROM cash_changes
		WHERE id = $1`, id,
	).Scan(
		&c.ID, &c.LedgerID, &c.Reference, &given, &received,
		&requestedRaw, &givenRaw, &rcv, &c.Substituted, &c.Reason, &c.ActorID, &created,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChangeNotFound
		}
		return nil, err
	}

	if c.RequestedGiven, err = decodeSet(requestedRaw); err != nil {
		return nil, err
	}
	if c.Given, err = decodeSet(givenRaw); err != nil {
		return nil, err
	}
	if c.Received, err = decodeSet(rcv); err != nil {
		return nil, err
	}

	c.AmountGiven = numericToDecimal(given)
	c.AmountReceived = numericToDecimal(received)
	c.CreatedAt = created.Time

	return &c, nil
}
