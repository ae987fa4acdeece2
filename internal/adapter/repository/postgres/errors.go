package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/cashdesk/internal/domain"
)

const pgErrUniqueViolation = "23505"

var uniqueViolations = map[string]error{
	"cash_ledgers_pkey":                    domain.ErrLedgerAlreadyExists,
	"uq_cash_ledgers_vault":                domain.ErrLedgerAlreadyExists,
	"uq_cash_ledgers_teller":               domain.ErrLedgerAlreadyExists,
	"uq_ledger_operations_reference":       domain.ErrDuplicateReference,
	"uq_replenishment_open":                domain.ErrDuplicatePendingRequest,
	"replenishment_requests_reference_key": domain.ErrDuplicateReference,
}

// translate maps unique violations backing domain invariants to their
// sentinel errors. Anything else is returned unchanged.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgErrUniqueViolation {
		return err
	}
	if sentinel, ok := uniqueViolations[pgErr.ConstraintName]; ok {
		return fmt.Errorf("%w: %s", sentinel, pgErr.Detail)
	}
	return err
}
