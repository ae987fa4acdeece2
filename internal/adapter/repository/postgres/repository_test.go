package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

func beginTx(t *testing.T, pool pgxmock.PgxPoolIface) usecase.Transaction {
	t.Helper()
	pool.ExpectBeginTx(serializable)
	tx, err := NewTxManager(pool).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	return tx
}

func ledgerRowColumns() []string {
	cols := []string{
		"id", "branch_id", "teller_id", "role", "balance", "ceiling", "last_operation_type",
		"last_operation_amount", "active", "version", "created_at", "updated_at",
	}
	return append(cols, denominationColumns...)
}

func ledgerRowValues(id string, counts map[domain.Denomination]int64, balance string) []any {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	values := []any{
		id, "BR1", "T-P", "primary_teller", balance, "500000", "cash_in",
		balance, true, int64(1), now, now,
	}
	for _, d := range domain.Denominations() {
		values = append(values, counts[d])
	}
	return values
}

func TestLedgerRepositoryGetByID(t *testing.T) {
	pool := newMockPool(t)
	rows := pgxmock.NewRows(ledgerRowColumns()).
		AddRow(ledgerRowValues("L-1", map[domain.Denomination]int64{domain.Note5000: 2, domain.Coin10: 3}, "10030")...)
	pool.ExpectQuery(`FROM cash_ledgers WHERE id = \$1`).WithArgs("L-1").WillReturnRows(rows)

	l, err := NewLedgerRepository(pool).GetByID(context.Background(), "L-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if l.TellerID != "T-P" || l.Role != domain.LedgerRolePrimaryTeller {
		t.Fatalf("unexpected ledger identity: %+v", l)
	}
	if !l.Balance.Equal(decimal.NewFromInt(10030)) {
		t.Fatalf("expected balance 10030, got %s", l.Balance)
	}
	if l.Denominations.Count(domain.Note5000) != 2 || l.Denominations.Count(domain.Coin10) != 3 {
		t.Fatalf("unexpected counts: %v", l.Denominations)
	}
	if !l.Denominations.Total().Equal(l.Balance) {
		t.Fatalf("denomination total %s does not match balance %s", l.Denominations.Total(), l.Balance)
	}
	assertExpectations(t, pool)
}

func TestLedgerRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(`FROM cash_ledgers WHERE id = \$1`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := NewLedgerRepository(pool).GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrLedgerNotFound) {
		t.Fatalf("expected ErrLedgerNotFound, got %v", err)
	}
}

func TestLedgerRepositoryGetByIDsForUpdateLocksInIDOrder(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	rows := pgxmock.NewRows(ledgerRowColumns()).
		AddRow(ledgerRowValues("L-A", nil, "0")...).
		AddRow(ledgerRowValues("L-B", map[domain.Denomination]int64{domain.Note100: 1}, "100")...)
	pool.ExpectQuery(`WHERE id = ANY\(\$1\) ORDER BY id FOR UPDATE`).
		WithArgs([]string{"L-A", "L-B"}).
		WillReturnRows(rows)

	ledgers, err := NewLedgerRepository(pool).GetByIDsForUpdate(context.Background(), tx, []string{"L-A", "L-B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ledgers) != 2 || ledgers[0].ID != "L-A" || ledgers[1].ID != "L-B" {
		t.Fatalf("unexpected ledgers: %+v", ledgers)
	}
	if !ledgers[0].Denominations.IsZero() {
		t.Fatalf("expected empty stock, got %v", ledgers[0].Denominations)
	}
	assertExpectations(t, pool)
}

func TestLedgerRepositoryUpdateMissingRow(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec(`UPDATE cash_ledgers SET`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	l := domain.NewVault("L-X", "BR1", time.Now().UTC())
	err := NewLedgerRepository(pool).Update(context.Background(), tx, l)
	if !errors.Is(err, domain.ErrLedgerNotFound) {
		t.Fatalf("expected ErrLedgerNotFound, got %v", err)
	}
}

func TestLedgerRepositoryCreateDuplicateVault(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec(`INSERT INTO cash_ledgers`).WillReturnError(&pgconn.PgError{
		Code:           pgErrUniqueViolation,
		ConstraintName: "uq_cash_ledgers_vault",
		Detail:         "Key (branch_id)=(BR1) already exists.",
	})

	err := NewLedgerRepository(pool).Create(context.Background(), tx, domain.NewVault("L-V2", "BR1", time.Now().UTC()))
	if !errors.Is(err, domain.ErrLedgerAlreadyExists) {
		t.Fatalf("expected ErrLedgerAlreadyExists, got %v", err)
	}
}

func TestReplenishmentRepositoryFindOpenForUpdateNone(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectQuery(`FROM replenishment_requests`).
		WithArgs("T-S", "BR1").
		WillReturnError(pgx.ErrNoRows)

	req, err := NewReplenishmentRepository(pool).FindOpenForUpdate(context.Background(), tx, "T-S", "BR1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req != nil {
		t.Fatalf("expected no open request, got %+v", req)
	}
}

func TestReplenishmentRepositoryCreateDuplicatePending(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec(`INSERT INTO replenishment_requests`).WillReturnError(&pgconn.PgError{
		Code:           pgErrUniqueViolation,
		ConstraintName: "uq_replenishment_open",
	})

	err := NewReplenishmentRepository(pool).Create(context.Background(), tx, &domain.ReplenishmentRequest{
		ID:       "R-1",
		Kind:     domain.ReplenishmentSub,
		BranchID: "BR1",
		TellerID: "T-S",
		Status:   domain.ReplenishmentPending,
	})
	if !errors.Is(err, domain.ErrDuplicatePendingRequest) {
		t.Fatalf("expected ErrDuplicatePendingRequest, got %v", err)
	}
}

func TestOperationRepositoryNetAmountByLedger(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(`FROM ledger_operations`).
		WithArgs("L-1").
		WillReturnRows(pgxmock.NewRows([]string{"net"}).AddRow("-2500"))

	net, err := NewOperationRepository(pool).NetAmountByLedger(context.Background(), "L-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !net.Equal(decimal.NewFromInt(-2500)) {
		t.Fatalf("expected -2500, got %s", net)
	}
}

func TestChangeRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(`FROM cash_changes`).WithArgs("C-1").WillReturnError(pgx.ErrNoRows)

	_, err := NewChangeRepository(pool).GetByID(context.Background(), "C-1")
	if !errors.Is(err, domain.ErrChangeNotFound) {
		t.Fatalf("expected ErrChangeNotFound, got %v", err)
	}
}

func TestDirectoryRepositoryGetTeller(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(`FROM tellers`).
		WithArgs("T-S").
		WillReturnRows(pgxmock.NewRows([]string{"id", "branch_id", "name", "kind", "ceiling", "primary_teller_id", "active"}).
			AddRow("T-S", "BR1", "Sub desk", "sub", "50000", "T-P", true))

	teller, err := NewDirectoryRepository(pool).GetTeller(context.Background(), "T-S")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if teller.Kind != domain.TellerKindSub || teller.PrimaryTellerID != "T-P" {
		t.Fatalf("unexpected teller: %+v", teller)
	}
	if !teller.Ceiling.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("expected ceiling 50000, got %s", teller.Ceiling)
	}
}

func TestTranslateLeavesOtherErrors(t *testing.T) {
	other := &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "something_else"}
	if got := translate(other); got != other {
		t.Fatalf("expected error unchanged, got %v", got)
	}
	if translate(nil) != nil {
		t.Fatalf("expected nil to stay nil")
	}
}

func TestEncodeDecodeSetUsesFaceValueKeys(t *testing.T) {
	raw, err := encodeSet(domain.DenominationSet{domain.Note5000: 1, domain.Coin1: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"1":4,"5000":1}` {
		t.Fatalf("unexpected encoding %s", raw)
	}

	if _, err := decodeSet([]byte(`{"3":1}`)); err == nil {
		t.Fatalf("expected unknown denomination to be rejected")
	}
}

func TestAuditRepositoryLogAssignsID(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectExec(`INSERT INTO audit_entries`).
		WithArgs(pgxmock.AnyArg(), "U1", "BR1", "cash.in", pgxmock.AnyArg(), "", "info", 200, "REF-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	entry := &domain.AuditEntry{
		ActorID:    "U1",
		BranchID:   "BR1",
		Action:     domain.AuditActionCashIn,
		Payload:    domain.JSON{"amount": "100"},
		Level:      domain.AuditLevelInfo,
		StatusCode: 200,
		Reference:  "REF-1",
	}
	if err := NewAuditRepository(pool).Log(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID == "" {
		t.Fatalf("expected an id to be assigned")
	}
	assertExpectations(t, pool)
}

func TestAuditRepositoryListFilters(t *testing.T) {
	pool := newMockPool(t)
	queryErr := errors.New("boom")
	pool.ExpectQuery(`WHERE branch_id = \$1 AND reference = \$2 ORDER BY created_at DESC, id LIMIT \$3`).
		WithArgs("BR1", "REF-1", 10).
		WillReturnError(queryErr)

	_, err := NewAuditRepository(pool).List(context.Background(), domain.AuditFilter{
		BranchID:  "BR1",
		Reference: "REF-1",
		Limit:     10,
	})
	if !errors.Is(err, queryErr) {
		t.Fatalf("expected query error, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestOutboxRepositoryClaimUnpublishedSkipsLockedRows(t *testing.T) {
	pool := newMockPool(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published_at", "published",
	}).AddRow("EVT-1", "RPL-1", domain.AggregateTypeReplenishment, "replenishment.approved",
		[]byte(`{"amount":"100"}`), created, nil, false)
	pool.ExpectQuery(`claimed_until IS NULL OR claimed_until < NOW\(\)\)(.|\s)*FOR UPDATE SKIP LOCKED`).
		WithArgs(50, float64(30)).
		WillReturnRows(rows)

	events, err := NewOutboxRepository(pool).ClaimUnpublished(context.Background(), 50, 30*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ID != "EVT-1" || events[0].Published {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[0].Payload["amount"] != "100" {
		t.Fatalf("unexpected payload: %v", events[0].Payload)
	}
	assertExpectations(t, pool)
}
