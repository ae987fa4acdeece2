package usecase_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/infrastructure/metrics"
	"github.com/iho/cashdesk/internal/usecase"
	"github.com/iho/cashdesk/internal/usecase/mocks"
)

const (
	branchID        = "BR1"
	otherBranchID   = "BR2"
	primaryTellerID = "T-P"
	subTellerID     = "T-S"
)

var (
	clerk    = domain.Actor{ID: "user-1", BranchID: branchID}
	outsider = domain.Actor{ID: "user-9", BranchID: otherBranchID}
)

type fixture struct {
	t       *testing.T
	store   *mocks.Store
	dir     *mocks.InMemoryDirectory
	audit   *mocks.RecordingAuditSink
	metrics *metrics.Metrics
	deps    usecase.Deps
	cash    *usecase.CashLedgerUseCase

	vault   *domain.CashLedger
	primary *domain.CashLedger
	sub     *domain.CashLedger

	refs atomic.Int64
}

// newFixture builds a branch with a vault, a primary teller and a sub teller,
// all empty.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := mocks.NewStore()
	dir := mocks.NewInMemoryDirectory()
	audit := mocks.NewRecordingAuditSink()
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())

	f := &fixture{
		t:       t,
		store:   store,
		dir:     dir,
		audit:   audit,
		metrics: m,
		deps: usecase.Deps{
			TxManager:  mocks.NewMockTransactionManager(store),
			Ledgers:    mocks.NewMockLedgerRepository(store),
			Operations: mocks.NewMockOperationRepository(store),
			Outbox:     mocks.NewMockOutboxRepository(store),
			Audit:      audit,
			Reconciler: domain.GreedyReconciler{},
			IDGen:      mocks.NewMockIDGenerator(),
			Retrier:    &mocks.PassthroughRetrier{},
			Metrics:    m,
			Logger:     zerolog.Nop(),
			TxTimeout:  time.Second,
		},
	}

	dir.PutBranch(&domain.Branch{ID: branchID, Code: "001", Name: "Main", Active: true})
	dir.PutBranch(&domain.Branch{ID: otherBranchID, Code: "002", Name: "Harbour", Active: true})

	primaryTeller := &domain.Teller{
		ID: primaryTellerID, BranchID: branchID, Name: "Ada", Kind: domain.TellerKindPrimary,
		Ceiling: decimal.NewFromInt(500_000), Active: true,
	}
	subTeller := &domain.Teller{
		ID: subTellerID, BranchID: branchID, Name: "Lin", Kind: domain.TellerKindSub,
		Ceiling: decimal.NewFromInt(50_000), PrimaryTellerID: primaryTellerID, Active: true,
	}
	dir.PutTeller(primaryTeller)
	dir.PutTeller(subTeller)

	now := time.Now().UTC()
	f.vault = domain.NewVault("L-VAULT", branchID, now)
	f.primary = domain.NewTellerLedger("L-PRIMARY", primaryTeller, now)
	f.sub = domain.NewTellerLedger("L-SUB", subTeller, now)
	for _, l := range []*domain.CashLedger{f.vault, f.primary, f.sub} {
		store.PutLedger(l)
	}

	cash, err := usecase.NewCashLedgerUseCase(f.deps)
	if err != nil {
		t.Fatalf("NewCashLedgerUseCase() error = %v", err)
	}
	f.cash = cash

	return f
}

func (f *fixture) ref(prefix string) string {
	return fmt.Sprintf("%s-%03d", prefix, f.refs.Add(1))
}

// stock cashes set into a ledger.
func (f *fixture) stock(ledgerID string, set domain.DenominationSet) {
	f.t.Helper()
	_, err := f.cash.CashIn(context.Background(), clerk, usecase.CashInput{
		LedgerID:      ledgerID,
		Amount:        set.Total(),
		Denominations: set,
		Reference:     f.ref("SEED"),
	})
	if err != nil {
		f.t.Fatalf("stock %s: %v", ledgerID, err)
	}
}

func (f *fixture) ledger(id string) *domain.CashLedger {
	f.t.Helper()
	l := f.store.Ledger(id)
	if l == nil {
		f.t.Fatalf("ledger %s not found", id)
	}
	return l
}

func (f *fixture) branchCash() decimal.Decimal {
	total := decimal.Zero
	for _, id := range []string{f.vault.ID, f.primary.ID, f.sub.ID} {
		total = total.Add(f.ledger(id).Balance)
	}
	return total
}

func (f *fixture) replenishmentDeps(poster usecase.AccountingPoster) usecase.ReplenishmentDeps {
	return usecase.ReplenishmentDeps{
		Deps:      f.deps,
		Requests:  mocks.NewMockReplenishmentRepository(f.store),
		Directory: f.dir,
		Poster:    poster,
	}
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func assertBalance(t *testing.T, l *domain.CashLedger, want int64) {
	t.Helper()
	if !l.Balance.Equal(amount(want)) {
		t.Errorf("ledger %s balance = %s, want %d", l.ID, l.Balance, want)
	}
	if err := l.CheckInvariant(); err != nil {
		t.Errorf("ledger %s: %v", l.ID, err)
	}
}
