package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/adapter/http/dto"
	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

type stubLedgerService struct {
	openVaultFn  func(ctx context.Context, actor domain.Actor, branchID string) (*domain.CashLedger, error)
	openTellerFn func(ctx context.Context, actor domain.Actor, tellerID string) (*domain.CashLedger, error)
	getFn        func(ctx context.Context, id string) (*domain.CashLedger, error)
}

func (s *stubLedgerService) OpenVault(ctx context.Context, actor domain.Actor, branchID string) (*domain.CashLedger, error) {
	return s.openVaultFn(ctx, actor, branchID)
}

func (s *stubLedgerService) OpenTellerLedger(ctx context.Context, actor domain.Actor, tellerID string) (*domain.CashLedger, error) {
	return s.openTellerFn(ctx, actor, tellerID)
}

func (s *stubLedgerService) GetLedger(ctx context.Context, id string) (*domain.CashLedger, error) {
	return s.getFn(ctx, id)
}

type stubCashQueryService struct {
	listFn    func(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.LedgerOperation, error)
	balanceFn func(ctx context.Context, ledgerID string) (decimal.Decimal, error)
	verifyFn  func(ctx context.Context, ledgerID string, amount decimal.Decimal) error
}

func (s *stubCashQueryService) ListOperations(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.LedgerOperation, error) {
	return s.listFn(ctx, ledgerID, limit, offset)
}

func (s *stubCashQueryService) GetBalance(ctx context.Context, ledgerID string) (decimal.Decimal, error) {
	return s.balanceFn(ctx, ledgerID)
}

func (s *stubCashQueryService) VerifySufficientFunds(ctx context.Context, ledgerID string, amount decimal.Decimal) error {
	return s.verifyFn(ctx, ledgerID, amount)
}

type stubReconciliationService struct {
	ledgerFn func(ctx context.Context, ledgerID string) (*usecase.ReconciliationResult, error)
	reportFn func(ctx context.Context, branchID string) (*usecase.ReconciliationReport, error)
}

func (s *stubReconciliationService) ReconcileLedger(ctx context.Context, ledgerID string) (*usecase.ReconciliationResult, error) {
	return s.ledgerFn(ctx, ledgerID)
}

func (s *stubReconciliationService) GenerateReport(ctx context.Context, branchID string) (*usecase.ReconciliationReport, error) {
	return s.reportFn(ctx, branchID)
}

func ledgerRouter(h *LedgerHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/ledgers/vaults", h.OpenVault)
	r.Post("/ledgers/tellers", h.OpenTellerLedger)
	r.Get("/ledgers/{id}", h.Get)
	r.Get("/ledgers/{id}/operations", h.ListOperations)
	r.Get("/ledgers/{id}/balance", h.Balance)
	r.Get("/ledgers/{id}/reconcile", h.Reconcile)
	r.Get("/branches/{id}/reconcile", h.BranchReport)
	return r
}

func withActor(req *http.Request) *http.Request {
	req.Header.Set(ActorIDHeader, "user-1")
	req.Header.Set(BranchIDHeader, "branch-1")
	return req
}

func TestLedgerHandlerOpenVault(t *testing.T) {
	svc := &stubLedgerService{
		openVaultFn: func(ctx context.Context, actor domain.Actor, branchID string) (*domain.CashLedger, error) {
			if actor.ID != "user-1" || branchID != "branch-1" {
				t.Fatalf("unexpected call actor=%+v branch=%s", actor, branchID)
			}
			return &domain.CashLedger{ID: "vault-1", BranchID: branchID, Role: domain.LedgerRoleVault, Active: true}, nil
		},
	}
	h := NewLedgerHandler(svc, nil, nil, zerolog.Nop())

	req := withActor(httptest.NewRequest(http.MethodPost, "/ledgers/vaults", bytes.NewBufferString(`{"branch_id":"branch-1"}`)))
	rr := httptest.NewRecorder()
	ledgerRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp dto.LedgerEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != dto.StatusSuccess || resp.Ledger.ID != "vault-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestLedgerHandlerOpenVaultRequiresActor(t *testing.T) {
	h := NewLedgerHandler(&stubLedgerService{}, nil, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/ledgers/vaults", bytes.NewBufferString(`{"branch_id":"branch-1"}`))
	rr := httptest.NewRecorder()
	ledgerRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLedgerHandlerOpenTellerConflict(t *testing.T) {
	svc := &stubLedgerService{
		openTellerFn: func(ctx context.Context, actor domain.Actor, tellerID string) (*domain.CashLedger, error) {
			return nil, domain.ErrLedgerAlreadyExists
		},
	}
	h := NewLedgerHandler(svc, nil, nil, zerolog.Nop())

	req := withActor(httptest.NewRequest(http.MethodPost, "/ledgers/tellers", bytes.NewBufferString(`{"teller_id":"t-1"}`)))
	rr := httptest.NewRecorder()
	ledgerRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestLedgerHandlerRejectsUnknownFields(t *testing.T) {
	h := NewLedgerHandler(&stubLedgerService{}, nil, nil, zerolog.Nop())

	req := withActor(httptest.NewRequest(http.MethodPost, "/ledgers/vaults", bytes.NewBufferString(`{"branch":"x"}`)))
	rr := httptest.NewRecorder()
	ledgerRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLedgerHandlerGetNotFound(t *testing.T) {
	svc := &stubLedgerService{
		getFn: func(ctx context.Context, id string) (*domain.CashLedger, error) {
			if id != "missing" {
				t.Fatalf("unexpected id %s", id)
			}
			return nil, domain.ErrLedgerNotFound
		},
	}
	h := NewLedgerHandler(svc, nil, nil, zerolog.Nop())

	rr := httptest.NewRecorder()
	ledgerRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledgers/missing", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestLedgerHandlerListOperationsPaging(t *testing.T) {
	history := &stubCashQueryService{
		listFn: func(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.LedgerOperation, error) {
			if ledgerID != "l-1" || limit != 5 || offset != 10 {
				t.Fatalf("unexpected paging %s %d %d", ledgerID, limit, offset)
			}
			return []*domain.LedgerOperation{{ID: "op-1", LedgerID: ledgerID, Amount: decimal.NewFromInt(100)}}, nil
		},
	}
	h := NewLedgerHandler(nil, history, nil, zerolog.Nop())

	rr := httptest.NewRecorder()
	ledgerRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledgers/l-1/operations?limit=5&offset=10", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp dto.OperationsEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Operations) != 1 || resp.Operations[0].ID != "op-1" {
		t.Fatalf("unexpected operations %+v", resp.Operations)
	}
}

func TestLedgerHandlerReconcile(t *testing.T) {
	rec := &stubReconciliationService{
		ledgerFn: func(ctx context.Context, ledgerID string) (*usecase.ReconciliationResult, error) {
			return &usecase.ReconciliationResult{LedgerID: ledgerID, IsReconciled: false}, nil
		},
		reportFn: func(ctx context.Context, branchID string) (*usecase.ReconciliationReport, error) {
			return &usecase.ReconciliationReport{BranchID: branchID, TotalLedgers: 3, ReconciledLedgers: 3}, nil
		},
	}
	h := NewLedgerHandler(nil, nil, rec, zerolog.Nop())

	rr := httptest.NewRecorder()
	ledgerRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledgers/l-1/reconcile", nil))
	var result dto.ReconciliationEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Message != "discrepancy found" || result.Result.LedgerID != "l-1" {
		t.Fatalf("unexpected result %+v", result)
	}

	rr = httptest.NewRecorder()
	ledgerRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/branches/branch-1/reconcile", nil))
	var report dto.ReportEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Message != "branch reconciled" || report.TotalLedgers != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestLedgerHandlerBalanceWithAmount(t *testing.T) {
	query := &stubCashQueryService{
		balanceFn: func(ctx context.Context, ledgerID string) (decimal.Decimal, error) {
			return decimal.NewFromInt(3000), nil
		},
		verifyFn: func(ctx context.Context, ledgerID string, amount decimal.Decimal) error {
			if amount.GreaterThan(decimal.NewFromInt(3000)) {
				return domain.ErrInsufficientFunds
			}
			return nil
		},
	}
	h := NewLedgerHandler(nil, query, nil, zerolog.Nop())

	tests := []struct {
		query      string
		sufficient bool
	}{
		{"amount=2500", true},
		{"amount=5000", false},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		ledgerRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledgers/l-1/balance?"+tt.query, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.query, rr.Code)
		}
		var resp dto.BalanceEnvelope
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Sufficient == nil || *resp.Sufficient != tt.sufficient {
			t.Fatalf("%s: unexpected sufficiency %+v", tt.query, resp)
		}
	}

	rr := httptest.NewRecorder()
	ledgerRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledgers/l-1/balance?amount=abc", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad amount, got %d", rr.Code)
	}
}
