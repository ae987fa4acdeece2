package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/iho/cashdesk/internal/adapter/http/handler"
	apimiddleware "github.com/iho/cashdesk/internal/adapter/http/middleware"
	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/infrastructure/metrics"
	"github.com/iho/cashdesk/internal/usecase"
	"github.com/iho/cashdesk/internal/usecase/mocks"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1, nil)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyReplaysCashIn(t *testing.T) {
	store := mocks.NewMockIdempotencyStore()
	cash := &countingCashService{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
		cfg.CashHandler = handler.NewCashHandler(cash, nil, zerolog.Nop())
	}))

	send := func() *httptest.ResponseRecorder {
		body := `{"ledger_id":"l-1","amount":"100","denominations":{"100":1},"reference":"dep-1"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cash/in", strings.NewReader(body))
		req.Header.Set(handler.ActorIDHeader, "user-1")
		req.Header.Set(handler.BranchIDHeader, "branch-1")
		req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	second := send()

	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	if cash.calls != 1 {
		t.Fatalf("expected one cash-in, got %d", cash.calls)
	}
	if second.Header().Get(apimiddleware.IdempotencyReplayHeader) != "true" {
		t.Fatalf("expected replayed response")
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs")
	}
}

func TestNewRouter_RecordsMetricsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Metrics = m
		cfg.Gatherer = reg
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ledgers/01HXYZ", nil))

	counter := m.HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/ledgers/{id}", "200")
	if got := testutil.ToFloat64(counter); got != 1 {
		t.Fatalf("expected 1 request on route pattern, got %v", got)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "cashdesk_http_requests_total") {
		t.Fatalf("expected /metrics to expose http counters")
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/ledgers/vaults",
		"POST /api/v1/ledgers/tellers",
		"GET /api/v1/ledgers/{id}",
		"GET /api/v1/ledgers/{id}/operations",
		"GET /api/v1/ledgers/{id}/reconcile",
		"POST /api/v1/cash/in",
		"POST /api/v1/cash/out",
		"POST /api/v1/cash/transfer",
		"POST /api/v1/cash/exchange",
		"POST /api/v1/replenishments/{kind}/",
		"POST /api/v1/replenishments/{kind}/{id}/approve",
		"POST /api/v1/replenishments/{kind}/{id}/reject",
		"GET /api/v1/replenishments/{kind}/{id}",
		"GET /api/v1/replenishments/{kind}/{id}/events",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		HealthHandler:        handler.NewHealthHandler(time.Second),
		LedgerHandler:        handler.NewLedgerHandler(stubLedgerService{}, nil, nil, zerolog.Nop()),
		CashHandler:          handler.NewCashHandler(&countingCashService{}, nil, zerolog.Nop()),
		ReplenishmentHandler: handler.NewReplenishmentHandler(zerolog.Nop()),
		Logger:               zerolog.Nop(),
		Gatherer:             prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubLedgerService struct{}

func (stubLedgerService) OpenVault(ctx context.Context, actor domain.Actor, branchID string) (*domain.CashLedger, error) {
	return &domain.CashLedger{ID: "vault", BranchID: branchID, Role: domain.LedgerRoleVault}, nil
}

func (stubLedgerService) OpenTellerLedger(ctx context.Context, actor domain.Actor, tellerID string) (*domain.CashLedger, error) {
	return &domain.CashLedger{ID: "teller", TellerID: tellerID, Role: domain.LedgerRolePrimaryTeller}, nil
}

func (stubLedgerService) GetLedger(ctx context.Context, id string) (*domain.CashLedger, error) {
	return &domain.CashLedger{ID: id, Role: domain.LedgerRoleVault}, nil
}

type countingCashService struct {
	calls int
}

func (s *countingCashService) CashIn(ctx context.Context, actor domain.Actor, input usecase.CashInput) (*usecase.CashResult, error) {
	s.calls++
	return &usecase.CashResult{
		Success: true,
		Ledger:  &domain.CashLedger{ID: input.LedgerID, Balance: input.Amount, Denominations: input.Denominations},
	}, nil
}

func (s *countingCashService) CashOut(ctx context.Context, actor domain.Actor, input usecase.CashInput) (*usecase.CashResult, error) {
	return nil, domain.ErrInsufficientFunds
}

func (s *countingCashService) TransferCash(ctx context.Context, actor domain.Actor, input usecase.TransferCashInput) (*usecase.CashResult, error) {
	return nil, domain.ErrSameLedger
}
