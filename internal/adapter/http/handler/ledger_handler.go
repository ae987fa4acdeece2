package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashdesk/internal/adapter/http/dto"
	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

// LedgerService defines the behavior needed to open and read ledgers.
type LedgerService interface {
	OpenVault(ctx context.Context, actor domain.Actor, branchID string) (*domain.CashLedger, error)
	OpenTellerLedger(ctx context.Context, actor domain.Actor, tellerID string) (*domain.CashLedger, error)
	GetLedger(ctx context.Context, id string) (*domain.CashLedger, error)
}

// CashQueryService answers read-only questions about a ledger's cash.
type CashQueryService interface {
	ListOperations(ctx context.Context, ledgerID string, limit, offset int) ([]*domain.LedgerOperation, error)
	GetBalance(ctx context.Context, ledgerID string) (decimal.Decimal, error)
	VerifySufficientFunds(ctx context.Context, ledgerID string, amount decimal.Decimal) error
}

// ReconciliationService checks ledgers against their history.
type ReconciliationService interface {
	ReconcileLedger(ctx context.Context, ledgerID string) (*usecase.ReconciliationResult, error)
	GenerateReport(ctx context.Context, branchID string) (*usecase.ReconciliationReport, error)
}

// LedgerHandler handles ledger onboarding and read requests.
type LedgerHandler struct {
	ledgers   LedgerService
	history   CashQueryService
	reconcile ReconciliationService
	logger    zerolog.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgers LedgerService, history CashQueryService, reconcile ReconciliationService, logger zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{ledgers: ledgers, history: history, reconcile: reconcile, logger: logger}
}

// OpenVault opens the vault of a branch.
func (h *LedgerHandler) OpenVault(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	var req dto.OpenVaultRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ledger, err := h.ledgers.OpenVault(r.Context(), actor, req.BranchID)
	if err != nil {
		writeDomainError(w, h.logger, "failed to open vault", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.LedgerEnvelope{Envelope: dto.Success("vault opened"), Ledger: dto.LedgerFromDomain(ledger)})
}

// OpenTellerLedger opens the ledger of a teller.
func (h *LedgerHandler) OpenTellerLedger(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	var req dto.OpenTellerLedgerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ledger, err := h.ledgers.OpenTellerLedger(r.Context(), actor, req.TellerID)
	if err != nil {
		writeDomainError(w, h.logger, "failed to open teller ledger", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.LedgerEnvelope{Envelope: dto.Success("teller ledger opened"), Ledger: dto.LedgerFromDomain(ledger)})
}

// Get returns a ledger with its balance and counts.
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.ledgers.GetLedger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to get ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgerEnvelope{Envelope: dto.Success("ok"), Ledger: dto.LedgerFromDomain(ledger)})
}

// ListOperations returns a page of a ledger's history, newest first.
func (h *LedgerHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	ops, err := h.history.ListOperations(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeDomainError(w, h.logger, "failed to list operations", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OperationsEnvelope{Envelope: dto.Success("ok"), Operations: dto.OperationsFromDomain(ops)})
}

// Balance returns the ledger balance. With ?amount= it also reports whether
// the balance covers that amount.
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	balance, err := h.history.GetBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, "failed to get balance", err)
		return
	}
	resp := dto.BalanceEnvelope{Envelope: dto.Success("ok"), LedgerID: id, Balance: balance}

	if raw := r.URL.Query().Get("amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			writeDomainError(w, h.logger, "invalid amount", fmt.Errorf("%w: %s", domain.ErrInvalidAmount, raw))
			return
		}
		sufficient := true
		if err := h.history.VerifySufficientFunds(r.Context(), id, amount); err != nil {
			if !errors.Is(err, domain.ErrInsufficientFunds) {
				writeDomainError(w, h.logger, "failed to verify funds", err)
				return
			}
			sufficient = false
			resp.Message = "insufficient funds"
		}
		resp.Requested = &amount
		resp.Sufficient = &sufficient
	}

	writeJSON(w, http.StatusOK, resp)
}

// Reconcile checks one ledger.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconcile.ReconcileLedger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to reconcile ledger", err)
		return
	}

	message := "ledger reconciled"
	if !result.IsReconciled {
		message = "discrepancy found"
	}
	writeJSON(w, http.StatusOK, dto.ReconciliationEnvelope{Envelope: dto.Success(message), Result: dto.ReconciliationFromUseCase(result)})
}

// BranchReport reconciles every ledger of a branch.
func (h *LedgerHandler) BranchReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconcile.GenerateReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to reconcile branch", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReportFromUseCase(report))
}
