package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/cashdesk/internal/adapter/http/dto"
	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

// CashService defines the cash movements exposed over HTTP.
type CashService interface {
	CashIn(ctx context.Context, actor domain.Actor, input usecase.CashInput) (*usecase.CashResult, error)
	CashOut(ctx context.Context, actor domain.Actor, input usecase.CashInput) (*usecase.CashResult, error)
	TransferCash(ctx context.Context, actor domain.Actor, input usecase.TransferCashInput) (*usecase.CashResult, error)
}

// ExchangeService swaps denominations at a desk.
type ExchangeService interface {
	Exchange(ctx context.Context, actor domain.Actor, input usecase.ExchangeInput) (*domain.CashChangeRecord, error)
	GetChange(ctx context.Context, actor domain.Actor, id string) (*domain.CashChangeRecord, error)
}

// CashHandler handles cash movement requests.
type CashHandler struct {
	cash     CashService
	exchange ExchangeService
	logger   zerolog.Logger
}

// NewCashHandler creates a new CashHandler.
func NewCashHandler(cash CashService, exchange ExchangeService, logger zerolog.Logger) *CashHandler {
	return &CashHandler{cash: cash, exchange: exchange, logger: logger}
}

// CashIn records cash received at a ledger.
func (h *CashHandler) CashIn(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "cash received", h.cash.CashIn)
}

// CashOut records cash paid out of a ledger.
func (h *CashHandler) CashOut(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "cash paid out", h.cash.CashOut)
}

func (h *CashHandler) move(w http.ResponseWriter, r *http.Request, message string,
	op func(context.Context, domain.Actor, usecase.CashInput) (*usecase.CashResult, error),
) {
	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	var req dto.CashRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, h.logger, "invalid request", err)
		return
	}

	res, err := op(r.Context(), actor, input)
	if err != nil {
		writeDomainError(w, h.logger, "cash operation failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CashResultFromUseCase(message, res))
}

// Transfer moves cash between two ledgers.
func (h *CashHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	var req dto.TransferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, h.logger, "invalid request", err)
		return
	}

	res, err := h.cash.TransferCash(r.Context(), actor, input)
	if err != nil {
		writeDomainError(w, h.logger, "transfer failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CashResultFromUseCase("cash transferred", res))
}

// Exchange swaps one breakdown for another of equal value.
func (h *CashHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	var req dto.ExchangeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, h.logger, "invalid request", err)
		return
	}

	record, err := h.exchange.Exchange(r.Context(), actor, input)
	if err != nil {
		writeDomainError(w, h.logger, "exchange failed", err)
		return
	}

	message := "cash exchanged"
	if record.Substituted {
		message = "cash exchanged with substitute breakdown"
	}
	writeJSON(w, http.StatusCreated, dto.ChangeEnvelope{Envelope: dto.Success(message), Change: dto.ChangeFromDomain(record)})
}

// GetChange returns an exchange record.
func (h *CashHandler) GetChange(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	record, err := h.exchange.GetChange(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to get exchange", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ChangeEnvelope{Envelope: dto.Success("ok"), Change: dto.ChangeFromDomain(record)})
}
