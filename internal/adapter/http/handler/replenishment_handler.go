package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/cashdesk/internal/adapter/http/dto"
	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/usecase"
)

// ReplenishmentService is one replenishment workflow variant.
type ReplenishmentService interface {
	Kind() domain.ReplenishmentKind
	Request(ctx context.Context, actor domain.Actor, input usecase.RequestInput) (*domain.ReplenishmentRequest, error)
	Approve(ctx context.Context, actor domain.Actor, input usecase.ApproveInput) (*usecase.ApproveResult, error)
	Reject(ctx context.Context, actor domain.Actor, input usecase.RejectInput) (*domain.ReplenishmentRequest, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.ReplenishmentRequest, error)
	ListEvents(ctx context.Context, actor domain.Actor, id string, limit, offset int) ([]*domain.OutboxEvent, error)
	ListPending(ctx context.Context, branchID string, limit, offset int) ([]*domain.ReplenishmentRequest, error)
}

// ReplenishmentHandler serves every workflow variant under /replenishments/{kind}.
type ReplenishmentHandler struct {
	workflows map[domain.ReplenishmentKind]ReplenishmentService
	logger    zerolog.Logger
}

// NewReplenishmentHandler creates a new ReplenishmentHandler.
func NewReplenishmentHandler(logger zerolog.Logger, workflows ...ReplenishmentService) *ReplenishmentHandler {
	h := &ReplenishmentHandler{
		workflows: make(map[domain.ReplenishmentKind]ReplenishmentService, len(workflows)),
		logger:    logger,
	}
	for _, wf := range workflows {
		h.workflows[wf.Kind()] = wf
	}
	return h
}

func (h *ReplenishmentHandler) workflow(w http.ResponseWriter, r *http.Request) (ReplenishmentService, bool) {
	kind := domain.ReplenishmentKind(chi.URLParam(r, "kind"))
	wf, ok := h.workflows[kind]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown replenishment kind", fmt.Sprintf("kind %q", kind))
	}
	return wf, ok
}

// Request opens a replenishment request.
func (h *ReplenishmentHandler) Request(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	var body dto.ReplenishmentRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	input, err := body.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, h.logger, "invalid request", err)
		return
	}

	req, err := wf.Request(r.Context(), actor, input)
	if err != nil {
		writeDomainError(w, h.logger, "failed to request replenishment", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ReplenishmentEnvelope{
		Envelope: dto.Success("replenishment requested"),
		Request:  dto.ReplenishmentFromDomain(req),
	})
}

// Approve moves the confirmed cash and closes the request.
func (h *ReplenishmentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	var body dto.ApproveRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	input, err := body.ToUseCaseInput(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, "invalid request", err)
		return
	}

	res, err := wf.Approve(r.Context(), actor, input)
	if err != nil {
		writeDomainError(w, h.logger, "failed to approve replenishment", err)
		return
	}

	message := "replenishment approved"
	if res.PostingWarning != "" {
		message = "replenishment approved; accounting posting pending"
	}
	writeJSON(w, http.StatusOK, dto.ReplenishmentEnvelope{
		Envelope:       dto.Success(message),
		Request:        dto.ReplenishmentFromDomain(res.Request),
		Operations:     dto.OperationsFromDomain(res.Operations),
		PostingWarning: res.PostingWarning,
	})
}

// Reject closes the request without moving cash.
func (h *ReplenishmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	var body dto.RejectRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	req, err := wf.Reject(r.Context(), actor, body.ToUseCaseInput(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, h.logger, "failed to reject replenishment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReplenishmentEnvelope{
		Envelope: dto.Success("replenishment rejected"),
		Request:  dto.ReplenishmentFromDomain(req),
	})
}

// Get returns a request of this kind.
func (h *ReplenishmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}

	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	req, err := wf.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to get replenishment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReplenishmentEnvelope{Envelope: dto.Success("ok"), Request: dto.ReplenishmentFromDomain(req)})
}

// Events lists the notifications recorded for a request.
func (h *ReplenishmentHandler) Events(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	id := chi.URLParam(r, "id")
	events, err := wf.ListEvents(r.Context(), actor, id, parseIntQuery(r, "limit", 50), parseIntQuery(r, "offset", 0))
	if err != nil {
		writeDomainError(w, h.logger, "failed to list replenishment events", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EventsEnvelope{Envelope: dto.Success("ok"), AggregateID: id, Events: dto.EventsFromDomain(events)})
}

// ListPending lists open requests of this kind in the caller's branch.
func (h *ReplenishmentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeDomainError(w, h.logger, "missing actor", err)
		return
	}

	reqs, err := wf.ListPending(r.Context(), actor.BranchID, parseIntQuery(r, "limit", 20), parseIntQuery(r, "offset", 0))
	if err != nil {
		writeDomainError(w, h.logger, "failed to list replenishments", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReplenishmentsEnvelope{Envelope: dto.Success("ok"), Requests: dto.ReplenishmentsFromDomain(reqs)})
}
