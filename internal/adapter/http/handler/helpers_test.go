package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/cashdesk/internal/adapter/http/dto"
	"github.com/iho/cashdesk/internal/domain"
)

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ledgers?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ledgers?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ledgers?offset=-3", nil)
	if got := parseIntQuery(req, "offset", 0); got != 0 {
		t.Fatalf("expected negative to fall back, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"unknown denomination", domain.ErrUnknownDenomination, http.StatusBadRequest},
		{"mismatch", domain.ErrDenominationMismatch, http.StatusBadRequest},
		{"ledger not found", domain.ErrLedgerNotFound, http.StatusNotFound},
		{"duplicate pending", domain.ErrDuplicatePendingRequest, http.StatusConflict},
		{"already finalized", domain.ErrAlreadyFinalized, http.StatusForbidden},
		{"ceiling", domain.ErrCeilingExceeded, http.StatusForbidden},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"wrapped", fmt.Errorf("load: %w", domain.ErrTellerNotFound), http.StatusNotFound},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForKind(domain.KindOf(tt.err)); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	payload := map[string]string{"status": "ok"}

	writeJSON(rr, http.StatusCreated, payload)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %s", ct)
	}

	var decoded map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded["status"] != "ok" {
		t.Fatalf("expected payload to round-trip, got %+v", decoded)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "bad request", "detail")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Status != dto.StatusError || resp.Message != "bad request" || resp.Error != "detail" {
		t.Fatalf("unexpected error body %+v", resp)
	}
}

func TestWriteDomainErrorIncludesShortfall(t *testing.T) {
	rr := httptest.NewRecorder()
	err := &domain.InsufficientDenominationsError{Shortfall: domain.Shortfall{domain.Note1000: 2}}

	writeDomainError(rr, zerolog.Nop(), "cash operation failed", fmt.Errorf("cash out: %w", err))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != string(domain.KindInsufficient) {
		t.Fatalf("expected insufficient kind, got %q", resp.Kind)
	}
	if resp.Shortfall["1000"] != 2 {
		t.Fatalf("expected shortfall of two 1000 notes, got %+v", resp.Shortfall)
	}
}

func TestWriteDomainErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()

	writeDomainError(rr, zerolog.Nop(), "failed", errors.New("pq: connection reset"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "internal error" {
		t.Fatalf("expected detail to be hidden, got %q", resp.Error)
	}
}

func TestActorFrom(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if _, err := actorFrom(req); !errors.Is(err, domain.ErrActorRequired) {
		t.Fatalf("expected ErrActorRequired, got %v", err)
	}

	req.Header.Set(ActorIDHeader, "user-1")
	req.Header.Set(BranchIDHeader, "branch-1")
	actor, err := actorFrom(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ID != "user-1" || actor.BranchID != "branch-1" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}
