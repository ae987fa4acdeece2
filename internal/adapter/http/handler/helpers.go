package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/iho/cashdesk/internal/adapter/http/dto"
	"github.com/iho/cashdesk/internal/domain"
)

// Headers carrying the authenticated caller. Authentication happens upstream.
const (
	ActorIDHeader  = "X-Actor-ID"
	BranchIDHeader = "X-Branch-ID"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Envelope: dto.Envelope{Status: dto.StatusError, Message: message},
		Error:    details,
	})
}

// writeDomainError maps err to a status by kind. Internal errors are logged and
// their detail is not sent to the client.
func writeDomainError(w http.ResponseWriter, logger zerolog.Logger, message string, err error) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)

	resp := dto.ErrorResponse{
		Envelope: dto.Envelope{Status: dto.StatusError, Message: message},
		Error:    err.Error(),
		Kind:     string(kind),
	}
	if shortfall, ok := domain.ShortfallOf(err); ok {
		resp.Shortfall = dto.DenominationsFromDomain(domain.DenominationSet(shortfall))
	}
	if kind == domain.KindInternal {
		logger.Error().Err(err).Msg(message)
		resp.Error = "internal error"
	}

	writeJSON(w, status, resp)
}

// statusForKind maps error kinds to HTTP status codes.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindInsufficient:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// actorFrom builds the acting user from the request headers.
func actorFrom(r *http.Request) (domain.Actor, error) {
	actor := domain.Actor{
		ID:       r.Header.Get(ActorIDHeader),
		BranchID: r.Header.Get(BranchIDHeader),
	}
	return actor, actor.Validate()
}

// decodeBody decodes a JSON body, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultValue
	}
	return i
}
