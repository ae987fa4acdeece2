// Package accounting books cash movements in the external general ledger.
package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/iho/cashdesk/internal/domain"
)

// ErrPostingRejected is returned when the accounting system answers but
// refuses the posting.
var ErrPostingRejected = errors.New("accounting posting rejected")

// BreakerConfig configures the circuit breaker around the accounting API.
type BreakerConfig struct {
	MaxFailures      uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// HTTPPoster posts JSON to the accounting API behind a circuit breaker.
type HTTPPoster struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewHTTPPoster creates a new HTTPPoster for url.
func NewHTTPPoster(url string, timeout time.Duration, cfg BreakerConfig, logger zerolog.Logger) *HTTPPoster {
	logger = logger.With().Str("component", "accounting_poster").Logger()

	settings := gobreaker.Settings{
		Name:        "accounting",
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// A refused posting means the service is up.
			return err == nil || errors.Is(err, ErrPostingRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &HTTPPoster{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Post sends req and decodes the accounting system's answer. An open breaker
// fails fast with gobreaker.ErrOpenState.
func (p *HTTPPoster) Post(ctx context.Context, req domain.PostingRequest) (domain.PostingResult, error) {
	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.post(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.PostingResult{}, fmt.Errorf("accounting service unavailable: %w", err)
		}
		if res, ok := out.(domain.PostingResult); ok {
			return res, err
		}
		return domain.PostingResult{}, err
	}

	return out.(domain.PostingResult), nil
}

// State reports the breaker state, for health checks.
func (p *HTTPPoster) State() gobreaker.State {
	return p.breaker.State()
}

func (p *HTTPPoster) post(ctx context.Context, req domain.PostingRequest) (domain.PostingResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.PostingResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return domain.PostingResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.Reference)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return domain.PostingResult{}, fmt.Errorf("post to accounting: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.PostingResult{}, fmt.Errorf("read accounting response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return domain.PostingResult{}, fmt.Errorf("accounting returned status %d", resp.StatusCode)
	}

	var result domain.PostingResult
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return domain.PostingResult{}, fmt.Errorf("decode accounting response: %w", err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest || !result.Success {
		if result.Message == "" {
			result.Message = http.StatusText(resp.StatusCode)
		}
		return result, fmt.Errorf("%w: %s", ErrPostingRejected, result.Message)
	}

	return result, nil
}

// LogPoster accepts every posting and only logs it. Used when no accounting
// URL is configured.
type LogPoster struct {
	logger zerolog.Logger
}

// NewLogPoster creates a new LogPoster.
func NewLogPoster(logger zerolog.Logger) *LogPoster {
	return &LogPoster{logger: logger.With().Str("component", "accounting_poster").Logger()}
}

// Post logs req and reports success.
func (p *LogPoster) Post(ctx context.Context, req domain.PostingRequest) (domain.PostingResult, error) {
	p.logger.Info().
		Str("event_code", req.EventCode).
		Str("amount", req.Amount.String()).
		Str("reference", req.Reference).
		Str("branch_id", req.BranchID).
		Msg("accounting posting")

	return domain.PostingResult{Success: true, Message: "logged"}, nil
}
