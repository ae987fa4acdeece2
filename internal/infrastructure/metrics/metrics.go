package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Cash ledger metrics
	CashOperations    *prometheus.CounterVec
	CashAmount        *prometheus.HistogramVec
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	LedgersOpened     *prometheus.CounterVec

	// Replenishment metrics
	ReplenishmentsRequested *prometheus.CounterVec
	ReplenishmentsApproved  *prometheus.CounterVec
	ReplenishmentsRejected  *prometheus.CounterVec

	// Exchange metrics
	ExchangesCompleted  prometheus.Counter
	ExchangeSubstituted prometheus.Counter

	// Collaborator metrics
	PostingFailures prometheus.Counter
	AuditFailures   prometheus.Counter
	OutboxPublished *prometheus.CounterVec
	TxRetries       prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers all metrics on reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// Cash ledger metrics
		CashOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashdesk_cash_operations_total",
				Help: "Total committed cash operations by type",
			},
			[]string{"operation"},
		),
		CashAmount: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cashdesk_cash_amount",
				Help:    "Cash amounts moved per operation",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"operation"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cashdesk_operation_duration_seconds",
				Help:    "Duration of cash operations including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OperationErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashdesk_operation_errors_total",
				Help: "Total failed cash operations by kind",
			},
			[]string{"operation", "kind"},
		),
		LedgersOpened: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashdesk_ledgers_opened_total",
				Help: "Total cash ledgers opened by role",
			},
			[]string{"role"},
		),

		// Replenishment metrics
		ReplenishmentsRequested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashdesk_replenishments_requested_total",
				Help: "Total replenishment requests by kind",
			},
			[]string{"kind"},
		),
		ReplenishmentsApproved: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashdesk_replenishments_approved_total",
				Help: "Total approved replenishments by kind",
			},
			[]string{"kind"},
		),
		ReplenishmentsRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashdesk_replenishments_rejected_total",
				Help: "Total rejected replenishments by kind",
			},
			[]string{"kind"},
		),

		// Exchange metrics
		ExchangesCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "cashdesk_exchanges_total",
			Help: "Total denomination exchanges",
		}),
		ExchangeSubstituted: f.NewCounter(prometheus.CounterOpts{
			Name: "cashdesk_exchanges_substituted_total",
			Help: "Exchanges paid out with a substitute breakdown",
		}),

		// Collaborator metrics
		PostingFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "cashdesk_accounting_posting_failures_total",
			Help: "Accounting postings that failed after the cash movement committed",
		}),
		AuditFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "cashdesk_audit_failures_total",
			Help: "Audit entries that could not be written",
		}),
		OutboxPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashdesk_outbox_published_total",
				Help: "Outbox events published by status",
			},
			[]string{"status"},
		),
		TxRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "cashdesk_tx_retries_total",
			Help: "Transactions retried after serialization failures",
		}),

		// API metrics
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashdesk_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cashdesk_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Redis metrics
		RedisOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashdesk_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashdesk_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Rate limiting metrics
		RateLimitHits: f.NewCounter(
			prometheus.CounterOpts{
				Name: "cashdesk_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
		),
	}
}
