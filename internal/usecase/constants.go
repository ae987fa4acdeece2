package usecase

import (
	"errors"
	"time"
)

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// ReferencePrefixReplenishment prefixes generated replenishment references.
	ReferencePrefixReplenishment = "RPL"
)

// ErrMissingDependency is returned by constructors when a required port is nil.
var ErrMissingDependency = errors.New("missing required dependency")
