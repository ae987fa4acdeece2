package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Denomination errors
	ErrDenominationMismatch  = errors.New("denomination total does not match amount")
	ErrDenominationUnderflow = errors.New("denomination count would become negative")
	ErrUnknownDenomination   = errors.New("unknown denomination")
	ErrNegativeCount         = errors.New("denomination count must not be negative")

	// Ledger errors
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrInsufficientDenominations = errors.New("insufficient denominations")
	ErrLedgerNotFound            = errors.New("cash ledger not found")
	ErrLedgerAlreadyExists       = errors.New("cash ledger already exists")
	ErrLedgerInactive            = errors.New("cash ledger is not active")
	ErrLedgerInvariant           = errors.New("ledger balance does not match denominations")
	ErrDuplicateReference        = errors.New("reference already applied to ledger")
	ErrInvalidAmount             = errors.New("amount must be positive")
	ErrSameLedger                = errors.New("cannot transfer to same ledger")
	ErrChangeNotFound            = errors.New("cash change record not found")

	// Replenishment errors
	ErrDuplicatePendingRequest = errors.New("a pending replenishment request already exists")
	ErrAlreadyFinalized        = errors.New("replenishment request already finalized")
	ErrCeilingExceeded         = errors.New("teller ceiling exceeded")
	ErrReplenishmentNotFound   = errors.New("replenishment request not found")
	ErrTellerKindMismatch      = errors.New("teller kind does not match replenishment kind")

	// Directory errors
	ErrTellerNotFound   = errors.New("teller not found")
	ErrBranchNotFound   = errors.New("branch not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrBranchMismatch   = errors.New("resource belongs to another branch")

	// Request errors
	ErrActorRequired    = errors.New("actor and branch are required")
	ErrInvalidReference = errors.New("invalid reference")
)

// InsufficientDenominationsError reports exactly which notes and coins are missing.
type InsufficientDenominationsError struct {
	Shortfall Shortfall
}

func (e *InsufficientDenominationsError) Error() string {
	parts := make([]string, 0, len(e.Shortfall))
	for _, entry := range DenominationSet(e.Shortfall).Entries() {
		parts = append(parts, fmt.Sprintf("%s=%d", entry.Denomination, entry.Count))
	}
	return ErrInsufficientDenominations.Error() + ": short " + strings.Join(parts, ", ")
}

func (e *InsufficientDenominationsError) Unwrap() error {
	return ErrInsufficientDenominations
}

// NewInsufficientDenominations wraps a shortfall into an error.
func NewInsufficientDenominations(shortfall Shortfall) error {
	return &InsufficientDenominationsError{Shortfall: shortfall}
}

// ShortfallOf extracts the shortfall carried by err, if any.
func ShortfallOf(err error) (Shortfall, bool) {
	var target *InsufficientDenominationsError
	if errors.As(err, &target) {
		return target.Shortfall, true
	}
	return nil, false
}

// ErrorKind classifies errors for callers that translate them into statuses.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindForbidden    ErrorKind = "forbidden"
	KindInsufficient ErrorKind = "insufficient"
	KindInternal     ErrorKind = "internal"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrDenominationMismatch, KindValidation},
	{ErrUnknownDenomination, KindValidation},
	{ErrNegativeCount, KindValidation},
	{ErrInvalidAmount, KindValidation},
	{ErrInvalidReference, KindValidation},
	{ErrActorRequired, KindValidation},
	{ErrSameLedger, KindValidation},
	{ErrTellerKindMismatch, KindValidation},
	{ErrAmountTooLarge, KindValidation},
	{ErrAmountTooSmall, KindValidation},
	{ErrInvalidIDFormat, KindValidation},

	{ErrLedgerNotFound, KindNotFound},
	{ErrReplenishmentNotFound, KindNotFound},
	{ErrTellerNotFound, KindNotFound},
	{ErrBranchNotFound, KindNotFound},
	{ErrCustomerNotFound, KindNotFound},
	{ErrChangeNotFound, KindNotFound},

	{ErrDuplicatePendingRequest, KindConflict},
	{ErrDuplicateReference, KindConflict},
	{ErrLedgerAlreadyExists, KindConflict},

	{ErrAlreadyFinalized, KindForbidden},
	{ErrCeilingExceeded, KindForbidden},
	{ErrBranchMismatch, KindForbidden},
	{ErrLedgerInactive, KindForbidden},

	{ErrInsufficientFunds, KindInsufficient},
	{ErrInsufficientDenominations, KindInsufficient},
}

// KindOf maps err to its kind. Underflow, invariant breaks and anything
// unrecognised are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
