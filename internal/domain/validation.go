package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrAmountTooLarge  = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall  = errors.New("amount below minimum allowed")
	ErrInvalidIDFormat = errors.New("invalid ID format")
)

// Validation constants
const (
	MaxCashAmount      = "1000000000000" // 1 trillion
	MaxReferenceLength = 64
	MaxNoteLength      = 500
)

var referenceRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/-]*$`)

// ValidateAmount validates a cash amount. Cash moves in whole units of the
// smallest coin, so fractional amounts are rejected.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !amount.IsInteger() {
		return fmt.Errorf("%w: cash amounts are whole units", ErrAmountTooSmall)
	}

	maxAmount, _ := decimal.NewFromString(MaxCashAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxCashAmount)
	}

	return nil
}

// ValidateReference checks a caller-supplied transaction reference.
func ValidateReference(reference string) error {
	reference = strings.TrimSpace(reference)

	if reference == "" {
		return fmt.Errorf("%w: reference cannot be empty", ErrInvalidReference)
	}

	if len(reference) > MaxReferenceLength {
		return fmt.Errorf("%w: reference exceeds %d characters", ErrInvalidReference, MaxReferenceLength)
	}

	if !referenceRegex.MatchString(reference) {
		return fmt.Errorf("%w: reference contains forbidden characters", ErrInvalidReference)
	}

	return nil
}

// ValidateID checks that an identifier is present and printable.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > 64 {
		return ErrInvalidIDFormat
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
