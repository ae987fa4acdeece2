package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// Denomination is the face value of a note or coin in whole currency units.
type Denomination int64

// Supported denominations, largest first.
const (
	Note10000 Denomination = 10000
	Note5000  Denomination = 5000
	Note2000  Denomination = 2000
	Note1000  Denomination = 1000
	Note500   Denomination = 500
	Note200   Denomination = 200
	Note100   Denomination = 100
	Note50    Denomination = 50
	Coin20    Denomination = 20
	Coin10    Denomination = 10
	Coin5     Denomination = 5
	Coin1     Denomination = 1
)

var denominations = []Denomination{
	Note10000, Note5000, Note2000, Note1000, Note500, Note200,
	Note100, Note50, Coin20, Coin10, Coin5, Coin1,
}

var knownDenominations = func() map[Denomination]bool {
	m := make(map[Denomination]bool, len(denominations))
	for _, d := range denominations {
		m[d] = true
	}
	return m
}()

// Denominations returns the supported denominations ordered from largest to smallest.
func Denominations() []Denomination {
	out := make([]Denomination, len(denominations))
	copy(out, denominations)
	return out
}

// Valid reports whether d is part of the supported catalogue.
func (d Denomination) Valid() bool {
	return knownDenominations[d]
}

// Value returns the face value as a decimal.
func (d Denomination) Value() decimal.Decimal {
	return decimal.NewFromInt(int64(d))
}

func (d Denomination) String() string {
	if d >= Note50 {
		return "note_" + strconv.FormatInt(int64(d), 10)
	}
	return "coin_" + strconv.FormatInt(int64(d), 10)
}

// DenominationSet holds a count per denomination. A nil set is an empty set.
type DenominationSet map[Denomination]int64

// DenominationCount is a single (denomination, count) pair.
type DenominationCount struct {
	Denomination Denomination
	Count        int64
}

// NewDenominationSet builds a set from counts and validates it.
func NewDenominationSet(counts map[Denomination]int64) (DenominationSet, error) {
	s := make(DenominationSet, len(counts))
	for d, c := range counts {
		if c == 0 {
			continue
		}
		s[d] = c
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects unknown denominations and negative counts.
func (s DenominationSet) Validate() error {
	for d, c := range s {
		if !d.Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownDenomination, d)
		}
		if c < 0 {
			return fmt.Errorf("%w: %s=%d", ErrNegativeCount, d, c)
		}
	}
	return nil
}

// Count returns the count held for d.
func (s DenominationSet) Count(d Denomination) int64 {
	return s[d]
}

// Total returns sum(count * value) over every denomination.
func (s DenominationSet) Total() decimal.Decimal {
	total := decimal.Zero
	for d, c := range s {
		total = total.Add(d.Value().Mul(decimal.NewFromInt(c)))
	}
	return total
}

// Clone returns a copy without zero entries.
func (s DenominationSet) Clone() DenominationSet {
	out := make(DenominationSet, len(s))
	for d, c := range s {
		if c != 0 {
			out[d] = c
		}
	}
	return out
}

// IsZero reports whether the set holds no notes or coins.
func (s DenominationSet) IsZero() bool {
	for _, c := range s {
		if c != 0 {
			return false
		}
	}
	return true
}

// Equal compares two sets, treating missing entries as zero.
func (s DenominationSet) Equal(other DenominationSet) bool {
	for d, c := range s {
		if other[d] != c {
			return false
		}
	}
	for d, c := range other {
		if s[d] != c {
			return false
		}
	}
	return true
}

// Entries returns the non-zero counts ordered from largest denomination down.
// Entries outside the catalogue are appended after it in descending order.
func (s DenominationSet) Entries() []DenominationCount {
	out := make([]DenominationCount, 0, len(s))
	for _, d := range denominations {
		if c := s[d]; c != 0 {
			out = append(out, DenominationCount{Denomination: d, Count: c})
		}
	}

	var unknown []Denomination
	for d, c := range s {
		if !d.Valid() && c != 0 {
			unknown = append(unknown, d)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] > unknown[j] })
	for _, d := range unknown {
		out = append(out, DenominationCount{Denomination: d, Count: s[d]})
	}

	return out
}

// ValidateAmountMatches fails with ErrDenominationMismatch when the set does
// not add up to amount.
func ValidateAmountMatches(amount decimal.Decimal, set DenominationSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	total := set.Total()
	if !total.Equal(amount) {
		return fmt.Errorf("%w: declared %s, denominations total %s", ErrDenominationMismatch, amount, total)
	}
	return nil
}

// Diff returns a - b per denomination. Counts may be negative; zero
// differences are omitted.
func Diff(a, b DenominationSet) map[Denomination]int64 {
	out := make(map[Denomination]int64)
	for d, c := range a {
		if delta := c - b[d]; delta != 0 {
			out[d] = delta
		}
	}
	for d, c := range b {
		if _, seen := a[d]; !seen && c != 0 {
			out[d] = -c
		}
	}
	return out
}

// Sign selects whether Merge adds or removes the delta.
type Sign int

const (
	SignAdd      Sign = 1
	SignSubtract Sign = -1
)

// Merge applies delta to set in the given direction and returns a new set.
// Neither input is modified. A count that would become negative fails with
// ErrDenominationUnderflow.
func Merge(set, delta DenominationSet, sign Sign) (DenominationSet, error) {
	if err := delta.Validate(); err != nil {
		return nil, err
	}

	out := set.Clone()
	for d, c := range delta {
		if sign == SignAdd && c > math.MaxInt64-out[d] {
			return nil, fmt.Errorf("%w: %s count overflows", ErrAmountTooLarge, d)
		}
		next := out[d] + int64(sign)*c
		if next < 0 {
			return nil, fmt.Errorf("%w: %s would be %d", ErrDenominationUnderflow, d, next)
		}
		if next == 0 {
			delete(out, d)
			continue
		}
		out[d] = next
	}
	return out, nil
}
