package domain

import (
	"github.com/shopspring/decimal"
)

// Shortfall maps a denomination to the number of pieces missing to satisfy a request.
type Shortfall map[Denomination]int64

// Total returns the value of the missing pieces.
func (s Shortfall) Total() decimal.Decimal {
	return DenominationSet(s).Total()
}

// CheckSufficiency compares requested against available one denomination at a
// time. It reports every denomination where available falls short, even when
// the aggregate value would cover the request.
func CheckSufficiency(requested, available DenominationSet) (Shortfall, bool) {
	shortfall := Shortfall{}
	for d, want := range requested {
		if have := available[d]; have < want {
			shortfall[d] = want - have
		}
	}
	return shortfall, len(shortfall) == 0
}

// GreedyReconciler builds a substitute breakdown by taking as many of the
// largest available denomination as fit, then moving down. It can miss an
// exact combination that only smaller denominations reach.
type GreedyReconciler struct{}

// CheckSufficiency implements the per-denomination check.
func (GreedyReconciler) CheckSufficiency(requested, available DenominationSet) (Shortfall, bool) {
	return CheckSufficiency(requested, available)
}

// OptimizeSubstitute returns a set whose Total equals amount, or false when the
// greedy walk cannot reduce the remainder to zero.
func (GreedyReconciler) OptimizeSubstitute(amount decimal.Decimal, available DenominationSet) (DenominationSet, bool) {
	remaining, ok := wholeUnits(amount)
	if !ok {
		return nil, false
	}
	return greedy(remaining, available)
}

func greedy(remaining int64, available DenominationSet) (DenominationSet, bool) {
	out := DenominationSet{}
	for _, d := range denominations {
		if remaining == 0 {
			break
		}
		have := available[d]
		if have <= 0 || int64(d) > remaining {
			continue
		}
		take := remaining / int64(d)
		if take > have {
			take = have
		}
		out[d] = take
		remaining -= take * int64(d)
	}
	if remaining != 0 {
		return nil, false
	}
	return out, true
}

// DefaultExactMaxStates bounds the memo table of ExactReconciler.
const DefaultExactMaxStates = 200_000

// ExactReconciler finds a breakdown with the fewest pieces using a bounded
// depth-first search over (denomination index, remaining amount). When the
// search space exceeds MaxStates it falls back to the greedy result.
type ExactReconciler struct {
	MaxStates int
}

// CheckSufficiency implements the per-denomination check.
func (ExactReconciler) CheckSufficiency(requested, available DenominationSet) (Shortfall, bool) {
	return CheckSufficiency(requested, available)
}

// OptimizeSubstitute returns a minimal-piece set whose Total equals amount, or
// false when no combination of available stock reaches it.
func (r ExactReconciler) OptimizeSubstitute(amount decimal.Decimal, available DenominationSet) (DenominationSet, bool) {
	target, ok := wholeUnits(amount)
	if !ok {
		return nil, false
	}
	if target == 0 {
		return DenominationSet{}, true
	}

	limit := r.MaxStates
	if limit <= 0 {
		limit = DefaultExactMaxStates
	}

	s := &exactSearch{
		available: available,
		memo:      make(map[exactKey]int64),
		limit:     limit,
	}
	best := s.solve(0, target)
	if s.exhausted {
		return greedy(target, available)
	}
	if best == unreachable {
		return nil, false
	}
	return s.rebuild(target), true
}

const unreachable = int64(-1)

type exactKey struct {
	idx       int
	remaining int64
}

type exactSearch struct {
	available DenominationSet
	memo      map[exactKey]int64
	limit     int
	steps     int
	exhausted bool
}

// solve returns the minimal number of pieces to make remaining from
// denominations[idx:], or unreachable.
func (s *exactSearch) solve(idx int, remaining int64) int64 {
	if remaining == 0 {
		return 0
	}
	if idx >= len(denominations) || s.exhausted {
		return unreachable
	}

	key := exactKey{idx: idx, remaining: remaining}
	if v, ok := s.memo[key]; ok {
		return v
	}
	if len(s.memo) >= s.limit {
		s.exhausted = true
		return unreachable
	}

	d := int64(denominations[idx])
	maxTake := remaining / d
	if have := s.available[denominations[idx]]; have < maxTake {
		maxTake = have
	}

	if idx == len(denominations)-1 {
		if maxTake*d != remaining {
			return unreachable
		}
		return maxTake
	}

	best := unreachable
	for take := maxTake; take >= 0; take-- {
		s.steps++
		if s.steps > s.limit*8 {
			s.exhausted = true
			return unreachable
		}
		rest := s.solve(idx+1, remaining-take*d)
		if rest == unreachable {
			continue
		}
		if best == unreachable || take+rest < best {
			best = take + rest
		}
	}

	s.memo[key] = best
	return best
}

func (s *exactSearch) rebuild(target int64) DenominationSet {
	out := DenominationSet{}
	remaining := target
	for idx := 0; idx < len(denominations) && remaining > 0; idx++ {
		d := int64(denominations[idx])
		want := s.solve(idx, remaining)
		maxTake := remaining / d
		if have := s.available[denominations[idx]]; have < maxTake {
			maxTake = have
		}
		for take := maxTake; take >= 0; take-- {
			rest := s.solve(idx+1, remaining-take*d)
			if rest != unreachable && take+rest == want {
				if take > 0 {
					out[denominations[idx]] = take
				}
				remaining -= take * d
				break
			}
		}
	}
	return out
}

// wholeUnits converts a positive whole amount into int64. Fractional or
// non-positive amounts cannot be paid in the catalogue's units.
func wholeUnits(amount decimal.Decimal) (int64, bool) {
	if amount.IsNegative() || !amount.IsInteger() {
		return 0, false
	}
	return amount.IntPart(), true
}
