// Package allocator implements weighted random prize selection over a pool of
// candidates. Selection is pure: it reads a snapshot of candidates and a
// random source and names a winner. Stock reservation happens elsewhere, so a
// selected candidate can still lose the race for its last unit; callers
// re-select with the loser excluded.
package allocator

import (
	"sort"

	"github.com/lunamall/lunamall/internal/domain"
)

// ─── Weighted Selection ─────────────────────────────────────────────────────

// IntSource yields a uniform random integer in [0, n). math/rand's Rand
// satisfies it; tests substitute a fixed sequence.
type IntSource interface {
	Int63n(n int64) int64
}

// Select picks one candidate by integer cumulative weight. Ineligible
// candidates (inactive, zero stock, non-positive weight) are filtered out
// before weights are summed, so remaining weights renormalize implicitly.
// Candidates are walked in ascending id order, which fixes the mapping from
// draw value to winner for any given snapshot.
//
// Returns ErrPoolExhausted when no candidate is eligible.
func Select(candidates []domain.PrizeCandidate, src IntSource) (domain.PrizeCandidate, error) {
	eligible := make([]domain.PrizeCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Eligible() && c.Weight > 0 {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return domain.PrizeCandidate{}, domain.ErrPoolExhausted
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })

	var total int64
	for _, c := range eligible {
		total += c.Weight
	}

	draw := src.Int63n(total)
	var cumulative int64
	for _, c := range eligible {
		cumulative += c.Weight
		if draw < cumulative {
			return c, nil
		}
	}
	// Unreachable: draw < total and the last cumulative equals total.
	return eligible[len(eligible)-1], nil
}

// Excluding returns candidates with the given id removed. Used by the draw
// retry loop after a reservation race loss.
func Excluding(candidates []domain.PrizeCandidate, id int64) []domain.PrizeCandidate {
	out := make([]domain.PrizeCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
