// Package rules implements the earning rules engine: stateless computation
// that turns current state plus a request into an intended ledger mutation or
// a business rejection. Nothing in this package touches storage; the
// coordinator applies intents atomically.
package rules

import "github.com/lunamall/lunamall/internal/domain"

// ─── Intents ────────────────────────────────────────────────────────────────

// Intent is one intended ledger entry: who, how much, and why. The coordinator
// turns an Intent into an appended entry inside its transaction.
type Intent struct {
	AccountID   string
	Delta       int64
	SourceKind  domain.SourceKind
	SourceRef   string
	Description string
}

// CheckInBasePoints is the reward for the first day of a streak. Each
// additional consecutive day adds one point, uncapped.
const CheckInBasePoints int64 = 10

// CheckInReward returns the points earned for a check-in on the given
// consecutive day: base + (consecutive - 1).
func CheckInReward(consecutive int64) int64 {
	if consecutive < 1 {
		consecutive = 1
	}
	return CheckInBasePoints + (consecutive - 1)
}
