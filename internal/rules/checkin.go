package rules

import (
	"fmt"
	"time"

	"github.com/lunamall/lunamall/internal/domain"
)

// ─── Check-In Rule ──────────────────────────────────────────────────────────

// CheckInResult is the computed effect of a successful check-in.
type CheckInResult struct {
	Intent          Intent
	ConsecutiveDays int64
	Day             string // calendar day key, doubles as the source ref
}

// CheckIn evaluates a check-in attempt for the account at now, given its
// current streak state. Rejects with ErrAlreadyCheckedIn when the streak
// already covers today; otherwise returns the intended ledger entry and the
// new streak count. The day key is the idempotency ref, so a concurrent
// duplicate is also caught by the ledger's duplicate-source guard.
func CheckIn(accountID string, state domain.StreakState, now time.Time) (CheckInResult, error) {
	day := now.Format(domain.DayFormat)
	if state.LastCheckInDate == day {
		rej := domain.Reject(domain.ErrAlreadyCheckedIn)
		rej.ConsecutiveDays = state.ConsecutiveDays
		return CheckInResult{}, rej
	}

	consecutive := state.NextConsecutive(now)
	reward := CheckInReward(consecutive)

	return CheckInResult{
		Intent: Intent{
			AccountID:   accountID,
			Delta:       reward,
			SourceKind:  domain.SourceCheckIn,
			SourceRef:   day,
			Description: fmt.Sprintf("check-in day %d of streak", consecutive),
		},
		ConsecutiveDays: consecutive,
		Day:             day,
	}, nil
}
