package domain

import "time"

// ─── Check-In Streak ────────────────────────────────────────────────────────

// DayFormat is the calendar-day key used for check-in idempotency.
const DayFormat = "2006-01-02"

// StreakState is the per-account check-in streak, derived from check-in
// history and written atomically with each check-in's ledger entry.
type StreakState struct {
	AccountID       string `json:"account_id"`
	LastCheckInDate string `json:"last_check_in_date"` // DayFormat, empty if never
	ConsecutiveDays int64  `json:"consecutive_days"`
}

// NextConsecutive returns the streak count a check-in on day would produce:
// previous+1 when the last check-in was exactly yesterday, else 1.
func (s StreakState) NextConsecutive(day time.Time) int64 {
	if s.LastCheckInDate == "" {
		return 1
	}
	yesterday := day.AddDate(0, 0, -1).Format(DayFormat)
	if s.LastCheckInDate == yesterday {
		return s.ConsecutiveDays + 1
	}
	return 1
}

// CycleDay maps a consecutive-day count onto the 7-day display cycle:
// day index = (consecutive - 1) mod 7 + 1. The cycle restarts after a missed
// day because the streak itself resets.
func CycleDay(consecutive int64) int64 {
	if consecutive < 1 {
		return 1
	}
	return (consecutive-1)%7 + 1
}

// CheckInRecord is one row of check-in history.
type CheckInRecord struct {
	ID              int64     `json:"id"`
	AccountID       string    `json:"account_id"`
	Day             string    `json:"day"` // DayFormat
	ConsecutiveDays int64     `json:"consecutive_days"`
	PointsEarned    int64     `json:"points_earned"`
	CreatedAt       time.Time `json:"created_at"`
}
