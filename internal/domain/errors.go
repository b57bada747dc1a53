package domain

import (
	"errors"
	"fmt"
	"time"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency. Business rejections
// wrap one of these sentinels so callers can match with errors.Is while still
// receiving the structured detail carried by Rejection.

var (
	// Ledger errors
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrDuplicateSource     = errors.New("ledger entry already exists for source")
	ErrAccountNotFound     = errors.New("account not found")

	// Check-in errors
	ErrAlreadyCheckedIn = errors.New("already checked in today")

	// Task errors
	ErrTaskNotFound              = errors.New("task not found")
	ErrTaskInactive              = errors.New("task is inactive")
	ErrTaskNotStarted            = errors.New("task has not started")
	ErrTaskExpired               = errors.New("task has expired")
	ErrTaskCooldownActive        = errors.New("task cooldown active")
	ErrTaskMaxCompletionsReached = errors.New("task completed maximum times")

	// Allocation errors
	ErrPoolExhausted      = errors.New("no eligible prize candidates remain")
	ErrActivityNotFound   = errors.New("lottery activity not found")
	ErrActivityNotRunning = errors.New("lottery activity is not running")
	ErrDrawLimitReached   = errors.New("draw limit reached for activity")

	// Mall errors
	ErrExchangeLimitReached  = errors.New("exchange limit reached for product")
	ErrProductNotFound       = errors.New("points product not found")
	ErrProductUnavailable    = errors.New("points product is off shelf")
	ErrOutOfStock            = errors.New("insufficient product stock")
	ErrMinBalanceNotMet      = errors.New("minimum point balance not met")
	ErrExchangeNotFound      = errors.New("exchange not found")
	ErrExchangeNotRefundable = errors.New("exchange cannot be refunded")
	ErrInvalidQuantity       = errors.New("quantity must be positive")

	// Blind box errors
	ErrOrderNotFound  = errors.New("recharge order not found")
	ErrOrderFinalized = errors.New("recharge order already finalized")
	ErrBoxNotFound    = errors.New("blind box not found")
	ErrBoxNotOwned    = errors.New("blind box belongs to another account")
	ErrBoxNotOpenable = errors.New("blind box already opened or expired")
	ErrBoxExpired     = errors.New("blind box has expired")

	// Invitation errors
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationNotOwned   = errors.New("invitation belongs to another account")
	ErrInvitationIncomplete = errors.New("invitation has not completed")
	ErrRewardAlreadyClaimed = errors.New("invitation reward already claimed")

	// Ledger integrity
	ErrBalanceMismatch = errors.New("balance projection does not match ledger sum")
)

// ─── Rejection ──────────────────────────────────────────────────────────────

// Rejection is an expected, user-facing business outcome. It wraps a sentinel
// error and carries enough structured detail for a caller to render a message
// without re-deriving it. System faults are plain errors and never a
// Rejection; nothing is committed when either is returned.
type Rejection struct {
	Err               error         `json:"-"`
	Reason            string        `json:"reason"`
	CooldownRemaining time.Duration `json:"cooldown_remaining,omitempty"`
	PointsNeeded      int64         `json:"points_needed,omitempty"`
	PointsBalance     int64         `json:"points_balance,omitempty"`
	ConsecutiveDays   int64         `json:"consecutive_days,omitempty"`
	Limit             int64         `json:"limit,omitempty"`
	ClaimedAt         time.Time     `json:"claimed_at,omitempty"`
}

// Reject builds a Rejection around a sentinel.
func Reject(sentinel error) *Rejection {
	return &Rejection{Err: sentinel, Reason: sentinel.Error()}
}

// Error implements error.
func (r *Rejection) Error() string {
	if r.CooldownRemaining > 0 {
		return fmt.Sprintf("%s (%s remaining)", r.Reason, r.CooldownRemaining)
	}
	return r.Reason
}

// Unwrap exposes the sentinel for errors.Is matching.
func (r *Rejection) Unwrap() error { return r.Err }

// IsRejection reports whether err is (or wraps) a business rejection, and
// returns it when so.
func IsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
