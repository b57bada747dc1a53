package domain

import "time"

// ─── Invitations ────────────────────────────────────────────────────────────

// InvitationStatus is the lifecycle of an invitation edge.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationCompleted InvitationStatus = "completed"
	InvitationExpired   InvitationStatus = "expired"
)

// InvitationEdge links an inviter to an invitee. Created once when the invitee
// registers with the inviter's code; the reward is paid exactly once, guarded
// by ClaimedAt being zero.
type InvitationEdge struct {
	ID           string           `json:"id"` // uuid; the payout source ref
	InviterID    string           `json:"inviter_id"`
	InviteeID    string           `json:"invitee_id"`
	Status       InvitationStatus `json:"status"`
	RewardPoints int64            `json:"reward_points"` // inviter side
	InviteeBonus int64            `json:"invitee_bonus"` // new-user side
	ClaimedAt    time.Time        `json:"claimed_at"`    // zero until paid out
	CreatedAt    time.Time        `json:"created_at"`
}
