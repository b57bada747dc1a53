package rules

import (
	"github.com/lunamall/lunamall/internal/domain"
)

// ─── Invitation Payout Rule ─────────────────────────────────────────────────

// InvitationPayouts returns the two intended ledger entries for a completed
// invitation: the inviter's reward and the invitee's new-user bonus. Both
// share the edge id as source ref; each side is at-most-once in the ledger,
// so re-driving a crashed payout applies only the missing side. A zero-point
// side produces no intent.
func InvitationPayouts(edge domain.InvitationEdge) []Intent {
	var intents []Intent
	if edge.RewardPoints > 0 {
		intents = append(intents, Intent{
			AccountID:   edge.InviterID,
			Delta:       edge.RewardPoints,
			SourceKind:  domain.SourceInvitation,
			SourceRef:   edge.ID,
			Description: "invitation reward",
		})
	}
	if edge.InviteeBonus > 0 {
		intents = append(intents, Intent{
			AccountID:   edge.InviteeID,
			Delta:       edge.InviteeBonus,
			SourceKind:  domain.SourceNewUserBonus,
			SourceRef:   edge.ID,
			Description: "new user registration bonus",
		})
	}
	return intents
}

// ClaimableInvitation validates that the account may claim the edge's reward
// now. The edge must belong to the inviter, be completed, and be unclaimed.
func ClaimableInvitation(accountID string, edge domain.InvitationEdge) error {
	if edge.InviterID != accountID {
		return domain.Reject(domain.ErrInvitationNotOwned)
	}
	if !edge.ClaimedAt.IsZero() {
		rej := domain.Reject(domain.ErrRewardAlreadyClaimed)
		rej.ClaimedAt = edge.ClaimedAt
		return rej
	}
	if edge.Status != domain.InvitationCompleted {
		return domain.Reject(domain.ErrInvitationIncomplete)
	}
	return nil
}
