package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lunamall/lunamall/internal/domain"
	"github.com/lunamall/lunamall/internal/infra/sqlite"
	"github.com/lunamall/lunamall/internal/rules"
)

// ─── Invitations ────────────────────────────────────────────────────────────

// RegisterInvitation creates the pending edge when an invitee signs up with
// an inviter's code. An invitee can hold at most one edge; a second
// registration is rejected as a duplicate.
func (c *Coordinator) RegisterInvitation(ctx context.Context, inviterID, inviteeID string) (domain.InvitationEdge, error) {
	start := time.Now()
	now := c.clock()

	edge := domain.InvitationEdge{
		ID:           uuid.NewString(),
		InviterID:    inviterID,
		InviteeID:    inviteeID,
		Status:       domain.InvitationPending,
		RewardPoints: c.cfg.InviterReward,
		InviteeBonus: c.cfg.InviteeBonus,
		CreatedAt:    now,
	}
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		return tx.InsertInvitation(edge)
	})
	c.finish("register_invitation", inviterID, start, err)
	return edge, err
}

// CompleteInvitation flips the invitee's pending edge to completed. Driven by
// the invitee reaching the qualifying milestone (first order, verification),
// which lives outside this core.
func (c *Coordinator) CompleteInvitation(ctx context.Context, inviteeID string) (domain.InvitationEdge, error) {
	start := time.Now()

	var edge domain.InvitationEdge
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		var err error
		edge, err = tx.InvitationByInvitee(inviteeID)
		if err != nil {
			return err
		}
		if edge.Status != domain.InvitationPending {
			return nil // already completed or expired; idempotent
		}
		edge.Status = domain.InvitationCompleted
		return tx.SetInvitationStatus(edge.ID, domain.InvitationCompleted)
	})
	c.finish("complete_invitation", inviteeID, start, err)
	return edge, err
}

// ClaimResult is the committed outcome of an invitation reward claim.
type ClaimResult struct {
	Entry      domain.LedgerEntry `json:"entry"` // inviter's payout entry
	NewBalance int64              `json:"new_balance"`
}

// ClaimInvitationReward pays out a completed invitation: the inviter's reward
// and the invitee's bonus, exactly once. The claimed_at conditional update is
// the race guard; the ledger's at-most-once refs back it up, so re-driving a
// payout that half-failed applies only the missing side.
func (c *Coordinator) ClaimInvitationReward(ctx context.Context, accountID, invitationID string) (ClaimResult, error) {
	start := time.Now()
	now := c.clock()

	var result ClaimResult
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		edge, err := tx.Invitation(invitationID)
		if err != nil {
			return err
		}
		if err := rules.ClaimableInvitation(accountID, edge); err != nil {
			return err
		}
		won, err := tx.MarkInvitationClaimed(edge.ID, now)
		if err != nil {
			return err
		}
		if !won {
			return domain.Reject(domain.ErrRewardAlreadyClaimed)
		}

		for _, intent := range rules.InvitationPayouts(edge) {
			entry, err := c.append(tx, intent, now)
			if errors.Is(err, domain.ErrDuplicateSource) {
				continue
			}
			if err != nil {
				return err
			}
			if intent.AccountID == accountID {
				result = ClaimResult{Entry: entry, NewBalance: entry.BalanceAfter}
			}
		}
		return nil
	})
	c.finish("claim_invitation_reward", accountID, start, err)
	return result, err
}
