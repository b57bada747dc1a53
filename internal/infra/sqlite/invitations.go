package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lunamall/lunamall/internal/domain"
)

// ─── Invitations ────────────────────────────────────────────────────────────

// InsertInvitation records a new invitation edge. An invitee who already has
// an edge is rejected with ErrDuplicateSource.
func (t *Tx) InsertInvitation(e domain.InvitationEdge) error {
	_, err := t.tx.Exec(`
		INSERT INTO invitations (id, inviter_id, invitee_id, status, reward_points, invitee_bonus, claimed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.InviterID, e.InviteeID, e.Status, e.RewardPoints, e.InviteeBonus,
		fmtTime(e.ClaimedAt), e.CreatedAt.UTC().Format(timeFormat))
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.Reject(domain.ErrDuplicateSource)
	}
	return err
}

func scanInvitation(row interface{ Scan(...any) error }) (domain.InvitationEdge, error) {
	var e domain.InvitationEdge
	var claimedAt, createdAt sql.NullString
	err := row.Scan(&e.ID, &e.InviterID, &e.InviteeID, &e.Status, &e.RewardPoints,
		&e.InviteeBonus, &claimedAt, &createdAt)
	if err != nil {
		return domain.InvitationEdge{}, err
	}
	e.ClaimedAt = parseTime(claimedAt)
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

const invitationColumns = `id, inviter_id, invitee_id, status, reward_points, invitee_bonus, claimed_at, created_at`

// Invitation reads one edge inside the transaction.
func (t *Tx) Invitation(edgeID string) (domain.InvitationEdge, error) {
	e, err := scanInvitation(t.tx.QueryRow(`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, edgeID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InvitationEdge{}, domain.Reject(domain.ErrInvitationNotFound)
	}
	if err != nil {
		return domain.InvitationEdge{}, fmt.Errorf("reading invitation: %w", err)
	}
	return e, nil
}

// InvitationByInvitee looks the edge up from the invitee side.
func (t *Tx) InvitationByInvitee(inviteeID string) (domain.InvitationEdge, error) {
	e, err := scanInvitation(t.tx.QueryRow(`SELECT `+invitationColumns+` FROM invitations WHERE invitee_id = ?`, inviteeID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InvitationEdge{}, domain.Reject(domain.ErrInvitationNotFound)
	}
	if err != nil {
		return domain.InvitationEdge{}, fmt.Errorf("reading invitation: %w", err)
	}
	return e, nil
}

// SetInvitationStatus updates an edge's lifecycle state.
func (t *Tx) SetInvitationStatus(edgeID string, status domain.InvitationStatus) error {
	_, err := t.tx.Exec(`UPDATE invitations SET status = ? WHERE id = ?`, status, edgeID)
	return err
}

// MarkInvitationClaimed stamps the payout time on an unclaimed edge,
// reporting whether this call won the claim. The conditional update is the
// exactly-once guard for concurrent claims.
func (t *Tx) MarkInvitationClaimed(edgeID string, claimedAt time.Time) (bool, error) {
	res, err := t.tx.Exec(`
		UPDATE invitations SET claimed_at = ? WHERE id = ? AND claimed_at IS NULL
	`, fmtTime(claimedAt), edgeID)
	if err != nil {
		return false, fmt.Errorf("marking invitation claimed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListInvitations returns the edges created by an inviter, newest first.
func (db *DB) ListInvitations(ctx context.Context, inviterID string) ([]domain.InvitationEdge, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations WHERE inviter_id = ? ORDER BY created_at DESC, id
	`, inviterID)
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	defer rows.Close()

	var edges []domain.InvitationEdge
	for rows.Next() {
		e, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
