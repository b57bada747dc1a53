package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lunamall/lunamall/internal/domain"
)

// ─── Lottery Activities ─────────────────────────────────────────────────────

const activityColumns = `id, name, description, status, active, start_at, end_at,
	points_cost, max_draws_per_user, created_at`

func scanActivity(row interface{ Scan(...any) error }) (domain.LotteryActivity, error) {
	var a domain.LotteryActivity
	var active int
	var startAt, endAt, createdAt sql.NullString
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Status, &active,
		&startAt, &endAt, &a.PointsCost, &a.MaxDrawsPerUser, &createdAt)
	if err != nil {
		return domain.LotteryActivity{}, err
	}
	a.Active = active == 1
	a.StartAt = parseTime(startAt)
	a.EndAt = parseTime(endAt)
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

// InsertActivity adds a lottery activity.
func (db *DB) InsertActivity(ctx context.Context, a domain.LotteryActivity) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO lottery_activities (id, name, description, status, active, start_at, end_at,
			points_cost, max_draws_per_user, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Description, a.Status, boolInt(a.Active), fmtTime(a.StartAt), fmtTime(a.EndAt),
		a.PointsCost, a.MaxDrawsPerUser, a.CreatedAt.UTC().Format(timeFormat))
	return err
}

// SetActivityStatus updates an activity's publication status.
func (db *DB) SetActivityStatus(ctx context.Context, activityID string, status domain.ActivityStatus) error {
	res, err := db.db.ExecContext(ctx, `UPDATE lottery_activities SET status = ? WHERE id = ?`, status, activityID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrActivityNotFound
	}
	return nil
}

// Activity reads one activity inside the transaction.
func (t *Tx) Activity(activityID string) (domain.LotteryActivity, error) {
	a, err := scanActivity(t.tx.QueryRow(`SELECT `+activityColumns+` FROM lottery_activities WHERE id = ?`, activityID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LotteryActivity{}, domain.Reject(domain.ErrActivityNotFound)
	}
	if err != nil {
		return domain.LotteryActivity{}, fmt.Errorf("reading activity: %w", err)
	}
	return a, nil
}

// ListActivities returns all lottery activities, newest first.
func (db *DB) ListActivities(ctx context.Context) ([]domain.LotteryActivity, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT `+activityColumns+` FROM lottery_activities ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	var activities []domain.LotteryActivity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// ─── Prize Candidates ───────────────────────────────────────────────────────

const candidateColumns = `id, pool_id, name, type, weight, remaining_stock, points_value, active, created_at`

func scanCandidate(row interface{ Scan(...any) error }) (domain.PrizeCandidate, error) {
	var c domain.PrizeCandidate
	var active int
	var createdAt sql.NullString
	err := row.Scan(&c.ID, &c.PoolID, &c.Name, &c.Type, &c.Weight, &c.RemainingStock,
		&c.PointsValue, &active, &createdAt)
	if err != nil {
		return domain.PrizeCandidate{}, err
	}
	c.Active = active == 1
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// InsertCandidate adds a weighted candidate to a pool and returns its id.
func (db *DB) InsertCandidate(ctx context.Context, c domain.PrizeCandidate) (int64, error) {
	res, err := db.db.ExecContext(ctx, `
		INSERT INTO prize_candidates (pool_id, name, type, weight, remaining_stock, points_value, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.PoolID, c.Name, c.Type, c.Weight, c.RemainingStock, c.PointsValue,
		boolInt(c.Active), c.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Candidates reads a pool's candidate snapshot inside the transaction, in
// ascending id order.
func (t *Tx) Candidates(poolID string) ([]domain.PrizeCandidate, error) {
	rows, err := t.tx.Query(`SELECT `+candidateColumns+` FROM prize_candidates WHERE pool_id = ? ORDER BY id`, poolID)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.PrizeCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// ListCandidates reads a pool's candidates outside a transaction.
func (db *DB) ListCandidates(ctx context.Context, poolID string) ([]domain.PrizeCandidate, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT `+candidateColumns+` FROM prize_candidates WHERE pool_id = ? ORDER BY id`, poolID)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.PrizeCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// ReserveStock decrements one unit of the candidate's stock, reporting
// whether the reservation won. Unbounded candidates always succeed. The
// conditional update makes the decrement a compare-and-set: a concurrent
// reservation of the last unit leaves exactly one winner.
func (t *Tx) ReserveStock(candidateID int64) (bool, error) {
	var stock int64
	err := t.tx.QueryRow(`SELECT remaining_stock FROM prize_candidates WHERE id = ?`, candidateID).Scan(&stock)
	if err != nil {
		return false, fmt.Errorf("reading stock: %w", err)
	}
	if stock == domain.UnboundedStock {
		return true, nil
	}

	res, err := t.tx.Exec(`
		UPDATE prize_candidates SET remaining_stock = remaining_stock - 1
		WHERE id = ? AND remaining_stock > 0
	`, candidateID)
	if err != nil {
		return false, fmt.Errorf("reserving stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ─── Allocations & User Prizes ──────────────────────────────────────────────

// InsertAllocation appends one allocation record.
func (t *Tx) InsertAllocation(r domain.AllocationRecord) error {
	_, err := t.tx.Exec(`
		INSERT INTO allocation_records (id, account_id, pool_id, candidate_id, prize_name, prize_type, cost_paid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.AccountID, r.PoolID, r.CandidateID, r.PrizeName, r.PrizeType, r.CostPaid,
		r.CreatedAt.UTC().Format(timeFormat))
	return err
}

// CountAllocations counts the account's draws against a pool inside the
// transaction, enforcing per-user draw limits.
func (t *Tx) CountAllocations(accountID, poolID string) (int64, error) {
	var n int64
	err := t.tx.QueryRow(`
		SELECT COUNT(*) FROM allocation_records WHERE account_id = ? AND pool_id = ?
	`, accountID, poolID).Scan(&n)
	return n, err
}

// InsertUserPrize records a prize owned by an account.
func (t *Tx) InsertUserPrize(p domain.UserPrize) error {
	_, err := t.tx.Exec(`
		INSERT INTO user_prizes (id, account_id, allocation_id, prize_name, prize_type,
			points_value, redemption_code, status, claimed_at, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.AccountID, p.AllocationID, p.PrizeName, p.PrizeType, p.PointsValue,
		p.RedemptionCode, p.Status, fmtTime(p.ClaimedAt), fmtTime(p.ExpiresAt),
		p.CreatedAt.UTC().Format(timeFormat))
	return err
}

// ListUserPrizes returns the account's prizes, newest first.
func (db *DB) ListUserPrizes(ctx context.Context, accountID string) ([]domain.UserPrize, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, account_id, allocation_id, prize_name, prize_type, points_value,
			redemption_code, status, claimed_at, expires_at, created_at
		FROM user_prizes WHERE account_id = ? ORDER BY created_at DESC, id
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing user prizes: %w", err)
	}
	defer rows.Close()

	var prizes []domain.UserPrize
	for rows.Next() {
		var p domain.UserPrize
		var claimedAt, expiresAt, createdAt sql.NullString
		if err := rows.Scan(&p.ID, &p.AccountID, &p.AllocationID, &p.PrizeName, &p.PrizeType,
			&p.PointsValue, &p.RedemptionCode, &p.Status, &claimedAt, &expiresAt, &createdAt); err != nil {
			return nil, err
		}
		p.ClaimedAt = parseTime(claimedAt)
		p.ExpiresAt = parseTime(expiresAt)
		p.CreatedAt = parseTime(createdAt)
		prizes = append(prizes, p)
	}
	return prizes, rows.Err()
}

// EndElapsedActivities closes every active activity whose window has passed
// and returns how many were closed.
func (db *DB) EndElapsedActivities(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.db.ExecContext(ctx, `
		UPDATE lottery_activities SET status = ?
		WHERE status = ? AND end_at IS NOT NULL AND end_at <= ?
	`, domain.ActivityEnded, domain.ActivityActive, fmtTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("ending activities: %w", err)
	}
	return res.RowsAffected()
}
