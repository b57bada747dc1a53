package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lunamall/lunamall/internal/domain"
)

// ─── Recharge Orders ────────────────────────────────────────────────────────

// InsertRechargeOrder records a new recharge order.
func (t *Tx) InsertRechargeOrder(o domain.RechargeOrder) error {
	_, err := t.tx.Exec(`
		INSERT INTO recharge_orders (id, account_id, phone_number, amount_cents, status, eligible, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.AccountID, o.PhoneNumber, o.AmountCents, o.Status, boolInt(o.Eligible),
		fmtTime(o.CompletedAt), o.CreatedAt.UTC().Format(timeFormat))
	return err
}

// RechargeOrder reads one order inside the transaction.
func (t *Tx) RechargeOrder(orderID string) (domain.RechargeOrder, error) {
	var o domain.RechargeOrder
	var eligible int
	var completedAt, createdAt sql.NullString
	err := t.tx.QueryRow(`
		SELECT id, account_id, phone_number, amount_cents, status, eligible, completed_at, created_at
		FROM recharge_orders WHERE id = ?
	`, orderID).Scan(&o.ID, &o.AccountID, &o.PhoneNumber, &o.AmountCents, &o.Status,
		&eligible, &completedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RechargeOrder{}, domain.Reject(domain.ErrOrderNotFound)
	}
	if err != nil {
		return domain.RechargeOrder{}, fmt.Errorf("reading recharge order: %w", err)
	}
	o.Eligible = eligible == 1
	o.CompletedAt = parseTime(completedAt)
	o.CreatedAt = parseTime(createdAt)
	return o, nil
}

// SetRechargeOrderOutcome finalizes an order's payment state and eligibility.
func (t *Tx) SetRechargeOrderOutcome(orderID string, status domain.RechargeOrderStatus, eligible bool, completedAt time.Time) error {
	_, err := t.tx.Exec(`
		UPDATE recharge_orders SET status = ?, eligible = ?, completed_at = ? WHERE id = ?
	`, status, boolInt(eligible), fmtTime(completedAt), orderID)
	return err
}

// ─── Blind Boxes ────────────────────────────────────────────────────────────

// InsertBlindBox grants a box. The order_id uniqueness makes one box per
// order a hard guarantee.
func (t *Tx) InsertBlindBox(b domain.BlindBox) error {
	_, err := t.tx.Exec(`
		INSERT INTO blind_boxes (id, account_id, order_id, status, expires_at, opened_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.AccountID, b.OrderID, b.Status, fmtTime(b.ExpiresAt), fmtTime(b.OpenedAt),
		b.CreatedAt.UTC().Format(timeFormat))
	return err
}

// BlindBox reads one box inside the transaction.
func (t *Tx) BlindBox(boxID string) (domain.BlindBox, error) {
	var b domain.BlindBox
	var expiresAt, openedAt, createdAt sql.NullString
	err := t.tx.QueryRow(`
		SELECT id, account_id, order_id, status, expires_at, opened_at, created_at
		FROM blind_boxes WHERE id = ?
	`, boxID).Scan(&b.ID, &b.AccountID, &b.OrderID, &b.Status, &expiresAt, &openedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BlindBox{}, domain.Reject(domain.ErrBoxNotFound)
	}
	if err != nil {
		return domain.BlindBox{}, fmt.Errorf("reading blind box: %w", err)
	}
	b.ExpiresAt = parseTime(expiresAt)
	b.OpenedAt = parseTime(openedAt)
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

// MarkBoxOpened flips an unopened box to opened, reporting whether this call
// won the transition. The conditional update keeps a double open from ever
// drawing twice.
func (t *Tx) MarkBoxOpened(boxID string, openedAt time.Time) (bool, error) {
	res, err := t.tx.Exec(`
		UPDATE blind_boxes SET status = ?, opened_at = ? WHERE id = ? AND status = ?
	`, domain.BoxOpened, fmtTime(openedAt), boxID, domain.BoxUnopened)
	if err != nil {
		return false, fmt.Errorf("marking box opened: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkBoxExpired flips an unopened box to expired.
func (t *Tx) MarkBoxExpired(boxID string) error {
	_, err := t.tx.Exec(`
		UPDATE blind_boxes SET status = ? WHERE id = ? AND status = ?
	`, domain.BoxExpired, boxID, domain.BoxUnopened)
	return err
}

// ListBlindBoxes returns the account's boxes, newest first.
func (db *DB) ListBlindBoxes(ctx context.Context, accountID string) ([]domain.BlindBox, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, account_id, order_id, status, expires_at, opened_at, created_at
		FROM blind_boxes WHERE account_id = ? ORDER BY created_at DESC, id
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing blind boxes: %w", err)
	}
	defer rows.Close()

	var boxes []domain.BlindBox
	for rows.Next() {
		var b domain.BlindBox
		var expiresAt, openedAt, createdAt sql.NullString
		if err := rows.Scan(&b.ID, &b.AccountID, &b.OrderID, &b.Status, &expiresAt, &openedAt, &createdAt); err != nil {
			return nil, err
		}
		b.ExpiresAt = parseTime(expiresAt)
		b.OpenedAt = parseTime(openedAt)
		b.CreatedAt = parseTime(createdAt)
		boxes = append(boxes, b)
	}
	return boxes, rows.Err()
}

// ExpireBlindBoxes flips every unopened box whose expiry has passed and
// returns how many were flipped. Timestamps are stored in a sortable format,
// so the comparison happens in SQL.
func (db *DB) ExpireBlindBoxes(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.db.ExecContext(ctx, `
		UPDATE blind_boxes SET status = ?
		WHERE status = ? AND expires_at IS NOT NULL AND expires_at <= ?
	`, domain.BoxExpired, domain.BoxUnopened, fmtTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("expiring blind boxes: %w", err)
	}
	return res.RowsAffected()
}
