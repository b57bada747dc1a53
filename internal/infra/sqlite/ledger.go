package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lunamall/lunamall/internal/domain"
)

// ─── Ledger Mutations ───────────────────────────────────────────────────────

// EnsureAccount creates the account projection row if it does not exist.
func (t *Tx) EnsureAccount(accountID string) error {
	_, err := t.tx.Exec(`INSERT OR IGNORE INTO accounts (id) VALUES (?)`, accountID)
	return err
}

// AppendEntry appends one ledger entry and updates the account projection in
// the same transaction. It fills in e.ID and e.BalanceAfter. Debits that
// would push the balance negative are rejected with ErrInsufficientBalance;
// at-most-once source kinds that already have an entry for the same
// (account, kind, ref) are rejected with ErrDuplicateSource.
func (t *Tx) AppendEntry(e *domain.LedgerEntry) error {
	if err := t.EnsureAccount(e.AccountID); err != nil {
		return fmt.Errorf("ensuring account: %w", err)
	}

	if e.SourceKind.AtMostOnce() {
		var exists int
		err := t.tx.QueryRow(`
			SELECT COUNT(*) FROM ledger_entries
			WHERE account_id = ? AND source_kind = ? AND source_ref = ?
		`, e.AccountID, e.SourceKind, e.SourceRef).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking duplicate source: %w", err)
		}
		if exists > 0 {
			return domain.Reject(domain.ErrDuplicateSource)
		}
	}

	var balance int64
	if err := t.tx.QueryRow(`SELECT balance FROM accounts WHERE id = ?`, e.AccountID).Scan(&balance); err != nil {
		return fmt.Errorf("reading balance: %w", err)
	}

	after := balance + e.Delta
	if after < 0 {
		rej := domain.Reject(domain.ErrInsufficientBalance)
		rej.PointsNeeded = -e.Delta
		rej.PointsBalance = balance
		return rej
	}
	e.BalanceAfter = after

	res, err := t.tx.Exec(`
		INSERT INTO ledger_entries (account_id, delta, balance_after, source_kind, source_ref, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.AccountID, e.Delta, e.BalanceAfter, e.SourceKind, e.SourceRef, e.Description, e.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.Reject(domain.ErrDuplicateSource)
		}
		return fmt.Errorf("inserting ledger entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading entry id: %w", err)
	}

	redeemed := int64(0)
	if e.Delta < 0 {
		redeemed = -e.Delta
	}
	_, err = t.tx.Exec(`
		UPDATE accounts SET balance = ?, redeemed_total = redeemed_total + ? WHERE id = ?
	`, e.BalanceAfter, redeemed, e.AccountID)
	if err != nil {
		return fmt.Errorf("updating account projection: %w", err)
	}
	return nil
}

// AccountForUpdate reads the account projection inside the transaction.
func (t *Tx) AccountForUpdate(accountID string) (domain.Account, error) {
	var a domain.Account
	err := t.tx.QueryRow(`
		SELECT id, balance, redeemed_total FROM accounts WHERE id = ?
	`, accountID).Scan(&a.ID, &a.Balance, &a.RedeemedTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{ID: accountID}, nil
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("reading account: %w", err)
	}
	return a, nil
}

// ─── Ledger Reads ───────────────────────────────────────────────────────────

// BalanceOf returns the account projection. An account never seen before
// reads as a zero balance rather than an error.
func (db *DB) BalanceOf(ctx context.Context, accountID string) (domain.Account, error) {
	var a domain.Account
	err := db.db.QueryRowContext(ctx, `
		SELECT id, balance, redeemed_total FROM accounts WHERE id = ?
	`, accountID).Scan(&a.ID, &a.Balance, &a.RedeemedTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{ID: accountID}, nil
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("reading account: %w", err)
	}
	return a, nil
}

// History returns ledger entries for the account, newest first, one page at
// a time. The returned cursor is the id of the last row; pass it back to get
// the next page, or 0 when the page came up short.
func (db *DB) History(ctx context.Context, accountID string, filter domain.HistoryFilter, page domain.HistoryPage) ([]domain.LedgerEntry, int64, error) {
	if page.Limit <= 0 {
		page.Limit = 50
	}

	query := `
		SELECT id, account_id, delta, balance_after, source_kind, source_ref, description, created_at
		FROM ledger_entries
		WHERE account_id = ?`
	args := []any{accountID}

	if page.Cursor > 0 {
		query += ` AND id < ?`
		args = append(args, page.Cursor)
	}
	if filter.SourceKind != "" {
		query += ` AND source_kind = ?`
		args = append(args, filter.SourceKind)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC().Format(timeFormat))
	}
	if !filter.Until.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, filter.Until.UTC().Format(timeFormat))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, page.Limit)

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var createdAt sql.NullString
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Delta, &e.BalanceAfter, &e.SourceKind, &e.SourceRef, &e.Description, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scanning entry: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var next int64
	if len(entries) == page.Limit {
		next = entries[len(entries)-1].ID
	}
	return entries, next, nil
}

// ─── Ledger Integrity ───────────────────────────────────────────────────────

// VerifyAccount checks the account's balance projection against the ledger
// sum, returning ErrBalanceMismatch when they diverge.
func (db *DB) VerifyAccount(ctx context.Context, accountID string) error {
	var sum, balance int64
	err := db.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE account_id = ?
	`, accountID).Scan(&sum)
	if err != nil {
		return fmt.Errorf("summing ledger: %w", err)
	}
	err = db.db.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		balance = 0
	} else if err != nil {
		return fmt.Errorf("reading projection: %w", err)
	}
	if sum != balance {
		return fmt.Errorf("account %s: projection %d, ledger sum %d: %w", accountID, balance, sum, domain.ErrBalanceMismatch)
	}
	return nil
}

// ListAccountIDs returns every account id with at least one ledger entry.
func (db *DB) ListAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT DISTINCT account_id FROM ledger_entries ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecomputeBalance rewrites the account projection from the ledger sum and
// returns the corrected balance. Used by the repair CLI after a verified
// mismatch.
func (db *DB) RecomputeBalance(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.tx.QueryRow(`
			SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE account_id = ?
		`, accountID).Scan(&sum); err != nil {
			return fmt.Errorf("summing ledger: %w", err)
		}
		if err := tx.EnsureAccount(accountID); err != nil {
			return err
		}
		_, err := tx.tx.Exec(`UPDATE accounts SET balance = ? WHERE id = ?`, sum, accountID)
		return err
	})
	return sum, err
}
