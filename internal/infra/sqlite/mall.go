package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lunamall/lunamall/internal/domain"
)

// ─── Points Products ────────────────────────────────────────────────────────

const productColumns = `id, name, description, points_required, remaining_stock, exchanged_quantity,
	active, start_at, end_at, max_exchange_per_user, min_points_balance, created_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.PointsProduct, error) {
	var p domain.PointsProduct
	var active int
	var startAt, endAt, createdAt sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PointsRequired, &p.RemainingStock,
		&p.ExchangedQuantity, &active, &startAt, &endAt, &p.MaxExchangePerUser,
		&p.MinPointsBalance, &createdAt)
	if err != nil {
		return domain.PointsProduct{}, err
	}
	p.Active = active == 1
	p.StartAt = parseTime(startAt)
	p.EndAt = parseTime(endAt)
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// InsertProduct adds a product to the mall catalog.
func (db *DB) InsertProduct(ctx context.Context, p domain.PointsProduct) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO points_products (id, name, description, points_required, remaining_stock,
			exchanged_quantity, active, start_at, end_at, max_exchange_per_user, min_points_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.PointsRequired, p.RemainingStock, p.ExchangedQuantity,
		boolInt(p.Active), fmtTime(p.StartAt), fmtTime(p.EndAt), p.MaxExchangePerUser,
		p.MinPointsBalance, p.CreatedAt.UTC().Format(timeFormat))
	return err
}

// Product reads one product inside the transaction.
func (t *Tx) Product(productID string) (domain.PointsProduct, error) {
	p, err := scanProduct(t.tx.QueryRow(`SELECT `+productColumns+` FROM points_products WHERE id = ?`, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PointsProduct{}, domain.Reject(domain.ErrProductNotFound)
	}
	if err != nil {
		return domain.PointsProduct{}, fmt.Errorf("reading product: %w", err)
	}
	return p, nil
}

// ListProducts returns catalog products. When activeOnly is set, off-shelf
// products are skipped.
func (db *DB) ListProducts(ctx context.Context, activeOnly bool) ([]domain.PointsProduct, error) {
	query := `SELECT ` + productColumns + ` FROM points_products`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []domain.PointsProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ReserveProductStock takes qty units of the product's stock, reporting
// whether enough remained. Unbounded products always succeed; the exchanged
// counter advances either way on success.
func (t *Tx) ReserveProductStock(productID string, qty int64) (bool, error) {
	var stock int64
	err := t.tx.QueryRow(`SELECT remaining_stock FROM points_products WHERE id = ?`, productID).Scan(&stock)
	if err != nil {
		return false, fmt.Errorf("reading product stock: %w", err)
	}

	if stock == domain.UnboundedStock {
		_, err = t.tx.Exec(`
			UPDATE points_products SET exchanged_quantity = exchanged_quantity + ? WHERE id = ?
		`, qty, productID)
		return err == nil, err
	}

	res, err := t.tx.Exec(`
		UPDATE points_products
		SET remaining_stock = remaining_stock - ?, exchanged_quantity = exchanged_quantity + ?
		WHERE id = ? AND remaining_stock >= ?
	`, qty, qty, productID, qty)
	if err != nil {
		return false, fmt.Errorf("reserving product stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RestoreProductStock gives qty units back after a refund. Unbounded products
// only roll back the exchanged counter.
func (t *Tx) RestoreProductStock(productID string, qty int64) error {
	_, err := t.tx.Exec(`
		UPDATE points_products
		SET remaining_stock = CASE WHEN remaining_stock = ? THEN remaining_stock ELSE remaining_stock + ? END,
		    exchanged_quantity = exchanged_quantity - ?
		WHERE id = ?
	`, domain.UnboundedStock, qty, qty, productID)
	return err
}

// ─── Exchanges ──────────────────────────────────────────────────────────────

// InsertExchange records a new exchange order.
func (t *Tx) InsertExchange(e domain.ExchangeRecord) error {
	_, err := t.tx.Exec(`
		INSERT INTO exchanges (id, account_id, product_id, quantity, points_used, status, refunded_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.AccountID, e.ProductID, e.Quantity, e.PointsUsed, e.Status,
		fmtTime(e.RefundedAt), e.CreatedAt.UTC().Format(timeFormat))
	return err
}

// Exchange reads one exchange inside the transaction.
func (t *Tx) Exchange(exchangeID string) (domain.ExchangeRecord, error) {
	var e domain.ExchangeRecord
	var refundedAt, createdAt sql.NullString
	err := t.tx.QueryRow(`
		SELECT id, account_id, product_id, quantity, points_used, status, refunded_at, created_at
		FROM exchanges WHERE id = ?
	`, exchangeID).Scan(&e.ID, &e.AccountID, &e.ProductID, &e.Quantity, &e.PointsUsed,
		&e.Status, &refundedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ExchangeRecord{}, domain.Reject(domain.ErrExchangeNotFound)
	}
	if err != nil {
		return domain.ExchangeRecord{}, fmt.Errorf("reading exchange: %w", err)
	}
	e.RefundedAt = parseTime(refundedAt)
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

// SetExchangeStatus updates an exchange's lifecycle state.
func (t *Tx) SetExchangeStatus(exchangeID string, status domain.ExchangeStatus, refundedAt time.Time) error {
	_, err := t.tx.Exec(`UPDATE exchanges SET status = ?, refunded_at = ? WHERE id = ?`,
		status, fmtTime(refundedAt), exchangeID)
	return err
}

// CountedExchanges sums the quantity of the account's exchanges for the
// product that still consume the per-user allowance.
func (t *Tx) CountedExchanges(accountID, productID string) (int64, error) {
	var n int64
	err := t.tx.QueryRow(`
		SELECT COALESCE(SUM(quantity), 0) FROM exchanges
		WHERE account_id = ? AND product_id = ? AND status NOT IN (?, ?)
	`, accountID, productID, domain.ExchangeRefunded, domain.ExchangeCancelled).Scan(&n)
	return n, err
}

// ListExchanges returns the account's exchanges, newest first.
func (db *DB) ListExchanges(ctx context.Context, accountID string) ([]domain.ExchangeRecord, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, account_id, product_id, quantity, points_used, status, refunded_at, created_at
		FROM exchanges WHERE account_id = ? ORDER BY created_at DESC, id
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []domain.ExchangeRecord
	for rows.Next() {
		var e domain.ExchangeRecord
		var refundedAt, createdAt sql.NullString
		if err := rows.Scan(&e.ID, &e.AccountID, &e.ProductID, &e.Quantity, &e.PointsUsed,
			&e.Status, &refundedAt, &createdAt); err != nil {
			return nil, err
		}
		e.RefundedAt = parseTime(refundedAt)
		e.CreatedAt = parseTime(createdAt)
		exchanges = append(exchanges, e)
	}
	return exchanges, rows.Err()
}
