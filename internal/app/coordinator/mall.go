package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lunamall/lunamall/internal/domain"
	"github.com/lunamall/lunamall/internal/infra/observability"
	"github.com/lunamall/lunamall/internal/infra/sqlite"
	"github.com/lunamall/lunamall/internal/rules"
)

// ─── Points Mall ────────────────────────────────────────────────────────────

// ExchangeResult is the committed outcome of a mall exchange.
type ExchangeResult struct {
	Exchange   domain.ExchangeRecord `json:"exchange"`
	NewBalance int64                 `json:"new_balance"`
}

// ExchangeProduct redeems quantity units of a product for points: shelf
// window, minimum-balance gate, per-user cap, stock reservation, and the
// points debit, all in one transaction.
func (c *Coordinator) ExchangeProduct(ctx context.Context, accountID, productID string, quantity int64) (ExchangeResult, error) {
	start := time.Now()
	now := c.clock()
	if quantity <= 0 {
		err := domain.Reject(domain.ErrInvalidQuantity)
		observability.Exchanges.WithLabelValues("rejected").Inc()
		c.finish("exchange_product", accountID, start, err)
		return ExchangeResult{}, err
	}

	var result ExchangeResult
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		product, err := tx.Product(productID)
		if err != nil {
			return err
		}
		if !product.Active {
			return domain.Reject(domain.ErrProductUnavailable)
		}
		if !product.StartAt.IsZero() && now.Before(product.StartAt) {
			return domain.Reject(domain.ErrProductUnavailable)
		}
		if !product.EndAt.IsZero() && now.After(product.EndAt) {
			return domain.Reject(domain.ErrProductUnavailable)
		}

		acct, err := tx.AccountForUpdate(accountID)
		if err != nil {
			return err
		}
		if product.MinPointsBalance > 0 && acct.Balance < product.MinPointsBalance {
			rej := domain.Reject(domain.ErrMinBalanceNotMet)
			rej.PointsNeeded = product.MinPointsBalance
			rej.PointsBalance = acct.Balance
			return rej
		}

		if product.MaxExchangePerUser > 0 {
			counted, err := tx.CountedExchanges(accountID, product.ID)
			if err != nil {
				return err
			}
			if counted+quantity > product.MaxExchangePerUser {
				rej := domain.Reject(domain.ErrExchangeLimitReached)
				rej.Limit = product.MaxExchangePerUser
				return rej
			}
		}

		won, err := tx.ReserveProductStock(product.ID, quantity)
		if err != nil {
			return err
		}
		if !won {
			return domain.Reject(domain.ErrOutOfStock)
		}

		exchange := domain.ExchangeRecord{
			ID:         uuid.NewString(),
			AccountID:  accountID,
			ProductID:  product.ID,
			Quantity:   quantity,
			PointsUsed: product.PointsRequired * quantity,
			Status:     domain.ExchangePending,
			CreatedAt:  now,
		}
		entry, err := c.append(tx, rules.Intent{
			AccountID:   accountID,
			Delta:       -exchange.PointsUsed,
			SourceKind:  domain.SourceExchangeCost,
			SourceRef:   exchange.ID,
			Description: "exchange: " + product.Name,
		}, now)
		if err != nil {
			return err
		}
		if err := tx.InsertExchange(exchange); err != nil {
			return err
		}
		result = ExchangeResult{Exchange: exchange, NewBalance: entry.BalanceAfter}
		return nil
	})

	if err == nil {
		observability.Exchanges.WithLabelValues("committed").Inc()
	} else if _, ok := domain.IsRejection(err); ok {
		observability.Exchanges.WithLabelValues("rejected").Inc()
	} else {
		observability.Exchanges.WithLabelValues("failed").Inc()
	}
	c.finish("exchange_product", accountID, start, err)
	return result, err
}

// RefundResult is the committed outcome of an exchange refund.
type RefundResult struct {
	Exchange   domain.ExchangeRecord `json:"exchange"`
	Entry      domain.LedgerEntry    `json:"entry"`
	NewBalance int64                 `json:"new_balance"`
}

// RefundExchange refunds a pending or issued exchange: status flip, stock
// restore, and a compensating credit entry. The original debit entry is never
// touched.
func (c *Coordinator) RefundExchange(ctx context.Context, accountID, exchangeID string) (RefundResult, error) {
	start := time.Now()
	now := c.clock()

	var result RefundResult
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		exchange, err := tx.Exchange(exchangeID)
		if err != nil {
			return err
		}
		if exchange.AccountID != accountID {
			return domain.Reject(domain.ErrExchangeNotFound)
		}
		if exchange.Status != domain.ExchangePending && exchange.Status != domain.ExchangeIssued {
			return domain.Reject(domain.ErrExchangeNotRefundable)
		}

		if err := tx.SetExchangeStatus(exchange.ID, domain.ExchangeRefunded, now); err != nil {
			return err
		}
		if err := tx.RestoreProductStock(exchange.ProductID, exchange.Quantity); err != nil {
			return err
		}
		entry, err := c.append(tx, rules.Intent{
			AccountID:   accountID,
			Delta:       exchange.PointsUsed,
			SourceKind:  domain.SourceExchangeRefund,
			SourceRef:   exchange.ID,
			Description: "exchange refund",
		}, now)
		if err != nil {
			return err
		}

		exchange.Status = domain.ExchangeRefunded
		exchange.RefundedAt = now
		result = RefundResult{Exchange: exchange, Entry: entry, NewBalance: entry.BalanceAfter}
		return nil
	})

	if err == nil {
		observability.Exchanges.WithLabelValues("refunded").Inc()
	}
	c.finish("refund_exchange", accountID, start, err)
	return result, err
}
