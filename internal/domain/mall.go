package domain

import "time"

// ─── Points Mall ────────────────────────────────────────────────────────────

// PointsProduct is a catalog item exchangeable for points.
type PointsProduct struct {
	ID                 string    `json:"id"` // uuid
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	PointsRequired     int64     `json:"points_required"` // per unit
	RemainingStock     int64     `json:"remaining_stock"` // UnboundedStock = no limit
	ExchangedQuantity  int64     `json:"exchanged_quantity"`
	Active             bool      `json:"is_active"`
	StartAt            time.Time `json:"start_at"` // zero = on shelf immediately
	EndAt              time.Time `json:"end_at"`   // zero = never taken down
	MaxExchangePerUser int64     `json:"max_exchange_per_user"` // 0 = unbounded
	MinPointsBalance   int64     `json:"min_points_balance"`    // gate, not cost
	CreatedAt          time.Time `json:"created_at"`
}

// ExchangeStatus is the lifecycle of a mall exchange.
type ExchangeStatus string

const (
	ExchangePending   ExchangeStatus = "pending"
	ExchangeIssued    ExchangeStatus = "issued"
	ExchangeUsed      ExchangeStatus = "used"
	ExchangeRefunded  ExchangeStatus = "refunded"
	ExchangeCancelled ExchangeStatus = "cancelled"
)

// CountsTowardCap reports whether the exchange consumes the per-user exchange
// allowance. Cancelled and refunded exchanges give the allowance back.
func (s ExchangeStatus) CountsTowardCap() bool {
	return s != ExchangeRefunded && s != ExchangeCancelled
}

// ExchangeRecord is one mall exchange: the points debit, the quantity taken
// from stock, and the fulfilment state.
type ExchangeRecord struct {
	ID         string         `json:"id"` // uuid
	AccountID  string         `json:"account_id"`
	ProductID  string         `json:"product_id"`
	Quantity   int64          `json:"quantity"`
	PointsUsed int64          `json:"points_used"`
	Status     ExchangeStatus `json:"status"`
	RefundedAt time.Time      `json:"refunded_at"` // zero unless refunded
	CreatedAt  time.Time      `json:"created_at"`
}
