package domain

import "time"

// ─── Blind Boxes ────────────────────────────────────────────────────────────

// RechargeOrderStatus is the payment state of a recharge order.
type RechargeOrderStatus string

const (
	RechargePending RechargeOrderStatus = "pending"
	RechargeSuccess RechargeOrderStatus = "success"
	RechargeFailed  RechargeOrderStatus = "failed"
)

// RechargeOrder is a phone-recharge purchase. A completed eligible order
// grants one unopened blind box. Eligibility is decided by an external
// predicate (business-district geofencing lives outside this core).
type RechargeOrder struct {
	ID          string              `json:"id"` // uuid
	AccountID   string              `json:"account_id"`
	PhoneNumber string              `json:"phone_number"`
	AmountCents int64               `json:"amount_cents"`
	Status      RechargeOrderStatus `json:"status"`
	Eligible    bool                `json:"is_eligible_for_prize"`
	CompletedAt time.Time           `json:"completed_at"` // zero until paid
	CreatedAt   time.Time           `json:"created_at"`
}

// BlindBoxStatus is the lifecycle of a granted box.
type BlindBoxStatus string

const (
	BoxUnopened BlindBoxStatus = "unopened"
	BoxOpened   BlindBoxStatus = "opened"
	BoxExpired  BlindBoxStatus = "expired"
)

// BlindBox is one unopened prize draw owned by an account, granted by a
// completed recharge order.
type BlindBox struct {
	ID        string         `json:"id"` // uuid
	AccountID string         `json:"account_id"`
	OrderID   string         `json:"order_id"`
	Status    BlindBoxStatus `json:"status"`
	ExpiresAt time.Time      `json:"expires_at"`
	OpenedAt  time.Time      `json:"opened_at"` // zero until opened
	CreatedAt time.Time      `json:"created_at"`
}
