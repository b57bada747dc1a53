package domain

import "time"

// ─── Prize Pools & Allocation ───────────────────────────────────────────────

// UnboundedStock is the remaining_stock sentinel for candidates with no
// inventory limit. Unbounded candidates are always eligible and never
// decremented.
const UnboundedStock int64 = -1

// PrizeType classifies what a candidate pays out.
type PrizeType string

const (
	PrizePoints   PrizeType = "points"
	PrizeVirtual  PrizeType = "virtual"
	PrizePhysical PrizeType = "physical"
	PrizeThankYou PrizeType = "thank_you" // consolation, grants nothing
)

// PrizeCandidate is one weighted entry in a prize pool. Candidate ids are
// monotonic, giving the allocator its fixed selection order.
type PrizeCandidate struct {
	ID             int64     `json:"id"`
	PoolID         string    `json:"pool_id"`
	Name           string    `json:"name"`
	Type           PrizeType `json:"prize_type"`
	Weight         int64     `json:"weight"`          // positive
	RemainingStock int64     `json:"remaining_stock"` // UnboundedStock = no limit
	PointsValue    int64     `json:"points_value"`    // for PrizePoints
	Active         bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Eligible reports whether the candidate may be selected: it must be active
// and either unbounded or in stock.
func (c PrizeCandidate) Eligible() bool {
	return c.Active && (c.RemainingStock == UnboundedStock || c.RemainingStock > 0)
}

// AllocationRecord is the immutable anchor linking a ledger entry to the
// specific prize granted by a draw or exchange.
type AllocationRecord struct {
	ID            string    `json:"id"` // uuid
	AccountID     string    `json:"account_id"`
	PoolID        string    `json:"pool_id"`
	CandidateID   int64     `json:"candidate_id"`
	PrizeName     string    `json:"prize_name"` // snapshot at draw time
	PrizeType     PrizeType `json:"prize_type"` // snapshot at draw time
	CostPaid      int64     `json:"cost_paid"`
	CreatedAt     time.Time `json:"created_at"`
}

// ─── Lottery Activities ─────────────────────────────────────────────────────

// ActivityStatus is the publication state of a lottery activity.
type ActivityStatus string

const (
	ActivityDraft  ActivityStatus = "draft"
	ActivityActive ActivityStatus = "active"
	ActivityPaused ActivityStatus = "paused"
	ActivityEnded  ActivityStatus = "ended"
)

// LotteryActivity defines one lottery campaign. Its prize pool id equals the
// activity id.
type LotteryActivity struct {
	ID              string         `json:"id"` // uuid; doubles as pool id
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Status          ActivityStatus `json:"status"`
	Active          bool           `json:"is_active"`
	StartAt         time.Time      `json:"start_at"`
	EndAt           time.Time      `json:"end_at"`
	PointsCost      int64          `json:"points_cost"`        // per draw
	MaxDrawsPerUser int64          `json:"max_draws_per_user"` // 0 = unbounded
	CreatedAt       time.Time      `json:"created_at"`
}

// UserPrizeStatus tracks whether a won prize has been handed over.
type UserPrizeStatus string

const (
	UserPrizePending UserPrizeStatus = "pending"
	UserPrizeClaimed UserPrizeStatus = "claimed"
	UserPrizeExpired UserPrizeStatus = "expired"
)

// UserPrize is a prize owned by an account, produced by a draw. Points prizes
// are claimed immediately; physical/virtual prizes carry a redemption code and
// may expire.
type UserPrize struct {
	ID             string          `json:"id"` // uuid
	AccountID      string          `json:"account_id"`
	AllocationID   string          `json:"allocation_id"`
	PrizeName      string          `json:"prize_name"`
	PrizeType      PrizeType       `json:"prize_type"`
	PointsValue    int64           `json:"points_value,omitempty"`
	RedemptionCode string          `json:"redemption_code,omitempty"`
	Status         UserPrizeStatus `json:"status"`
	ClaimedAt      time.Time       `json:"claimed_at"` // zero if unclaimed
	ExpiresAt      time.Time       `json:"expires_at"` // zero if no expiry
	CreatedAt      time.Time       `json:"created_at"`
}
