// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture: it depends on nothing.
package domain

import "time"

// ─── Ledger Types ───────────────────────────────────────────────────────────

// SourceKind classifies the business reason for a point balance change.
type SourceKind string

const (
	SourceCheckIn        SourceKind = "check_in"
	SourceTaskComplete   SourceKind = "task_complete"
	SourceOrderComplete  SourceKind = "order_complete"
	SourceInvitation     SourceKind = "invitation"
	SourceNewUserBonus   SourceKind = "new_user_bonus"
	SourceLotteryCost    SourceKind = "lottery_cost"
	SourceLotteryPayout  SourceKind = "lottery_payout"
	SourceExchangeCost   SourceKind = "exchange_cost"
	SourceExchangeRefund SourceKind = "exchange_refund"
	SourceAdminAdjust    SourceKind = "admin_adjust"
)

// AtMostOnce reports whether the source kind requires at-most-once semantics
// for a given (account, kind, ref) triple. These are the kinds guarded by the
// ledger's duplicate-source check: a check-in per calendar day, an invitation
// payout per edge, a new-user bonus per edge, an order grant per order.
func (k SourceKind) AtMostOnce() bool {
	switch k {
	case SourceCheckIn, SourceInvitation, SourceNewUserBonus, SourceOrderComplete:
		return true
	}
	return false
}

// Account is the balance projection for one user. The ledger is authoritative;
// Balance must always equal the balance_after of the most recent entry.
type Account struct {
	ID            string `json:"id"`
	Balance       int64  `json:"balance"`
	RedeemedTotal int64  `json:"redeemed_total"`
}

// LedgerEntry is one immutable row in the points ledger. Entries are never
// updated or deleted; refunds are new entries.
type LedgerEntry struct {
	ID           int64      `json:"id"`
	AccountID    string     `json:"account_id"`
	Delta        int64      `json:"delta"`
	BalanceAfter int64      `json:"balance_after"`
	SourceKind   SourceKind `json:"source_kind"`
	SourceRef    string     `json:"source_ref,omitempty"`
	Description  string     `json:"description,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HistoryFilter narrows a ledger history query.
type HistoryFilter struct {
	SourceKind SourceKind // empty = all kinds
	Since      time.Time  // zero = no lower bound
	Until      time.Time  // zero = no upper bound
}

// HistoryPage is a cursor for ledger history pagination. Cursor is the entry
// id of the last row of the previous page; 0 starts from the newest entry.
// Entry ids are monotonic, so pages are stable under concurrent appends for
// rows already committed at query time.
type HistoryPage struct {
	Cursor int64
	Limit  int
}
