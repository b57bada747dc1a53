package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lunamall/lunamall/internal/allocator"
	"github.com/lunamall/lunamall/internal/domain"
	"github.com/lunamall/lunamall/internal/infra/observability"
	"github.com/lunamall/lunamall/internal/infra/sqlite"
	"github.com/lunamall/lunamall/internal/rules"
)

// ─── Lottery Draws ──────────────────────────────────────────────────────────

// DrawResult is the committed outcome of a lottery draw.
type DrawResult struct {
	Allocation     domain.AllocationRecord `json:"allocation"`
	Prize          *domain.UserPrize       `json:"prize,omitempty"` // nil for thank-you draws
	NewBalance     int64                   `json:"new_balance"`
	RemainingDraws int64                   `json:"remaining_draws"` // -1 = unbounded
}

// Draw performs one lottery draw: activity validation, draw-limit check,
// points debit, weighted selection with stock reservation, prize grant. One
// transaction end to end.
func (c *Coordinator) Draw(ctx context.Context, accountID, activityID string) (DrawResult, error) {
	start := time.Now()
	now := c.clock()

	var result DrawResult
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		activity, err := tx.Activity(activityID)
		if err != nil {
			return err
		}
		if !activity.Active || activity.Status != domain.ActivityActive {
			return domain.Reject(domain.ErrActivityNotRunning)
		}
		if !activity.StartAt.IsZero() && now.Before(activity.StartAt) {
			return domain.Reject(domain.ErrActivityNotRunning)
		}
		if !activity.EndAt.IsZero() && now.After(activity.EndAt) {
			return domain.Reject(domain.ErrActivityNotRunning)
		}

		drawn, err := tx.CountAllocations(accountID, activity.ID)
		if err != nil {
			return err
		}
		if activity.MaxDrawsPerUser > 0 && drawn >= activity.MaxDrawsPerUser {
			rej := domain.Reject(domain.ErrDrawLimitReached)
			rej.Limit = activity.MaxDrawsPerUser
			return rej
		}

		allocationID := uuid.NewString()
		var balance int64
		if activity.PointsCost > 0 {
			entry, err := c.append(tx, rules.Intent{
				AccountID:   accountID,
				Delta:       -activity.PointsCost,
				SourceKind:  domain.SourceLotteryCost,
				SourceRef:   allocationID,
				Description: "lottery draw: " + activity.Name,
			}, now)
			if err != nil {
				return err
			}
			balance = entry.BalanceAfter
		} else {
			acct, err := tx.AccountForUpdate(accountID)
			if err != nil {
				return err
			}
			balance = acct.Balance
		}

		allocation, prize, newBalance, err := c.allocate(tx, accountID, activity.ID, allocationID, activity.PointsCost, balance, now)
		if err != nil {
			return err
		}

		remaining := int64(-1)
		if activity.MaxDrawsPerUser > 0 {
			remaining = activity.MaxDrawsPerUser - drawn - 1
		}
		result = DrawResult{
			Allocation:     allocation,
			Prize:          prize,
			NewBalance:     newBalance,
			RemainingDraws: remaining,
		}
		return nil
	})

	switch {
	case err == nil:
		observability.Draws.WithLabelValues("won").Inc()
	case errors.Is(err, domain.ErrPoolExhausted):
		observability.Draws.WithLabelValues("exhausted").Inc()
	default:
		if _, ok := domain.IsRejection(err); ok {
			observability.Draws.WithLabelValues("rejected").Inc()
		} else {
			observability.Draws.WithLabelValues("failed").Inc()
		}
	}
	c.finish("draw", accountID, start, err)
	return result, err
}

// allocate runs weighted selection against the pool, reserving stock with a
// bounded retry when a reservation loses its race, then writes the allocation
// record and grants the prize. Points prizes credit the ledger immediately
// and arrive claimed; thank-you prizes grant nothing.
func (c *Coordinator) allocate(tx *sqlite.Tx, accountID, poolID, allocationID string, costPaid, balance int64, now time.Time) (domain.AllocationRecord, *domain.UserPrize, int64, error) {
	candidates, err := tx.Candidates(poolID)
	if err != nil {
		return domain.AllocationRecord{}, nil, 0, err
	}

	var selected domain.PrizeCandidate
	reserved := false
	for attempt := 0; attempt < c.cfg.DrawAttempts; attempt++ {
		sel, err := allocator.Select(candidates, c.rng)
		if err != nil {
			return domain.AllocationRecord{}, nil, 0, domain.Reject(domain.ErrPoolExhausted)
		}
		won, err := tx.ReserveStock(sel.ID)
		if err != nil {
			return domain.AllocationRecord{}, nil, 0, err
		}
		if won {
			selected = sel
			reserved = true
			break
		}
		observability.DrawRetries.Inc()
		candidates = allocator.Excluding(candidates, sel.ID)
	}
	if !reserved {
		return domain.AllocationRecord{}, nil, 0, domain.Reject(domain.ErrPoolExhausted)
	}

	allocation := domain.AllocationRecord{
		ID:          allocationID,
		AccountID:   accountID,
		PoolID:      poolID,
		CandidateID: selected.ID,
		PrizeName:   selected.Name,
		PrizeType:   selected.Type,
		CostPaid:    costPaid,
		CreatedAt:   now,
	}
	if err := tx.InsertAllocation(allocation); err != nil {
		return domain.AllocationRecord{}, nil, 0, err
	}

	if selected.Type == domain.PrizeThankYou {
		return allocation, nil, balance, nil
	}

	prize := domain.UserPrize{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		AllocationID: allocationID,
		PrizeName:    selected.Name,
		PrizeType:    selected.Type,
		PointsValue:  selected.PointsValue,
		Status:       domain.UserPrizePending,
		CreatedAt:    now,
	}
	switch selected.Type {
	case domain.PrizePoints:
		entry, err := c.append(tx, rules.Intent{
			AccountID:   accountID,
			Delta:       selected.PointsValue,
			SourceKind:  domain.SourceLotteryPayout,
			SourceRef:   allocationID,
			Description: "prize: " + selected.Name,
		}, now)
		if err != nil {
			return domain.AllocationRecord{}, nil, 0, err
		}
		balance = entry.BalanceAfter
		prize.Status = domain.UserPrizeClaimed
		prize.ClaimedAt = now
	default:
		// Physical and virtual prizes are redeemed out of band.
		prize.RedemptionCode = uuid.NewString()
	}

	if err := tx.InsertUserPrize(prize); err != nil {
		return domain.AllocationRecord{}, nil, 0, err
	}
	return allocation, &prize, balance, nil
}

// ─── Recharge Orders & Blind Boxes ──────────────────────────────────────────

// CreateRechargeOrder records a pending phone-recharge order.
func (c *Coordinator) CreateRechargeOrder(ctx context.Context, accountID, phoneNumber string, amountCents int64) (domain.RechargeOrder, error) {
	start := time.Now()
	now := c.clock()

	order := domain.RechargeOrder{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		PhoneNumber: phoneNumber,
		AmountCents: amountCents,
		Status:      domain.RechargePending,
		CreatedAt:   now,
	}
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		return tx.InsertRechargeOrder(order)
	})
	c.finish("create_recharge_order", accountID, start, err)
	return order, err
}

// RechargeResult is the outcome of completing a recharge order.
type RechargeResult struct {
	Order domain.RechargeOrder `json:"order"`
	Box   *domain.BlindBox     `json:"box,omitempty"` // nil when ineligible
}

// CompleteRechargeOrder marks a pending order paid and, when the eligibility
// predicate accepts it, grants one unopened blind box that expires after the
// configured validity window.
func (c *Coordinator) CompleteRechargeOrder(ctx context.Context, accountID, orderID string) (RechargeResult, error) {
	start := time.Now()
	now := c.clock()

	var result RechargeResult
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		order, err := tx.RechargeOrder(orderID)
		if err != nil {
			return err
		}
		if order.AccountID != accountID {
			return domain.Reject(domain.ErrOrderNotFound)
		}
		if order.Status != domain.RechargePending {
			return domain.Reject(domain.ErrOrderFinalized)
		}

		order.Status = domain.RechargeSuccess
		order.Eligible = c.eligible(order)
		order.CompletedAt = now
		if err := tx.SetRechargeOrderOutcome(order.ID, order.Status, order.Eligible, order.CompletedAt); err != nil {
			return err
		}
		result.Order = order

		if !order.Eligible {
			return nil
		}
		box := domain.BlindBox{
			ID:        uuid.NewString(),
			AccountID: accountID,
			OrderID:   order.ID,
			Status:    domain.BoxUnopened,
			ExpiresAt: now.AddDate(0, 0, c.cfg.BoxValidityDays),
			CreatedAt: now,
		}
		if err := tx.InsertBlindBox(box); err != nil {
			return err
		}
		result.Box = &box
		return nil
	})
	c.finish("complete_recharge_order", accountID, start, err)
	return result, err
}

// OpenBoxResult is the committed outcome of opening a blind box.
type OpenBoxResult struct {
	Allocation domain.AllocationRecord `json:"allocation"`
	Prize      *domain.UserPrize       `json:"prize,omitempty"`
	NewBalance int64                   `json:"new_balance"`
}

// OpenBlindBox opens an unopened box owned by the account and draws its prize
// from the blind-box pool. An expired box is marked expired and rejected.
func (c *Coordinator) OpenBlindBox(ctx context.Context, accountID, boxID string) (OpenBoxResult, error) {
	start := time.Now()
	now := c.clock()

	var result OpenBoxResult
	expired := false
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		box, err := tx.BlindBox(boxID)
		if err != nil {
			return err
		}
		if box.AccountID != accountID {
			return domain.Reject(domain.ErrBoxNotOwned)
		}
		if box.Status != domain.BoxUnopened {
			return domain.Reject(domain.ErrBoxNotOpenable)
		}
		if !box.ExpiresAt.IsZero() && now.After(box.ExpiresAt) {
			// Commit the expiry flip; the rejection is reported after.
			expired = true
			return tx.MarkBoxExpired(box.ID)
		}
		won, err := tx.MarkBoxOpened(box.ID, now)
		if err != nil {
			return err
		}
		if !won {
			return domain.Reject(domain.ErrBoxNotOpenable)
		}

		acct, err := tx.AccountForUpdate(accountID)
		if err != nil {
			return err
		}
		allocation, prize, newBalance, err := c.allocate(tx, accountID, c.cfg.BlindBoxPoolID, uuid.NewString(), 0, acct.Balance, now)
		if err != nil {
			return err
		}
		result = OpenBoxResult{Allocation: allocation, Prize: prize, NewBalance: newBalance}
		return nil
	})
	if err == nil && expired {
		err = domain.Reject(domain.ErrBoxExpired)
	}
	c.finish("open_blind_box", accountID, start, err)
	return result, err
}
