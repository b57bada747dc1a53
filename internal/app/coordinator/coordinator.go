// Package coordinator is the reward transaction boundary. Every public
// operation runs as one storage transaction: validate, optionally allocate,
// append ledger entries, mutate operation-specific state, then commit.
// Nothing is observable until commit, so a business rejection or a system
// fault leaves no partial state behind. This is the only component that
// combines ledger mutation with stock mutation.
package coordinator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lunamall/lunamall/internal/allocator"
	"github.com/lunamall/lunamall/internal/domain"
	"github.com/lunamall/lunamall/internal/infra/observability"
	"github.com/lunamall/lunamall/internal/infra/sqlite"
	"github.com/lunamall/lunamall/internal/rules"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config carries the reward parameters the coordinator needs.
type Config struct {
	InviterReward   int64  // points to the inviter on a completed invitation
	InviteeBonus    int64  // points to the invitee on a completed invitation
	BoxValidityDays int    // days before an unopened blind box expires
	BlindBoxPoolID  string // prize pool drawn by blind-box openings
	DrawAttempts    int    // selection re-runs before PoolExhausted
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		InviterReward:   50,
		InviteeBonus:    20,
		BoxValidityDays: 7,
		BlindBoxPoolID:  "blindbox-default",
		DrawAttempts:    3,
	}
}

// EligibilityFn decides whether a completed recharge order earns a blind box.
// Geofencing and other business-district rules live behind this predicate,
// outside the core.
type EligibilityFn func(order domain.RechargeOrder) bool

// ─── Coordinator ────────────────────────────────────────────────────────────

// Coordinator executes reward operations atomically against the store. It
// holds no process-global state; clock, randomness, and the blind-box
// eligibility predicate are injected.
type Coordinator struct {
	db       *sqlite.DB
	cfg      Config
	clock    func() time.Time
	rng      allocator.IntSource
	eligible EligibilityFn
	ops      *observability.OpLog
}

// Option overrides a Coordinator dependency.
type Option func(*Coordinator)

// WithClock substitutes the time source.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithRandSource substitutes the draw randomness.
func WithRandSource(src allocator.IntSource) Option {
	return func(c *Coordinator) { c.rng = src }
}

// WithEligibility substitutes the blind-box eligibility predicate.
func WithEligibility(fn EligibilityFn) Option {
	return func(c *Coordinator) { c.eligible = fn }
}

// New creates a Coordinator. Defaults: wall clock, seeded locked PRNG,
// always-eligible recharge orders.
func New(db *sqlite.DB, cfg Config, opts ...Option) *Coordinator {
	if cfg.DrawAttempts <= 0 {
		cfg.DrawAttempts = DefaultConfig().DrawAttempts
	}
	c := &Coordinator{
		db:       db,
		cfg:      cfg,
		clock:    time.Now,
		rng:      newLockedRand(time.Now().UnixNano()),
		eligible: func(domain.RechargeOrder) bool { return true },
		ops:      observability.NewOpLog(1000),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpLog exposes the audit trail for the debug endpoint.
func (c *Coordinator) OpLog() *observability.OpLog { return c.ops }

// lockedRand makes math/rand safe for concurrent draws.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Int63n(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Int63n(n)
}

// finish records the operation's metrics and audit entry. Call with the
// operation's outcome error (nil = committed).
func (c *Coordinator) finish(op, accountID string, start time.Time, err error) {
	elapsed := time.Since(start)
	observability.OperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	outcome := observability.OutcomeCommitted
	detail := ""
	if rej, ok := domain.IsRejection(err); ok {
		outcome = observability.OutcomeRejected
		detail = rej.Reason
		observability.Rejections.WithLabelValues(op, rej.Reason).Inc()
	} else if err != nil {
		outcome = observability.OutcomeFailed
		detail = err.Error()
	}
	c.ops.Record(observability.OpRecord{
		Operation: op,
		AccountID: accountID,
		Outcome:   outcome,
		Detail:    detail,
		Duration:  elapsed,
		At:        c.clock(),
	})
}

// append pushes one intent into the ledger and bumps the entry metric.
func (c *Coordinator) append(tx *sqlite.Tx, intent rules.Intent, now time.Time) (domain.LedgerEntry, error) {
	entry := domain.LedgerEntry{
		AccountID:   intent.AccountID,
		Delta:       intent.Delta,
		SourceKind:  intent.SourceKind,
		SourceRef:   intent.SourceRef,
		Description: intent.Description,
		CreatedAt:   now,
	}
	if err := tx.AppendEntry(&entry); err != nil {
		return domain.LedgerEntry{}, err
	}
	observability.LedgerEntries.WithLabelValues(string(intent.SourceKind)).Inc()
	return entry, nil
}

// ─── Check-In ───────────────────────────────────────────────────────────────

// CheckInResult is the committed outcome of a daily check-in.
type CheckInResult struct {
	PointsEarned    int64 `json:"points_earned"`
	ConsecutiveDays int64 `json:"consecutive_days"`
	CycleDay        int64 `json:"cycle_day"`
	NewBalance      int64 `json:"new_balance"`
}

// CheckIn performs the account's daily check-in: streak update, ledger
// credit, and history row in one transaction.
func (c *Coordinator) CheckIn(ctx context.Context, accountID string) (CheckInResult, error) {
	start := time.Now()
	now := c.clock()

	var result CheckInResult
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		state, err := tx.Streak(accountID)
		if err != nil {
			return err
		}
		res, err := rules.CheckIn(accountID, state, now)
		if err != nil {
			return err
		}
		entry, err := c.append(tx, res.Intent, now)
		if err != nil {
			return err
		}
		if err := tx.SaveStreak(domain.StreakState{
			AccountID:       accountID,
			LastCheckInDate: res.Day,
			ConsecutiveDays: res.ConsecutiveDays,
		}); err != nil {
			return err
		}
		if err := tx.InsertCheckInRecord(domain.CheckInRecord{
			AccountID:       accountID,
			Day:             res.Day,
			ConsecutiveDays: res.ConsecutiveDays,
			PointsEarned:    entry.Delta,
			CreatedAt:       now,
		}); err != nil {
			return err
		}
		result = CheckInResult{
			PointsEarned:    entry.Delta,
			ConsecutiveDays: res.ConsecutiveDays,
			CycleDay:        domain.CycleDay(res.ConsecutiveDays),
			NewBalance:      entry.BalanceAfter,
		}
		return nil
	})
	if err == nil {
		observability.CheckIns.Inc()
	}
	c.finish("check_in", accountID, start, err)
	return result, err
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

// TaskResult is the committed outcome of a task completion.
type TaskResult struct {
	PointsEarned    int64                   `json:"points_earned"`
	NewBalance      int64                   `json:"new_balance"`
	CompletionCount int64                   `json:"completion_count"`
	Status          domain.CompletionStatus `json:"status"`
}

// CompleteTask completes the task identified by its code for the account.
func (c *Coordinator) CompleteTask(ctx context.Context, accountID, taskCode string) (TaskResult, error) {
	start := time.Now()
	now := c.clock()

	var result TaskResult
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		task, err := tx.TaskByCode(taskCode)
		if err != nil {
			return err
		}
		comp, err := tx.TaskCompletion(accountID, task.ID)
		if err != nil {
			return err
		}
		res, err := rules.CompleteTask(accountID, task, comp, now)
		if err != nil {
			return err
		}
		entry, err := c.append(tx, res.Intent, now)
		if err != nil {
			return err
		}
		comp.Status = res.NextStatus
		comp.CompletionCount = res.CompletionCount
		comp.LastCompletedAt = now
		if comp.CreatedAt.IsZero() {
			comp.CreatedAt = now
		}
		if err := tx.SaveTaskCompletion(comp); err != nil {
			return err
		}
		result = TaskResult{
			PointsEarned:    entry.Delta,
			NewBalance:      entry.BalanceAfter,
			CompletionCount: res.CompletionCount,
			Status:          res.NextStatus,
		}
		return nil
	})
	c.finish("complete_task", accountID, start, err)
	return result, err
}

// ─── Admin & Reads ──────────────────────────────────────────────────────────

// AdminAdjust appends a manual adjustment entry. Delta may be negative; the
// usual insufficient-balance rule applies.
func (c *Coordinator) AdminAdjust(ctx context.Context, accountID string, delta int64, reason string) (domain.LedgerEntry, error) {
	start := time.Now()
	now := c.clock()

	var entry domain.LedgerEntry
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		var err error
		entry, err = c.append(tx, rules.Intent{
			AccountID:   accountID,
			Delta:       delta,
			SourceKind:  domain.SourceAdminAdjust,
			SourceRef:   uuid.NewString(),
			Description: reason,
		}, now)
		return err
	})
	c.finish("admin_adjust", accountID, start, err)
	return entry, err
}

// GrantOrderPoints credits points for a completed shop order. The order id is
// the idempotency ref, so replayed order webhooks cannot double-credit.
func (c *Coordinator) GrantOrderPoints(ctx context.Context, accountID, orderID string, points int64) (domain.LedgerEntry, error) {
	start := time.Now()
	now := c.clock()

	var entry domain.LedgerEntry
	err := c.db.WithTx(ctx, func(tx *sqlite.Tx) error {
		var err error
		entry, err = c.append(tx, rules.Intent{
			AccountID:   accountID,
			Delta:       points,
			SourceKind:  domain.SourceOrderComplete,
			SourceRef:   orderID,
			Description: "order completion reward",
		}, now)
		return err
	})
	c.finish("grant_order_points", accountID, start, err)
	return entry, err
}

// Balance returns the account's balance projection.
func (c *Coordinator) Balance(ctx context.Context, accountID string) (domain.Account, error) {
	return c.db.BalanceOf(ctx, accountID)
}

// GetHistory returns one page of the account's ledger history.
func (c *Coordinator) GetHistory(ctx context.Context, accountID string, filter domain.HistoryFilter, page domain.HistoryPage) ([]domain.LedgerEntry, int64, error) {
	return c.db.History(ctx, accountID, filter, page)
}
