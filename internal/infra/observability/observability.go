// Package observability exposes Prometheus metrics for reward operations and
// keeps a small in-memory audit trail of recent operations for the debug
// endpoint. Metrics are the operational surface; the audit trail exists for
// quick inspection without a metrics stack.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Reward Operation Metrics ───────────────────────────────────────────────

// LedgerEntries counts committed ledger entries by source kind.
var LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lunamall",
	Subsystem: "ledger",
	Name:      "entries_total",
	Help:      "Committed ledger entries by source kind.",
}, []string{"source_kind"})

// CheckIns counts successful check-ins.
var CheckIns = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lunamall",
	Subsystem: "rewards",
	Name:      "checkins_total",
	Help:      "Successful daily check-ins.",
})

// Draws counts lottery and blind-box draws by outcome
// (won, rejected, exhausted, failed).
var Draws = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lunamall",
	Subsystem: "allocator",
	Name:      "draws_total",
	Help:      "Prize draws by outcome.",
}, []string{"outcome"})

// DrawRetries counts selection re-runs after a lost stock reservation race.
var DrawRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lunamall",
	Subsystem: "allocator",
	Name:      "draw_retries_total",
	Help:      "Prize selections re-run after losing a stock reservation race.",
})

// Exchanges counts mall exchanges by outcome (committed, rejected, refunded).
var Exchanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lunamall",
	Subsystem: "mall",
	Name:      "exchanges_total",
	Help:      "Points mall exchanges by outcome.",
}, []string{"outcome"})

// Rejections counts business rejections by reason sentinel.
var Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lunamall",
	Subsystem: "rewards",
	Name:      "rejections_total",
	Help:      "Business rejections by reason.",
}, []string{"operation", "reason"})

// OperationDuration measures coordinator operation latency.
var OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "lunamall",
	Subsystem: "rewards",
	Name:      "operation_duration_seconds",
	Help:      "Coordinator operation latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation"})

// ─── Operation Audit Trail ──────────────────────────────────────────────────

// Outcome classifies how an operation ended.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// OpRecord is one recorded reward operation.
type OpRecord struct {
	Operation string        `json:"operation"`
	AccountID string        `json:"account_id"`
	Outcome   Outcome       `json:"outcome"`
	Detail    string        `json:"detail,omitempty"`
	Duration  time.Duration `json:"duration"`
	At        time.Time     `json:"at"`
}

// OpLog is a fixed-size ring of recent operations.
type OpLog struct {
	mu      sync.Mutex
	records []OpRecord
	maxSize int
}

// NewOpLog creates an audit trail holding up to maxSize records.
func NewOpLog(maxSize int) *OpLog {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &OpLog{records: make([]OpRecord, 0, maxSize), maxSize: maxSize}
}

// Record appends one operation, evicting the oldest at capacity.
func (l *OpLog) Record(r OpRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) >= l.maxSize {
		l.records = l.records[1:]
	}
	l.records = append(l.records, r)
}

// Recent returns up to limit records, most recent last.
func (l *OpLog) Recent(limit int) []OpRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}
	start := len(l.records) - limit
	out := make([]OpRecord, limit)
	copy(out, l.records[start:])
	return out
}

// Count returns the number of recorded operations.
func (l *OpLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Reset clears the trail.
func (l *OpLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = l.records[:0]
}
