package domain

import "time"

// ─── Tasks ──────────────────────────────────────────────────────────────────

// TaskType controls how often a task can be completed.
type TaskType string

const (
	TaskOneTime    TaskType = "one_time"
	TaskDaily      TaskType = "daily"
	TaskRepeatable TaskType = "repeatable"
)

// CompletionStatus is the per-user state of a task.
type CompletionStatus string

const (
	TaskInProgress CompletionStatus = "in_progress"
	TaskCompleted  CompletionStatus = "completed"
)

// Task is a catalog definition of a points-earning task. Catalog data is
// read-only reference input for a given operation.
type Task struct {
	ID             string        `json:"id"`
	Code           string        `json:"code"` // unique task code
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	PointsReward   int64         `json:"points_reward"`
	Type           TaskType      `json:"task_type"`
	Active         bool          `json:"is_active"`
	MaxCompletions int64         `json:"max_completions"` // 0 = unbounded
	Cooldown       time.Duration `json:"cooldown"`        // 0 = none
	StartAt        time.Time     `json:"start_at"`        // zero = no lower bound
	EndAt          time.Time     `json:"end_at"`          // zero = no upper bound
	CreatedAt      time.Time     `json:"created_at"`
}

// TaskCompletion is the per-(account, task) completion state.
type TaskCompletion struct {
	ID              int64            `json:"id"`
	AccountID       string           `json:"account_id"`
	TaskID          string           `json:"task_id"`
	Status          CompletionStatus `json:"status"`
	CompletionCount int64            `json:"completion_count"`
	LastCompletedAt time.Time        `json:"last_completed_at"` // zero if never
	CreatedAt       time.Time        `json:"created_at"`
}

// TaskProgress is a read-only projection of a task plus the caller's state,
// used by task listings.
type TaskProgress struct {
	Task                 Task             `json:"task"`
	CompletionCount      int64            `json:"completion_count"`
	RemainingCompletions int64            `json:"remaining_completions"` // -1 = unbounded
	CanComplete          bool             `json:"can_complete"`
	CooldownRemaining    time.Duration    `json:"cooldown_remaining"`
	Status               CompletionStatus `json:"status"`
}
