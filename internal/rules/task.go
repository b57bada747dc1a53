package rules

import (
	"fmt"
	"time"

	"github.com/lunamall/lunamall/internal/domain"
)

// ─── Task Completion Rule ───────────────────────────────────────────────────

// TaskResult is the computed effect of a successful task completion.
type TaskResult struct {
	Intent          Intent
	NextStatus      domain.CompletionStatus
	CompletionCount int64
}

// CompleteTask evaluates a completion attempt against the task definition and
// the account's completion state. The zero TaskCompletion is valid input for
// a first attempt.
func CompleteTask(accountID string, task domain.Task, comp domain.TaskCompletion, now time.Time) (TaskResult, error) {
	if !task.Active {
		return TaskResult{}, domain.Reject(domain.ErrTaskInactive)
	}
	if !task.StartAt.IsZero() && now.Before(task.StartAt) {
		return TaskResult{}, domain.Reject(domain.ErrTaskNotStarted)
	}
	if !task.EndAt.IsZero() && now.After(task.EndAt) {
		return TaskResult{}, domain.Reject(domain.ErrTaskExpired)
	}

	if task.Type == domain.TaskOneTime && comp.Status == domain.TaskCompleted {
		rej := domain.Reject(domain.ErrTaskMaxCompletionsReached)
		rej.Limit = 1
		return TaskResult{}, rej
	}

	if task.Cooldown > 0 && !comp.LastCompletedAt.IsZero() {
		ready := comp.LastCompletedAt.Add(task.Cooldown)
		if now.Before(ready) {
			rej := domain.Reject(domain.ErrTaskCooldownActive)
			rej.CooldownRemaining = ready.Sub(now)
			return TaskResult{}, rej
		}
	}

	if task.MaxCompletions > 0 && comp.CompletionCount >= task.MaxCompletions {
		rej := domain.Reject(domain.ErrTaskMaxCompletionsReached)
		rej.Limit = task.MaxCompletions
		return TaskResult{}, rej
	}

	newCount := comp.CompletionCount + 1
	return TaskResult{
		Intent: Intent{
			AccountID:   accountID,
			Delta:       task.PointsReward,
			SourceKind:  domain.SourceTaskComplete,
			SourceRef:   task.ID,
			Description: fmt.Sprintf("completed task: %s", task.Title),
		},
		NextStatus:      nextStatus(task, newCount),
		CompletionCount: newCount,
	}, nil
}

// nextStatus decides the completion state after a successful attempt:
// one-time tasks complete immediately; repeatable tasks complete when the cap
// is reached; daily tasks stay in progress.
func nextStatus(task domain.Task, count int64) domain.CompletionStatus {
	switch task.Type {
	case domain.TaskOneTime:
		return domain.TaskCompleted
	case domain.TaskRepeatable:
		if task.MaxCompletions > 0 && count >= task.MaxCompletions {
			return domain.TaskCompleted
		}
	}
	return domain.TaskInProgress
}

// Progress builds the read-only projection of a task for the account,
// mirroring the checks CompleteTask performs without committing anything.
func Progress(task domain.Task, comp domain.TaskCompletion, now time.Time) domain.TaskProgress {
	p := domain.TaskProgress{
		Task:                 task,
		CompletionCount:      comp.CompletionCount,
		RemainingCompletions: -1,
		CanComplete:          true,
		Status:               domain.TaskInProgress,
	}

	if task.MaxCompletions > 0 {
		remaining := task.MaxCompletions - comp.CompletionCount
		if remaining < 0 {
			remaining = 0
		}
		p.RemainingCompletions = remaining
		if remaining == 0 {
			p.CanComplete = false
			p.Status = domain.TaskCompleted
		}
	}
	if task.Type == domain.TaskOneTime && comp.Status == domain.TaskCompleted {
		p.CanComplete = false
		p.Status = domain.TaskCompleted
	}

	if task.Cooldown > 0 && !comp.LastCompletedAt.IsZero() {
		ready := comp.LastCompletedAt.Add(task.Cooldown)
		if now.Before(ready) {
			p.CanComplete = false
			p.CooldownRemaining = ready.Sub(now)
		}
	}

	if !task.StartAt.IsZero() && now.Before(task.StartAt) {
		p.CanComplete = false
	}
	if !task.EndAt.IsZero() && now.After(task.EndAt) {
		p.CanComplete = false
	}
	return p
}
