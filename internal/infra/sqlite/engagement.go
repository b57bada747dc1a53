package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lunamall/lunamall/internal/domain"
)

// ─── Streak State ───────────────────────────────────────────────────────────

// Streak reads the account's streak state inside the transaction. An account
// that has never checked in gets the zero state.
func (t *Tx) Streak(accountID string) (domain.StreakState, error) {
	s := domain.StreakState{AccountID: accountID}
	err := t.tx.QueryRow(`
		SELECT last_check_in_date, consecutive_days FROM streak_state WHERE account_id = ?
	`, accountID).Scan(&s.LastCheckInDate, &s.ConsecutiveDays)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return domain.StreakState{}, fmt.Errorf("reading streak: %w", err)
	}
	return s, nil
}

// SaveStreak upserts the account's streak state.
func (t *Tx) SaveStreak(s domain.StreakState) error {
	_, err := t.tx.Exec(`
		INSERT INTO streak_state (account_id, last_check_in_date, consecutive_days)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			last_check_in_date = excluded.last_check_in_date,
			consecutive_days   = excluded.consecutive_days
	`, s.AccountID, s.LastCheckInDate, s.ConsecutiveDays)
	return err
}

// InsertCheckInRecord appends one check-in history row. The (account, day)
// uniqueness backs up the rules-level duplicate check.
func (t *Tx) InsertCheckInRecord(r domain.CheckInRecord) error {
	_, err := t.tx.Exec(`
		INSERT INTO check_in_records (account_id, day, points, consecutive, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.AccountID, r.Day, r.PointsEarned, r.ConsecutiveDays, r.CreatedAt.UTC().Format(timeFormat))
	return err
}

// CheckInHistory returns the account's check-in records, newest first.
func (db *DB) CheckInHistory(ctx context.Context, accountID string, limit int) ([]domain.CheckInRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, account_id, day, points, consecutive, created_at
		FROM check_in_records WHERE account_id = ?
		ORDER BY id DESC LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying check-in history: %w", err)
	}
	defer rows.Close()

	var records []domain.CheckInRecord
	for rows.Next() {
		var r domain.CheckInRecord
		var createdAt sql.NullString
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Day, &r.PointsEarned, &r.ConsecutiveDays, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// MonthlyCheckIns returns the account's check-in records for one calendar
// month (formatted "2006-01"), oldest first. Days are stored as text, so the
// month is a prefix match.
func (db *DB) MonthlyCheckIns(ctx context.Context, accountID, month string) ([]domain.CheckInRecord, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, account_id, day, points, consecutive, created_at
		FROM check_in_records WHERE account_id = ? AND day LIKE ?
		ORDER BY day ASC
	`, accountID, month+"-%")
	if err != nil {
		return nil, fmt.Errorf("querying monthly check-ins: %w", err)
	}
	defer rows.Close()

	var records []domain.CheckInRecord
	for rows.Next() {
		var r domain.CheckInRecord
		var createdAt sql.NullString
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Day, &r.PointsEarned, &r.ConsecutiveDays, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// StreakOf reads the account's streak state outside a transaction.
func (db *DB) StreakOf(ctx context.Context, accountID string) (domain.StreakState, error) {
	s := domain.StreakState{AccountID: accountID}
	err := db.db.QueryRowContext(ctx, `
		SELECT last_check_in_date, consecutive_days FROM streak_state WHERE account_id = ?
	`, accountID).Scan(&s.LastCheckInDate, &s.ConsecutiveDays)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return domain.StreakState{}, fmt.Errorf("reading streak: %w", err)
	}
	return s, nil
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

const taskColumns = `id, code, title, description, points_reward, type, active,
	max_completions, cooldown_seconds, start_at, end_at, created_at`

func scanTask(row interface{ Scan(...any) error }) (domain.Task, error) {
	var task domain.Task
	var active int
	var cooldownSeconds int64
	var startAt, endAt, createdAt sql.NullString
	err := row.Scan(&task.ID, &task.Code, &task.Title, &task.Description, &task.PointsReward,
		&task.Type, &active, &task.MaxCompletions, &cooldownSeconds, &startAt, &endAt, &createdAt)
	if err != nil {
		return domain.Task{}, err
	}
	task.Active = active == 1
	task.Cooldown = time.Duration(cooldownSeconds) * time.Second
	task.StartAt = parseTime(startAt)
	task.EndAt = parseTime(endAt)
	task.CreatedAt = parseTime(createdAt)
	return task, nil
}

// InsertTask adds a task definition to the catalog.
func (db *DB) InsertTask(ctx context.Context, task domain.Task) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO tasks (id, code, title, description, points_reward, type, active,
			max_completions, cooldown_seconds, start_at, end_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.Code, task.Title, task.Description, task.PointsReward, task.Type,
		boolInt(task.Active), task.MaxCompletions, int64(task.Cooldown/time.Second),
		fmtTime(task.StartAt), fmtTime(task.EndAt), task.CreatedAt.UTC().Format(timeFormat))
	return err
}

// SetTaskActive flips a task's active flag, returning ErrTaskNotFound for an
// unknown id.
func (db *DB) SetTaskActive(ctx context.Context, taskID string, active bool) error {
	res, err := db.db.ExecContext(ctx, `UPDATE tasks SET active = ? WHERE id = ?`, boolInt(active), taskID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// Task reads one task definition inside the transaction.
func (t *Tx) Task(taskID string) (domain.Task, error) {
	task, err := scanTask(t.tx.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, domain.Reject(domain.ErrTaskNotFound)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("reading task: %w", err)
	}
	return task, nil
}

// TaskByCode looks a task up by its unique code inside the transaction.
func (t *Tx) TaskByCode(code string) (domain.Task, error) {
	task, err := scanTask(t.tx.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, domain.Reject(domain.ErrTaskNotFound)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("reading task: %w", err)
	}
	return task, nil
}

// TaskByCode looks a task up by its unique code.
func (db *DB) TaskByCode(ctx context.Context, code string) (domain.Task, error) {
	task, err := scanTask(db.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, domain.Reject(domain.ErrTaskNotFound)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("reading task: %w", err)
	}
	return task, nil
}

// ListTasks returns all task definitions. When activeOnly is set, inactive
// tasks are skipped.
func (db *DB) ListTasks(ctx context.Context, activeOnly bool) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ─── Task Completions ───────────────────────────────────────────────────────

// TaskCompletion reads the account's completion state for the task inside the
// transaction. A first attempt gets the zero state.
func (t *Tx) TaskCompletion(accountID, taskID string) (domain.TaskCompletion, error) {
	c := domain.TaskCompletion{AccountID: accountID, TaskID: taskID, Status: domain.TaskInProgress}
	var lastCompletedAt, createdAt sql.NullString
	err := t.tx.QueryRow(`
		SELECT id, status, completion_count, last_completed_at, created_at
		FROM task_completions WHERE account_id = ? AND task_id = ?
	`, accountID, taskID).Scan(&c.ID, &c.Status, &c.CompletionCount, &lastCompletedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return domain.TaskCompletion{}, fmt.Errorf("reading task completion: %w", err)
	}
	c.LastCompletedAt = parseTime(lastCompletedAt)
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// SaveTaskCompletion upserts the account's completion state for the task.
func (t *Tx) SaveTaskCompletion(c domain.TaskCompletion) error {
	_, err := t.tx.Exec(`
		INSERT INTO task_completions (account_id, task_id, status, completion_count, last_completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, task_id) DO UPDATE SET
			status            = excluded.status,
			completion_count  = excluded.completion_count,
			last_completed_at = excluded.last_completed_at
	`, c.AccountID, c.TaskID, c.Status, c.CompletionCount, fmtTime(c.LastCompletedAt),
		c.CreatedAt.UTC().Format(timeFormat))
	return err
}

// TaskCompletionOf reads completion state outside a transaction, for listings.
func (db *DB) TaskCompletionOf(ctx context.Context, accountID, taskID string) (domain.TaskCompletion, error) {
	c := domain.TaskCompletion{AccountID: accountID, TaskID: taskID, Status: domain.TaskInProgress}
	var lastCompletedAt, createdAt sql.NullString
	err := db.db.QueryRowContext(ctx, `
		SELECT id, status, completion_count, last_completed_at, created_at
		FROM task_completions WHERE account_id = ? AND task_id = ?
	`, accountID, taskID).Scan(&c.ID, &c.Status, &c.CompletionCount, &lastCompletedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return domain.TaskCompletion{}, fmt.Errorf("reading task completion: %w", err)
	}
	c.LastCompletedAt = parseTime(lastCompletedAt)
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}
