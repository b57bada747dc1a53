package sqlite

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Account balance projections, derived from ledger_entries
		`CREATE TABLE IF NOT EXISTS accounts (
			id             TEXT PRIMARY KEY,
			balance        INTEGER NOT NULL DEFAULT 0,
			redeemed_total INTEGER NOT NULL DEFAULT 0,
			created_at     TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Append-only points ledger
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id    TEXT NOT NULL,
			delta         INTEGER NOT NULL,
			balance_after INTEGER NOT NULL,
			source_kind   TEXT NOT NULL,
			source_ref    TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_entries(account_id, id)`,
		// At-most-once source kinds get a hard uniqueness guarantee; the
		// in-transaction existence check exists only to surface a clean
		// domain error before the constraint fires.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_once
			ON ledger_entries(account_id, source_kind, source_ref)
			WHERE source_kind IN ('check_in', 'invitation', 'new_user_bonus', 'order_complete')`,

		// Check-in streaks
		`CREATE TABLE IF NOT EXISTS streak_state (
			account_id         TEXT PRIMARY KEY,
			last_check_in_date TEXT NOT NULL DEFAULT '',
			consecutive_days   INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS check_in_records (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id  TEXT NOT NULL,
			day         TEXT NOT NULL,
			points      INTEGER NOT NULL,
			consecutive INTEGER NOT NULL,
			created_at  TEXT NOT NULL,
			UNIQUE(account_id, day)
		)`,

		// Task definitions and per-account completion state
		`CREATE TABLE IF NOT EXISTS tasks (
			id               TEXT PRIMARY KEY,
			code             TEXT NOT NULL UNIQUE,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			points_reward    INTEGER NOT NULL,
			type             TEXT NOT NULL,
			active           INTEGER NOT NULL DEFAULT 1,
			max_completions  INTEGER NOT NULL DEFAULT 0,
			cooldown_seconds INTEGER NOT NULL DEFAULT 0,
			start_at         TEXT,
			end_at           TEXT,
			created_at       TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS task_completions (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id        TEXT NOT NULL,
			task_id           TEXT NOT NULL,
			status            TEXT NOT NULL,
			completion_count  INTEGER NOT NULL DEFAULT 0,
			last_completed_at TEXT,
			created_at        TEXT NOT NULL,
			UNIQUE(account_id, task_id)
		)`,

		// Lottery activities; the activity id doubles as its prize pool id
		`CREATE TABLE IF NOT EXISTS lottery_activities (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL,
			description        TEXT NOT NULL DEFAULT '',
			status             TEXT NOT NULL,
			active             INTEGER NOT NULL DEFAULT 1,
			start_at           TEXT,
			end_at             TEXT,
			points_cost        INTEGER NOT NULL DEFAULT 0,
			max_draws_per_user INTEGER NOT NULL DEFAULT 0,
			created_at         TEXT NOT NULL
		)`,

		// Weighted prize candidates; remaining_stock = -1 means unbounded
		`CREATE TABLE IF NOT EXISTS prize_candidates (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			pool_id         TEXT NOT NULL,
			name            TEXT NOT NULL,
			type            TEXT NOT NULL,
			weight          INTEGER NOT NULL,
			remaining_stock INTEGER NOT NULL DEFAULT -1,
			points_value    INTEGER NOT NULL DEFAULT 0,
			active          INTEGER NOT NULL DEFAULT 1,
			created_at      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_pool ON prize_candidates(pool_id)`,

		// Allocation audit trail, with prize details snapshotted at draw time
		`CREATE TABLE IF NOT EXISTS allocation_records (
			id           TEXT PRIMARY KEY,
			account_id   TEXT NOT NULL,
			pool_id      TEXT NOT NULL,
			candidate_id INTEGER NOT NULL,
			prize_name   TEXT NOT NULL,
			prize_type   TEXT NOT NULL,
			cost_paid    INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_allocations_account ON allocation_records(account_id, pool_id)`,

		// Prizes held by accounts pending claim or redemption
		`CREATE TABLE IF NOT EXISTS user_prizes (
			id              TEXT PRIMARY KEY,
			account_id      TEXT NOT NULL,
			allocation_id   TEXT NOT NULL,
			prize_name      TEXT NOT NULL,
			prize_type      TEXT NOT NULL,
			points_value    INTEGER NOT NULL DEFAULT 0,
			redemption_code TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			claimed_at      TEXT,
			expires_at      TEXT,
			created_at      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_prizes_account ON user_prizes(account_id)`,

		// Points mall catalog
		`CREATE TABLE IF NOT EXISTS points_products (
			id                    TEXT PRIMARY KEY,
			name                  TEXT NOT NULL,
			description           TEXT NOT NULL DEFAULT '',
			points_required       INTEGER NOT NULL,
			remaining_stock       INTEGER NOT NULL DEFAULT -1,
			exchanged_quantity    INTEGER NOT NULL DEFAULT 0,
			active                INTEGER NOT NULL DEFAULT 1,
			start_at              TEXT,
			end_at                TEXT,
			max_exchange_per_user INTEGER NOT NULL DEFAULT 0,
			min_points_balance    INTEGER NOT NULL DEFAULT 0,
			created_at            TEXT NOT NULL
		)`,

		// Exchange orders
		`CREATE TABLE IF NOT EXISTS exchanges (
			id          TEXT PRIMARY KEY,
			account_id  TEXT NOT NULL,
			product_id  TEXT NOT NULL,
			quantity    INTEGER NOT NULL DEFAULT 1,
			points_used INTEGER NOT NULL,
			status      TEXT NOT NULL,
			refunded_at TEXT,
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_account ON exchanges(account_id, product_id)`,

		// Recharge orders feeding blind box grants
		`CREATE TABLE IF NOT EXISTS recharge_orders (
			id           TEXT PRIMARY KEY,
			account_id   TEXT NOT NULL,
			phone_number TEXT NOT NULL DEFAULT '',
			amount_cents INTEGER NOT NULL DEFAULT 0,
			status       TEXT NOT NULL,
			eligible     INTEGER NOT NULL DEFAULT 0,
			completed_at TEXT,
			created_at   TEXT NOT NULL
		)`,

		// Blind boxes; one box per qualifying order
		`CREATE TABLE IF NOT EXISTS blind_boxes (
			id         TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			order_id   TEXT NOT NULL UNIQUE,
			status     TEXT NOT NULL,
			expires_at TEXT,
			opened_at  TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_blind_boxes_account ON blind_boxes(account_id)`,

		// Invitation edges; an invitee can be invited at most once
		`CREATE TABLE IF NOT EXISTS invitations (
			id            TEXT PRIMARY KEY,
			inviter_id    TEXT NOT NULL,
			invitee_id    TEXT NOT NULL UNIQUE,
			status        TEXT NOT NULL,
			reward_points INTEGER NOT NULL DEFAULT 0,
			invitee_bonus INTEGER NOT NULL DEFAULT 0,
			claimed_at    TEXT,
			created_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invitations_inviter ON invitations(inviter_id)`,
	}
}
