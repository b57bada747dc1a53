package domain

import (
	"errors"
	"testing"
	"time"
)

// ─── Streak Tests ───────────────────────────────────────────────────────────

func TestStreakState_NextConsecutive(t *testing.T) {
	day := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		state StreakState
		want  int64
	}{
		{
			name:  "first ever check-in",
			state: StreakState{},
			want:  1,
		},
		{
			name:  "checked in yesterday, streak continues",
			state: StreakState{LastCheckInDate: "2025-06-09", ConsecutiveDays: 6},
			want:  7,
		},
		{
			name:  "gap of one day resets",
			state: StreakState{LastCheckInDate: "2025-06-08", ConsecutiveDays: 12},
			want:  1,
		},
		{
			name:  "long gap resets",
			state: StreakState{LastCheckInDate: "2024-12-31", ConsecutiveDays: 30},
			want:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.state.NextConsecutive(day)
			if got != tt.want {
				t.Errorf("NextConsecutive() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCycleDay(t *testing.T) {
	tests := []struct {
		consecutive int64
		want        int64
	}{
		{1, 1},
		{2, 2},
		{7, 7},
		{8, 1},
		{14, 7},
		{15, 1},
		{0, 1}, // defensive clamp
	}

	for _, tt := range tests {
		if got := CycleDay(tt.consecutive); got != tt.want {
			t.Errorf("CycleDay(%d) = %d, want %d", tt.consecutive, got, tt.want)
		}
	}
}

// ─── Source Kind Tests ──────────────────────────────────────────────────────

func TestSourceKind_AtMostOnce(t *testing.T) {
	once := []SourceKind{SourceCheckIn, SourceInvitation, SourceNewUserBonus, SourceOrderComplete}
	for _, k := range once {
		if !k.AtMostOnce() {
			t.Errorf("%s should be at-most-once", k)
		}
	}

	repeatable := []SourceKind{SourceTaskComplete, SourceLotteryCost, SourceLotteryPayout, SourceExchangeCost, SourceExchangeRefund, SourceAdminAdjust}
	for _, k := range repeatable {
		if k.AtMostOnce() {
			t.Errorf("%s should not be at-most-once", k)
		}
	}
}

// ─── Candidate Eligibility Tests ────────────────────────────────────────────

func TestPrizeCandidate_Eligible(t *testing.T) {
	tests := []struct {
		name string
		c    PrizeCandidate
		want bool
	}{
		{"active with stock", PrizeCandidate{Active: true, RemainingStock: 3}, true},
		{"active unbounded", PrizeCandidate{Active: true, RemainingStock: UnboundedStock}, true},
		{"active but exhausted", PrizeCandidate{Active: true, RemainingStock: 0}, false},
		{"inactive with stock", PrizeCandidate{Active: false, RemainingStock: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Eligible(); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ─── Exchange Status Tests ──────────────────────────────────────────────────

func TestExchangeStatus_CountsTowardCap(t *testing.T) {
	if !ExchangePending.CountsTowardCap() {
		t.Error("pending should count toward the per-user cap")
	}
	if !ExchangeUsed.CountsTowardCap() {
		t.Error("used should count toward the per-user cap")
	}
	if ExchangeRefunded.CountsTowardCap() {
		t.Error("refunded should give the allowance back")
	}
	if ExchangeCancelled.CountsTowardCap() {
		t.Error("cancelled should give the allowance back")
	}
}

// ─── Rejection Tests ────────────────────────────────────────────────────────

func TestRejection_Unwrap(t *testing.T) {
	rej := Reject(ErrTaskCooldownActive)
	rej.CooldownRemaining = 2 * time.Hour

	var err error = rej
	if !errors.Is(err, ErrTaskCooldownActive) {
		t.Error("errors.Is should match the wrapped sentinel")
	}

	got, ok := IsRejection(err)
	if !ok {
		t.Fatal("IsRejection should detect a Rejection")
	}
	if got.CooldownRemaining != 2*time.Hour {
		t.Errorf("CooldownRemaining = %s, want 2h", got.CooldownRemaining)
	}
}

func TestRejection_ErrorIncludesCooldown(t *testing.T) {
	rej := Reject(ErrTaskCooldownActive)
	rej.CooldownRemaining = 90 * time.Minute

	want := "task cooldown active (1h30m0s remaining)"
	if rej.Error() != want {
		t.Errorf("Error() = %q, want %q", rej.Error(), want)
	}
}

func TestIsRejection_PlainError(t *testing.T) {
	if _, ok := IsRejection(errors.New("disk on fire")); ok {
		t.Error("plain errors are system faults, not rejections")
	}
}
