package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/lunamall/lunamall/internal/domain"
)

var noon = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

// ─── Check-In Tests ─────────────────────────────────────────────────────────

func TestCheckIn_FirstEver(t *testing.T) {
	res, err := CheckIn("acct-1", domain.StreakState{}, noon)
	if err != nil {
		t.Fatalf("CheckIn() error: %v", err)
	}
	if res.ConsecutiveDays != 1 {
		t.Errorf("ConsecutiveDays = %d, want 1", res.ConsecutiveDays)
	}
	if res.Intent.Delta != 10 {
		t.Errorf("Delta = %d, want 10", res.Intent.Delta)
	}
	if res.Intent.SourceRef != "2025-06-10" {
		t.Errorf("SourceRef = %q, want day key", res.Intent.SourceRef)
	}
}

func TestCheckIn_StreakContinues(t *testing.T) {
	state := domain.StreakState{LastCheckInDate: "2025-06-09", ConsecutiveDays: 6}
	res, err := CheckIn("acct-1", state, noon)
	if err != nil {
		t.Fatalf("CheckIn() error: %v", err)
	}
	if res.ConsecutiveDays != 7 {
		t.Errorf("ConsecutiveDays = %d, want 7", res.ConsecutiveDays)
	}
	// day 7 of the streak: 10 + 6
	if res.Intent.Delta != 16 {
		t.Errorf("Delta = %d, want 16", res.Intent.Delta)
	}
}

func TestCheckIn_GapResets(t *testing.T) {
	state := domain.StreakState{LastCheckInDate: "2025-06-07", ConsecutiveDays: 20}
	res, err := CheckIn("acct-1", state, noon)
	if err != nil {
		t.Fatalf("CheckIn() error: %v", err)
	}
	if res.ConsecutiveDays != 1 {
		t.Errorf("ConsecutiveDays = %d, want 1 after a gap", res.ConsecutiveDays)
	}
	if res.Intent.Delta != 10 {
		t.Errorf("Delta = %d, want 10 after reset", res.Intent.Delta)
	}
}

func TestCheckIn_AlreadyToday(t *testing.T) {
	state := domain.StreakState{LastCheckInDate: "2025-06-10", ConsecutiveDays: 3}
	_, err := CheckIn("acct-1", state, noon)
	if !errors.Is(err, domain.ErrAlreadyCheckedIn) {
		t.Fatalf("err = %v, want ErrAlreadyCheckedIn", err)
	}
	rej, ok := domain.IsRejection(err)
	if !ok {
		t.Fatal("expected a Rejection")
	}
	if rej.ConsecutiveDays != 3 {
		t.Errorf("rejection streak detail = %d, want 3", rej.ConsecutiveDays)
	}
}

func TestCheckInReward(t *testing.T) {
	tests := []struct {
		consecutive int64
		want        int64
	}{
		{1, 10},
		{2, 11},
		{7, 16},
		{30, 39}, // uncapped
	}
	for _, tt := range tests {
		if got := CheckInReward(tt.consecutive); got != tt.want {
			t.Errorf("CheckInReward(%d) = %d, want %d", tt.consecutive, got, tt.want)
		}
	}
}

// ─── Task Tests ─────────────────────────────────────────────────────────────

func activeTask() domain.Task {
	return domain.Task{
		ID:           "task-1",
		Code:         "profile_complete",
		Title:        "Complete your profile",
		PointsReward: 25,
		Type:         domain.TaskOneTime,
		Active:       true,
	}
}

func TestCompleteTask_OneTime(t *testing.T) {
	res, err := CompleteTask("acct-1", activeTask(), domain.TaskCompletion{}, noon)
	if err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}
	if res.Intent.Delta != 25 {
		t.Errorf("Delta = %d, want 25", res.Intent.Delta)
	}
	if res.NextStatus != domain.TaskCompleted {
		t.Errorf("NextStatus = %s, want completed", res.NextStatus)
	}
	if res.CompletionCount != 1 {
		t.Errorf("CompletionCount = %d, want 1", res.CompletionCount)
	}
}

func TestCompleteTask_OneTimeTwice(t *testing.T) {
	comp := domain.TaskCompletion{Status: domain.TaskCompleted, CompletionCount: 1}
	_, err := CompleteTask("acct-1", activeTask(), comp, noon)
	if !errors.Is(err, domain.ErrTaskMaxCompletionsReached) {
		t.Fatalf("err = %v, want ErrTaskMaxCompletionsReached", err)
	}
}

func TestCompleteTask_Inactive(t *testing.T) {
	task := activeTask()
	task.Active = false
	_, err := CompleteTask("acct-1", task, domain.TaskCompletion{}, noon)
	if !errors.Is(err, domain.ErrTaskInactive) {
		t.Fatalf("err = %v, want ErrTaskInactive", err)
	}
}

func TestCompleteTask_Window(t *testing.T) {
	task := activeTask()
	task.StartAt = noon.Add(time.Hour)
	if _, err := CompleteTask("acct-1", task, domain.TaskCompletion{}, noon); !errors.Is(err, domain.ErrTaskNotStarted) {
		t.Errorf("err = %v, want ErrTaskNotStarted", err)
	}

	task = activeTask()
	task.EndAt = noon.Add(-time.Hour)
	if _, err := CompleteTask("acct-1", task, domain.TaskCompletion{}, noon); !errors.Is(err, domain.ErrTaskExpired) {
		t.Errorf("err = %v, want ErrTaskExpired", err)
	}
}

func TestCompleteTask_Cooldown(t *testing.T) {
	task := activeTask()
	task.Type = domain.TaskDaily
	task.Cooldown = 24 * time.Hour

	comp := domain.TaskCompletion{
		Status:          domain.TaskInProgress,
		CompletionCount: 1,
		LastCompletedAt: noon.Add(-6 * time.Hour),
	}
	_, err := CompleteTask("acct-1", task, comp, noon)
	if !errors.Is(err, domain.ErrTaskCooldownActive) {
		t.Fatalf("err = %v, want ErrTaskCooldownActive", err)
	}
	rej, _ := domain.IsRejection(err)
	if rej.CooldownRemaining != 18*time.Hour {
		t.Errorf("CooldownRemaining = %s, want 18h", rej.CooldownRemaining)
	}
}

func TestCompleteTask_RepeatableCap(t *testing.T) {
	task := activeTask()
	task.Type = domain.TaskRepeatable
	task.MaxCompletions = 3

	// Third completion hits the cap and flips to completed.
	comp := domain.TaskCompletion{Status: domain.TaskInProgress, CompletionCount: 2}
	res, err := CompleteTask("acct-1", task, comp, noon)
	if err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}
	if res.NextStatus != domain.TaskCompleted {
		t.Errorf("NextStatus = %s, want completed at cap", res.NextStatus)
	}

	// Fourth attempt is rejected.
	comp.CompletionCount = 3
	if _, err := CompleteTask("acct-1", task, comp, noon); !errors.Is(err, domain.ErrTaskMaxCompletionsReached) {
		t.Errorf("err = %v, want ErrTaskMaxCompletionsReached", err)
	}
}

func TestCompleteTask_DailyStaysInProgress(t *testing.T) {
	task := activeTask()
	task.Type = domain.TaskDaily
	res, err := CompleteTask("acct-1", task, domain.TaskCompletion{CompletionCount: 5}, noon)
	if err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}
	if res.NextStatus != domain.TaskInProgress {
		t.Errorf("NextStatus = %s, want in_progress", res.NextStatus)
	}
}

func TestProgress_CooldownProjection(t *testing.T) {
	task := activeTask()
	task.Type = domain.TaskDaily
	task.Cooldown = 24 * time.Hour
	comp := domain.TaskCompletion{CompletionCount: 2, LastCompletedAt: noon.Add(-23 * time.Hour)}

	p := Progress(task, comp, noon)
	if p.CanComplete {
		t.Error("CanComplete should be false during cooldown")
	}
	if p.CooldownRemaining != time.Hour {
		t.Errorf("CooldownRemaining = %s, want 1h", p.CooldownRemaining)
	}
}

// ─── Invitation Tests ───────────────────────────────────────────────────────

func TestInvitationPayouts(t *testing.T) {
	edge := domain.InvitationEdge{
		ID:           "edge-1",
		InviterID:    "inviter",
		InviteeID:    "invitee",
		RewardPoints: 50,
		InviteeBonus: 20,
	}

	intents := InvitationPayouts(edge)
	if len(intents) != 2 {
		t.Fatalf("len(intents) = %d, want 2", len(intents))
	}
	if intents[0].AccountID != "inviter" || intents[0].Delta != 50 || intents[0].SourceKind != domain.SourceInvitation {
		t.Errorf("inviter intent = %+v", intents[0])
	}
	if intents[1].AccountID != "invitee" || intents[1].Delta != 20 || intents[1].SourceKind != domain.SourceNewUserBonus {
		t.Errorf("invitee intent = %+v", intents[1])
	}
	if intents[0].SourceRef != "edge-1" || intents[1].SourceRef != "edge-1" {
		t.Error("both sides must share the edge id as source ref")
	}
}

func TestClaimableInvitation(t *testing.T) {
	edge := domain.InvitationEdge{
		ID:        "edge-1",
		InviterID: "inviter",
		InviteeID: "invitee",
		Status:    domain.InvitationCompleted,
	}

	if err := ClaimableInvitation("inviter", edge); err != nil {
		t.Errorf("claim by inviter should pass, got %v", err)
	}
	if err := ClaimableInvitation("someone-else", edge); !errors.Is(err, domain.ErrInvitationNotOwned) {
		t.Errorf("err = %v, want ErrInvitationNotOwned", err)
	}

	claimed := edge
	claimed.ClaimedAt = noon
	err := ClaimableInvitation("inviter", claimed)
	if !errors.Is(err, domain.ErrRewardAlreadyClaimed) {
		t.Fatalf("err = %v, want ErrRewardAlreadyClaimed", err)
	}
	rej, _ := domain.IsRejection(err)
	if !rej.ClaimedAt.Equal(noon) {
		t.Error("rejection should reference the existing claimed_at")
	}

	pending := edge
	pending.Status = domain.InvitationPending
	if err := ClaimableInvitation("inviter", pending); !errors.Is(err, domain.ErrInvitationIncomplete) {
		t.Errorf("err = %v, want ErrInvitationIncomplete", err)
	}
}
