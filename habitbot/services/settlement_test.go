package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/habitloop/habitbot/habitbot/database/repositories"
	"github.com/habitloop/habitbot/habitbot/schedule"
)

// brokenUserListing delegates everything but fails GetAll, simulating a
// store hiccup at the start of a settlement pass.
type brokenUserListing struct {
	repositories.UserRepository
}

func (brokenUserListing) GetAll(context.Context) ([]*models.User, error) {
	return nil, errors.New("store unavailable")
}

// settlementNow is a Monday 00:01 firing; the settled week is the one
// before it, 2024-01-01 .. 2024-01-07.
var settlementNow = time.Date(2024, 1, 8, 0, 1, 0, 0, time.UTC)

func markDates(t *testing.T, env *testEnv, points *PointsService, taskID int64, dates ...string) {
	t.Helper()
	for _, d := range dates {
		day, err := time.Parse(time.DateOnly, d)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := points.MarkDone(context.Background(), taskID, day); err != nil {
			t.Fatalf("MarkDone(%s) failed: %v", d, err)
		}
	}
}

func TestSettleWeekAwardsPerfectBonus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	notify := &recordingNotifier{}
	points := NewPointsService(env.db, env.tasks, env.completions, env.leaderboard)
	svc := NewSettlementService(env.users, env.tasks, env.completions, env.leaderboard, notify)

	env.addUser(t, "100", "chan-100")
	perfect := env.addTask(t, "100", "English", "07:30", "1,3,5")
	partial := env.addTask(t, "100", "Gym", "18:00", "2,4")

	// Every due date of the perfect task, one of two for the other.
	markDates(t, env, points, perfect.ID, "2024-01-01", "2024-01-03", "2024-01-05")
	markDates(t, env, points, partial.ID, "2024-01-02")

	if err := svc.SettleWeek(ctx, settlementNow); err != nil {
		t.Fatalf("SettleWeek failed: %v", err)
	}

	weekKey := schedule.FormatDate(schedule.MondayOf(settlementNow.AddDate(0, 0, -7)))
	total, err := env.leaderboard.GetPoints(ctx, "100", weekKey)
	if err != nil {
		t.Fatalf("GetPoints failed: %v", err)
	}
	// 4 completions plus one perfect-week bonus.
	want := 4*CompletionPoints + PerfectWeekBonus
	if total != want {
		t.Errorf("week total = %d, want %d", total, want)
	}

	msgs := notify.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d summaries, want 1", len(msgs))
	}
	if msgs[0].Address != "chan-100" {
		t.Errorf("summary went to %q", msgs[0].Address)
	}
	for _, fragment := range []string{"English: 3/3", "Gym: 1/2", "🎁 30 bonus", "Week total: 70"} {
		if !strings.Contains(msgs[0].Text, fragment) {
			t.Errorf("summary missing %q:\n%s", fragment, msgs[0].Text)
		}
	}
}

func TestSettleWeekRunsOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	notify := &recordingNotifier{}
	points := NewPointsService(env.db, env.tasks, env.completions, env.leaderboard)
	svc := NewSettlementService(env.users, env.tasks, env.completions, env.leaderboard, notify)

	env.addUser(t, "100", "chan-100")
	task := env.addTask(t, "100", "English", "07:30", "1")
	markDates(t, env, points, task.ID, "2024-01-01")

	if err := svc.SettleWeek(ctx, settlementNow); err != nil {
		t.Fatalf("first SettleWeek failed: %v", err)
	}
	if err := svc.SettleWeek(ctx, settlementNow); err != nil {
		t.Fatalf("second SettleWeek failed: %v", err)
	}

	weekKey := "2024-01-01"
	total, err := env.leaderboard.GetPoints(ctx, "100", weekKey)
	if err != nil {
		t.Fatalf("GetPoints failed: %v", err)
	}
	want := CompletionPoints + PerfectWeekBonus
	if total != want {
		t.Errorf("total after double settlement = %d, want %d (bonus must not double)", total, want)
	}
	if msgs := notify.messages(); len(msgs) != 1 {
		t.Errorf("got %d summaries, want 1", len(msgs))
	}
}

func TestSettleWeekSkipsUsersWithoutTasks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	notify := &recordingNotifier{}
	svc := NewSettlementService(env.users, env.tasks, env.completions, env.leaderboard, notify)

	env.addUser(t, "100", "chan-100")

	if err := svc.SettleWeek(ctx, settlementNow); err != nil {
		t.Fatalf("SettleWeek failed: %v", err)
	}
	if msgs := notify.messages(); len(msgs) != 0 {
		t.Errorf("taskless user received %d messages", len(msgs))
	}
}

func TestSettleWeekEarlyFailureReleasesClaim(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	notify := &recordingNotifier{}
	points := NewPointsService(env.db, env.tasks, env.completions, env.leaderboard)

	env.addUser(t, "100", "chan-100")
	task := env.addTask(t, "100", "English", "07:30", "1")
	markDates(t, env, points, task.ID, "2024-01-01")

	broken := NewSettlementService(brokenUserListing{env.users}, env.tasks, env.completions, env.leaderboard, notify)
	if err := broken.SettleWeek(ctx, settlementNow); err == nil {
		t.Fatal("SettleWeek should surface the user listing failure")
	}

	// The failed pass did no per-user work, so a retry must still be
	// able to claim the week and award the bonus.
	svc := NewSettlementService(env.users, env.tasks, env.completions, env.leaderboard, notify)
	if err := svc.SettleWeek(ctx, settlementNow); err != nil {
		t.Fatalf("retry SettleWeek failed: %v", err)
	}

	total, err := env.leaderboard.GetPoints(ctx, "100", "2024-01-01")
	if err != nil {
		t.Fatalf("GetPoints failed: %v", err)
	}
	want := CompletionPoints + PerfectWeekBonus
	if total != want {
		t.Errorf("total after retry = %d, want %d", total, want)
	}
	if msgs := notify.messages(); len(msgs) != 1 {
		t.Errorf("got %d summaries, want 1", len(msgs))
	}
}

func TestSettleWeekMessagesUserWithNoCompletions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	notify := &recordingNotifier{}
	svc := NewSettlementService(env.users, env.tasks, env.completions, env.leaderboard, notify)

	env.addUser(t, "100", "chan-100")
	env.addTask(t, "100", "English", "07:30", "1,3,5")

	if err := svc.SettleWeek(ctx, settlementNow); err != nil {
		t.Fatalf("SettleWeek failed: %v", err)
	}

	msgs := notify.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d summaries, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "English: 0/3") {
		t.Errorf("summary missing 0/3 line:\n%s", msgs[0].Text)
	}
	if strings.Contains(msgs[0].Text, "bonus") {
		t.Errorf("empty week must not mention a bonus:\n%s", msgs[0].Text)
	}

	total, err := env.leaderboard.GetPoints(ctx, "100", "2024-01-01")
	if err != nil {
		t.Fatalf("GetPoints failed: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
}

func TestSettleWeekNoBonusForImperfectWeek(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	notify := &recordingNotifier{}
	points := NewPointsService(env.db, env.tasks, env.completions, env.leaderboard)
	svc := NewSettlementService(env.users, env.tasks, env.completions, env.leaderboard, notify)

	env.addUser(t, "100", "chan-100")
	task := env.addTask(t, "100", "English", "07:30", "1,3")
	markDates(t, env, points, task.ID, "2024-01-01") // misses Wednesday

	if err := svc.SettleWeek(ctx, settlementNow); err != nil {
		t.Fatalf("SettleWeek failed: %v", err)
	}

	total, err := env.leaderboard.GetPoints(ctx, "100", "2024-01-01")
	if err != nil {
		t.Fatalf("GetPoints failed: %v", err)
	}
	if total != CompletionPoints {
		t.Errorf("total = %d, want %d (no bonus)", total, CompletionPoints)
	}
}

func TestSettleWeekDeliveryFailureKeepsPoints(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	notify := &recordingNotifier{fail: map[string]bool{"chan-100": true}}
	points := NewPointsService(env.db, env.tasks, env.completions, env.leaderboard)
	svc := NewSettlementService(env.users, env.tasks, env.completions, env.leaderboard, notify)

	env.addUser(t, "100", "chan-100")
	env.addUser(t, "200", "chan-200")
	t1 := env.addTask(t, "100", "English", "07:30", "1")
	t2 := env.addTask(t, "200", "Gym", "18:00", "1")
	markDates(t, env, points, t1.ID, "2024-01-01")
	markDates(t, env, points, t2.ID, "2024-01-01")

	if err := svc.SettleWeek(ctx, settlementNow); err != nil {
		t.Fatalf("SettleWeek failed: %v", err)
	}

	// The failed delivery must not affect either user's points.
	for _, userID := range []string{"100", "200"} {
		total, err := env.leaderboard.GetPoints(ctx, userID, "2024-01-01")
		if err != nil {
			t.Fatalf("GetPoints failed: %v", err)
		}
		want := CompletionPoints + PerfectWeekBonus
		if total != want {
			t.Errorf("user %s total = %d, want %d", userID, total, want)
		}
	}

	msgs := notify.messages()
	if len(msgs) != 1 || msgs[0].Address != "chan-200" {
		t.Errorf("expected only chan-200 to receive a summary, got %v", msgs)
	}
}
