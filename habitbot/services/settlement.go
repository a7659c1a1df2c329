package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/habitloop/habitbot/habitbot/database/repositories"
	"github.com/habitloop/habitbot/habitbot/notifier"
	"github.com/habitloop/habitbot/habitbot/schedule"
	"golang.org/x/sync/errgroup"
)

const settlementConcurrency = 4

// SettlementService runs the weekly bonus pass. It is driven by the
// scheduler's Monday 00:01 firing in the reference zone: one firing
// system-wide, not per user zone, so the additive bonus upsert happens
// exactly once per (user, week). The settlements marker row makes the
// whole pass idempotent: a second run on the same week is a no-op.
type SettlementService struct {
	users       repositories.UserRepository
	tasks       repositories.TaskRepository
	completions repositories.CompletionRepository
	leaderboard repositories.LeaderboardRepository
	notify      notifier.Notifier
}

func NewSettlementService(
	users repositories.UserRepository,
	tasks repositories.TaskRepository,
	completions repositories.CompletionRepository,
	leaderboard repositories.LeaderboardRepository,
	notify notifier.Notifier,
) *SettlementService {
	return &SettlementService{
		users:       users,
		tasks:       tasks,
		completions: completions,
		leaderboard: leaderboard,
		notify:      notify,
	}
}

// taskOutcome is one task's tally for the settled week.
type taskOutcome struct {
	Name        string
	DueCount    int
	DoneCount   int
	BasePoints  int
	PerfectWeek bool
}

// SettleWeek settles the week preceding now: per user, per task, +30
// bonus for every perfect week, then one summary message per user.
// A delivery failure skips that user's message only; their points are
// already persisted.
func (s *SettlementService) SettleWeek(ctx context.Context, now time.Time) error {
	prevStart := schedule.MondayOf(now.AddDate(0, 0, -7))
	prevEnd := prevStart.AddDate(0, 0, 6)
	weekKey := schedule.FormatDate(prevStart)

	claimed, err := s.leaderboard.ClaimSettlement(ctx, weekKey)
	if err != nil {
		return fmt.Errorf("failed to claim settlement for %s: %w", weekKey, err)
	}
	if !claimed {
		slog.Info("Week already settled, skipping",
			slog.String("type", "sched"),
			slog.String("week_start", weekKey))
		return nil
	}

	users, err := s.users.GetAll(ctx)
	if err != nil {
		// No per-user work has happened yet; give the claim back so
		// the week is not forfeited.
		if relErr := s.leaderboard.ReleaseSettlement(ctx, weekKey); relErr != nil {
			slog.Error("Failed to release settlement claim",
				slog.String("type", "sched"),
				slog.String("week_start", weekKey),
				slog.Any("error", relErr))
		}
		return fmt.Errorf("failed to list users for settlement: %w", err)
	}

	slog.Info("Starting weekly settlement",
		slog.String("type", "sched"),
		slog.String("week_start", weekKey),
		slog.Int("users", len(users)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(settlementConcurrency)
	for _, user := range users {
		user := user
		g.Go(func() error {
			if err := s.settleUser(ctx, user, prevStart, prevEnd); err != nil {
				slog.Error("Settlement failed for user",
					slog.String("type", "sched"),
					slog.String("user_id", user.DiscordID),
					slog.String("week_start", weekKey),
					slog.Any("error", err))
			}
			// One user's failure never aborts the others.
			return nil
		})
	}
	return g.Wait()
}

func (s *SettlementService) settleUser(ctx context.Context, user *models.User, weekStart, weekEnd time.Time) error {
	tasks, err := s.tasks.GetByUserID(ctx, user.DiscordID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	outcomes := make([]taskOutcome, 0, len(tasks))
	bonusTotal := 0
	for _, task := range tasks {
		outcome, err := s.tallyTask(ctx, task, weekStart, weekEnd)
		if err != nil {
			return err
		}
		if outcome.PerfectWeek {
			bonusTotal += PerfectWeekBonus
		}
		outcomes = append(outcomes, outcome)
	}

	weekKey := schedule.FormatDate(weekStart)
	if bonusTotal > 0 {
		if err := s.leaderboard.AddPoints(ctx, user.DiscordID, weekKey, bonusTotal); err != nil {
			return err
		}
	}

	total, err := s.leaderboard.GetPoints(ctx, user.DiscordID, weekKey)
	if err != nil {
		return err
	}

	summary := buildSummary(weekStart, weekEnd, outcomes, total)
	if err := s.notify.Send(ctx, user.ChannelID, summary, nil); err != nil {
		slog.Warn("Failed to deliver weekly summary",
			slog.String("type", "sched"),
			slog.String("user_id", user.DiscordID),
			slog.Any("error", err))
	}
	return nil
}

func (s *SettlementService) tallyTask(ctx context.Context, task *models.Task, weekStart, weekEnd time.Time) (taskOutcome, error) {
	days, err := schedule.ParseWeekdays(task.Days)
	if err != nil {
		return taskOutcome{}, fmt.Errorf("task %d has malformed weekday set: %w", task.ID, err)
	}

	dueDates := schedule.DueDatesInRange(days, weekStart, weekEnd)
	doneDates, err := s.completions.GetDatesInRange(ctx, task.ID,
		schedule.FormatDate(weekStart), schedule.FormatDate(weekEnd))
	if err != nil {
		return taskOutcome{}, err
	}

	done := make(map[string]bool, len(doneDates))
	for _, d := range doneDates {
		done[d] = true
	}
	perfect := len(dueDates) > 0 && len(done) == len(dueDates)
	for _, d := range dueDates {
		if !done[schedule.FormatDate(d)] {
			perfect = false
			break
		}
	}

	return taskOutcome{
		Name:        task.Name,
		DueCount:    len(dueDates),
		DoneCount:   len(done),
		BasePoints:  len(done) * CompletionPoints,
		PerfectWeek: perfect,
	}, nil
}

func buildSummary(weekStart, weekEnd time.Time, outcomes []taskOutcome, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 Weekly recap (%s — %s):\n",
		schedule.FormatDate(weekStart), schedule.FormatDate(weekEnd))
	for _, o := range outcomes {
		fmt.Fprintf(&sb, "• %s: %d/%d → %d coins", o.Name, o.DoneCount, o.DueCount, o.BasePoints)
		if o.PerfectWeek {
			fmt.Fprintf(&sb, " + 🎁 %d bonus", PerfectWeekBonus)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n💰 Week total: %d coins", total)
	return sb.String()
}
