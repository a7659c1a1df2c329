package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/habitloop/habitbot/habitbot/database/repositories"
	"github.com/habitloop/habitbot/habitbot/schedule"
)

// ProgressService reports a user's current week: per-task done/due with
// percentages, plus the running leaderboard points (bonuses land only
// at settlement).
type ProgressService struct {
	tasks       repositories.TaskRepository
	completions repositories.CompletionRepository
	leaderboard repositories.LeaderboardRepository
}

func NewProgressService(
	tasks repositories.TaskRepository,
	completions repositories.CompletionRepository,
	leaderboard repositories.LeaderboardRepository,
) *ProgressService {
	return &ProgressService{
		tasks:       tasks,
		completions: completions,
		leaderboard: leaderboard,
	}
}

// WeekReport builds the progress text for the week containing today.
// Returns ok=false when the user has no tasks yet.
func (s *ProgressService) WeekReport(ctx context.Context, userID string, today time.Time) (string, bool, error) {
	tasks, err := s.tasks.GetByUserID(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if len(tasks) == 0 {
		return "", false, nil
	}

	weekStart := schedule.MondayOf(today)
	weekEnd := weekStart.AddDate(0, 0, 6)

	var sb strings.Builder
	sb.WriteString("📊 This week's progress:\n")
	for _, task := range tasks {
		days, err := schedule.ParseWeekdays(task.Days)
		if err != nil {
			return "", false, fmt.Errorf("task %d has malformed weekday set: %w", task.ID, err)
		}
		dueCount := len(schedule.DueDatesInRange(days, weekStart, weekEnd))
		doneDates, err := s.completions.GetDatesInRange(ctx, task.ID,
			schedule.FormatDate(weekStart), schedule.FormatDate(weekEnd))
		if err != nil {
			return "", false, err
		}

		doneCount := len(doneDates)
		percent := 0
		if dueCount > 0 {
			percent = int(math.Round(float64(doneCount) / float64(dueCount) * 100))
		}
		fmt.Fprintf(&sb, "• %s: %d/%d (%d%%) → %d coins\n",
			task.Name, doneCount, dueCount, percent, doneCount*CompletionPoints)
	}

	points, err := s.leaderboard.GetPoints(ctx, userID, schedule.FormatDate(weekStart))
	if err != nil {
		return "", false, err
	}
	fmt.Fprintf(&sb, "\n💰 Your coins this week (before bonuses): %d\n", points)
	fmt.Fprintf(&sb, "🔔 Bonuses land Monday: +%d per task with every scheduled day completed.", PerfectWeekBonus)

	return sb.String(), true, nil
}
