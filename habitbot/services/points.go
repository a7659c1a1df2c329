package services

import (
	"context"
	"fmt"
	"time"

	"github.com/habitloop/habitbot/habitbot/database/repositories"
	"github.com/habitloop/habitbot/habitbot/schedule"
	"github.com/uptrace/bun"
)

const (
	// CompletionPoints is awarded once per (task, date) completion.
	CompletionPoints = 10
	// PerfectWeekBonus is awarded per task whose every due date in a
	// week has a matching completion.
	PerfectWeekBonus = 30
)

type MarkResult int

const (
	// Awarded: the completion was recorded and points granted.
	Awarded MarkResult = iota
	// AlreadyMarked: a completion for this (task, date) already
	// existed; nothing was mutated.
	AlreadyMarked
)

// PointsService records completions and awards the immediate base
// points. All mutations for one MarkDone run in a single transaction,
// and the completions unique constraint carries the idempotence: a
// retry or double-click lands on AlreadyMarked without a second award.
type PointsService struct {
	db          *bun.DB
	tasks       repositories.TaskRepository
	completions repositories.CompletionRepository
	leaderboard repositories.LeaderboardRepository
}

func NewPointsService(
	db *bun.DB,
	tasks repositories.TaskRepository,
	completions repositories.CompletionRepository,
	leaderboard repositories.LeaderboardRepository,
) *PointsService {
	return &PointsService{
		db:          db,
		tasks:       tasks,
		completions: completions,
		leaderboard: leaderboard,
	}
}

// MarkDone records a completion of the task for the given calendar date
// (owner-local) and upserts the base points onto the owner's entry for
// that week. Marking a date the task was not scheduled for is allowed
// and still earns points.
func (s *PointsService) MarkDone(ctx context.Context, taskID int64, date time.Time) (MarkResult, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := s.completions.InsertTx(ctx, tx, taskID, schedule.FormatDate(date))
	if err != nil {
		return 0, err
	}
	if !inserted {
		return AlreadyMarked, nil
	}

	weekStart := schedule.FormatDate(schedule.MondayOf(date))
	if err := s.leaderboard.AddPointsTx(ctx, tx, task.UserID, weekStart, CompletionPoints); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit completion: %w", err)
	}
	return Awarded, nil
}

// IsDoneToday reports whether the task has a completion for the date.
func (s *PointsService) IsDoneToday(ctx context.Context, taskID int64, date time.Time) (bool, error) {
	return s.completions.Exists(ctx, taskID, schedule.FormatDate(date))
}
