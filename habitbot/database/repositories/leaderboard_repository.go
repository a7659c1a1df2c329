package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/uptrace/bun"
)

type LeaderboardRepository interface {
	// AddPoints upserts a point delta onto the (user, week) entry:
	// insert with the delta when absent, otherwise add it to the
	// existing total. The single statement keeps concurrent awards for
	// the same week race-free.
	AddPoints(ctx context.Context, userID string, weekStart string, delta int) error
	AddPointsTx(ctx context.Context, tx bun.Tx, userID string, weekStart string, delta int) error
	GetPoints(ctx context.Context, userID string, weekStart string) (int, error)
	// GetWeekStandings returns all entries for a week, highest first.
	GetWeekStandings(ctx context.Context, weekStart string) ([]*models.LeaderboardEntry, error)
	// ClaimSettlement records that the given week has been settled.
	// Returns false when the week was already claimed by an earlier run.
	ClaimSettlement(ctx context.Context, weekStart string) (bool, error)
	// ReleaseSettlement removes the claim so a later run can retry the
	// week. Only for backing out of a pass that did no per-user work.
	ReleaseSettlement(ctx context.Context, weekStart string) error
}

type leaderboardRepository struct {
	db *bun.DB
}

func NewLeaderboardRepository(db *bun.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) AddPoints(ctx context.Context, userID string, weekStart string, delta int) error {
	return addPoints(ctx, r.db, userID, weekStart, delta)
}

func (r *leaderboardRepository) AddPointsTx(ctx context.Context, tx bun.Tx, userID string, weekStart string, delta int) error {
	return addPoints(ctx, tx, userID, weekStart, delta)
}

func addPoints(ctx context.Context, db bun.IDB, userID string, weekStart string, delta int) error {
	_, err := db.NewInsert().
		Model(&models.LeaderboardEntry{UserID: userID, WeekStart: weekStart, Points: delta}).
		On("CONFLICT (user_id, week_start) DO UPDATE").
		Set("points = points + EXCLUDED.points").
		Exec(ctx)
	return err
}

func (r *leaderboardRepository) GetPoints(ctx context.Context, userID string, weekStart string) (int, error) {
	entry := new(models.LeaderboardEntry)
	err := r.db.NewSelect().
		Model(entry).
		Where("user_id = ? AND week_start = ?", userID, weekStart).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return entry.Points, nil
}

func (r *leaderboardRepository) GetWeekStandings(ctx context.Context, weekStart string) ([]*models.LeaderboardEntry, error) {
	var entries []*models.LeaderboardEntry
	err := r.db.NewSelect().
		Model(&entries).
		Where("week_start = ?", weekStart).
		Order("points DESC", "user_id ASC").
		Scan(ctx)
	return entries, err
}

func (r *leaderboardRepository) ClaimSettlement(ctx context.Context, weekStart string) (bool, error) {
	res, err := r.db.NewInsert().
		Model(&models.WeeklySettlement{WeekStart: weekStart, SettledAt: time.Now()}).
		On("CONFLICT (week_start) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *leaderboardRepository) ReleaseSettlement(ctx context.Context, weekStart string) error {
	_, err := r.db.NewDelete().
		Model((*models.WeeklySettlement)(nil)).
		Where("week_start = ?", weekStart).
		Exec(ctx)
	return err
}
