package models

import (
	"time"

	"github.com/uptrace/bun"
)

// LeaderboardEntry is a user's running point total for one ISO week.
// WeekStart is the Monday of that week as "YYYY-MM-DD". Points are
// only ever mutated additively (completion awards and weekly bonuses).
type LeaderboardEntry struct {
	bun.BaseModel `bun:"table:leaderboard,alias:lb"`

	ID        int64  `bun:"id,pk,autoincrement"`
	UserID    string `bun:"user_id,notnull,unique:leaderboard_user_week"`
	WeekStart string `bun:"week_start,notnull,unique:leaderboard_user_week"`
	Points    int    `bun:"points,notnull"`
}

// WeeklySettlement marks one settled week. The unique week_start row is
// the guard that keeps the bonus pass from ever running twice for the
// same week.
type WeeklySettlement struct {
	bun.BaseModel `bun:"table:settlements,alias:s"`

	ID        int64     `bun:"id,pk,autoincrement"`
	WeekStart string    `bun:"week_start,notnull,unique"`
	SettledAt time.Time `bun:"settled_at,notnull"`
}
