package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/habitloop/habitbot/habitbot/database/repositories"
	lru "github.com/hashicorp/golang-lru"
)

const timezoneCacheSize = 1024

// TimezoneResolver answers "what zone, what day, what time is it for
// this user". Zone lookups sit on the reminder hot path (every firing
// gate needs the user's calendar date), so resolved locations are
// cached in front of the timezones table.
type TimezoneResolver struct {
	repo       repositories.TimezoneRepository
	cache      *lru.Cache
	defaultLoc *time.Location
}

func NewTimezoneResolver(repo repositories.TimezoneRepository, defaultLoc *time.Location) *TimezoneResolver {
	cache, _ := lru.New(timezoneCacheSize)
	return &TimezoneResolver{
		repo:       repo,
		cache:      cache,
		defaultLoc: defaultLoc,
	}
}

// ZoneFor resolves the user's configured zone, falling back to the
// default zone when none is set or the stored name no longer loads.
func (r *TimezoneResolver) ZoneFor(ctx context.Context, userID string) *time.Location {
	if cached, ok := r.cache.Get(userID); ok {
		return cached.(*time.Location)
	}

	name, err := r.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrTimezoneNotSet) {
			slog.Warn("Failed to look up user timezone",
				slog.String("type", "db"),
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
		return r.defaultLoc
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("Stored timezone no longer loads, using default",
			slog.String("user_id", userID),
			slog.String("tz_name", name),
			slog.Any("error", err))
		return r.defaultLoc
	}

	r.cache.Add(userID, loc)
	return loc
}

// SetZone validates and stores an IANA zone name for the user.
func (r *TimezoneResolver) SetZone(ctx context.Context, userID string, tzName string) error {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", tzName, err)
	}
	if err := r.repo.Set(ctx, userID, tzName); err != nil {
		return err
	}
	r.cache.Add(userID, loc)
	return nil
}

func (r *TimezoneResolver) NowFor(ctx context.Context, userID string) time.Time {
	return time.Now().In(r.ZoneFor(ctx, userID))
}

func (r *TimezoneResolver) TodayFor(ctx context.Context, userID string) time.Time {
	now := r.NowFor(ctx, userID)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
