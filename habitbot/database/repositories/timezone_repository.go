package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/uptrace/bun"
)

var ErrTimezoneNotSet = errors.New("timezone not set")

type TimezoneRepository interface {
	Get(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID string, tzName string) error
}

type timezoneRepository struct {
	db *bun.DB
}

func NewTimezoneRepository(db *bun.DB) TimezoneRepository {
	return &timezoneRepository{db: db}
}

func (r *timezoneRepository) Get(ctx context.Context, userID string) (string, error) {
	tz := new(models.UserTimezone)
	err := r.db.NewSelect().
		Model(tz).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrTimezoneNotSet
		}
		return "", err
	}
	return tz.TZName, nil
}

func (r *timezoneRepository) Set(ctx context.Context, userID string, tzName string) error {
	_, err := r.db.NewInsert().
		Model(&models.UserTimezone{UserID: userID, TZName: tzName}).
		On("CONFLICT (user_id) DO UPDATE").
		Set("tz_name = EXCLUDED.tz_name").
		Exec(ctx)
	return err
}
