package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/uptrace/bun"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByDiscordID(ctx context.Context, discordID string) (*models.User, error)
	GetAll(ctx context.Context) ([]*models.User, error)
	UpdateChannel(ctx context.Context, discordID string, channelID string) error
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(user).Exec(ctx)
	return err
}

func (r *userRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("discord_id = ?", discordID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		slog.Error("Database error when getting user",
			slog.String("type", "db"),
			slog.String("discord_id", discordID),
			slog.Any("error", err))
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		Order("id ASC").
		Scan(ctx)
	return users, err
}

func (r *userRepository) UpdateChannel(ctx context.Context, discordID string, channelID string) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("channel_id = ?", channelID).
		Where("discord_id = ?", discordID).
		Exec(ctx)
	return err
}
