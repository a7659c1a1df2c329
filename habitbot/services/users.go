package services

import (
	"context"
	"errors"

	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/habitloop/habitbot/habitbot/database/repositories"
)

// UserService creates users lazily on first interaction. Users are
// never deleted.
type UserService struct {
	users repositories.UserRepository
}

func NewUserService(users repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

// Ensure returns the user, creating the row on first contact. The
// channel the interaction came from becomes the delivery address and is
// refreshed on later interactions so reminders follow the user.
func (s *UserService) Ensure(ctx context.Context, discordID, channelID, username string) (*models.User, error) {
	user, err := s.users.GetByDiscordID(ctx, discordID)
	if err == nil {
		if channelID != "" && user.ChannelID != channelID {
			if err := s.users.UpdateChannel(ctx, discordID, channelID); err != nil {
				return nil, err
			}
			user.ChannelID = channelID
		}
		return user, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	user = &models.User{
		DiscordID: discordID,
		ChannelID: channelID,
		Username:  username,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
