package habitbot

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"
	"github.com/habitloop/habitbot/habitbot/database"
	"github.com/habitloop/habitbot/habitbot/database/repositories"
	"github.com/habitloop/habitbot/habitbot/notifier"
	"github.com/habitloop/habitbot/habitbot/schedule"
	"github.com/habitloop/habitbot/habitbot/services"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string

	DB                    *database.DB
	UserRepository        repositories.UserRepository
	TaskRepository        repositories.TaskRepository
	CompletionRepository  repositories.CompletionRepository
	LeaderboardRepository repositories.LeaderboardRepository
	TimezoneRepository    repositories.TimezoneRepository

	Users      *services.UserService
	Timezones  *services.TimezoneResolver
	Points     *services.PointsService
	Progress   *services.ProgressService
	Settlement *services.SettlementService

	Notifier  notifier.Notifier
	Scheduler *schedule.Scheduler
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Habit bot is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("your habits 👀"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}
