package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/habitloop/habitbot/habitbot"
	"github.com/habitloop/habitbot/habitbot/commands"
	"github.com/habitloop/habitbot/habitbot/components"
	"github.com/habitloop/habitbot/habitbot/database"
	"github.com/habitloop/habitbot/habitbot/database/repositories"
	"github.com/habitloop/habitbot/habitbot/handlers"
	"github.com/habitloop/habitbot/habitbot/logger"
	"github.com/habitloop/habitbot/habitbot/notifier"
	"github.com/habitloop/habitbot/habitbot/schedule"
	"github.com/habitloop/habitbot/habitbot/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := habitbot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	slog.Info("Starting habit bot",
		slog.String("version", version),
		slog.String("commit", commit))

	defaultZone, err := time.LoadLocation(cfg.Schedule.DefaultTimezone)
	if err != nil {
		slog.Error("Invalid default timezone",
			slog.String("zone", cfg.Schedule.DefaultTimezone),
			slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Database ready",
		slog.String("path", cfg.DB.Path),
		slog.Duration("took", time.Since(dbStartTime)))

	b := habitbot.New(*cfg, version, commit)
	b.DB = db

	b.UserRepository = repositories.NewUserRepository(db.BunDB())
	b.TaskRepository = repositories.NewTaskRepository(db.BunDB())
	b.CompletionRepository = repositories.NewCompletionRepository(db.BunDB())
	b.LeaderboardRepository = repositories.NewLeaderboardRepository(db.BunDB())
	b.TimezoneRepository = repositories.NewTimezoneRepository(db.BunDB())

	b.Users = services.NewUserService(b.UserRepository)
	b.Timezones = services.NewTimezoneResolver(b.TimezoneRepository, defaultZone)
	b.Points = services.NewPointsService(db.BunDB(), b.TaskRepository, b.CompletionRepository, b.LeaderboardRepository)
	b.Progress = services.NewProgressService(b.TaskRepository, b.CompletionRepository, b.LeaderboardRepository)

	h := handler.New()
	h.Command("/task", handlers.WrapWithLogging("task", commands.TaskHandler(b)))
	h.Autocomplete("/task", commands.TaskAutocompleteHandler(b))
	h.Command("/progress", handlers.WrapWithLogging("progress", commands.ProgressHandler(b)))
	h.Command("/leaderboard", handlers.WrapWithLogging("leaderboard", commands.LeaderboardHandler(b)))
	h.Command("/timezone", handlers.WrapWithLogging("timezone", commands.TimezoneHandler(b)))
	h.Autocomplete("/timezone", commands.TimezoneAutocompleteHandler(b))
	h.Command("/help", handlers.WrapWithLogging("help", commands.HelpHandler(b)))
	h.Component("/done/", handlers.WrapComponentWithLogging("done", components.DoneButtonHandler(b)))
	h.Component("/noop", handlers.WrapComponentWithLogging("noop", components.NoopButtonHandler(b)))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	// The notifier needs the gateway client, so it is wired after
	// SetupBot. Everything that sends outbound reminders goes through
	// it.
	b.Notifier = notifier.NewDiscordNotifier(b.Client)
	b.Settlement = services.NewSettlementService(
		b.UserRepository,
		b.TaskRepository,
		b.CompletionRepository,
		b.LeaderboardRepository,
		b.Notifier,
	)
	b.Scheduler = schedule.New(
		b.TaskRepository,
		b.UserRepository,
		b.Timezones,
		b.Notifier,
		b.Settlement,
		schedule.Options{
			PreAlertLead:  cfg.Schedule.PreAlertLead(),
			FollowUpDelay: cfg.Schedule.FollowUpDelay(),
			ReferenceZone: defaultZone,
		},
	)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	if err = b.Scheduler.Reconcile(ctx); err != nil {
		slog.Error("Failed to restore task triggers",
			slog.String("type", "sched"),
			slog.Any("error", err))
		os.Exit(-1)
	}
	b.Scheduler.StartWeeklySettlement()

	gwCtx, gwCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gwCancel()
	if err = b.Client.OpenGateway(gwCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
	b.Scheduler.Shutdown()
}
