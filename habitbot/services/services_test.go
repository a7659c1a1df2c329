package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/habitloop/habitbot/habitbot/database"
	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/habitloop/habitbot/habitbot/database/repositories"
	"github.com/habitloop/habitbot/habitbot/notifier"
	"github.com/uptrace/bun"
)

// testEnv wires real repositories over an in-memory store so service
// tests exercise the same SQL paths as production.
type testEnv struct {
	db          *bun.DB
	users       repositories.UserRepository
	tasks       repositories.TaskRepository
	completions repositories.CompletionRepository
	leaderboard repositories.LeaderboardRepository
	timezones   repositories.TimezoneRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := database.New(ctx, database.DBConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitializeSchema(ctx); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	bunDB := db.BunDB()
	return &testEnv{
		db:          bunDB,
		users:       repositories.NewUserRepository(bunDB),
		tasks:       repositories.NewTaskRepository(bunDB),
		completions: repositories.NewCompletionRepository(bunDB),
		leaderboard: repositories.NewLeaderboardRepository(bunDB),
		timezones:   repositories.NewTimezoneRepository(bunDB),
	}
}

func (env *testEnv) addUser(t *testing.T, discordID, channelID string) *models.User {
	t.Helper()
	user := &models.User{DiscordID: discordID, ChannelID: channelID, Username: "u" + discordID, CreatedAt: time.Now()}
	if err := env.users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func (env *testEnv) addTask(t *testing.T, userID, name, timeStr, days string) *models.Task {
	t.Helper()
	task := &models.Task{UserID: userID, Name: name, TimeStr: timeStr, Days: days, CreatedAt: time.Now()}
	if err := env.tasks.Create(context.Background(), task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return task
}

type sentMessage struct {
	Address string
	Text    string
	Actions []notifier.Action
}

// recordingNotifier captures outbound messages; optional fail set
// simulates a delivery error per address.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]bool
}

func (n *recordingNotifier) Send(_ context.Context, address string, text string, actions []notifier.Action) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[address] {
		return errors.New("delivery failed")
	}
	n.sent = append(n.sent, sentMessage{Address: address, Text: text, Actions: actions})
	return nil
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentMessage, len(n.sent))
	copy(out, n.sent)
	return out
}
