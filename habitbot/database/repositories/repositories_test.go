package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/habitloop/habitbot/habitbot/database"
	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/uptrace/bun"
)

func testDB(t *testing.T) *bun.DB {
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
	return db.BunDB()
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewUserRepository(db)

	if _, err := repo.GetByDiscordID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	user := &models.User{DiscordID: "100", ChannelID: "200", Username: "alice", CreatedAt: time.Now()}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByDiscordID(ctx, "100")
	if err != nil {
		t.Fatalf("GetByDiscordID failed: %v", err)
	}
	if got.Username != "alice" || got.ChannelID != "200" {
		t.Errorf("got %+v", got)
	}

	if err := repo.UpdateChannel(ctx, "100", "300"); err != nil {
		t.Fatalf("UpdateChannel failed: %v", err)
	}
	got, err = repo.GetByDiscordID(ctx, "100")
	if err != nil {
		t.Fatalf("GetByDiscordID after update failed: %v", err)
	}
	if got.ChannelID != "300" {
		t.Errorf("ChannelID = %q, want %q", got.ChannelID, "300")
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("GetAll returned %d users, want 1", len(all))
	}
}

func TestTaskRepository(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewTaskRepository(db)

	if _, err := repo.GetByID(ctx, 42); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}

	task := &models.Task{UserID: "100", Name: "English", TimeStr: "07:30", Days: "1,3,5", CreatedAt: time.Now()}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("Create did not populate the task ID")
	}

	got, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "English" || got.Days != "1,3,5" {
		t.Errorf("got %+v", got)
	}

	other := &models.Task{UserID: "999", Name: "Gym", TimeStr: "18:00", Days: "2", CreatedAt: time.Now()}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mine, err := repo.GetByUserID(ctx, "100")
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != task.ID {
		t.Errorf("GetByUserID = %v, want just task %d", mine, task.ID)
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("GetAll returned %d tasks, want 2", len(all))
	}

	if err := repo.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound after delete, got %v", err)
	}
}

func TestCompletionRepositoryInsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewCompletionRepository(db)

	insert := func(taskID int64, date string) bool {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("BeginTx failed: %v", err)
		}
		inserted, err := repo.InsertTx(ctx, tx, taskID, date)
		if err != nil {
			tx.Rollback()
			t.Fatalf("InsertTx failed: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		return inserted
	}

	if !insert(1, "2024-01-01") {
		t.Fatal("first insert should report inserted")
	}
	if insert(1, "2024-01-01") {
		t.Fatal("second insert for the same (task, date) should be a no-op")
	}
	if !insert(1, "2024-01-02") {
		t.Fatal("same task on another date should insert")
	}
	if !insert(2, "2024-01-01") {
		t.Fatal("another task on the same date should insert")
	}

	exists, err := repo.Exists(ctx, 1, "2024-01-01")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Exists = false for a recorded completion")
	}
	exists, err = repo.Exists(ctx, 1, "2024-01-03")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Exists = true for an unrecorded completion")
	}

	dates, err := repo.GetDatesInRange(ctx, 1, "2024-01-01", "2024-01-07")
	if err != nil {
		t.Fatalf("GetDatesInRange failed: %v", err)
	}
	want := []string{"2024-01-01", "2024-01-02"}
	if len(dates) != len(want) {
		t.Fatalf("GetDatesInRange = %v, want %v", dates, want)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("dates[%d] = %q, want %q", i, dates[i], want[i])
		}
	}
}

func TestLeaderboardRepositoryAddPointsAccumulates(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewLeaderboardRepository(db)

	const week = "2024-01-01"

	points, err := repo.GetPoints(ctx, "100", week)
	if err != nil {
		t.Fatalf("GetPoints failed: %v", err)
	}
	if points != 0 {
		t.Errorf("GetPoints for empty board = %d, want 0", points)
	}

	for _, delta := range []int{10, 10, 30} {
		if err := repo.AddPoints(ctx, "100", week, delta); err != nil {
			t.Fatalf("AddPoints failed: %v", err)
		}
	}
	points, err = repo.GetPoints(ctx, "100", week)
	if err != nil {
		t.Fatalf("GetPoints failed: %v", err)
	}
	if points != 50 {
		t.Errorf("GetPoints = %d, want 50", points)
	}

	// Points in another week accrue separately.
	if err := repo.AddPoints(ctx, "100", "2024-01-08", 10); err != nil {
		t.Fatalf("AddPoints failed: %v", err)
	}
	points, err = repo.GetPoints(ctx, "100", week)
	if err != nil {
		t.Fatalf("GetPoints failed: %v", err)
	}
	if points != 50 {
		t.Errorf("week total changed after cross-week award: %d", points)
	}
}

func TestLeaderboardRepositoryStandingsOrder(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewLeaderboardRepository(db)

	const week = "2024-01-01"
	awards := map[string]int{"a": 20, "b": 50, "c": 20, "d": 10}
	for userID, points := range awards {
		if err := repo.AddPoints(ctx, userID, week, points); err != nil {
			t.Fatalf("AddPoints failed: %v", err)
		}
	}

	standings, err := repo.GetWeekStandings(ctx, week)
	if err != nil {
		t.Fatalf("GetWeekStandings failed: %v", err)
	}
	wantOrder := []string{"b", "a", "c", "d"}
	if len(standings) != len(wantOrder) {
		t.Fatalf("got %d entries, want %d", len(standings), len(wantOrder))
	}
	for i, userID := range wantOrder {
		if standings[i].UserID != userID {
			t.Errorf("standings[%d] = %s, want %s", i, standings[i].UserID, userID)
		}
	}
}

func TestLeaderboardRepositoryClaimSettlement(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewLeaderboardRepository(db)

	claimed, err := repo.ClaimSettlement(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("ClaimSettlement failed: %v", err)
	}
	if !claimed {
		t.Fatal("first claim should succeed")
	}

	claimed, err = repo.ClaimSettlement(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("ClaimSettlement failed: %v", err)
	}
	if claimed {
		t.Fatal("second claim for the same week must be rejected")
	}

	claimed, err = repo.ClaimSettlement(ctx, "2024-01-08")
	if err != nil {
		t.Fatalf("ClaimSettlement failed: %v", err)
	}
	if !claimed {
		t.Fatal("a different week should be claimable")
	}
}

func TestTimezoneRepository(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewTimezoneRepository(db)

	if _, err := repo.Get(ctx, "100"); !errors.Is(err, ErrTimezoneNotSet) {
		t.Fatalf("expected ErrTimezoneNotSet, got %v", err)
	}

	if err := repo.Set(ctx, "100", "Europe/Prague"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	tz, err := repo.Get(ctx, "100")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if tz != "Europe/Prague" {
		t.Errorf("Get = %q, want Europe/Prague", tz)
	}

	// Setting again replaces, not duplicates.
	if err := repo.Set(ctx, "100", "Asia/Tokyo"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	tz, err = repo.Get(ctx, "100")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if tz != "Asia/Tokyo" {
		t.Errorf("Get after update = %q, want Asia/Tokyo", tz)
	}
}
