package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const defaultBusyTimeout = 5 * time.Second

type DBConfig struct {
	Path string `toml:"path"`
}

type DB struct {
	bunDB *bun.DB
}

// New opens the embedded SQLite store. WAL mode and a busy timeout are
// enabled so concurrent trigger firings don't trip "database is locked".
func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		cfg.Path, defaultBusyTimeout.Milliseconds())

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Path == ":memory:" {
		// In-memory databases exist per connection.
		sqldb.SetMaxOpenConns(1)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := bunDB.PingContext(ctx); err != nil {
		bunDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{bunDB: bunDB}, nil
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Close() error {
	return db.bunDB.Close()
}

// InitializeSchema creates all required tables and unique constraints.
func (db *DB) InitializeSchema(ctx context.Context) error {
	start := time.Now()

	tables := []interface{}{
		(*models.User)(nil),
		(*models.Task)(nil),
		(*models.Completion)(nil),
		(*models.LeaderboardEntry)(nil),
		(*models.UserTimezone)(nil),
		(*models.WeeklySettlement)(nil),
	}

	for _, model := range tables {
		if _, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	slog.Info("Database schema initialized",
		slog.String("type", "db"),
		slog.Duration("took", time.Since(start)))
	return nil
}
