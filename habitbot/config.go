package habitbot

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/habitloop/habitbot/habitbot/database"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := Config{
		Log: LogConfig{Level: slog.LevelInfo},
		DB:  database.DBConfig{Path: "./data/habitbot.db"},
		Schedule: ScheduleConfig{
			DefaultTimezone:  "Europe/Prague",
			PreAlertLeadMin:  10,
			FollowUpDelayMin: 60,
		},
	}
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log      LogConfig         `toml:"log"`
	Bot      BotConfig         `toml:"bot"`
	DB       database.DBConfig `toml:"db"`
	Schedule ScheduleConfig    `toml:"schedule"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level slog.Level `toml:"level"`
}

// ScheduleConfig tunes the reminder offsets around a task's start time
// and fixes the reference zone for the weekly settlement firing.
type ScheduleConfig struct {
	DefaultTimezone  string `toml:"default_timezone"`
	PreAlertLeadMin  int    `toml:"pre_alert_lead_min"`
	FollowUpDelayMin int    `toml:"follow_up_delay_min"`
}

func (c ScheduleConfig) PreAlertLead() time.Duration {
	return time.Duration(c.PreAlertLeadMin) * time.Minute
}

func (c ScheduleConfig) FollowUpDelay() time.Duration {
	return time.Duration(c.FollowUpDelayMin) * time.Minute
}
