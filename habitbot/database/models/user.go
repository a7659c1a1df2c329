package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement"`
	DiscordID string    `bun:"discord_id,notnull,unique"`
	ChannelID string    `bun:"channel_id,notnull"`
	Username  string    `bun:"username,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
