package models

import "github.com/uptrace/bun"

// UserTimezone holds a user's configured IANA zone name. Users without
// a row fall back to the default zone from config.
type UserTimezone struct {
	bun.BaseModel `bun:"table:timezones,alias:tz"`

	ID     int64  `bun:"id,pk,autoincrement"`
	UserID string `bun:"user_id,notnull,unique"`
	TZName string `bun:"tz_name,notnull"`
}
