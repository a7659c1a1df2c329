package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Task is a recurring habit bound to a weekly day-of-week schedule.
// TimeStr is "HH:MM" local to the owner's zone; Days is a comma
// separated list of ISO weekday numbers (1=Mon .. 7=Sun). Tasks are
// immutable after creation except for deletion.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	Name      string    `bun:"name,notnull"`
	TimeStr   string    `bun:"time_str,notnull"`
	Days      string    `bun:"days,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
