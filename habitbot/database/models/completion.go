package models

import "github.com/uptrace/bun"

// Completion records that a task was marked done on a calendar date in
// the owner's zone. At most one row exists per (task, date); the unique
// constraint is what makes MarkDone idempotent.
type Completion struct {
	bun.BaseModel `bun:"table:completions,alias:c"`

	ID       int64  `bun:"id,pk,autoincrement"`
	TaskID   int64  `bun:"task_id,notnull,unique:completions_task_date"`
	DoneDate string `bun:"done_date,notnull,unique:completions_task_date"`
}
