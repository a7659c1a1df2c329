package repositories

import (
	"context"

	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/uptrace/bun"
)

type CompletionRepository interface {
	// InsertTx inserts a completion inside tx. Returns false without
	// error when the (task, date) pair already exists.
	InsertTx(ctx context.Context, tx bun.Tx, taskID int64, doneDate string) (bool, error)
	Exists(ctx context.Context, taskID int64, doneDate string) (bool, error)
	// GetDatesInRange returns the done dates for a task within
	// [start, end] inclusive ("YYYY-MM-DD" bounds), ascending.
	GetDatesInRange(ctx context.Context, taskID int64, start, end string) ([]string, error)
}

type completionRepository struct {
	db *bun.DB
}

func NewCompletionRepository(db *bun.DB) CompletionRepository {
	return &completionRepository{db: db}
}

func (r *completionRepository) InsertTx(ctx context.Context, tx bun.Tx, taskID int64, doneDate string) (bool, error) {
	res, err := tx.NewInsert().
		Model(&models.Completion{TaskID: taskID, DoneDate: doneDate}).
		On("CONFLICT (task_id, done_date) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *completionRepository) Exists(ctx context.Context, taskID int64, doneDate string) (bool, error) {
	return r.db.NewSelect().
		Model((*models.Completion)(nil)).
		Where("task_id = ? AND done_date = ?", taskID, doneDate).
		Exists(ctx)
}

func (r *completionRepository) GetDatesInRange(ctx context.Context, taskID int64, start, end string) ([]string, error) {
	var dates []string
	err := r.db.NewSelect().
		Model((*models.Completion)(nil)).
		Column("done_date").
		Where("task_id = ? AND done_date BETWEEN ? AND ?", taskID, start, end).
		Order("done_date ASC").
		Scan(ctx, &dates)
	return dates, err
}
