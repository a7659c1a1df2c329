package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/uptrace/bun"
)

var ErrTaskNotFound = errors.New("task not found")

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.Task, error)
	GetAll(ctx context.Context) ([]*models.Task, error)
	// Delete removes the task row only. Historical completions are kept;
	// they simply become unreachable through task lookup.
	Delete(ctx context.Context, id int64) error
}

type taskRepository struct {
	db *bun.DB
}

func NewTaskRepository(db *bun.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	_, err := r.db.NewInsert().Model(task).Exec(ctx)
	return err
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	task := new(models.Task)
	err := r.db.NewSelect().
		Model(task).
		Where("t.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Task, error) {
	var tasks []*models.Task
	err := r.db.NewSelect().
		Model(&tasks).
		Where("user_id = ?", userID).
		Order("id DESC").
		Scan(ctx)
	return tasks, err
}

func (r *taskRepository) GetAll(ctx context.Context) ([]*models.Task, error) {
	var tasks []*models.Task
	err := r.db.NewSelect().
		Model(&tasks).
		Order("id ASC").
		Scan(ctx)
	return tasks, err
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().
		Model((*models.Task)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}
