package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initTaskSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initTaskSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			done BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			start_at TIMESTAMPTZ NULL,
			due_at TIMESTAMPTZ NULL,
			repeat_kind TEXT NOT NULL DEFAULT 'none',
			repeat_interval INTEGER NOT NULL DEFAULT 0,
			repeat_end TIMESTAMPTZ NULL,
			series_id TEXT NOT NULL DEFAULT '',
			completed_at TIMESTAMPTZ NULL,
			priority TEXT NOT NULL DEFAULT 'none',
			notes TEXT NOT NULL DEFAULT '',
			labels TEXT[] NOT NULL DEFAULT '{}',
			duration_minutes INTEGER NOT NULL DEFAULT 0,
			reminder_offsets INTEGER[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL,
			start_day DATE NOT NULL,
			due_day DATE NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_start_day ON tasks (start_day);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_series ON tasks (series_id) WHERE series_id <> '';`,
		`CREATE TABLE IF NOT EXISTS task_trash (
			id TEXT PRIMARY KEY,
			deleted_at TIMESTAMPTZ NOT NULL,
			payload JSONB NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init task schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

const taskColumns = `id, title, done, created_at, start_at, due_at, repeat_kind, repeat_interval,
	repeat_end, series_id, completed_at, priority, notes, labels, duration_minutes,
	reminder_offsets, updated_at`

// save upserts the row and recomputes the day-index columns so day-bucket
// queries never go stale after an edit.
func (s *PostgresStore) save(ctx context.Context, task Task) error {
	startDay := task.StartDay()
	var dueDay *time.Time
	if task.DueAt != nil {
		d := time.Date(task.DueAt.Year(), task.DueAt.Month(), task.DueAt.Day(), 0, 0, 0, 0, task.DueAt.Location())
		dueDay = &d
	}
	labels := task.Labels
	if labels == nil {
		labels = []string{}
	}
	offsets := task.ReminderOffsets
	if offsets == nil {
		offsets = []int{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`, start_day, due_day)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		 ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			done=EXCLUDED.done,
			created_at=EXCLUDED.created_at,
			start_at=EXCLUDED.start_at,
			due_at=EXCLUDED.due_at,
			repeat_kind=EXCLUDED.repeat_kind,
			repeat_interval=EXCLUDED.repeat_interval,
			repeat_end=EXCLUDED.repeat_end,
			series_id=EXCLUDED.series_id,
			completed_at=EXCLUDED.completed_at,
			priority=EXCLUDED.priority,
			notes=EXCLUDED.notes,
			labels=EXCLUDED.labels,
			duration_minutes=EXCLUDED.duration_minutes,
			reminder_offsets=EXCLUDED.reminder_offsets,
			updated_at=EXCLUDED.updated_at,
			start_day=EXCLUDED.start_day,
			due_day=EXCLUDED.due_day`,
		task.ID,
		task.Title,
		task.Done,
		task.CreatedAt,
		task.StartAt,
		task.DueAt,
		string(task.Repeat.Kind),
		task.Repeat.IntervalDays,
		task.RepeatEnd,
		task.SeriesID,
		task.CompletedAt,
		string(task.Priority),
		task.Notes,
		labels,
		task.DurationMinutes,
		offsets,
		task.UpdatedAt,
		startDay,
		dueDay,
	)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, task Task) error {
	return s.save(ctx, task)
}

func (s *PostgresStore) Update(ctx context.Context, task Task) error {
	return s.save(ctx, task)
}

func (s *PostgresStore) Get(ctx context.Context, taskID string) (Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, taskID)
	task, err := scanTaskRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrStoreNotFound
		}
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) ListDay(ctx context.Context, day time.Time) ([]Task, error) {
	bucket := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		  WHERE (due_day IS NULL AND start_day = $1)
		     OR (due_day IS NOT NULL AND start_day <= $1 AND due_day >= $1)
		  ORDER BY created_at`,
		bucket,
	)
	if err != nil {
		return nil, fmt.Errorf("list day: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func (s *PostgresStore) ListSeries(ctx context.Context, seriesID string) ([]Task, error) {
	if strings.TrimSpace(seriesID) == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE series_id=$1 ORDER BY start_day`,
		seriesID,
	)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func (s *PostgresStore) Delete(ctx context.Context, taskID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStoreNotFound
	}
	return nil
}

func (s *PostgresStore) PutTrash(ctx context.Context, item Trashed) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO task_trash (id, deleted_at, payload) VALUES ($1,$2,$3)
		 ON CONFLICT (id) DO UPDATE SET deleted_at=EXCLUDED.deleted_at, payload=EXCLUDED.payload`,
		item.Task.ID, item.DeletedAt, item.Task,
	)
	if err != nil {
		return fmt.Errorf("put trash: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTrash(ctx context.Context, taskID string) (Trashed, error) {
	var item Trashed
	err := s.pool.QueryRow(ctx,
		`SELECT deleted_at, payload FROM task_trash WHERE id=$1`, taskID,
	).Scan(&item.DeletedAt, &item.Task)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Trashed{}, ErrStoreNotFound
		}
		return Trashed{}, fmt.Errorf("get trash: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListTrash(ctx context.Context) ([]Trashed, error) {
	rows, err := s.pool.Query(ctx, `SELECT deleted_at, payload FROM task_trash ORDER BY deleted_at`)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	defer rows.Close()
	var out []Trashed
	for rows.Next() {
		var item Trashed
		if err := rows.Scan(&item.DeletedAt, &item.Task); err != nil {
			return nil, fmt.Errorf("scan trash: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RemoveTrash(ctx context.Context, taskID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM task_trash WHERE id=$1`, taskID)
	if err != nil {
		return fmt.Errorf("remove trash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStoreNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskRow(row rowScanner) (Task, error) {
	var (
		t        Task
		kind     string
		priority string
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Done,
		&t.CreatedAt,
		&t.StartAt,
		&t.DueAt,
		&kind,
		&t.Repeat.IntervalDays,
		&t.RepeatEnd,
		&t.SeriesID,
		&t.CompletedAt,
		&priority,
		&t.Notes,
		&t.Labels,
		&t.DurationMinutes,
		&t.ReminderOffsets,
		&t.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	t.Repeat.Kind = RepeatKind(kind)
	t.Priority = Priority(priority)
	return t, nil
}

func scanTaskRows(rows pgx.Rows) ([]Task, error) {
	var out []Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
