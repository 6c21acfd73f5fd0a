package tasks

import (
	"context"
	"errors"
	"time"
)

var ErrStoreNotFound = errors.New("task not found in store")

// Store persists tasks keyed by identifier and by day bucket. Implementations
// recompute their day indexes inside Insert/Update so ordering invariants are
// enforced in one place.
type Store interface {
	Insert(ctx context.Context, task Task) error
	Get(ctx context.Context, taskID string) (Task, error)
	ListDay(ctx context.Context, day time.Time) ([]Task, error)
	ListSeries(ctx context.Context, seriesID string) ([]Task, error)
	Update(ctx context.Context, task Task) error
	Delete(ctx context.Context, taskID string) error

	PutTrash(ctx context.Context, item Trashed) error
	GetTrash(ctx context.Context, taskID string) (Trashed, error)
	ListTrash(ctx context.Context) ([]Trashed, error)
	RemoveTrash(ctx context.Context, taskID string) error

	Close() error
}
