package tasks

import (
	"context"
	"strings"
)

// NewStore picks Postgres when a database URL is configured, otherwise the
// in-memory store.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
