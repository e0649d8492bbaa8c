package tasks

import (
	"context"
	"strings"
)

// NewStore selects the store backend: Postgres when a database URL is
// configured, otherwise the JSON file store.
func NewStore(ctx context.Context, databaseURL, tasksFile string) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	return NewFileStore(tasksFile), nil
}
