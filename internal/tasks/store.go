package tasks

import (
	"context"
	"errors"
)

var ErrTaskNotFound = errors.New("task not found")

// Store is the durable task collection. Implementations must serialize the
// entire read-modify-write cycle of every mutation: a reader never observes a
// partially written record, and concurrent writers to different ids never
// lose each other's updates.
type Store interface {
	// ListAll returns every task. An unreadable or corrupt medium degrades
	// to an empty result rather than failing the caller.
	ListAll(ctx context.Context) []Task
	Get(ctx context.Context, taskID string) (Task, error)
	// Upsert inserts the task, or fully replaces the stored record with the
	// same id (last writer wins).
	Upsert(ctx context.Context, task Task) error
	// UpdateStatus re-reads the record, patches status (and plan when
	// planOverride is non-empty), and writes it back under the same lock.
	UpdateStatus(ctx context.Context, taskID string, status TaskStatus, planOverride string) error
	// Claim transitions the task to executing, checking and writing under
	// one lock acquisition. It returns false when the task is completed or
	// already executing, so of any number of racing attempts exactly one
	// wins the claim. On success the returned snapshot is the claimed
	// record.
	Claim(ctx context.Context, taskID string) (Task, bool, error)
	Close() error
}
