package tasks

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"
)

// FileStore persists the whole task collection as one JSON array, rewritten
// in full on every mutation. A single mutex guards the complete
// read-then-write sequence so concurrent mutations to different ids cannot
// clobber each other through a stale snapshot.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) ListAll(_ context.Context) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *FileStore) Get(_ context.Context, taskID string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.readLocked() {
		if t.ID == taskID {
			return t.Clone(), nil
		}
	}
	return Task{}, ErrTaskNotFound
}

func (s *FileStore) Upsert(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.readLocked()
	replaced := false
	for i := range all {
		if all[i].ID == task.ID {
			all[i] = task.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, task.Clone())
	}
	return s.writeLocked(all)
}

func (s *FileStore) UpdateStatus(_ context.Context, taskID string, status TaskStatus, planOverride string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.readLocked()
	for i := range all {
		if all[i].ID != taskID {
			continue
		}
		all[i].Status = status
		if planOverride != "" {
			all[i].Plan = planOverride
		}
		all[i].UpdatedAt = time.Now().UTC()
		return s.writeLocked(all)
	}
	return ErrTaskNotFound
}

func (s *FileStore) Claim(_ context.Context, taskID string) (Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.readLocked()
	for i := range all {
		if all[i].ID != taskID {
			continue
		}
		if all[i].Status == TaskStatusCompleted || all[i].Status == TaskStatusExecuting {
			return all[i].Clone(), false, nil
		}
		all[i].Status = TaskStatusExecuting
		all[i].UpdatedAt = time.Now().UTC()
		if err := s.writeLocked(all); err != nil {
			return Task{}, false, err
		}
		return all[i].Clone(), true, nil
	}
	return Task{}, false, ErrTaskNotFound
}

func (s *FileStore) Close() error {
	return nil
}

// readLocked degrades to an empty collection when the file is missing,
// unreadable, or corrupt. Callers must hold s.mu.
func (s *FileStore) readLocked() []Task {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var out []Task
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func (s *FileStore) writeLocked(all []Task) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
