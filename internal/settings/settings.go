package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Settings are the user-tunable flags persisted across restarts.
type Settings struct {
	CalendarSyncEnabled bool `json:"calendar_sync_enabled"`
}

func defaults() Settings {
	return Settings{CalendarSyncEnabled: true}
}

// Store keeps settings in a small JSON file. Reads fall back to defaults
// when the file is missing or unreadable; writes replace the whole file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// SetCalendarSync flips the calendar flag and persists the result.
func (s *Store) SetCalendarSync(enabled bool) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.readLocked()
	current.CalendarSyncEnabled = enabled
	if err := s.writeLocked(current); err != nil {
		return Settings{}, err
	}
	return current, nil
}

func (s *Store) readLocked() Settings {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return defaults()
	}
	var out Settings
	if err := json.Unmarshal(data, &out); err != nil {
		return defaults()
	}
	return out
}

func (s *Store) writeLocked(in Settings) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}
