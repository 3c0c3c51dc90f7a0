// Package storage persists extension records, user settings and permission
// overrides as a single JSON document.
//
// The store is the coordinator's external persistence collaborator: it
// keeps an in-memory copy guarded by a mutex and rewrites the file
// atomically (temp file + rename) on every mutation.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/heliumweb/helium/backend/internal/shared/types"
)

const storeFile = "extensions.json"

// State is the persisted document shape
type State struct {
	Extensions []types.Extension   `json:"extensions"`
	Settings   types.Settings      `json:"settings"`
	Overrides  map[string][]string `json:"permission_overrides,omitempty"`
}

// DefaultSettings returns the settings used when no store file exists yet
func DefaultSettings() types.Settings {
	return types.Settings{
		EnableExtensions:      true,
		AutoLoadExtensions:    true,
		DefaultIsolationLevel: types.IsolationStandard,
		DefaultRiskTolerance:  types.RiskMedium,
	}
}

// FileStore is a JSON-file-backed store
type FileStore struct {
	mu    sync.Mutex
	path  string
	state State
}

// Open loads the store from dir, initializing defaults when the file does
// not exist yet.
func Open(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &FileStore{
		path: filepath.Join(dir, storeFile),
		state: State{
			Extensions: []types.Extension{},
			Settings:   DefaultSettings(),
			Overrides:  map[string][]string{},
		},
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal store: %w", err)
	}
	if s.state.Overrides == nil {
		s.state.Overrides = map[string][]string{}
	}
	return s, nil
}

// SaveExtension inserts or replaces a record and flushes
func (s *FileStore) SaveExtension(ext types.Extension) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.state.Extensions {
		if s.state.Extensions[i].ID == ext.ID {
			s.state.Extensions[i] = ext
			replaced = true
			break
		}
	}
	if !replaced {
		s.state.Extensions = append(s.state.Extensions, ext)
	}
	return s.flush()
}

// DeleteExtension removes a record and flushes. Unknown ids are a no-op.
func (s *FileStore) DeleteExtension(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Extensions {
		if s.state.Extensions[i].ID == id {
			s.state.Extensions = append(s.state.Extensions[:i], s.state.Extensions[i+1:]...)
			return s.flush()
		}
	}
	return nil
}

// Extensions returns copies of every persisted record
func (s *FileStore) Extensions() []types.Extension {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]types.Extension(nil), s.state.Extensions...)
}

// Settings returns the persisted settings
func (s *FileStore) Settings() types.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Settings
}

// SetSettings replaces the settings and flushes
func (s *FileStore) SetSettings(settings types.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Settings = settings
	return s.flush()
}

// Overrides returns the persisted permission override markers
func (s *FileStore) Overrides() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string, len(s.state.Overrides))
	for scope, markers := range s.state.Overrides {
		out[scope] = append([]string(nil), markers...)
	}
	return out
}

// SetOverrides replaces the override markers and flushes
func (s *FileStore) SetOverrides(overrides map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Overrides = overrides
	return s.flush()
}

// flush rewrites the file atomically; must be called with the lock held
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}
