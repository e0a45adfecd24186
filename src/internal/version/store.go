package version

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/internal/fsutil"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// DefaultVersion is assumed for both components when no usable version
// file exists.
const DefaultVersion = "1.0.0"

// Default returns the state assumed for a fresh install
func Default() models.VersionState {
	return models.VersionState{
		BinaryVersion:  DefaultVersion,
		ContentVersion: DefaultVersion,
	}
}

// Store persists the local version pair
type Store struct {
	path    string
	current *models.VersionState
	mu      sync.RWMutex
}

// NewStore creates a store backed by the file at path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the version file. A missing, unreadable or malformed file
// yields Default() instead of an error.
func (s *Store) Load() models.VersionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := readState(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Version] Ignoring version file %s: %v", s.path, err)
		}
		state = Default()
	}

	s.current = &state
	return state
}

// Current returns the last loaded or saved state, loading it if needed
func (s *Store) Current() models.VersionState {
	s.mu.RLock()
	if s.current != nil {
		state := *s.current
		s.mu.RUnlock()
		return state
	}
	s.mu.RUnlock()
	return s.Load()
}

// Save atomically replaces the version file with state
func (s *Store) Save(state models.VersionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fsutil.WriteJSON(s.path, state, 0644); err != nil {
		return errs.Filesystem("save version state", err)
	}

	s.current = &state
	log.Printf("[Version] Saved launcher=%s modpack=%s", state.BinaryVersion, state.ContentVersion)
	return nil
}

func readState(path string) (models.VersionState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.VersionState{}, err
	}

	var state models.VersionState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.VersionState{}, fmt.Errorf("failed to parse version file: %w", err)
	}
	if state.BinaryVersion == "" || state.ContentVersion == "" {
		return models.VersionState{}, fmt.Errorf("version file is missing launcher or modpack version")
	}
	return state, nil
}
