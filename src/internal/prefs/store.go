// Package prefs persists launcher preferences in the user's data directory.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/internal/fsutil"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// RAM allocation bounds in megabytes
const (
	MinRAM     = 1024
	MaxRAM     = 16384
	DefaultRAM = 2048
)

// ErrRAMOutOfRange is returned for an allocation outside MinRAM..MaxRAM
var ErrRAMOutOfRange = errors.New("ram allocation out of range")

// Defaults returns the preferences of a fresh install
func Defaults() models.Preferences {
	return models.Preferences{RAMAllocation: DefaultRAM}
}

// ValidRAM reports whether mb is inside the allowed allocation range
func ValidRAM(mb int) bool {
	return mb >= MinRAM && mb <= MaxRAM
}

// Store reads and writes the preferences file
type Store struct {
	path  string
	prefs models.Preferences
	mu    sync.RWMutex
}

// Open loads preferences from path. A missing or invalid file, including
// one with an out-of-range RAM value, yields Defaults().
func Open(path string) *Store {
	s := &Store{path: path, prefs: Defaults()}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Prefs] Failed to read %s: %v", path, err)
		}
		return s
	}

	var loaded models.Preferences
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Printf("[Prefs] Ignoring malformed %s: %v", path, err)
		return s
	}
	if !ValidRAM(loaded.RAMAllocation) {
		log.Printf("[Prefs] Ignoring %s: ram_allocation %d outside %d-%d", path, loaded.RAMAllocation, MinRAM, MaxRAM)
		return s
	}

	s.prefs = loaded
	return s
}

// Get returns a copy of the current preferences
func (s *Store) Get() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Update applies fn to a copy of the preferences and persists the result.
// The in-memory value only changes if the write succeeds.
func (s *Store) Update(fn func(p *models.Preferences) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs
	if err := fn(&next); err != nil {
		return err
	}
	if !ValidRAM(next.RAMAllocation) {
		return errs.Validation("update preferences",
			fmt.Errorf("%w: %d MB", ErrRAMOutOfRange, next.RAMAllocation))
	}
	if err := fsutil.WriteJSON(s.path, next, 0600); err != nil {
		return errs.Filesystem("save preferences", err)
	}

	s.prefs = next
	return nil
}

// SetRAM changes the RAM allocation
func (s *Store) SetRAM(mb int) error {
	return s.Update(func(p *models.Preferences) error {
		p.RAMAllocation = mb
		return nil
	})
}

// Remember records the login outcome. The username is only kept when
// remember is set.
func (s *Store) Remember(username string, remember bool) error {
	return s.Update(func(p *models.Preferences) error {
		p.RememberUsername = remember
		if remember {
			p.LastUsername = username
		} else {
			p.LastUsername = ""
		}
		return nil
	})
}

// Forget clears the remembered username
func (s *Store) Forget() error {
	return s.Remember("", false)
}
