package selfupdate

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/enderiumcraft/rbclauncher/src/internal/fsutil"
	"github.com/enderiumcraft/rbclauncher/src/internal/version"
)

// PendingMaxAge bounds how long a handoff record is trusted
const PendingMaxAge = 24 * time.Hour

// Pending records a binary swap that was handed off but not yet observed.
// It is written before the handoff and checked by the next startup.
type Pending struct {
	PreviousVersion string    `json:"previous_version"`
	NewVersion      string    `json:"new_version"`
	Digest          string    `json:"digest"`
	Executable      string    `json:"executable"`
	Timestamp       time.Time `json:"timestamp"`
}

// WritePending atomically stores p at path
func WritePending(path string, p Pending) error {
	return fsutil.WriteJSON(path, p, 0600)
}

// ReadPending returns the record at path. A missing file returns
// os.ErrNotExist.
func ReadPending(path string) (Pending, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pending{}, err
	}
	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return Pending{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return p, nil
}

// ClearPending removes the record; a missing file is not an error
func ClearPending(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pending update record: %w", err)
	}
	return nil
}

// Confirm settles a previous handoff. When the running executable matches
// the digest of the downloaded binary, the new launcher version is
// committed to the version store. The record is removed either way.
func Confirm(path string, store *version.Store, executable string) (bool, error) {
	p, err := ReadPending(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		ClearPending(path)
		return false, err
	}
	defer ClearPending(path)

	if time.Since(p.Timestamp) > PendingMaxAge {
		log.Printf("[SelfUpdate] Discarding stale pending update to %s from %s", p.NewVersion, p.Timestamp.Format(time.RFC3339))
		return false, nil
	}

	digest, err := HashFile(executable)
	if err != nil {
		return false, err
	}
	if digest != p.Digest {
		log.Printf("[SelfUpdate] Update to %s did not take effect, still running %s", p.NewVersion, p.PreviousVersion)
		return false, nil
	}

	state := store.Current()
	state.BinaryVersion = p.NewVersion
	if err := store.Save(state); err != nil {
		return false, err
	}
	log.Printf("[SelfUpdate] Confirmed launcher update %s -> %s", p.PreviousVersion, p.NewVersion)
	return true, nil
}
