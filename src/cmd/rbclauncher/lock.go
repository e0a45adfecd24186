package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// instanceLock is a lock file holding the owner's PID
type instanceLock struct {
	path string
	file *os.File
}

// acquireLock creates the lock file. A lock left behind by a process that
// no longer runs is taken over.
func acquireLock(name string) (*instanceLock, error) {
	path := filepath.Join(os.TempDir(), name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		content, readErr := os.ReadFile(path)
		if readErr == nil {
			oldPID, parseErr := strconv.Atoi(strings.TrimSpace(string(content)))
			if parseErr == nil && oldPID != os.Getpid() && processAlive(oldPID) {
				return nil, fmt.Errorf("launcher is already running (pid %d)", oldPID)
			}
		}

		log.Printf("Removing stale lock file %s", path)
		os.Remove(path)
		file, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to create lock file after cleanup: %w", err)
		}
	}

	fmt.Fprintf(file, "%d", os.Getpid())
	log.Printf("Lock file created with PID: %d", os.Getpid())
	return &instanceLock{path: path, file: file}, nil
}

func (l *instanceLock) release() {
	l.file.Close()
	os.Remove(l.path)
}
