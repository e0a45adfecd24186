// Package state holds the launcher's shared session state and enforces
// that at most one update or launch operation runs at a time.
package state

import (
	"errors"
	"fmt"
	"sync"
)

// Operation is a long-running launcher action
type Operation string

const (
	OpNone   Operation = ""
	OpCheck  Operation = "update check"
	OpApply  Operation = "update"
	OpLaunch Operation = "launch"
)

// ErrBusy is returned when another operation is already in flight
var ErrBusy = errors.New("another operation is already in progress")

// BusyError names the operation that blocked a request
type BusyError struct {
	Requested Operation
	Running   Operation
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("cannot start %s: %s already in progress", e.Requested, e.Running)
}

func (e *BusyError) Unwrap() error {
	return ErrBusy
}

// Session is the logged-in user, if any
type Session struct {
	Username string
}

// State is shared by the UI, the scheduler and the control service
type State struct {
	mu      sync.Mutex
	running Operation
	session *Session
}

// New creates an idle state with nobody logged in
func New() *State {
	return &State{}
}

// Begin claims the single operation slot. The returned release func must
// be called exactly once when the operation ends.
func (s *State) Begin(op Operation) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running != OpNone {
		return nil, &BusyError{Requested: op, Running: s.running}
	}
	s.running = op

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.running = OpNone
			s.mu.Unlock()
		})
	}, nil
}

// Running returns the operation currently in flight, or OpNone
func (s *State) Running() Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Login records the authenticated user
func (s *State) Login(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &Session{Username: username}
}

// Logout clears the session
func (s *State) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
}

// User returns the logged-in username and whether anyone is logged in
func (s *State) User() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return "", false
	}
	return s.session.Username, true
}
