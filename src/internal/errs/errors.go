// Package errs classifies launcher failures so callers can decide how to
// report and whether a retry makes sense.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the failure class of an Error
type Kind string

const (
	KindNetwork    Kind = "network"
	KindProtocol   Kind = "protocol"
	KindFilesystem Kind = "filesystem"
	KindLaunch     Kind = "launch"
	KindConfig     Kind = "config"
	KindValidation Kind = "validation"
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Network wraps transport failures, timeouts and non-2xx responses.
func Network(op string, err error) error { return newError(KindNetwork, op, err) }

// Protocol wraps malformed or incomplete remote data.
func Protocol(op string, err error) error { return newError(KindProtocol, op, err) }

// Filesystem wraps local I/O failures.
func Filesystem(op string, err error) error { return newError(KindFilesystem, op, err) }

// Launch wraps failures to start the game process.
func Launch(op string, err error) error { return newError(KindLaunch, op, err) }

// Config wraps missing or invalid configuration.
func Config(op string, err error) error { return newError(KindConfig, op, err) }

// Validation wraps rejected user input.
func Validation(op string, err error) error { return newError(KindValidation, op, err) }

// Is reports whether any error in err's chain is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// KindOf returns the kind of the outermost classified error, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
