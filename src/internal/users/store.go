// Package users is the local account store. Only bcrypt hashes of
// passwords are written to disk.
package users

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 8

var (
	// ErrDuplicateUsername is returned when registering a taken name
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrInvalidCredentials is returned for an unknown user or wrong password
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrMissingFields is returned when the username or password is empty
	ErrMissingFields = errors.New("username and password are required")

	// ErrPasswordTooShort is returned for passwords under MinPasswordLength
	ErrPasswordTooShort = errors.New("password too short")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// User is a stored account
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Store is a SQLite-backed account store
type Store struct {
	db   *sqlx.DB
	cost int
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errs.Filesystem("open user store", fmt.Errorf("failed to open %s: %w", path, err))
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.Filesystem("open user store", fmt.Errorf("failed to create schema: %w", err))
	}

	return &Store{db: db, cost: bcrypt.DefaultCost}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// VerifyCredentials reports whether password matches the stored hash for
// username. Unknown users are not an error.
func (s *Store) VerifyCredentials(username, password string) (bool, error) {
	var user User
	err := s.db.Get(&user, "SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errs.Filesystem("verify credentials", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("failed to compare password hash: %w", err)
	}
	return true, nil
}

// CreateAccount registers a new user
func (s *Store) CreateAccount(username, password string) error {
	const op = "create account"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errs.Validation(op, ErrMissingFields)
	}
	if len(password) < MinPasswordLength {
		return errs.Validation(op, fmt.Errorf("%w: need at least %d characters", ErrPasswordTooShort, MinPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.Exec("INSERT INTO users (username, password_hash) VALUES (?, ?)", username, string(hash))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return errs.Filesystem(op, err)
	}
	return nil
}

// Count returns the number of accounts
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.Get(&n, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, errs.Filesystem("count users", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE"))
}
