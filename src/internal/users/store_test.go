package users

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.cost = bcrypt.MinCost
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestCreateAndVerify(t *testing.T) {
	s, _ := openTestStore(t)

	if err := s.CreateAccount("steve", "diamond-pickaxe"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	ok, err := s.VerifyCredentials("steve", "diamond-pickaxe")
	if err != nil || !ok {
		t.Fatalf("VerifyCredentials(correct) = %v, %v", ok, err)
	}
	ok, err = s.VerifyCredentials("steve", "wooden-pickaxe")
	if err != nil || ok {
		t.Fatalf("VerifyCredentials(wrong) = %v, %v", ok, err)
	}
	ok, err = s.VerifyCredentials("alex", "diamond-pickaxe")
	if err != nil || ok {
		t.Fatalf("VerifyCredentials(unknown) = %v, %v", ok, err)
	}
}

func TestDuplicateUsername(t *testing.T) {
	s, _ := openTestStore(t)

	if err := s.CreateAccount("steve", "password1"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := s.CreateAccount("steve", "password2"); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if n, _ := s.Count(); n != 1 {
		t.Fatalf("Count() = %d", n)
	}
}

func TestPasswordValidation(t *testing.T) {
	s, _ := openTestStore(t)

	tests := []struct {
		user, pass string
		want       error
	}{
		{"steve", "short", ErrPasswordTooShort},
		{"steve", "1234567", ErrPasswordTooShort},
		{"", "longenough", ErrMissingFields},
		{"   ", "longenough", ErrMissingFields},
		{"steve", "", ErrMissingFields},
	}
	for _, tt := range tests {
		err := s.CreateAccount(tt.user, tt.pass)
		if !errs.Is(err, errs.KindValidation) || !errors.Is(err, tt.want) {
			t.Errorf("CreateAccount(%q, %q) = %v", tt.user, tt.pass, err)
		}
	}
	if err := s.CreateAccount("steve", "12345678"); err != nil {
		t.Fatalf("eight characters rejected: %v", err)
	}
}

func TestPasswordNotStoredInClear(t *testing.T) {
	s, path := openTestStore(t)

	const password = "hunter2-but-longer"
	if err := s.CreateAccount("steve", password); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	var hash string
	if err := s.db.Get(&hash, "SELECT password_hash FROM users WHERE username = ?", "steve"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if hash == password || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("stored hash = %q", hash)
	}

	s.Close()
	raw, _ := os.ReadFile(path)
	if strings.Contains(string(raw), password) {
		t.Fatal("plaintext password found in database file")
	}
}
