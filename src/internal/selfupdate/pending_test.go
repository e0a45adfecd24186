package selfupdate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/enderiumcraft/rbclauncher/src/internal/version"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

func setupConfirm(t *testing.T, exeContent []byte, p Pending) (string, *version.Store, string) {
	t.Helper()
	dir := t.TempDir()
	exe := filepath.Join(dir, "RBCLauncher.exe")
	os.WriteFile(exe, exeContent, 0755)

	store := version.NewStore(filepath.Join(dir, "version.json"))
	store.Save(models.VersionState{BinaryVersion: "1.0.0", ContentVersion: "1.1.0"})

	path := filepath.Join(dir, "update-pending.json")
	if err := WritePending(path, p); err != nil {
		t.Fatalf("WritePending: %v", err)
	}
	return path, store, exe
}

func TestConfirmCommitsMatchingBinary(t *testing.T) {
	path, store, exe := setupConfirm(t, newBinary, Pending{
		PreviousVersion: "1.0.0",
		NewVersion:      "1.0.1",
		Digest:          digestOf(newBinary),
		Timestamp:       time.Now(),
	})

	ok, err := Confirm(path, store, exe)
	if err != nil || !ok {
		t.Fatalf("Confirm = %v, %v", ok, err)
	}

	got := version.NewStore(store.Path()).Load()
	want := models.VersionState{BinaryVersion: "1.0.1", ContentVersion: "1.1.0"}
	if got != want {
		t.Fatalf("version = %+v, want %+v", got, want)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("pending record not cleared")
	}
}

func TestConfirmRejectsOldBinary(t *testing.T) {
	path, store, exe := setupConfirm(t, []byte("launcher v1.0.0"), Pending{
		NewVersion: "1.0.1",
		Digest:     digestOf(newBinary),
		Timestamp:  time.Now(),
	})

	ok, err := Confirm(path, store, exe)
	if err != nil || ok {
		t.Fatalf("Confirm = %v, %v", ok, err)
	}
	if got := version.NewStore(store.Path()).Load(); got.BinaryVersion != "1.0.0" {
		t.Fatalf("binary version advanced: %+v", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("pending record not cleared")
	}
}

func TestConfirmIgnoresStaleRecord(t *testing.T) {
	path, store, exe := setupConfirm(t, newBinary, Pending{
		NewVersion: "1.0.1",
		Digest:     digestOf(newBinary),
		Timestamp:  time.Now().Add(-48 * time.Hour),
	})

	ok, _ := Confirm(path, store, exe)
	if ok {
		t.Fatal("stale record confirmed")
	}
}

func TestConfirmWithoutRecord(t *testing.T) {
	dir := t.TempDir()
	store := version.NewStore(filepath.Join(dir, "version.json"))
	ok, err := Confirm(filepath.Join(dir, "update-pending.json"), store, filepath.Join(dir, "exe"))
	if ok || err != nil {
		t.Fatalf("Confirm = %v, %v", ok, err)
	}
}
