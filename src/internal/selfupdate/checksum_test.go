package selfupdate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseChecksums(t *testing.T) {
	a := strings.Repeat("a", 64)
	b := strings.Repeat("B", 64)
	data := []byte(a + "  RBCLauncher.exe\n" +
		b + " *rbclauncher\n" +
		"not-a-digest  broken.txt\n" +
		"\n" +
		strings.Repeat("c", 63) + "  short.txt\n")

	sums := ParseChecksums(data)
	if len(sums) != 2 {
		t.Fatalf("parsed %d entries: %v", len(sums), sums)
	}
	if sums["RBCLauncher.exe"] != a {
		t.Errorf("RBCLauncher.exe = %q", sums["RBCLauncher.exe"])
	}
	if sums["rbclauncher"] != strings.ToLower(b) {
		t.Errorf("rbclauncher = %q", sums["rbclauncher"])
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bin")
	os.WriteFile(path, newBinary, 0755)

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if got != digestOf(newBinary) {
		t.Fatalf("HashFile = %s", got)
	}
}
