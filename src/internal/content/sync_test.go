package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/internal/github"
	"github.com/enderiumcraft/rbclauncher/src/internal/version"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// fakeSource serves files from memory; URLs listed in failing return a
// network error.
type fakeSource struct {
	entries []models.ContentEntry
	files   map[string]string
	failing map[string]bool
	listErr error
	fetched []string
}

func (f *fakeSource) ListContents(ctx context.Context, dir, ref string) ([]models.ContentEntry, error) {
	return f.entries, f.listErr
}

func (f *fakeSource) DownloadTo(ctx context.Context, url string, w io.Writer, progress github.ProgressFunc) (int64, error) {
	f.fetched = append(f.fetched, url)
	if f.failing[url] {
		w.Write([]byte("half"))
		return 4, errs.Network("download asset", errors.New("connection reset by peer"))
	}
	n, err := io.WriteString(w, f.files[url])
	return int64(n), err
}

func fiveFileSource() *fakeSource {
	src := &fakeSource{files: map[string]string{}, failing: map[string]bool{}}
	for i := 1; i <= 5; i++ {
		url := fmt.Sprintf("https://raw.example/file%d", i)
		src.entries = append(src.entries, models.ContentEntry{
			Type:        "file",
			Path:        fmt.Sprintf("Minecraft/game/mods/file%d.jar", i),
			DownloadURL: url,
		})
		src.files[url] = fmt.Sprintf("content-%d", i)
	}
	return src
}

func newTestSync(t *testing.T, src *fakeSource) (*Synchronizer, *version.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store := version.NewStore(filepath.Join(dir, "version.json"))
	if err := store.Save(version.Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return NewSynchronizer(src, store, dir, "Minecraft/game"), store, dir
}

var newContent = &models.ReleaseManifest{
	Tag:      "v1.1.0",
	Versions: models.VersionState{BinaryVersion: "1.0.0", ContentVersion: "1.1.0"},
}

func TestApplyWritesFilesAndAdvancesVersion(t *testing.T) {
	src := fiveFileSource()
	sync, store, dir := newTestSync(t, src)

	if err := sync.Apply(context.Background(), models.UpdatePlan{ContentNeeded: true}, newContent, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	for i := 1; i <= 5; i++ {
		got, err := os.ReadFile(filepath.Join(dir, "Minecraft", "game", "mods", fmt.Sprintf("file%d.jar", i)))
		if err != nil {
			t.Fatalf("file %d: %v", i, err)
		}
		if string(got) != fmt.Sprintf("content-%d", i) {
			t.Errorf("file %d = %q", i, got)
		}
	}

	reloaded := version.NewStore(store.Path()).Load()
	if reloaded.ContentVersion != "1.1.0" || reloaded.BinaryVersion != "1.0.0" {
		t.Fatalf("version = %+v", reloaded)
	}
}

func TestApplyThirdOfFiveFails(t *testing.T) {
	src := fiveFileSource()
	src.failing["https://raw.example/file3"] = true
	sync, store, dir := newTestSync(t, src)

	err := sync.Apply(context.Background(), models.UpdatePlan{ContentNeeded: true}, newContent, nil)
	if !errs.Is(err, errs.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}

	if got := version.NewStore(store.Path()).Load(); got != version.Default() {
		t.Fatalf("version advanced to %+v after failed sync", got)
	}

	mods := filepath.Join(dir, "Minecraft", "game", "mods")
	for i := 1; i <= 2; i++ {
		got, err := os.ReadFile(filepath.Join(mods, fmt.Sprintf("file%d.jar", i)))
		if err != nil || string(got) != fmt.Sprintf("content-%d", i) {
			t.Errorf("file %d not kept: %q, %v", i, got, err)
		}
	}
	for i := 3; i <= 5; i++ {
		if _, err := os.Stat(filepath.Join(mods, fmt.Sprintf("file%d.jar", i))); !os.IsNotExist(err) {
			t.Errorf("file %d should not exist: %v", i, err)
		}
	}
	if len(src.fetched) != 3 {
		t.Errorf("fetched %d files, want 3", len(src.fetched))
	}
}

func TestApplyFailedFileKeepsPreviousCopy(t *testing.T) {
	src := fiveFileSource()
	src.failing["https://raw.example/file1"] = true
	sync, _, dir := newTestSync(t, src)

	target := filepath.Join(dir, "Minecraft", "game", "mods", "file1.jar")
	os.MkdirAll(filepath.Dir(target), 0755)
	os.WriteFile(target, []byte("old"), 0644)

	sync.Apply(context.Background(), models.UpdatePlan{ContentNeeded: true}, newContent, nil)

	got, _ := os.ReadFile(target)
	if string(got) != "old" {
		t.Fatalf("previous copy replaced by partial download: %q", got)
	}
}

func TestApplySkippedWhenNotNeeded(t *testing.T) {
	src := fiveFileSource()
	sync, _, _ := newTestSync(t, src)

	if err := sync.Apply(context.Background(), models.UpdatePlan{BinaryNeeded: true}, newContent, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(src.fetched) != 0 {
		t.Fatalf("fetched %d files for a binary-only plan", len(src.fetched))
	}
}

func TestApplyRejectsEscapingPaths(t *testing.T) {
	for _, p := range []string{"Minecraft/game/../../evil.exe", "Other/dir/file.txt"} {
		src := &fakeSource{entries: []models.ContentEntry{{Type: "file", Path: p, DownloadURL: "x"}}}
		sync, _, _ := newTestSync(t, src)

		err := sync.Apply(context.Background(), models.UpdatePlan{ContentNeeded: true}, newContent, nil)
		if !errs.Is(err, errs.KindProtocol) {
			t.Errorf("%s: expected protocol error, got %v", p, err)
		}
	}
}

func TestApplyListingFailure(t *testing.T) {
	src := &fakeSource{listErr: errs.Network("list content tree", errors.New("503 Service Unavailable"))}
	sync, store, _ := newTestSync(t, src)

	err := sync.Apply(context.Background(), models.UpdatePlan{ContentNeeded: true}, newContent, nil)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected listing error, got %v", err)
	}
	if got := version.NewStore(store.Path()).Load(); got != version.Default() {
		t.Fatalf("version advanced: %+v", got)
	}
}
