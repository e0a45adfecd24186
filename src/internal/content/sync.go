// Package content mirrors the remote content tree of a release onto the
// local game directory.
package content

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/internal/fsutil"
	"github.com/enderiumcraft/rbclauncher/src/internal/github"
	"github.com/enderiumcraft/rbclauncher/src/internal/version"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// Source lists and downloads remote content
type Source interface {
	ListContents(ctx context.Context, dir, ref string) ([]models.ContentEntry, error)
	DownloadTo(ctx context.Context, assetURL string, w io.Writer, progress github.ProgressFunc) (int64, error)
}

// ProgressFunc is called before each file is fetched
type ProgressFunc func(done, total int, path string)

// Synchronizer applies content updates
type Synchronizer struct {
	source     Source
	versions   *version.Store
	installDir string
	remoteDir  string
}

// NewSynchronizer mirrors remoteDir of the release repository to the same
// relative path under installDir.
func NewSynchronizer(source Source, versions *version.Store, installDir, remoteDir string) *Synchronizer {
	return &Synchronizer{
		source:     source,
		versions:   versions,
		installDir: installDir,
		remoteDir:  strings.Trim(path.Clean("/"+filepath.ToSlash(remoteDir)), "/"),
	}
}

// Apply downloads every file of the release's content tree, overwriting
// local copies. Files are written one at a time and the first failure
// aborts the run; files already written stay on disk. The content version
// is recorded only after every file succeeded. Files removed remotely are
// not deleted locally.
func (s *Synchronizer) Apply(ctx context.Context, plan models.UpdatePlan, manifest *models.ReleaseManifest, progress ProgressFunc) error {
	if !plan.ContentNeeded {
		return nil
	}
	if manifest == nil {
		return errs.Protocol("sync content", fmt.Errorf("no release manifest"))
	}

	log.Printf("[Content] Listing %s at %s", s.remoteDir, manifest.Tag)
	entries, err := s.source.ListContents(ctx, s.remoteDir, manifest.Tag)
	if err != nil {
		return err
	}

	for i, entry := range entries {
		if entry.Type != "file" {
			continue
		}
		if progress != nil {
			progress(i, len(entries), entry.Path)
		}
		if err := s.fetch(ctx, entry); err != nil {
			log.Printf("[Content] Sync aborted at %s (%d/%d): %v", entry.Path, i+1, len(entries), err)
			return err
		}
	}
	if progress != nil {
		progress(len(entries), len(entries), "")
	}

	current := s.versions.Current()
	current.ContentVersion = manifest.Versions.ContentVersion
	if err := s.versions.Save(current); err != nil {
		return err
	}

	log.Printf("[Content] Synchronized %d files, modpack now %s", len(entries), current.ContentVersion)
	return nil
}

func (s *Synchronizer) fetch(ctx context.Context, entry models.ContentEntry) error {
	localPath, err := s.localPath(entry.Path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return errs.Filesystem("sync content", fmt.Errorf("failed to create directory: %w", err))
	}

	err = fsutil.WriteFrom(localPath, 0644, func(w io.Writer) error {
		_, err := s.source.DownloadTo(ctx, entry.DownloadURL, w, nil)
		return err
	})
	if err != nil {
		if errs.KindOf(err) == "" {
			return errs.Filesystem("sync content", fmt.Errorf("failed to write %s: %w", entry.Path, err))
		}
		return err
	}
	return nil
}

// localPath maps a repository path onto the install directory, rejecting
// anything outside the content tree.
func (s *Synchronizer) localPath(remotePath string) (string, error) {
	clean := path.Clean(remotePath)
	if s.remoteDir != "" && clean != s.remoteDir && !strings.HasPrefix(clean, s.remoteDir+"/") {
		return "", errs.Protocol("sync content", fmt.Errorf("entry %q is outside %s", remotePath, s.remoteDir))
	}
	rel := filepath.FromSlash(clean)
	if !filepath.IsLocal(rel) {
		return "", errs.Protocol("sync content", fmt.Errorf("entry %q escapes the install directory", remotePath))
	}
	return filepath.Join(s.installDir, rel), nil
}
