// Package selfupdate replaces the running launcher with a newer release.
//
// The platform-independent part downloads the new binary to a temporary
// location, verifies it and records the pending swap. The swap itself is
// delegated to a platform Swapper. Nothing touches the installed
// executable until the staged binary passed verification.
package selfupdate

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/internal/github"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// Downloader fetches release assets
type Downloader interface {
	Download(ctx context.Context, assetURL string) ([]byte, error)
	DownloadTo(ctx context.Context, assetURL string, w io.Writer, progress github.ProgressFunc) (int64, error)
}

// Options configures an Updater
type Options struct {
	AssetName       string
	ChecksumAsset   string
	RequireChecksum bool
	HealthCheck     bool
	TempDir         string
	PendingPath     string
	Executable      string
	Args            []string
	SwapDelay       time.Duration
}

// Updater applies launcher binary updates
type Updater struct {
	source   Downloader
	swapper  Swapper
	opts     Options
	shutdown func()

	mu       sync.Mutex
	relaunch Relaunch
}

// New creates an Updater. shutdown is invoked after a successful handoff
// and must make the process exit gracefully.
func New(source Downloader, swapper Swapper, opts Options, shutdown func()) *Updater {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.SwapDelay <= 0 {
		opts.SwapDelay = 2 * time.Second
	}
	return &Updater{
		source:   source,
		swapper:  swapper,
		opts:     opts,
		shutdown: shutdown,
	}
}

// Apply downloads, verifies and hands off the new launcher binary. On
// success the shutdown callback has been called and the caller should stop
// doing work. On failure the installed executable is untouched.
func (u *Updater) Apply(ctx context.Context, plan models.UpdatePlan, manifest *models.ReleaseManifest, local models.VersionState, progress github.ProgressFunc) error {
	const op = "update launcher"

	if !plan.BinaryNeeded {
		return nil
	}
	if manifest == nil {
		return errs.Protocol(op, fmt.Errorf("no release manifest"))
	}

	asset, ok := manifest.Asset(u.opts.AssetName)
	if !ok {
		return errs.Protocol(op, fmt.Errorf("release %s has no %s asset", manifest.Tag, u.opts.AssetName))
	}

	staged, err := u.download(ctx, asset, progress)
	if err != nil {
		return err
	}

	digest, err := u.verify(ctx, manifest, staged)
	if err != nil {
		os.Remove(staged)
		return err
	}

	pending := Pending{
		PreviousVersion: local.BinaryVersion,
		NewVersion:      manifest.Versions.BinaryVersion,
		Digest:          digest,
		Executable:      u.opts.Executable,
		Timestamp:       time.Now().UTC(),
	}
	if err := WritePending(u.opts.PendingPath, pending); err != nil {
		os.Remove(staged)
		return errs.Filesystem(op, fmt.Errorf("failed to record pending update: %w", err))
	}

	relaunch, err := u.swapper.Swap(SwapRequest{
		Staged: staged,
		Target: u.opts.Executable,
		Args:   u.opts.Args,
		Delay:  u.opts.SwapDelay,
	})
	if err != nil {
		os.Remove(staged)
		ClearPending(u.opts.PendingPath)
		return errs.Filesystem(op, err)
	}

	u.mu.Lock()
	u.relaunch = relaunch
	u.mu.Unlock()

	log.Printf("[SelfUpdate] Handoff to %s complete, shutting down", pending.NewVersion)
	if u.shutdown != nil {
		u.shutdown()
	}
	return nil
}

// Relaunch runs the platform relaunch step of a completed handoff. It is a
// no-op when no handoff happened.
func (u *Updater) Relaunch() error {
	u.mu.Lock()
	relaunch := u.relaunch
	u.relaunch = nil
	u.mu.Unlock()

	if relaunch == nil {
		return nil
	}
	return relaunch()
}

// HandedOff reports whether a swap is waiting for this process to exit
func (u *Updater) HandedOff() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.relaunch != nil
}

func (u *Updater) download(ctx context.Context, asset models.Asset, progress github.ProgressFunc) (string, error) {
	const op = "download launcher"

	tmp, err := os.CreateTemp(u.opts.TempDir, "rbclauncher-update-*"+filepath.Ext(asset.Name))
	if err != nil {
		return "", errs.Filesystem(op, fmt.Errorf("failed to create temporary file: %w", err))
	}
	path := tmp.Name()

	log.Printf("[SelfUpdate] Downloading %s to %s", asset.Name, path)
	if _, err := u.source.DownloadTo(ctx, asset.DownloadURL, tmp, progress); err != nil {
		tmp.Close()
		os.Remove(path)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return "", errs.Filesystem(op, fmt.Errorf("failed to close temporary file: %w", err))
	}
	if err := os.Chmod(path, 0755); err != nil {
		os.Remove(path)
		return "", errs.Filesystem(op, fmt.Errorf("failed to chmod temporary file: %w", err))
	}
	return path, nil
}

// verify checks the staged binary against the release checksum list and
// optionally runs it once. It returns the binary's digest.
func (u *Updater) verify(ctx context.Context, manifest *models.ReleaseManifest, staged string) (string, error) {
	const op = "verify launcher"

	digest, err := HashFile(staged)
	if err != nil {
		return "", errs.Filesystem(op, err)
	}

	sumsAsset, ok := manifest.Asset(u.opts.ChecksumAsset)
	switch {
	case ok:
		data, err := u.source.Download(ctx, sumsAsset.DownloadURL)
		if err != nil {
			return "", err
		}
		expected, found := ParseChecksums(data)[u.opts.AssetName]
		if !found {
			return "", errs.Protocol(op, fmt.Errorf("%s has no entry for %s", u.opts.ChecksumAsset, u.opts.AssetName))
		}
		if expected != digest {
			return "", errs.Protocol(op, fmt.Errorf("checksum mismatch for %s: expected %s, got %s", u.opts.AssetName, expected, digest))
		}
		log.Printf("[SelfUpdate] Checksum verified for %s", u.opts.AssetName)
	case u.opts.RequireChecksum:
		return "", errs.Protocol(op, fmt.Errorf("release %s has no %s asset", manifest.Tag, u.opts.ChecksumAsset))
	default:
		log.Printf("[SelfUpdate] Release %s has no %s, skipping checksum", manifest.Tag, u.opts.ChecksumAsset)
	}

	if u.opts.HealthCheck {
		if err := healthCheck(ctx, staged); err != nil {
			return "", errs.Protocol(op, err)
		}
	}
	return digest, nil
}
