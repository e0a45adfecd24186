//go:build !windows

package selfupdate

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"syscall"
)

// renameSwapper relies on rename(2) replacing the directory entry while
// the running process keeps its open inode.
type renameSwapper struct{}

// NewSwapper returns the platform swapper
func NewSwapper() Swapper {
	return renameSwapper{}
}

func (renameSwapper) Swap(req SwapRequest) (Relaunch, error) {
	target, err := filepath.EvalSymlinks(req.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable: %w", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("failed to stat executable: %w", err)
	}

	// Stage next to the target so the final rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".new-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := copyInto(tmp, req.Staged); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to close staging file: %w", err)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()|0111); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to chmod staging file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to replace executable: %w", err)
	}
	os.Remove(req.Staged)

	log.Printf("[SelfUpdate] Replaced %s", target)

	argv := append([]string{target}, req.Args...)
	return func() error {
		return syscall.Exec(target, argv, os.Environ())
	}, nil
}

func copyInto(dst *os.File, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open staged binary: %w", err)
	}
	defer in.Close()

	if _, err := io.Copy(dst, in); err != nil {
		return fmt.Errorf("failed to copy staged binary: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("failed to sync staged binary: %w", err)
	}
	return nil
}
