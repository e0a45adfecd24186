//go:build windows

package selfupdate

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// helperSwapper hands the replacement to a cmd script, since Windows does
// not allow overwriting an executable while it runs. The script waits for
// this process to exit, moves the new binary over the old one, starts it
// and deletes itself.
type helperSwapper struct{}

// NewSwapper returns the platform swapper
func NewSwapper() Swapper {
	return helperSwapper{}
}

func (helperSwapper) Swap(req SwapRequest) (Relaunch, error) {
	script, err := os.CreateTemp("", "rbclauncher-update-*.cmd")
	if err != nil {
		return nil, fmt.Errorf("failed to create update script: %w", err)
	}
	scriptPath := script.Name()

	if _, err := script.WriteString(helperScript(req)); err != nil {
		script.Close()
		os.Remove(scriptPath)
		return nil, fmt.Errorf("failed to write update script: %w", err)
	}
	if err := script.Close(); err != nil {
		os.Remove(scriptPath)
		return nil, fmt.Errorf("failed to finalize update script: %w", err)
	}

	cmd := exec.Command("cmd", "/C", scriptPath)
	cmd.Dir = filepath.Dir(req.Target)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW | windows.CREATE_NEW_PROCESS_GROUP,
	}
	if err := cmd.Start(); err != nil {
		os.Remove(scriptPath)
		return nil, fmt.Errorf("failed to launch update script: %w", err)
	}
	cmd.Process.Release()

	log.Printf("[SelfUpdate] Handed off to %s", scriptPath)

	// The script relaunches once this process is gone.
	return func() error { return nil }, nil
}

func helperScript(req SwapRequest) string {
	delay := int(req.Delay.Seconds())
	if delay < 1 {
		delay = 2
	}

	var args strings.Builder
	for _, a := range req.Args {
		args.WriteString(` "`)
		args.WriteString(strings.ReplaceAll(a, `"`, `""`))
		args.WriteString(`"`)
	}

	lines := []string{
		"@echo off",
		"setlocal",
		fmt.Sprintf(`set "TARGET=%s"`, req.Target),
		fmt.Sprintf(`set "NEW=%s"`, req.Staged),
		fmt.Sprintf("timeout /t %d /nobreak >nul", delay),
		"for /L %%I in (1,1,45) do (",
		`  move /Y "%NEW%" "%TARGET%" >nul 2>&1`,
		"  if not errorlevel 1 goto launch",
		"  timeout /t 1 /nobreak >nul",
		")",
		":launch",
		`start "" "%TARGET%"` + args.String(),
		`del "%~f0" >nul 2>&1`,
		"",
	}
	return strings.Join(lines, "\r\n")
}
