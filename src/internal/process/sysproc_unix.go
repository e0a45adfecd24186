//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// detach moves the game into its own process group so terminal signals
// aimed at the launcher do not reach it
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
