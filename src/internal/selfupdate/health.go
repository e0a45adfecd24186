package selfupdate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// healthCheck runs "<binary> --version" and requires a clean exit
func healthCheck(ctx context.Context, binaryPath string) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, "--version")
	cmd.Env = os.Environ()
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("health check timed out after %s", healthCheckTimeout)
		}
		return fmt.Errorf("health check failed: %w: %s", err, out)
	}
	return nil
}
