package selfupdate

import "time"

// SwapRequest describes a staged binary replacement
type SwapRequest struct {
	Staged string
	Target string
	Args   []string
	Delay  time.Duration
}

// Relaunch starts the replaced launcher. It runs after the current
// process has shut down its UI and released its resources.
type Relaunch func() error

// Swapper replaces the running executable with a staged binary. Each
// platform provides one; NewSwapper returns the native implementation.
type Swapper interface {
	Swap(req SwapRequest) (Relaunch, error)
}
