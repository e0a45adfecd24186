// Package app ties the launcher's stores, update flow and game supervisor
// into the actions offered by the UI: login, register, logout, check for
// updates, apply an update, launch and settings.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/internal/prefs"
	"github.com/enderiumcraft/rbclauncher/src/internal/process"
	"github.com/enderiumcraft/rbclauncher/src/internal/servers"
	"github.com/enderiumcraft/rbclauncher/src/internal/state"
	"github.com/enderiumcraft/rbclauncher/src/internal/update"
	"github.com/enderiumcraft/rbclauncher/src/internal/users"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

var (
	// ErrNotLoggedIn is returned by actions that need a session
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrUpdateRequired is returned by Launch when the install is behind
	// the latest release. The concrete error is *UpdateRequiredError.
	ErrUpdateRequired = errors.New("an update is required before launching")
)

// UpdateRequiredError carries the check that blocked a launch so the
// caller can offer to apply it
type UpdateRequiredError struct {
	Check *models.UpdateCheck
}

func (e *UpdateRequiredError) Error() string {
	return fmt.Sprintf("update %s must be installed before launching", e.Check.Manifest.Tag)
}

func (e *UpdateRequiredError) Unwrap() error {
	return ErrUpdateRequired
}

// Accounts verifies and creates local user accounts
type Accounts interface {
	VerifyCredentials(username, password string) (bool, error)
	CreateAccount(username, password string) error
}

// Updates checks for and applies releases
type Updates interface {
	Check(ctx context.Context) (*models.UpdateCheck, error)
	Evaluate(ctx context.Context) (*models.UpdateCheck, error)
	Apply(ctx context.Context, check *models.UpdateCheck) (update.Result, error)
	Status() models.UpdateStatus
}

// Games spawns and tracks the game process
type Games interface {
	Launch(cfg *models.LaunchConfig) (*process.Handle, error)
	Poll(h *process.Handle) models.ProcessState
	Current() *process.Handle
}

// Options are the install-specific settings of a Launcher
type Options struct {
	InstallDir   string
	GameDir      string
	ProfilesPath string
	EnvPath      string
	Servers      []models.ServerConfig
	ProbeTimeout time.Duration
}

// Launcher implements the user-facing launcher actions
type Launcher struct {
	accounts Accounts
	prefs    *prefs.Store
	state    *state.State
	updates  Updates
	games    Games
	opts     Options

	// openFolder shows a directory in the platform file manager
	openFolder func(path string) error
}

// New creates a Launcher
func New(accounts Accounts, preferences *prefs.Store, st *state.State, updates Updates, games Games, opts Options) *Launcher {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = servers.DefaultTimeout
	}
	return &Launcher{
		accounts:   accounts,
		prefs:      preferences,
		state:      st,
		updates:    updates,
		games:      games,
		opts:       opts,
		openFolder: openWithShell,
	}
}

// Login verifies the credentials and starts a session. When remember is
// set the username is prefilled on the next start.
func (l *Launcher) Login(username, password string, remember bool) error {
	const op = "login"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errs.Validation(op, users.ErrMissingFields)
	}

	ok, err := l.accounts.VerifyCredentials(username, password)
	if err != nil {
		return err
	}
	if !ok {
		return users.ErrInvalidCredentials
	}

	l.state.Login(username)
	if err := l.prefs.Remember(username, remember); err != nil {
		log.Printf("Failed to save preferences: %v", err)
	}
	log.Printf("User %s logged in", username)
	return nil
}

// Register creates a new account. It does not log the user in.
func (l *Launcher) Register(username, password string) error {
	return l.accounts.CreateAccount(strings.TrimSpace(username), password)
}

// Logout ends the session and forgets the remembered username
func (l *Launcher) Logout() error {
	username, _ := l.state.User()
	l.state.Logout()
	if err := l.prefs.Forget(); err != nil {
		return err
	}
	log.Printf("User %s logged out", username)
	return nil
}

// User returns the logged-in username
func (l *Launcher) User() (string, bool) {
	return l.state.User()
}

// Preferences returns the saved preferences
func (l *Launcher) Preferences() models.Preferences {
	return l.prefs.Get()
}

// SetRAM stores the memory allocation used by the next launch
func (l *Launcher) SetRAM(mb int) error {
	return l.prefs.SetRAM(mb)
}

// Servers returns the configured game servers
func (l *Launcher) Servers() []models.ServerConfig {
	return l.opts.Servers
}

// ServerStatuses probes every configured server
func (l *Launcher) ServerStatuses(ctx context.Context) []models.ServerStatus {
	return servers.ProbeAll(ctx, l.opts.Servers, l.opts.ProbeTimeout)
}

// Busy returns the operation in flight, if any
func (l *Launcher) Busy() state.Operation {
	return l.state.Running()
}

// CheckForUpdates compares the install with the latest release
func (l *Launcher) CheckForUpdates(ctx context.Context) (*models.UpdateCheck, error) {
	return l.updates.Check(ctx)
}

// ApplyUpdate executes a confirmed update check
func (l *Launcher) ApplyUpdate(ctx context.Context, check *models.UpdateCheck) (update.Result, error) {
	return l.updates.Apply(ctx, check)
}

// UpdateStatus returns the progress of the current or last update
func (l *Launcher) UpdateStatus() models.UpdateStatus {
	return l.updates.Status()
}

// Launch starts the game against the named server. The install is checked
// against the latest release first; a pending update fails the launch
// with *UpdateRequiredError.
func (l *Launcher) Launch(ctx context.Context, serverName string) (*process.Handle, error) {
	const op = "launch"

	username, ok := l.state.User()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	server, ok := servers.Find(l.opts.Servers, serverName)
	if !ok {
		return nil, errs.Validation(op, fmt.Errorf("unknown server %q", serverName))
	}

	release, err := l.state.Begin(state.OpLaunch)
	if err != nil {
		return nil, err
	}
	defer release()

	check, err := l.updates.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	if !check.Plan.Empty() {
		return nil, &UpdateRequiredError{Check: check}
	}

	profiles, err := process.LoadProfiles(l.opts.ProfilesPath)
	if err != nil {
		return nil, err
	}
	cfg, err := process.BuildLaunchConfig(profiles, l.opts.InstallDir, process.Request{
		ContentVersion: check.Local.ContentVersion,
		Username:       username,
		Server:         server,
		RAMMB:          l.prefs.Get().RAMAllocation,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Env, err = process.LoadEnv(l.opts.EnvPath); err != nil {
		return nil, err
	}

	return l.games.Launch(cfg)
}

// GameState polls the most recently launched game without blocking
func (l *Launcher) GameState() models.ProcessState {
	return l.games.Poll(l.games.Current())
}

// OpenGameFolder shows the game directory in the file manager
func (l *Launcher) OpenGameFolder() error {
	const op = "open game folder"

	if err := os.MkdirAll(l.opts.GameDir, 0755); err != nil {
		return errs.Filesystem(op, err)
	}
	if err := l.openFolder(l.opts.GameDir); err != nil {
		return errs.Filesystem(op, err)
	}
	return nil
}

func openWithShell(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	go cmd.Wait()
	return nil
}
