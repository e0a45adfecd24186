package process

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

const stderrTailBytes = 16 * 1024

// Handle is a spawned game process. Its state is written only by the
// supervisor's wait goroutine.
type Handle struct {
	ID        string
	Config    *models.LaunchConfig
	PID       int
	StartTime time.Time

	cmd    *exec.Cmd
	stderr *tailBuffer
	output *os.File
	done   chan struct{}

	mu    sync.RWMutex
	state models.ProcessState
}

// State returns the current process state without blocking
func (h *Handle) State() models.ProcessState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Done is closed once the process has exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) setState(state models.ProcessState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = state
}

// Supervisor spawns and tracks the game process
type Supervisor struct {
	outputLog string
	current   *Handle
	released  bool
	mu        sync.RWMutex
}

// NewSupervisor creates a supervisor. Game stdout and stderr are appended
// to outputLog when it is set.
func NewSupervisor(outputLog string) *Supervisor {
	return &Supervisor{outputLog: outputLog}
}

// Launch starts the game described by cfg and returns immediately
func (s *Supervisor) Launch(cfg *models.LaunchConfig) (*Handle, error) {
	const op = "launch game"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, errs.Launch(op, fmt.Errorf("supervisor is shut down"))
	}
	if s.current != nil && s.current.State().Phase == models.PhaseRunning {
		return nil, errs.Launch(op, fmt.Errorf("game is already running (pid %d)", s.current.PID))
	}

	info, err := os.Stat(cfg.ExecutablePath)
	if err != nil {
		return nil, errs.Launch(op, fmt.Errorf("game runtime not found: %w", err))
	}
	if info.IsDir() {
		return nil, errs.Launch(op, fmt.Errorf("game runtime %s is a directory", cfg.ExecutablePath))
	}

	handle := &Handle{
		ID:     uuid.New().String(),
		Config: cfg,
		stderr: newTailBuffer(stderrTailBytes),
		done:   make(chan struct{}),
		state:  models.ProcessState{Phase: models.PhaseNotStarted},
	}

	cmd := exec.Command(cfg.ExecutablePath, Args(cfg)...)
	cmd.Dir = cfg.WorkingDir
	cmd.Env = append(os.Environ(), cfg.Env...)
	detach(cmd)

	var stdout, stderr io.Writer = io.Discard, handle.stderr
	if s.outputLog != "" {
		f, err := os.OpenFile(s.outputLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Printf("[Process] Failed to open game log %s: %v", s.outputLog, err)
		} else {
			handle.output = f
			fmt.Fprintf(f, "---- %s launch %s (%s) ----\n", time.Now().Format(time.RFC3339), handle.ID, cfg.ProfileName)
			stdout = f
			stderr = io.MultiWriter(f, handle.stderr)
		}
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		if handle.output != nil {
			handle.output.Close()
		}
		return nil, errs.Launch(op, fmt.Errorf("failed to start process: %w", err))
	}

	handle.cmd = cmd
	handle.PID = cmd.Process.Pid
	handle.StartTime = time.Now()
	handle.setState(models.ProcessState{Phase: models.PhaseRunning})
	s.current = handle

	log.Printf("[Process] Started %s as pid %d for %s", cfg.ProfileName, handle.PID, cfg.Username)

	go s.monitorProcess(handle)

	return handle, nil
}

// Poll reports the state of h without waiting. A nil handle has not been
// started.
func (s *Supervisor) Poll(h *Handle) models.ProcessState {
	if h == nil {
		return models.ProcessState{Phase: models.PhaseNotStarted}
	}
	return h.State()
}

// Current returns the most recently launched handle, or nil
func (s *Supervisor) Current() *Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Shutdown releases the supervisor's handles. A running game keeps
// running; its exit is no longer observed.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.released = true
	if s.current != nil && s.current.State().Phase == models.PhaseRunning {
		log.Printf("[Process] Releasing running game pid %d", s.current.PID)
	}
	s.current = nil
}

// monitorProcess waits for the process and records how it ended
func (s *Supervisor) monitorProcess(h *Handle) {
	err := h.cmd.Wait()
	if h.output != nil {
		h.output.Close()
	}

	state := models.ProcessState{Phase: models.PhaseExitedOk}
	if err != nil {
		state.Phase = models.PhaseExitedWithError
		state.StderrTail = h.stderr.String()

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			state.ExitCode = exitErr.ExitCode()
		} else {
			state.ExitCode = -1
			if state.StderrTail == "" {
				state.StderrTail = err.Error()
			}
		}
	}
	h.setState(state)
	close(h.done)

	log.Printf("[Process] pid %d ended: %s", h.PID, state)
}
