package update

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/enderiumcraft/rbclauncher/src/internal/content"
	"github.com/enderiumcraft/rbclauncher/src/internal/github"
	"github.com/enderiumcraft/rbclauncher/src/internal/planner"
	"github.com/enderiumcraft/rbclauncher/src/internal/state"
	"github.com/enderiumcraft/rbclauncher/src/internal/version"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// ReleaseSource fetches the latest release manifest
type ReleaseSource interface {
	FetchLatestManifest(ctx context.Context) (*models.ReleaseManifest, error)
}

// ContentApplier mirrors the content tree of a release
type ContentApplier interface {
	Apply(ctx context.Context, plan models.UpdatePlan, manifest *models.ReleaseManifest, progress content.ProgressFunc) error
}

// BinaryApplier replaces the launcher executable
type BinaryApplier interface {
	Apply(ctx context.Context, plan models.UpdatePlan, manifest *models.ReleaseManifest, local models.VersionState, progress github.ProgressFunc) error
}

// Result describes what an applied update changed
type Result struct {
	ContentUpdated  bool
	BinaryHandedOff bool
}

// Manager runs update checks and applies update plans. Checks, applies
// and launches share one operation slot in the application state.
type Manager struct {
	releases ReleaseSource
	versions *version.Store
	content  ContentApplier
	binary   BinaryApplier
	state    *state.State

	status   models.UpdateStatus
	listener func(models.UpdateStatus)
	mu       sync.RWMutex
}

// NewManager creates a new update manager
func NewManager(releases ReleaseSource, versions *version.Store, contentApplier ContentApplier, binaryApplier BinaryApplier, st *state.State) *Manager {
	return &Manager{
		releases: releases,
		versions: versions,
		content:  contentApplier,
		binary:   binaryApplier,
		state:    st,
		status:   models.UpdateStatus{Stage: models.StageIdle},
	}
}

// SetStatusListener registers fn to receive every status change. fn runs
// on the goroutine performing the update and must not block.
func (m *Manager) SetStatusListener(fn func(models.UpdateStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = fn
}

// Status returns the status of the current or last operation
func (m *Manager) Status() models.UpdateStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Check fetches the latest manifest and plans against the local install.
// It fails with state.ErrBusy while another operation is in flight.
func (m *Manager) Check(ctx context.Context) (*models.UpdateCheck, error) {
	release, err := m.state.Begin(state.OpCheck)
	if err != nil {
		return nil, err
	}
	defer release()

	return m.Evaluate(ctx)
}

// Evaluate is Check for callers that already hold the operation slot
func (m *Manager) Evaluate(ctx context.Context) (*models.UpdateCheck, error) {
	m.setStatus(models.UpdateStatus{
		Stage:    models.StageChecking,
		Message:  "Checking for updates",
		Progress: 0,
	})

	manifest, err := m.releases.FetchLatestManifest(ctx)
	if err != nil {
		log.Printf("[Update] Check failed: %v", err)
		m.fail(fmt.Errorf("update check failed: %w", err))
		return nil, err
	}

	local := m.versions.Current()
	check := &models.UpdateCheck{
		Local:    local,
		Manifest: manifest,
		Plan:     planner.Plan(local, manifest),
	}

	log.Printf("[Update] Release %s: launcher %s -> %s, modpack %s -> %s (content=%v binary=%v)",
		manifest.Tag,
		local.BinaryVersion, manifest.Versions.BinaryVersion,
		local.ContentVersion, manifest.Versions.ContentVersion,
		check.Plan.ContentNeeded, check.Plan.BinaryNeeded)

	message := "Up to date"
	if !check.Plan.Empty() {
		message = fmt.Sprintf("Update %s available", manifest.Tag)
	}
	m.setStatus(models.UpdateStatus{
		Stage:     models.StageIdle,
		Message:   message,
		Progress:  100,
		Completed: true,
	})
	return check, nil
}

// Apply executes check's plan: content first, then the launcher binary.
// A successful binary step hands off to the platform swapper and the
// process is expected to exit.
func (m *Manager) Apply(ctx context.Context, check *models.UpdateCheck) (Result, error) {
	release, err := m.state.Begin(state.OpApply)
	if err != nil {
		return Result{}, err
	}
	defer release()

	return m.apply(ctx, check)
}

func (m *Manager) apply(ctx context.Context, check *models.UpdateCheck) (Result, error) {
	var result Result
	if check == nil || check.Manifest == nil {
		return result, fmt.Errorf("no update check to apply")
	}

	// The plan is tied to the local state it was computed against.
	plan := check.Plan
	if local := m.versions.Current(); local != check.Local {
		plan = planner.Plan(local, check.Manifest)
		log.Printf("[Update] Local versions changed since check, replanned: %+v", plan)
	}
	if plan.Empty() {
		m.setStatus(models.UpdateStatus{Stage: models.StageCompleted, Message: "Already up to date", Progress: 100, Completed: true})
		return result, nil
	}

	if plan.ContentNeeded {
		m.setStatus(models.UpdateStatus{
			Stage:    models.StageSyncingContent,
			Message:  fmt.Sprintf("Updating modpack to %s", check.Manifest.Versions.ContentVersion),
			Progress: 5,
		})

		progress := func(done, total int, path string) {
			status := models.UpdateStatus{Stage: models.StageSyncingContent, Message: path}
			if total > 0 {
				status.Progress = 5 + float64(done)/float64(total)*45 // 5-50%
			}
			m.setStatus(status)
		}
		if err := m.content.Apply(ctx, plan, check.Manifest, progress); err != nil {
			log.Printf("[Update] Modpack update failed: %v", err)
			m.fail(err)
			return result, err
		}
		result.ContentUpdated = true
	}

	if plan.BinaryNeeded {
		m.setStatus(models.UpdateStatus{
			Stage:    models.StageDownloadingBinary,
			Message:  fmt.Sprintf("Downloading launcher %s", check.Manifest.Versions.BinaryVersion),
			Progress: 50,
		})

		progress := func(downloaded, total int64) {
			status := models.UpdateStatus{Stage: models.StageDownloadingBinary}
			if total > 0 {
				status.Progress = 50 + float64(downloaded)/float64(total)*40 // 50-90%
				status.Message = fmt.Sprintf("Downloading: %.1f MB / %.1f MB",
					float64(downloaded)/1024/1024, float64(total)/1024/1024)
			}
			m.setStatus(status)
		}
		if err := m.binary.Apply(ctx, plan, check.Manifest, m.versions.Current(), progress); err != nil {
			log.Printf("[Update] Launcher update failed: %v", err)
			m.fail(err)
			return result, err
		}
		result.BinaryHandedOff = true

		m.setStatus(models.UpdateStatus{
			Stage:     models.StageHandingOff,
			Message:   "Restarting launcher",
			Progress:  100,
			Completed: true,
		})
		return result, nil
	}

	m.setStatus(models.UpdateStatus{
		Stage:     models.StageCompleted,
		Message:   "Update complete",
		Progress:  100,
		Completed: true,
	})
	return result, nil
}

func (m *Manager) fail(err error) {
	m.setStatus(models.UpdateStatus{
		Stage:     models.StageFailed,
		Error:     err.Error(),
		Completed: true,
	})
}

func (m *Manager) setStatus(status models.UpdateStatus) {
	m.mu.Lock()
	m.status = status
	listener := m.listener
	m.mu.Unlock()

	if listener != nil {
		listener(status)
	}
}
