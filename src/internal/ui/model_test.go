package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/enderiumcraft/rbclauncher/src/internal/app"
	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/internal/process"
	"github.com/enderiumcraft/rbclauncher/src/internal/update"
	"github.com/enderiumcraft/rbclauncher/src/internal/users"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

type fakeBackend struct {
	prefs      models.Preferences
	loginErr   error
	logins     []string
	applied    int
	launches   []string
	logouts    int
	ram        int
	gameState  models.ProcessState
	updateNext *models.UpdateCheck
}

func (f *fakeBackend) Login(username, password string, remember bool) error {
	f.logins = append(f.logins, username+":"+password)
	return f.loginErr
}
func (f *fakeBackend) Register(username, password string) error { return nil }
func (f *fakeBackend) Logout() error                            { f.logouts++; return nil }
func (f *fakeBackend) Preferences() models.Preferences          { return f.prefs }
func (f *fakeBackend) SetRAM(mb int) error                      { f.ram = mb; f.prefs.RAMAllocation = mb; return nil }
func (f *fakeBackend) Servers() []models.ServerConfig {
	return []models.ServerConfig{
		{Name: "Vanilla", Host: "localhost", Port: 25565},
		{Name: "Modded", Host: "localhost", Port: 25566},
	}
}
func (f *fakeBackend) ServerStatuses(ctx context.Context) []models.ServerStatus { return nil }
func (f *fakeBackend) CheckForUpdates(ctx context.Context) (*models.UpdateCheck, error) {
	return f.updateNext, nil
}
func (f *fakeBackend) ApplyUpdate(ctx context.Context, check *models.UpdateCheck) (update.Result, error) {
	f.applied++
	return update.Result{ContentUpdated: true}, nil
}
func (f *fakeBackend) Launch(ctx context.Context, server string) (*process.Handle, error) {
	f.launches = append(f.launches, server)
	return &process.Handle{}, nil
}
func (f *fakeBackend) GameState() models.ProcessState { return f.gameState }
func (f *fakeBackend) OpenGameFolder() error          { return nil }

func newTestModel() (*Model, *fakeBackend) {
	b := &fakeBackend{prefs: models.Preferences{RAMAllocation: 2048}}
	return New(b, Options{Version: "1.0.0"}), b
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(keyRunes(string(r)))
	}
}

func loggedIn(t *testing.T) (*Model, *fakeBackend) {
	t.Helper()
	m, b := newTestModel()
	m.Update(loginResultMsg{username: "steve"})
	if m.screen != screenMain {
		t.Fatalf("screen = %v, want main", m.screen)
	}
	return m, b
}

var pendingCheck = &models.UpdateCheck{
	Local:    models.VersionState{BinaryVersion: "1.0.0", ContentVersion: "1.0.0"},
	Manifest: &models.ReleaseManifest{Tag: "v1.1.0", Versions: models.VersionState{BinaryVersion: "1.0.0", ContentVersion: "1.1.0"}},
	Plan:     models.UpdatePlan{ContentNeeded: true},
}

func TestLoginFlow(t *testing.T) {
	m, b := newTestModel()

	typeText(m, "steve")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.focus != 1 {
		t.Fatalf("focus = %d after enter on username", m.focus)
	}
	typeText(m, "diamonds!")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.busy || cmd == nil {
		t.Fatal("login did not start")
	}

	msg := loginCmd(b, m.inputs[0].Value(), m.inputs[1].Value(), m.remember)()
	if len(b.logins) != 1 || b.logins[0] != "steve:diamonds!" {
		t.Fatalf("logins = %v", b.logins)
	}
	m.Update(msg)
	if m.busy || m.screen != screenMain || m.username != "steve" {
		t.Fatalf("busy=%v screen=%v user=%q", m.busy, m.screen, m.username)
	}
}

func TestLoginErrorShowsDialog(t *testing.T) {
	m, _ := newTestModel()
	m.Update(loginResultMsg{err: users.ErrInvalidCredentials})

	if m.overlay != overlayDialog || !m.dialogError {
		t.Fatalf("overlay = %v", m.overlay)
	}
	if !strings.Contains(m.View(), "Invalid username or password") {
		t.Fatal("error text not shown")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.overlay != overlayNone || m.screen != screenLogin {
		t.Fatal("dialog not dismissed")
	}
}

func TestRememberedUsernamePrefilled(t *testing.T) {
	b := &fakeBackend{prefs: models.Preferences{RememberUsername: true, LastUsername: "alex", RAMAllocation: 2048}}
	m := New(b, Options{})
	if m.inputs[0].Value() != "alex" || m.focus != 1 || !m.remember {
		t.Fatalf("value=%q focus=%d remember=%v", m.inputs[0].Value(), m.focus, m.remember)
	}
}

func TestLaunchDisabledWhileBusy(t *testing.T) {
	m, _ := loggedIn(t)

	_, cmd := m.Update(keyRunes("u"))
	if cmd == nil || !m.busy {
		t.Fatal("update check not started")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatal("launch started while an update check was running")
	}
	if _, cmd := m.Update(keyRunes("u")); cmd != nil {
		t.Fatal("second update check started")
	}
}

func TestUpdatePromptDismissed(t *testing.T) {
	m, b := loggedIn(t)

	m.Update(launchResultMsg{err: &app.UpdateRequiredError{Check: pendingCheck}})
	if m.overlay != overlayUpdatePrompt || !m.launchAfterUpdate {
		t.Fatalf("overlay = %v", m.overlay)
	}
	if !strings.Contains(m.View(), "v1.1.0") {
		t.Fatal("prompt does not name the release")
	}

	_, cmd := m.Update(keyRunes("n"))
	if cmd != nil || m.overlay != overlayNone || m.pending != nil {
		t.Fatal("dismissing the prompt did not abort")
	}
	if b.applied != 0 {
		t.Fatal("update applied after dismissal")
	}
}

func TestUpdateAcceptedThenLaunches(t *testing.T) {
	m, b := loggedIn(t)
	m.Update(launchResultMsg{err: &app.UpdateRequiredError{Check: pendingCheck}})

	_, cmd := m.Update(keyRunes("y"))
	if cmd == nil || m.overlay != overlayProgress || !m.busy {
		t.Fatal("update did not start")
	}

	m.Update(UpdateStatusMsg{Stage: models.StageSyncingContent, Progress: 30, Message: "mods/a.jar"})
	if !strings.Contains(m.View(), "mods/a.jar") {
		t.Fatal("progress message not rendered")
	}

	m.Update(applyUpdateCmd(b, pendingCheck)())
	if b.applied != 1 {
		t.Fatalf("applied = %d", b.applied)
	}
	if !m.busy || m.busyLabel != "Preparing launch" {
		t.Fatalf("launch not resumed after update: busy=%v label=%q", m.busy, m.busyLabel)
	}
}

func TestBinaryHandoffQuits(t *testing.T) {
	m, _ := loggedIn(t)
	m.Update(UpdateAvailableMsg{Check: pendingCheck})
	m.Update(keyRunes("y"))

	_, cmd := m.Update(updateAppliedMsg{result: update.Result{BinaryHandedOff: true}})
	if cmd == nil || !m.HandedOff() {
		t.Fatal("handoff did not quit the UI")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected quit")
	}
}

func TestGameCrashReported(t *testing.T) {
	m, b := loggedIn(t)

	m.Update(launchResultMsg{})
	if !m.gameRunning {
		t.Fatal("game not marked running")
	}

	b.gameState = models.ProcessState{Phase: models.PhaseRunning}
	if _, cmd := m.Update(gameTickMsg{}); cmd == nil {
		t.Fatal("polling stopped while running")
	}

	b.gameState = models.ProcessState{Phase: models.PhaseExitedWithError, ExitCode: 1, StderrTail: "java.lang.OutOfMemoryError\n"}
	m.Update(gameTickMsg{})
	if m.gameRunning || m.overlay != overlayDialog {
		t.Fatal("crash not reported")
	}
	if !strings.Contains(m.dialogText, "OutOfMemoryError") || !strings.Contains(m.dialogText, "code 1") {
		t.Fatalf("dialog = %q", m.dialogText)
	}
}

func TestSettingsRAMBounds(t *testing.T) {
	m, b := loggedIn(t)
	m.Update(keyRunes("s"))
	if m.screen != screenSettings {
		t.Fatal("settings not opened")
	}

	for i := 0; i < 40; i++ {
		m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	}
	if m.ram != 1024 {
		t.Fatalf("ram = %d, want lower bound", m.ram)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if b.ram != 1536 || m.screen != screenMain {
		t.Fatalf("saved ram = %d screen = %v", b.ram, m.screen)
	}
}

func TestTrayLaunchRequiresLogin(t *testing.T) {
	m, b := newTestModel()
	m.Update(ActionMsg{Action: ActionLaunch})
	if m.overlay != overlayDialog || m.dialogText != "Please log in first" {
		t.Fatalf("overlay = %v text = %q", m.overlay, m.dialogText)
	}
	if len(b.launches) != 0 {
		t.Fatal("launched without login")
	}
}

func TestLogout(t *testing.T) {
	m, b := loggedIn(t)
	m.Update(keyRunes("x"))
	if b.logouts != 1 || m.screen != screenLogin || m.username != "" {
		t.Fatalf("logouts=%d screen=%v", b.logouts, m.screen)
	}
}

func TestManualCheckUpToDate(t *testing.T) {
	m, _ := loggedIn(t)
	m.Update(updateCheckedMsg{check: &models.UpdateCheck{Manifest: &models.ReleaseManifest{Tag: "v1"}}, manual: true})
	if m.overlay != overlayDialog || m.dialogTitle != "No updates" {
		t.Fatalf("overlay=%v title=%q", m.overlay, m.dialogTitle)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m.Update(updateCheckedMsg{err: errors.New("offline"), manual: false})
	if m.overlay != overlayNone {
		t.Fatal("silent check failure opened a dialog")
	}
}

func TestErrorDialogText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{users.ErrInvalidCredentials, "Invalid username or password"},
		{users.ErrDuplicateUsername, "Username already exists"},
		{errs.Validation("login", users.ErrMissingFields), "Please enter both username and password"},
		{errs.Validation("create account", fmt.Errorf("%w: need at least 8 characters", users.ErrPasswordTooShort)), "Password must be at least 8 characters"},
		{app.ErrNotLoggedIn, "Please log in first"},
		{&app.UpdateRequiredError{Check: pendingCheck}, "Update v1.1.0 must be installed before launching"},
		{errs.Network("fetch latest release", errors.New("no such host")), "fetch latest release: no such host"},
	}
	for _, tt := range tests {
		if got := userMessage(tt.err); got != tt.want {
			t.Errorf("userMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestQuitWaitsForUpdate(t *testing.T) {
	m, _ := loggedIn(t)
	m.Update(UpdateAvailableMsg{Check: pendingCheck})
	m.Update(keyRunes("y"))
	if m.overlay != overlayProgress {
		t.Fatalf("overlay = %v", m.overlay)
	}

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd != nil {
		t.Fatal("ctrl+c quit during an update")
	}
	if _, cmd := m.Update(ActionMsg{Action: ActionQuit}); cmd != nil {
		t.Fatal("quit action interrupted the update")
	}
	if !strings.Contains(m.View(), "close when the update finishes") {
		t.Fatal("pending quit not shown")
	}

	_, cmd := m.Update(updateAppliedMsg{result: update.Result{ContentUpdated: true}})
	if cmd == nil {
		t.Fatal("no quit after the update finished")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected quit")
	}
}

func TestBackgroundPromptAcknowledged(t *testing.T) {
	m, _ := loggedIn(t)
	shown := 0
	ack := func() { shown++ }

	m.Update(keyRunes("u"))
	m.Update(UpdateAvailableMsg{Check: pendingCheck, Shown: ack})
	if shown != 0 || m.overlay == overlayUpdatePrompt {
		t.Fatal("prompt shown while busy")
	}

	m.Update(updateCheckedMsg{check: &models.UpdateCheck{Manifest: &models.ReleaseManifest{Tag: "v1"}}, manual: false})
	m.Update(UpdateAvailableMsg{Check: pendingCheck, Shown: ack})
	if shown != 1 || m.overlay != overlayUpdatePrompt {
		t.Fatalf("shown = %d overlay = %v", shown, m.overlay)
	}
}
