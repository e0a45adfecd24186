// Package ui is the launcher's terminal interface. The bubbletea event
// loop is the UI thread: blocking work runs in tea.Cmds and reports back
// as messages, and other goroutines talk to the UI through Program.Send.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/enderiumcraft/rbclauncher/src/internal/app"
	"github.com/enderiumcraft/rbclauncher/src/internal/prefs"
	"github.com/enderiumcraft/rbclauncher/src/internal/process"
	"github.com/enderiumcraft/rbclauncher/src/internal/update"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// Backend is the launcher core driven by the UI
type Backend interface {
	Login(username, password string, remember bool) error
	Register(username, password string) error
	Logout() error
	Preferences() models.Preferences
	SetRAM(mb int) error
	Servers() []models.ServerConfig
	ServerStatuses(ctx context.Context) []models.ServerStatus
	CheckForUpdates(ctx context.Context) (*models.UpdateCheck, error)
	ApplyUpdate(ctx context.Context, check *models.UpdateCheck) (update.Result, error)
	Launch(ctx context.Context, server string) (*process.Handle, error)
	GameState() models.ProcessState
	OpenGameFolder() error
}

// Options configures the UI
type Options struct {
	Version      string
	PollInterval time.Duration
	CloseOnStart bool
	CloseDelay   time.Duration
}

type screen int

const (
	screenLogin screen = iota
	screenRegister
	screenMain
	screenSettings
)

type overlay int

const (
	overlayNone overlay = iota
	overlayDialog
	overlayUpdatePrompt
	overlayProgress
)

const ramStep = 512

// Model is the root bubbletea model
type Model struct {
	backend Backend
	opts    Options
	keys    KeyMap

	screen  screen
	overlay overlay

	inputs   []textinput.Model
	focus    int
	remember bool

	servers  []models.ServerConfig
	online   map[string]bool
	probed   bool
	selected int

	ram int

	busy      bool
	busyLabel string
	spinner   spinner.Model
	progress  progress.Model
	status    models.UpdateStatus
	notice    string

	dialogTitle string
	dialogText  string
	dialogError bool

	username string

	pending           *models.UpdateCheck
	launchAfterUpdate bool
	gameRunning       bool

	handedOff       bool
	quitAfterUpdate bool
	quitting        bool
}

// New creates the root model
func New(backend Backend, opts Options) *Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleBusy

	m := &Model{
		backend:  backend,
		opts:     opts,
		keys:     DefaultKeyMap(),
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(48)),
		online:   make(map[string]bool),
		servers:  backend.Servers(),
	}

	p := backend.Preferences()
	m.remember = p.RememberUsername
	m.ram = p.RAMAllocation
	m.showLogin(p.LastUsername)
	return m
}

// HandedOff reports whether the UI exited to let a new launcher binary
// take over
func (m *Model) HandedOff() bool {
	return m.handedOff
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case UpdateStatusMsg:
		m.status = models.UpdateStatus(msg)
		return m, nil

	case UpdateAvailableMsg:
		if m.offerUpdate(msg.Check, false) && msg.Shown != nil {
			msg.Shown()
		}
		return m, nil

	case ActionMsg:
		return m.handleAction(msg.Action)

	case loginResultMsg:
		m.stopBusy()
		if msg.err != nil {
			m.showError("Login failed", msg.err)
			return m, nil
		}
		m.username = msg.username
		return m.showMain()

	case registerResultMsg:
		m.stopBusy()
		if msg.err != nil {
			m.showError("Registration failed", msg.err)
			return m, nil
		}
		m.showLogin(msg.username)
		m.showDialog("Account created", "You can now log in with your new account.")
		return m, nil

	case updateCheckedMsg:
		m.stopBusy()
		if msg.err != nil {
			log.Printf("[Update] Check failed: %v", msg.err)
			if msg.manual {
				m.showError("Update check failed", msg.err)
			}
			return m, nil
		}
		if msg.check.Plan.Empty() {
			if msg.manual {
				m.showDialog("No updates", "You are running the latest version.")
			}
			return m, nil
		}
		m.offerUpdate(msg.check, false)
		return m, nil

	case updateAppliedMsg:
		m.stopBusy()
		m.pending = nil
		if m.quitAfterUpdate {
			m.handedOff = msg.err == nil && msg.result.BinaryHandedOff
			m.quitting = true
			return m, tea.Quit
		}
		if msg.err != nil {
			m.launchAfterUpdate = false
			m.showError("Update failed", msg.err)
			return m, nil
		}
		if msg.result.BinaryHandedOff {
			m.handedOff = true
			m.quitting = true
			return m, tea.Quit
		}
		if m.launchAfterUpdate {
			m.launchAfterUpdate = false
			m.overlay = overlayNone
			return m, m.launch()
		}
		m.showDialog("Update complete", "The modpack is up to date.")
		return m, nil

	case launchResultMsg:
		m.stopBusy()
		var required *app.UpdateRequiredError
		if errors.As(msg.err, &required) {
			m.offerUpdate(required.Check, true)
			return m, nil
		}
		if msg.err != nil {
			m.showError("Launch failed", msg.err)
			return m, nil
		}
		return m, m.gameStarted()

	case GameLaunchedMsg:
		if m.gameRunning {
			return m, nil
		}
		return m, m.gameStarted()

	case gameTickMsg:
		if !m.gameRunning {
			return m, nil
		}
		state := m.backend.GameState()
		if !state.Terminal() {
			return m, scheduleGameTick(m.opts.PollInterval)
		}
		m.gameRunning = false
		m.notice = "Game exited"
		if state.Phase == models.PhaseExitedWithError {
			m.showDialogError("Game crashed", crashReport(state))
		}
		return m, nil

	case closeTimerMsg:
		if m.gameRunning && m.backend.GameState().Phase == models.PhaseRunning {
			log.Printf("Closing launcher, game is running")
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case serverStatusMsg:
		m.probed = true
		for _, s := range msg.statuses {
			m.online[s.Server.Name] = s.Online
		}
		return m, nil

	case folderOpenedMsg:
		if msg.err != nil {
			m.showError("Could not open folder", msg.err)
		}
		return m, nil
	}

	return m.updateInputs(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, m.quit()
	}

	switch m.overlay {
	case overlayDialog:
		if key.Matches(msg, m.keys.Enter, m.keys.Escape) {
			m.overlay = overlayNone
		}
		return m, nil
	case overlayUpdatePrompt:
		switch {
		case key.Matches(msg, m.keys.Yes):
			check := m.pending
			m.overlay = overlayProgress
			m.status = models.UpdateStatus{Stage: models.StageChecking, Message: "Starting update"}
			return m, m.startBusy("Updating", applyUpdateCmd(m.backend, check))
		case key.Matches(msg, m.keys.No):
			m.overlay = overlayNone
			m.pending = nil
			m.launchAfterUpdate = false
		}
		return m, nil
	case overlayProgress:
		return m, nil
	}

	switch m.screen {
	case screenLogin:
		return m.handleLoginKey(msg)
	case screenRegister:
		return m.handleRegisterKey(msg)
	case screenSettings:
		return m.handleSettingsKey(msg)
	default:
		return m.handleMainKey(msg)
	}
}

func (m *Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Tab):
		return m, m.cycleFocus()
	case key.Matches(msg, m.keys.Remember):
		m.remember = !m.remember
		return m, nil
	case key.Matches(msg, m.keys.Register):
		m.showRegister()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Enter):
		if m.focus == 0 {
			return m, m.cycleFocus()
		}
		username, password := m.inputs[0].Value(), m.inputs[1].Value()
		return m, m.startBusy("Logging in", loginCmd(m.backend, username, password, m.remember))
	}
	return m.updateInputs(msg)
}

func (m *Model) handleRegisterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.showLogin("")
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Tab):
		return m, m.cycleFocus()
	case key.Matches(msg, m.keys.Enter):
		if m.focus == 0 {
			return m, m.cycleFocus()
		}
		username, password := m.inputs[0].Value(), m.inputs[1].Value()
		return m, m.startBusy("Creating account", registerCmd(m.backend, username, password))
	}
	return m.updateInputs(msg)
}

func (m *Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.ram-ramStep >= prefs.MinRAM {
			m.ram -= ramStep
		}
	case key.Matches(msg, m.keys.Right):
		if m.ram+ramStep <= prefs.MaxRAM {
			m.ram += ramStep
		}
	case key.Matches(msg, m.keys.Enter):
		if err := m.backend.SetRAM(m.ram); err != nil {
			m.showError("Could not save settings", err)
			return m, nil
		}
		m.screen = screenMain
		m.notice = fmt.Sprintf("RAM allocation set to %d MB", m.ram)
	case key.Matches(msg, m.keys.Escape):
		m.ram = m.backend.Preferences().RAMAllocation
		m.screen = screenMain
	}
	return m, nil
}

func (m *Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.servers)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Launch):
		return m, m.launch()
	case key.Matches(msg, m.keys.Check):
		return m, m.checkUpdates()
	case key.Matches(msg, m.keys.Settings):
		if !m.busy {
			m.ram = m.backend.Preferences().RAMAllocation
			m.screen = screenSettings
		}
	case key.Matches(msg, m.keys.Folder):
		return m, openFolderCmd(m.backend)
	case key.Matches(msg, m.keys.Refresh):
		return m, probeServersCmd(m.backend)
	case key.Matches(msg, m.keys.Logout):
		if m.busy {
			return m, nil
		}
		if err := m.backend.Logout(); err != nil {
			m.showError("Logout failed", err)
			return m, nil
		}
		m.remember = false
		m.username = ""
		m.showLogin("")
		return m, textinput.Blink
	}
	return m, nil
}

func (m *Model) handleAction(action Action) (tea.Model, tea.Cmd) {
	switch action {
	case ActionQuit:
		return m, m.quit()
	case ActionOpenFolder:
		return m, openFolderCmd(m.backend)
	case ActionCheckUpdates:
		return m, m.checkUpdates()
	case ActionLaunch:
		if m.screen != screenMain && m.screen != screenSettings {
			m.showError("Cannot launch", app.ErrNotLoggedIn)
			return m, nil
		}
		m.screen = screenMain
		return m, m.launch()
	}
	return m, nil
}

// quit exits the UI. While an update is being applied the exit waits for
// it to finish; once files are being written there is no cancel.
func (m *Model) quit() tea.Cmd {
	if m.overlay == overlayProgress {
		m.quitAfterUpdate = true
		log.Printf("Quit requested, waiting for the update to finish")
		return nil
	}
	m.quitting = true
	return tea.Quit
}

// launch starts a launch unless another operation holds the UI
func (m *Model) launch() tea.Cmd {
	if m.busy || m.overlay != overlayNone || len(m.servers) == 0 {
		return nil
	}
	if m.gameRunning {
		m.showDialog("Already running", "The game is already running.")
		return nil
	}
	return m.startBusy("Preparing launch", launchCmd(m.backend, m.servers[m.selected].Name))
}

func (m *Model) gameStarted() tea.Cmd {
	m.gameRunning = true
	m.notice = "Game started"
	cmds := []tea.Cmd{scheduleGameTick(m.opts.PollInterval)}
	if m.opts.CloseOnStart {
		cmds = append(cmds, scheduleClose(m.opts.CloseDelay))
	}
	return tea.Batch(cmds...)
}

func (m *Model) checkUpdates() tea.Cmd {
	if m.busy || m.overlay != overlayNone {
		return nil
	}
	return m.startBusy("Checking for updates", checkUpdatesCmd(m.backend, true))
}

// offerUpdate shows the update prompt and reports whether it did. The UI
// does not interrupt a running operation or an open dialog.
func (m *Model) offerUpdate(check *models.UpdateCheck, fromLaunch bool) bool {
	if check == nil || check.Plan.Empty() {
		return false
	}
	if m.busy || m.overlay != overlayNone {
		return false
	}
	m.pending = check
	m.launchAfterUpdate = fromLaunch
	m.overlay = overlayUpdatePrompt
	return true
}

func (m *Model) showMain() (tea.Model, tea.Cmd) {
	m.screen = screenMain
	m.inputs = nil
	m.notice = ""
	if m.selected >= len(m.servers) {
		m.selected = 0
	}
	return m, probeServersCmd(m.backend)
}

func (m *Model) showLogin(username string) {
	m.screen = screenLogin
	m.inputs = []textinput.Model{newInput("Username", false), newInput("Password", true)}
	m.inputs[0].SetValue(username)
	m.focus = 0
	if username != "" {
		m.focus = 1
	}
	m.inputs[m.focus].Focus()
}

func (m *Model) showRegister() {
	m.screen = screenRegister
	m.inputs = []textinput.Model{newInput("Username", false), newInput("Password (8+ characters)", true)}
	m.focus = 0
	m.inputs[0].Focus()
}

func (m *Model) cycleFocus() tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + 1) % len(m.inputs)
	return m.inputs[m.focus].Focus()
}

func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) startBusy(label string, cmd tea.Cmd) tea.Cmd {
	m.busy = true
	m.busyLabel = label
	m.notice = ""
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m *Model) stopBusy() {
	m.busy = false
	m.busyLabel = ""
	if m.overlay == overlayProgress {
		m.overlay = overlayNone
	}
}

func (m *Model) showDialog(title, text string) {
	m.dialogTitle, m.dialogText, m.dialogError = title, text, false
	m.overlay = overlayDialog
}

func (m *Model) showDialogError(title, text string) {
	m.dialogTitle, m.dialogText, m.dialogError = title, text, true
	m.overlay = overlayDialog
}

func (m *Model) showError(title string, err error) {
	m.showDialogError(title, userMessage(err))
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	ti.CharLimit = 64
	ti.Width = 32
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

func crashReport(state models.ProcessState) string {
	report := fmt.Sprintf("The game exited with code %d.", state.ExitCode)
	tail := strings.TrimSpace(state.StderrTail)
	if tail == "" {
		return report
	}
	lines := strings.Split(tail, "\n")
	if len(lines) > 12 {
		lines = lines[len(lines)-12:]
	}
	return report + "\n\n" + strings.Join(lines, "\n")
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	header := styleAppHeader.Render("RBC Launcher " + m.opts.Version)
	if m.username != "" {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, styleHint.Render("  signed in as "+m.username))
	}

	var body string
	switch m.overlay {
	case overlayDialog:
		body = m.viewDialog()
	case overlayUpdatePrompt:
		body = m.viewUpdatePrompt()
	case overlayProgress:
		body = m.viewProgress()
	default:
		switch m.screen {
		case screenLogin:
			body = m.viewLogin()
		case screenRegister:
			body = m.viewRegister()
		case screenSettings:
			body = m.viewSettings()
		default:
			body = m.viewMain()
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", m.viewFooter())
}

func (m *Model) viewLogin() string {
	check := "[ ]"
	if m.remember {
		check = "[x]"
	}
	return stylePane.Render(lipgloss.JoinVertical(lipgloss.Left,
		styleTitle.Render("Login"),
		"",
		styleLabel.Render("Username"),
		m.inputs[0].View(),
		styleLabel.Render("Password"),
		m.inputs[1].View(),
		"",
		check+" Remember me",
	))
}

func (m *Model) viewRegister() string {
	return stylePane.Render(lipgloss.JoinVertical(lipgloss.Left,
		styleTitle.Render("Create account"),
		"",
		styleLabel.Render("Username"),
		m.inputs[0].View(),
		styleLabel.Render("Password"),
		m.inputs[1].View(),
	))
}

func (m *Model) viewMain() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Servers"))
	b.WriteString("\n\n")
	for i, s := range m.servers {
		status := styleHint.Render("checking")
		if m.probed {
			if m.online[s.Name] {
				status = styleOnline.Render("online")
			} else {
				status = styleOffline.Render("offline")
			}
		}
		line := fmt.Sprintf("%-16s %s:%d", s.Name, s.Host, s.Port)
		if i == m.selected {
			line = styleSelected.Render(line)
		}
		b.WriteString(line + "  " + status + "\n")
	}
	if m.gameRunning {
		b.WriteString("\n" + styleOnline.Render("Game running"))
	}
	return stylePane.Render(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) viewSettings() string {
	return stylePane.Render(lipgloss.JoinVertical(lipgloss.Left,
		styleTitle.Render("Settings"),
		"",
		fmt.Sprintf("RAM allocation  ‹ %d MB ›", m.ram),
		styleHint.Render(fmt.Sprintf("%d to %d MB", prefs.MinRAM, prefs.MaxRAM)),
	))
}

func (m *Model) viewDialog() string {
	style := styleDialog
	title := styleTitle.Render(m.dialogTitle)
	if m.dialogError {
		style = styleErrorDialog
		title = styleError.Render(m.dialogTitle)
	}
	return style.Render(title + "\n\n" + m.dialogText)
}

func (m *Model) viewUpdatePrompt() string {
	check := m.pending
	var lines []string
	lines = append(lines, styleTitle.Render(fmt.Sprintf("Update %s available", check.Manifest.Tag)), "")
	if check.Plan.ContentNeeded {
		lines = append(lines, fmt.Sprintf("Modpack   %s → %s", check.Local.ContentVersion, check.Manifest.Versions.ContentVersion))
	}
	if check.Plan.BinaryNeeded {
		lines = append(lines, fmt.Sprintf("Launcher  %s → %s", check.Local.BinaryVersion, check.Manifest.Versions.BinaryVersion))
		lines = append(lines, "", styleHint.Render("The launcher will restart after updating."))
	}
	lines = append(lines, "", "Update now? (y/n)")
	return styleDialog.Render(strings.Join(lines, "\n"))
}

func (m *Model) viewProgress() string {
	message := m.status.Message
	if message == "" {
		message = string(m.status.Stage)
	}
	lines := []string{
		styleTitle.Render("Updating"),
		"",
		m.progress.ViewAs(m.status.Progress / 100),
		"",
		message,
	}
	if m.quitAfterUpdate {
		lines = append(lines, "", styleHint.Render("The launcher will close when the update finishes."))
	}
	return styleDialog.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) viewFooter() string {
	var status string
	switch {
	case m.busy:
		status = m.spinner.View() + " " + styleBusy.Render(m.busyLabel)
	case m.notice != "":
		status = styleLabel.Render(m.notice)
	}

	var hints []key.Binding
	switch m.screen {
	case screenLogin:
		hints = []key.Binding{m.keys.Tab, m.keys.Enter, m.keys.Remember, m.keys.Register}
	case screenRegister:
		hints = []key.Binding{m.keys.Tab, m.keys.Enter, m.keys.Escape}
	case screenSettings:
		hints = []key.Binding{m.keys.Left, m.keys.Enter, m.keys.Escape}
	default:
		hints = []key.Binding{m.keys.Up, m.keys.Launch, m.keys.Check, m.keys.Settings, m.keys.Folder, m.keys.Refresh, m.keys.Logout, m.keys.Quit}
	}

	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		help := h.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	footer := styleHint.Render(strings.Join(parts, " • "))
	if status != "" {
		footer = status + "\n" + footer
	}
	return footer
}
