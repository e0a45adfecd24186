package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/enderiumcraft/rbclauncher/src/internal/update"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// UpdateStatusMsg carries a status change from the update manager
type UpdateStatusMsg models.UpdateStatus

// UpdateAvailableMsg is sent by the background poller. Shown, if set, is
// called when the update prompt is actually displayed.
type UpdateAvailableMsg struct {
	Check *models.UpdateCheck
	Shown func()
}

// GameLaunchedMsg reports a game started outside the UI, for example
// through the control service
type GameLaunchedMsg struct{}

// Action is a request coming from outside the terminal, such as the tray
type Action int

const (
	ActionCheckUpdates Action = iota
	ActionLaunch
	ActionOpenFolder
	ActionQuit
)

// ActionMsg asks the UI to perform a user action
type ActionMsg struct {
	Action Action
}

type loginResultMsg struct {
	username string
	err      error
}

type registerResultMsg struct {
	username string
	err      error
}

type updateCheckedMsg struct {
	check  *models.UpdateCheck
	err    error
	manual bool
}

type updateAppliedMsg struct {
	result update.Result
	err    error
}

type launchResultMsg struct {
	err error
}

type serverStatusMsg struct {
	statuses []models.ServerStatus
}

type folderOpenedMsg struct {
	err error
}

type gameTickMsg struct{}

type closeTimerMsg struct{}

const (
	probeTimeout  = 10 * time.Second
	checkTimeout  = 2 * time.Minute
	launchTimeout = 2 * time.Minute
)

func loginCmd(b Backend, username, password string, remember bool) tea.Cmd {
	return func() tea.Msg {
		return loginResultMsg{username: strings.TrimSpace(username), err: b.Login(username, password, remember)}
	}
}

func registerCmd(b Backend, username, password string) tea.Cmd {
	return func() tea.Msg {
		return registerResultMsg{username: username, err: b.Register(username, password)}
	}
}

func checkUpdatesCmd(b Backend, manual bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		check, err := b.CheckForUpdates(ctx)
		return updateCheckedMsg{check: check, err: err, manual: manual}
	}
}

// applyUpdateCmd has no deadline; downloads are bounded by the client's
// own stall and download timeouts.
func applyUpdateCmd(b Backend, check *models.UpdateCheck) tea.Cmd {
	return func() tea.Msg {
		result, err := b.ApplyUpdate(context.Background(), check)
		return updateAppliedMsg{result: result, err: err}
	}
}

func launchCmd(b Backend, server string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), launchTimeout)
		defer cancel()
		_, err := b.Launch(ctx, server)
		return launchResultMsg{err: err}
	}
}

func probeServersCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		return serverStatusMsg{statuses: b.ServerStatuses(ctx)}
	}
}

func openFolderCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		return folderOpenedMsg{err: b.OpenGameFolder()}
	}
}

func scheduleGameTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return gameTickMsg{} })
}

func scheduleClose(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg { return closeTimerMsg{} })
}
