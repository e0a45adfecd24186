// Package tray puts the launcher in the system notification area. Menu
// clicks are forwarded to the UI loop as actions.
package tray

import (
	_ "embed"
	"log"
	"runtime"
	"sync"

	"github.com/getlantern/systray"

	"github.com/enderiumcraft/rbclauncher/src/internal/ui"
)

//go:embed icon.ico
var icon []byte

type entry struct {
	title   string
	tooltip string
	action  ui.Action
}

var menu = []entry{
	{"Check for Updates", "Check for launcher and modpack updates", ui.ActionCheckUpdates},
	{"Launch", "Launch the game on the selected server", ui.ActionLaunch},
	{"Open Game Folder", "Open the game directory", ui.ActionOpenFolder},
	{"Quit", "Quit the launcher", ui.ActionQuit},
}

// Manager owns the tray icon
type Manager struct {
	dispatch func(ui.Action)
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a tray manager. dispatch must be safe to call from
// any goroutine.
func NewManager(dispatch func(ui.Action)) *Manager {
	return &Manager{
		dispatch: dispatch,
		done:     make(chan struct{}),
	}
}

// Start shows the tray icon on its own OS thread
func (m *Manager) Start() {
	go func() {
		runtime.LockOSThread()
		systray.Run(m.onReady, m.onExit)
	}()
}

// Stop removes the tray icon
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		systray.Quit()
		m.wg.Wait()
	})
}

func (m *Manager) onReady() {
	systray.SetIcon(icon)
	systray.SetTitle("RBC Launcher")
	systray.SetTooltip("RBC Launcher")

	for i, e := range menu {
		if e.action == ui.ActionQuit && i > 0 {
			systray.AddSeparator()
		}
		item := systray.AddMenuItem(e.title, e.tooltip)
		m.wg.Add(1)
		go m.forward(item.ClickedCh, e.action)
	}
	log.Println("System tray ready")
}

func (m *Manager) onExit() {
	log.Println("System tray exited")
}

// forward relays clicks on one menu item until the manager stops
func (m *Manager) forward(clicks <-chan struct{}, action ui.Action) {
	defer m.wg.Done()
	for {
		select {
		case <-clicks:
			m.dispatch(action)
		case <-m.done:
			return
		}
	}
}
