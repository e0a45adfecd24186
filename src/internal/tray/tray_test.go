package tray

import (
	"testing"
	"time"

	"github.com/enderiumcraft/rbclauncher/src/internal/ui"
)

func TestMenuCoversActions(t *testing.T) {
	want := map[ui.Action]bool{
		ui.ActionCheckUpdates: true,
		ui.ActionLaunch:       true,
		ui.ActionOpenFolder:   true,
		ui.ActionQuit:         true,
	}
	for _, e := range menu {
		if e.title == "" {
			t.Errorf("menu entry for action %d has no title", e.action)
		}
		delete(want, e.action)
	}
	if len(want) != 0 {
		t.Fatalf("actions missing from menu: %v", want)
	}
	if menu[len(menu)-1].action != ui.ActionQuit {
		t.Error("Quit should be the last entry")
	}
}

func TestForwardDispatchesUntilStopped(t *testing.T) {
	got := make(chan ui.Action, 4)
	m := NewManager(func(a ui.Action) { got <- a })

	clicks := make(chan struct{})
	m.wg.Add(1)
	go m.forward(clicks, ui.ActionOpenFolder)

	clicks <- struct{}{}
	select {
	case a := <-got:
		if a != ui.ActionOpenFolder {
			t.Fatalf("dispatched %v", a)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("click not forwarded")
	}

	close(m.done)
	m.wg.Wait()
}

func TestIconEmbedded(t *testing.T) {
	if len(icon) < 22 || icon[2] != 1 {
		t.Fatalf("icon is not an ICO file (%d bytes)", len(icon))
	}
}
