// Package poller runs update checks in the background on a cron schedule.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/enderiumcraft/rbclauncher/src/internal/state"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// Checker performs one update check
type Checker interface {
	Check(ctx context.Context) (*models.UpdateCheck, error)
}

// NotifyFunc is called when a release with a non-empty plan is found.
// The receiver calls shown once the update was actually offered to the
// user; until then the release is reported again on every tick.
type NotifyFunc func(check *models.UpdateCheck, shown func())

// Poller checks for updates on a schedule
type Poller struct {
	schedule string
	checker  Checker
	notify   NotifyFunc
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	lastShown string
	mu        sync.Mutex
}

// NewPoller creates a poller. schedule is a standard cron expression or a
// descriptor such as "@every 30m".
func NewPoller(schedule string, checker Checker, notify NotifyFunc) (*Poller, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid update schedule %q: %w", schedule, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		schedule: schedule,
		checker:  checker,
		notify:   notify,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.PrintfLogger(log.Default())),
		)),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start checks once immediately and then on every scheduled tick
func (p *Poller) Start() error {
	log.Printf("[Poller] Starting update poller (schedule: %s)", p.schedule)

	if _, err := p.cron.AddFunc(p.schedule, p.RunOnce); err != nil {
		return fmt.Errorf("failed to schedule update check: %w", err)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.RunOnce()
	}()

	p.cron.Start()
	return nil
}

// Stop cancels an in-flight check and waits for scheduled jobs to finish
func (p *Poller) Stop() {
	log.Println("[Poller] Stopping update poller...")
	p.cancel()
	<-p.cron.Stop().Done()
	p.wg.Wait()
	log.Println("[Poller] Update poller stopped")
}

// RunOnce performs a single check. A check skipped because another
// operation holds the slot is not an error.
func (p *Poller) RunOnce() {
	if p.ctx.Err() != nil {
		return
	}

	check, err := p.checker.Check(p.ctx)
	if err != nil {
		if errors.Is(err, state.ErrBusy) {
			log.Printf("[Poller] Skipping check: %v", err)
			return
		}
		log.Printf("[Poller] Update check failed: %v", err)
		return
	}
	if check.Plan.Empty() {
		return
	}

	tag := check.Manifest.Tag
	p.mu.Lock()
	alreadyShown := p.lastShown == tag
	p.mu.Unlock()

	if !alreadyShown && p.notify != nil {
		log.Printf("[Poller] Update %s available", tag)
		p.notify(check, func() { p.markShown(tag) })
	}
}

func (p *Poller) markShown(tag string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastShown = tag
}
