package github

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// stallWatch cancels a download when no bytes arrive for a whole timeout
// window. Every successful read pushes the deadline out again.
type stallWatch struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timer   *time.Timer
	timeout time.Duration
	stalled atomic.Bool
}

func newStallWatch(parent context.Context, timeout time.Duration) *stallWatch {
	ctx, cancel := context.WithCancel(parent)
	w := &stallWatch{ctx: ctx, cancel: cancel, timeout: timeout}
	w.timer = time.AfterFunc(timeout, func() {
		w.stalled.Store(true)
		cancel()
	})
	return w
}

func (w *stallWatch) touch() {
	w.timer.Reset(w.timeout)
}

func (w *stallWatch) stop() {
	w.timer.Stop()
	w.cancel()
}

// explain replaces a bare cancellation error with the stall reason
func (w *stallWatch) explain(err error) error {
	if w.stalled.Load() {
		return fmt.Errorf("download stalled: no data received for %s: %w", w.timeout, err)
	}
	return err
}
