// Package autosave debounces persistence of in-session edits and exposes a small
// save-status state machine for display.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"courseforge/internal/logger"
)

const DefaultDebounce = 1500 * time.Millisecond

type Status string

const (
	StatusSaved   Status = "saved"
	StatusSaving  Status = "saving"
	StatusUnsaved Status = "unsaved"
	StatusError   Status = "error"
)

// ErrDisposed is returned by Flush once the controller has been torn down.
var ErrDisposed = errors.New("autosave: controller disposed")

type SaveFunc func(ctx context.Context) error

type State struct {
	Status      Status
	LastSavedAt time.Time
	Err         error
}

type Options struct {
	Debounce time.Duration
	Logger   *logger.Logger
	Now      func() time.Time

	// OnChange is called (outside the controller lock) after every status transition.
	OnChange func(State)
}

type Controller struct {
	debounce time.Duration
	log      *logger.Logger
	now      func() time.Time
	onChange func(State)

	mu       sync.Mutex
	timer    *time.Timer
	pending  SaveFunc
	gen      uint64
	state    State
	disposed bool
	running  int
	idle     *sync.Cond

	// runMu serializes save executions so a flush never overlaps a timer fire.
	runMu sync.Mutex
}

func New(opts Options) *Controller {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		debounce: debounce,
		log:      opts.Logger,
		now:      now,
		onChange: opts.OnChange,
		state:    State{Status: StatusSaved},
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

func (c *Controller) State() State {
	if c == nil {
		return State{Status: StatusSaved}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MarkUnsaved flips the status to unsaved without touching the timer.
func (c *Controller) MarkUnsaved() {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.state.Status = StatusUnsaved
	c.state.Err = nil
	st := c.state
	c.mu.Unlock()
	c.notify(st)
}

// Reset forces the status back to saved, dropping any pending save. Used after a
// full reload replaces local state with the server's.
func (c *Controller) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stopTimerLocked()
	c.pending = nil
	c.gen++
	c.state.Status = StatusSaved
	c.state.Err = nil
	st := c.state
	c.mu.Unlock()
	c.notify(st)
}

// Schedule (re)starts the debounce timer. Only the latest fn scheduled within one
// window runs.
func (c *Controller) Schedule(fn SaveFunc) {
	if c == nil || fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.pending = fn
	c.gen++
	gen := c.gen
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.debounce, func() { c.onTimer(gen) })
}

// Pending reports whether a scheduled save has not fired yet. A save that is
// already running does not count.
func (c *Controller) Pending() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

func (c *Controller) onTimer(gen uint64) {
	c.mu.Lock()
	if c.disposed || gen != c.gen || c.pending == nil {
		c.mu.Unlock()
		return
	}
	fn := c.pending
	c.pending = nil
	c.timer = nil
	c.running++
	c.mu.Unlock()

	if err := c.run(context.Background(), fn, gen); err != nil {
		c.log.Warn("autosave failed", "error", err)
	}
}

// Flush cancels any pending timer and runs fn immediately, returning its outcome.
// A nil fn runs whatever was pending; with nothing pending it waits for a save
// already in flight and returns nil.
func (c *Controller) Flush(ctx context.Context, fn SaveFunc) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if fn == nil {
		fn = c.pending
	}
	if fn == nil {
		for c.running > 0 {
			c.idle.Wait()
		}
		c.mu.Unlock()
		return nil
	}
	c.stopTimerLocked()
	c.pending = nil
	c.gen++
	gen := c.gen
	c.running++
	c.mu.Unlock()

	return c.run(ctx, fn, gen)
}

// Dispose cancels any pending timer. Later Schedule calls are ignored.
func (c *Controller) Dispose() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.pending = nil
	c.gen++
	c.stopTimerLocked()
}

func (c *Controller) run(ctx context.Context, fn SaveFunc, gen uint64) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.setStatus(StatusSaving, nil)
	err := fn(ctx)

	c.mu.Lock()
	// A newer edit arrived while saving; it still needs its own write.
	superseded := c.gen != gen && c.pending != nil
	switch {
	case err != nil:
		c.state.Status = StatusError
		c.state.Err = err
	case superseded:
		c.state.Status = StatusUnsaved
		c.state.Err = nil
		c.state.LastSavedAt = c.now()
	default:
		c.state.Status = StatusSaved
		c.state.Err = nil
		c.state.LastSavedAt = c.now()
	}
	st := c.state
	c.running--
	if c.running == 0 {
		c.idle.Broadcast()
	}
	c.mu.Unlock()
	c.notify(st)
	return err
}

func (c *Controller) setStatus(s Status, err error) {
	c.mu.Lock()
	c.state.Status = s
	c.state.Err = err
	st := c.state
	c.mu.Unlock()
	c.notify(st)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) notify(st State) {
	if c.onChange != nil {
		c.onChange(st)
	}
}
