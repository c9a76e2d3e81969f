package debug

import (
	"sync"

	"github.com/dshills/luadap/internal/debug/dap"
	"github.com/dshills/luadap/internal/interp"
)

// Notifier receives the bridge's view of execution.
type Notifier interface {
	// BreakpointChanged is called when a breakpoint becomes verified.
	BreakpointChanged(bp Breakpoint)

	// Stopped is called once per suspension with the captured context.
	Stopped(ctx *interp.Context, reason string, hitIDs []int)
}

// Bridge connects the interpreter's statement checkpoints to a debug
// session. It owns the pending-pause flag: while the flag is set the
// program suspends at its next checkpoint and stays suspended until the
// flag is cleared or a step is requested.
type Bridge struct {
	table  *BreakpointTable
	notify Notifier

	mu     sync.Mutex
	paused bool
	step   bool
	reason string
	hitIDs []int
	wake   chan struct{}
}

var _ interp.Debugger = (*Bridge)(nil)

// NewBridge creates an interactive bridge over table.
func NewBridge(table *BreakpointTable, notify Notifier) *Bridge {
	return &Bridge{
		table:  table,
		notify: notify,
		reason: dap.ReasonPause,
		wake:   make(chan struct{}),
	}
}

// GetBreakpoint marks breakpoints at the current line verified and reports
// whether execution must suspend.
func (b *Bridge) GetBreakpoint(ctx *interp.Context) bool {
	hits, flipped := b.table.Hit(ctx.File(), ctx.Line())
	for _, bp := range flipped {
		b.notify.BreakpointChanged(bp)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(hits) > 0 {
		b.paused = true
		b.reason = dap.ReasonBreakpoint
		b.hitIDs = b.hitIDs[:0]
		for _, bp := range hits {
			b.hitIDs = append(b.hitIDs, bp.ID)
		}
	}
	return b.paused
}

// Interact reports the suspension to the session.
func (b *Bridge) Interact(ctx *interp.Context) {
	b.mu.Lock()
	reason := b.reason
	var ids []int
	if reason == dap.ReasonBreakpoint {
		ids = append(ids, b.hitIDs...)
	}
	b.mu.Unlock()

	b.notify.Stopped(ctx, reason, ids)
}

// Proceed reports whether a suspended program may continue. A pending step
// is consumed and leaves the pause flag set, so the program stops again at
// the next checkpoint.
func (b *Bridge) Proceed() (bool, <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.paused {
		return true, nil
	}
	if b.step {
		b.step = false
		b.reason = dap.ReasonStep
		return true, nil
	}
	return false, b.wake
}

// Pause sets the pause flag. It takes effect at the next checkpoint.
func (b *Bridge) Pause() {
	b.PauseWithReason(dap.ReasonPause)
}

// PauseWithReason sets the pause flag and reports reason at the next stop.
func (b *Bridge) PauseWithReason(reason string) {
	b.update(func() {
		b.paused = true
		b.step = false
		b.reason = reason
	})
}

// Continue clears the pause flag and any pending step.
func (b *Bridge) Continue() {
	b.update(func() {
		b.paused = false
		b.step = false
	})
}

// Next requests a single checkpoint advance. Without a pending pause it
// behaves like Pause.
func (b *Bridge) Next() {
	b.update(func() {
		if b.paused {
			b.step = true
			return
		}
		b.paused = true
		b.reason = dap.ReasonStep
	})
}

// Paused reports the pause flag.
func (b *Bridge) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

func (b *Bridge) update(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
	close(b.wake)
	b.wake = make(chan struct{})
}

// PassThrough is the debugger used for runs without debugging. It never
// suspends.
type PassThrough struct{}

var _ interp.Debugger = PassThrough{}

func (PassThrough) GetBreakpoint(*interp.Context) bool { return false }

func (PassThrough) Interact(*interp.Context) {}

func (PassThrough) Proceed() (bool, <-chan struct{}) { return true, nil }
