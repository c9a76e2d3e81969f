package debug

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/luadap/internal/debug/dap"
	"github.com/dshills/luadap/internal/interp"
)

type stop struct {
	reason string
	ids    []int
}

type fakeNotifier struct {
	mu      sync.Mutex
	changed []Breakpoint
	stops   []stop
}

func (n *fakeNotifier) BreakpointChanged(bp Breakpoint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, bp)
}

func (n *fakeNotifier) Stopped(_ *interp.Context, reason string, ids []int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stops = append(n.stops, stop{reason, ids})
}

func at(file string, line int) *interp.Context {
	return &interp.Context{Target: file, Frames: []interp.Frame{{File: file, Line: line}}}
}

func TestBridgeStopsAtBreakpoint(t *testing.T) {
	file := filepath.Join(t.TempDir(), "main.lua")
	table := NewBreakpointTable()
	set := table.Set(file, []int{5})
	n := &fakeNotifier{}
	b := NewBridge(table, n)

	assert.False(t, b.GetBreakpoint(at(file, 4)))
	assert.Empty(t, n.changed)

	ctx := at(file, 5)
	require.True(t, b.GetBreakpoint(ctx))
	require.Len(t, n.changed, 1)
	assert.True(t, n.changed[0].Verified)

	b.Interact(ctx)
	require.Len(t, n.stops, 1)
	assert.Equal(t, stop{dap.ReasonBreakpoint, []int{set[0].ID}}, n.stops[0])

	ok, wake := b.Proceed()
	assert.False(t, ok)
	require.NotNil(t, wake)

	b.Continue()
	select {
	case <-wake:
	default:
		t.Fatal("continue did not wake the suspended program")
	}
	ok, _ = b.Proceed()
	assert.True(t, ok)
	assert.False(t, b.Paused())

	// Hitting a verified breakpoint again does not re-announce it.
	assert.True(t, b.GetBreakpoint(ctx))
	assert.Len(t, n.changed, 1)
}

func TestBridgePauseTakesEffectAtNextCheckpoint(t *testing.T) {
	file := filepath.Join(t.TempDir(), "main.lua")
	n := &fakeNotifier{}
	b := NewBridge(NewBreakpointTable(), n)

	assert.False(t, b.GetBreakpoint(at(file, 1)))
	b.Pause()
	ctx := at(file, 2)
	assert.True(t, b.GetBreakpoint(ctx))
	b.Interact(ctx)
	assert.Equal(t, dap.ReasonPause, n.stops[0].reason)
	assert.Nil(t, n.stops[0].ids)
}

func TestBridgeNextAdvancesOneCheckpoint(t *testing.T) {
	file := filepath.Join(t.TempDir(), "main.lua")
	n := &fakeNotifier{}
	b := NewBridge(NewBreakpointTable(), n)

	b.Pause()
	require.True(t, b.GetBreakpoint(at(file, 1)))

	b.Next()
	ok, _ := b.Proceed()
	assert.True(t, ok, "a step lets the program move on")

	ctx := at(file, 2)
	require.True(t, b.GetBreakpoint(ctx), "and stops at the next checkpoint")
	b.Interact(ctx)
	assert.Equal(t, dap.ReasonStep, n.stops[0].reason)

	ok, _ = b.Proceed()
	assert.False(t, ok)
}

func TestBridgeNextWhileRunningPauses(t *testing.T) {
	b := NewBridge(NewBreakpointTable(), &fakeNotifier{})
	b.Next()
	assert.True(t, b.Paused())
}

func TestPassThroughNeverSuspends(t *testing.T) {
	var d interp.Debugger = PassThrough{}
	assert.False(t, d.GetBreakpoint(at("x.lua", 1)))
	ok, wake := d.Proceed()
	assert.True(t, ok)
	assert.Nil(t, wake)
}
