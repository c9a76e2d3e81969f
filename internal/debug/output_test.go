package debug

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/luadap/internal/interp"
	"github.com/dshills/luadap/internal/terminal"
)

type capture struct {
	mu    sync.Mutex
	b     strings.Builder
	lines []int64
	line  *atomic.Int64
}

func (c *capture) write(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.b.WriteString(text)
	if c.line != nil {
		c.lines = append(c.lines, c.line.Load())
	}
}

func (c *capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.b.String()
}

func newTestOutput(t *testing.T, opts OutputOptions) (*Output, *terminal.EventSurface, *capture) {
	t.Helper()
	c := &capture{line: opts.SourceLine}
	surface := terminal.NewEventSurface(c.write)
	term := terminal.New(surface, terminal.Options{})
	t.Cleanup(func() { _ = term.Dispose() })
	return NewOutput(context.Background(), term, opts), surface, c
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		frac  float64
		width int
		want  string
	}{
		{0, 4, "[----]"},
		{0.5, 4, "[##--]"},
		{1, 4, "[####]"},
		{2, 3, "[###]"},
		{-1, 2, "[--]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProgressBar(tt.frac, tt.width))
	}
}

func TestOutputPrintCarriesSourceLine(t *testing.T) {
	var line atomic.Int64
	out, _, c := newTestOutput(t, OutputOptions{SourceLine: &line})

	out.Print(7, "<b>hi</b>", true)
	out.Queue().End()

	assert.Contains(t, c.String(), "hi")
	assert.NotContains(t, c.String(), "<b>")
	require.NotEmpty(t, c.lines)
	assert.Equal(t, int64(7), c.lines[0])
	assert.Zero(t, line.Load())
}

func TestOutputWaitForInput(t *testing.T) {
	out, surface, c := newTestOutput(t, OutputOptions{})

	got := make(chan string, 1)
	go func() {
		got <- out.WaitForInput(make(chan struct{}), false, "Name: ")
	}()

	require.Eventually(t, out.Terminal().Waiting, time.Second, time.Millisecond)
	surface.Feed("bob\r")

	select {
	case line := <-got:
		assert.Equal(t, "bob", line)
	case <-time.After(time.Second):
		t.Fatal("input not returned")
	}
	assert.True(t, strings.HasPrefix(c.String(), "Name: "))
}

func TestOutputWaitForInputExit(t *testing.T) {
	out, _, _ := newTestOutput(t, OutputOptions{})

	exit := make(chan struct{})
	close(exit)
	assert.Equal(t, "", out.WaitForInput(exit, true, ""))
}

func TestOutputWaitForKeyPress(t *testing.T) {
	out, surface, _ := newTestOutput(t, OutputOptions{})

	got := make(chan interp.KeyEvent, 1)
	go func() {
		got <- out.WaitForKeyPress(make(chan struct{}), "Press a key")
	}()

	require.Eventually(t, out.Terminal().Waiting, time.Second, time.Millisecond)
	surface.Feed("q")

	select {
	case key := <-got:
		assert.Equal(t, "q", key.Char)
		assert.Equal(t, int('q'), key.Code)
	case <-time.After(time.Second):
		t.Fatal("key not returned")
	}
}

func TestOutputProgressStopsOnExit(t *testing.T) {
	out, _, c := newTestOutput(t, OutputOptions{ProgressWidth: 4, ProgressInterval: time.Millisecond})

	exit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		out.Progress(exit, time.Hour)
	}()
	require.Eventually(t, func() bool { return strings.Contains(c.String(), "[----]") }, time.Second, time.Millisecond)
	close(exit)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("progress did not stop")
	}
}

func TestOutputProgressCompletes(t *testing.T) {
	out, _, c := newTestOutput(t, OutputOptions{ProgressWidth: 4, ProgressInterval: time.Millisecond})

	out.Progress(make(chan struct{}), 20*time.Millisecond)
	assert.Contains(t, c.String(), "[####]")
}
