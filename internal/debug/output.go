package debug

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/luadap/internal/interp"
	"github.com/dshills/luadap/internal/richtext"
	"github.com/dshills/luadap/internal/terminal"
)

// Progress bar defaults.
const (
	DefaultProgressWidth    = 20
	DefaultProgressInterval = 100 * time.Millisecond
)

// OutputOptions configures an Output.
type OutputOptions struct {
	// ProgressWidth is the number of cells of the progress bar.
	ProgressWidth int

	// ProgressInterval is the redraw period of the progress bar.
	ProgressInterval time.Duration

	// SourceLine, when set, holds the source line of the item being
	// rendered while it is written to the terminal.
	SourceLine *atomic.Int64
}

// Output routes a program's terminal traffic through a Queue onto a
// PseudoTerminal. It implements interp.OutputHandler.
type Output struct {
	ctx   context.Context
	term  *terminal.PseudoTerminal
	queue *Queue
	opts  OutputOptions
}

var _ interp.OutputHandler = (*Output)(nil)

// NewOutput creates an output handler and its queue. Blocking reads give up
// when ctx is done.
func NewOutput(ctx context.Context, term *terminal.PseudoTerminal, opts OutputOptions) *Output {
	if opts.ProgressWidth <= 0 {
		opts.ProgressWidth = DefaultProgressWidth
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	o := &Output{ctx: ctx, term: term, opts: opts}
	o.queue = NewQueue(terminalSink{term: term, line: opts.SourceLine})
	return o
}

// Queue returns the output queue.
func (o *Output) Queue() *Queue {
	return o.queue
}

// Terminal returns the terminal written to.
func (o *Output) Terminal() *terminal.PseudoTerminal {
	return o.term
}

// Print enqueues program output.
func (o *Output) Print(line int, text string, newline bool) {
	o.queue.Print(Item{Text: text, AppendNewline: newline, SourceLine: line})
}

// Clear enqueues a screen clear.
func (o *Output) Clear() {
	o.queue.Clear()
}

// Progress draws a progress bar that fills over timeout. It returns early
// when exit is closed.
func (o *Output) Progress(exit <-chan struct{}, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	o.queue.Flush()

	start := time.Now()
	ticker := time.NewTicker(o.opts.ProgressInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	o.term.Print(ProgressBar(0, o.opts.ProgressWidth), true)
	for {
		select {
		case <-exit:
			return
		case <-o.ctx.Done():
			return
		case <-deadline.C:
			o.term.Replace(ProgressBar(1, o.opts.ProgressWidth))
			return
		case <-ticker.C:
			frac := float64(time.Since(start)) / float64(timeout)
			o.term.Replace(ProgressBar(frac, o.opts.ProgressWidth))
		}
	}
}

// WaitForInput prints prompt and reads a line.
func (o *Output) WaitForInput(exit <-chan struct{}, isPassword bool, prompt string) string {
	if prompt != "" {
		o.queue.Print(Item{Text: prompt})
	}
	o.queue.Flush()
	return o.term.WaitForInput(o.ctx, exit, isPassword)
}

// WaitForKeyPress prints prompt on its own line and reads one key.
func (o *Output) WaitForKeyPress(exit <-chan struct{}, prompt string) interp.KeyEvent {
	if prompt != "" {
		o.queue.Print(Item{Text: prompt, AppendNewline: true})
	}
	o.queue.Flush()

	raw := o.term.WaitForKeyPress(o.ctx, exit)
	if raw == "" {
		return interp.KeyEvent{}
	}
	return toKeyEvent(terminal.DecodeKey(raw))
}

func toKeyEvent(key terminal.KeyEvent) interp.KeyEvent {
	ev := interp.KeyEvent{Name: key.Name(), Code: key.Code()}
	if key.Key == tcell.KeyRune {
		ev.Char = string(key.Rune)
	}
	return ev
}

// ProgressBar renders frac (clamped to [0, 1]) as a bar of width cells.
func ProgressBar(frac float64, width int) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

type terminalSink struct {
	term *terminal.PseudoTerminal
	line *atomic.Int64
}

func (s terminalSink) Render(item Item) {
	if s.line != nil {
		s.line.Store(int64(item.SourceLine))
		defer s.line.Store(0)
	}
	s.term.Print(richtext.Render(item.Text), item.AppendNewline)
}

func (s terminalSink) Clear() {
	s.term.Clear()
}
