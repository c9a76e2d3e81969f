package terminal

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/rivo/uniseg"
)

// DefaultPasswordMask is echoed in place of each typed password character.
const DefaultPasswordMask = "*"

// PseudoTerminal renders program output onto a Surface and turns keystrokes
// into blocking line and key reads.
type PseudoTerminal struct {
	id   string
	name string
	mask string

	surface  Surface
	registry *Registry

	mu            sync.Mutex
	previousLines int
	listeners     map[int]chan string
	nextListener  int

	waiting   atomic.Int32
	closed    chan struct{}
	closeOnce sync.Once
	disposed  atomic.Bool
}

// Options configures a new terminal.
type Options struct {
	// Name is a human-readable name for the terminal.
	Name string

	// PasswordMask replaces echoed characters during password input
	// (defaults to DefaultPasswordMask).
	PasswordMask string
}

// New creates a terminal over surface that is not tracked by any registry.
func New(surface Surface, opts Options) *PseudoTerminal {
	if opts.Name == "" {
		opts.Name = "luadap"
	}
	if opts.PasswordMask == "" {
		opts.PasswordMask = DefaultPasswordMask
	}

	t := &PseudoTerminal{
		id:        uuid.New().String(),
		name:      opts.Name,
		mask:      opts.PasswordMask,
		surface:   surface,
		listeners: make(map[int]chan string),
		closed:    make(chan struct{}),
	}
	surface.Attach(t.dispatch, t.markClosed)
	return t
}

// ID returns the terminal's unique identifier.
func (t *PseudoTerminal) ID() string {
	return t.id
}

// Name returns the terminal's display name.
func (t *PseudoTerminal) Name() string {
	return t.name
}

// Print writes text, normalizing line endings, and brings the terminal into
// view. The number of display lines written is remembered for Replace.
func (t *PseudoTerminal) Print(text string, newline bool) {
	if newline {
		text += "\n"
	}
	out := NormalizeNewlines(text)

	t.mu.Lock()
	t.previousLines = strings.Count(out, "\n") + 1
	t.mu.Unlock()

	t.write(out)
	t.Focus()
}

// Replace erases the lines written by the previous Print and prints text in
// their place.
func (t *PseudoTerminal) Replace(text string) {
	t.mu.Lock()
	count := t.previousLines
	t.mu.Unlock()

	t.write(EraseLines(count))
	t.Print(text, true)
}

// Clear clears the whole screen.
func (t *PseudoTerminal) Clear() {
	t.write(ClearScreen)
}

// Focus brings the terminal into view.
func (t *PseudoTerminal) Focus() {
	if !t.IsClosed() {
		t.surface.Show(false)
	}
}

// Hide moves the terminal out of view.
func (t *PseudoTerminal) Hide() {
	if !t.IsClosed() {
		t.surface.Hide()
	}
}

// WaitForInput blocks until Enter is typed and returns the edited line.
//
// It returns "" when exit fires, when ctx is done or when the terminal closes,
// and returns "" immediately if the terminal is already closed. Backspace
// removes the last grapheme. With isPassword every character is echoed as the
// mask instead of itself.
func (t *PseudoTerminal) WaitForInput(ctx context.Context, exit <-chan struct{}, isPassword bool) string {
	if t.IsClosed() {
		return ""
	}
	t.Focus()

	keys, release := t.listen()
	defer release()

	var line strings.Builder
	for {
		select {
		case <-ctx.Done():
			return ""
		case <-exit:
			return ""
		case <-t.closed:
			return ""
		case chunk := <-keys:
			for _, key := range DecodeKeys(chunk) {
				switch {
				case key.IsEnter():
					t.write("\r\n")
					return line.String()
				case key.IsBackspace():
					rest, removed := dropLastGrapheme(line.String())
					if removed == "" {
						continue
					}
					line.Reset()
					line.WriteString(rest)
					t.write(t.erase(removed, isPassword))
				case key.Key == tcell.KeyRune:
					line.WriteRune(key.Rune)
					if isPassword {
						t.write(t.mask)
					} else {
						t.write(string(key.Rune))
					}
				}
			}
		}
	}
}

// WaitForKeyPress blocks until any key is typed and returns its raw
// keystroke. It returns "" when exit fires or ctx is done, and a synthetic
// Enter ("\r") when the terminal is or becomes closed.
func (t *PseudoTerminal) WaitForKeyPress(ctx context.Context, exit <-chan struct{}) string {
	if t.IsClosed() {
		return "\r"
	}
	t.Focus()

	keys, release := t.listen()
	defer release()

	select {
	case <-ctx.Done():
		return ""
	case <-exit:
		return ""
	case <-t.closed:
		return "\r"
	case chunk := <-keys:
		return chunk
	}
}

// Waiting reports whether a line or key read is in progress.
func (t *PseudoTerminal) Waiting() bool {
	return t.waiting.Load() > 0
}

// ListenerCount returns the number of registered keystroke listeners.
func (t *PseudoTerminal) ListenerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners)
}

// IsClosed reports whether the terminal has been closed or disposed.
func (t *PseudoTerminal) IsClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// Closed returns a channel that is closed when the terminal closes.
func (t *PseudoTerminal) Closed() <-chan struct{} {
	return t.closed
}

// Dispose removes the terminal from its registry and closes the surface.
func (t *PseudoTerminal) Dispose() error {
	if t.disposed.Swap(true) {
		return nil
	}
	if t.registry != nil {
		t.registry.remove(t)
	}
	err := t.surface.Close()
	t.markClosed()
	return err
}

func (t *PseudoTerminal) write(s string) {
	if s == "" || t.IsClosed() {
		return
	}
	_, _ = t.surface.Write([]byte(s))
}

// listen registers a keystroke listener. The release func must be called on
// every return path.
func (t *PseudoTerminal) listen() (<-chan string, func()) {
	ch := make(chan string, 64)

	t.mu.Lock()
	id := t.nextListener
	t.nextListener++
	t.listeners[id] = ch
	t.mu.Unlock()
	t.waiting.Add(1)

	return ch, func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
		t.waiting.Add(-1)
	}
}

// dispatch fans a keystroke chunk out to the current listeners. Chunks typed
// while nobody is listening are dropped.
func (t *PseudoTerminal) dispatch(chunk string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.listeners {
		select {
		case ch <- chunk:
		default:
		}
	}
}

func (t *PseudoTerminal) markClosed() {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
}

// erase returns the sequence that removes the echo of one grapheme.
func (t *PseudoTerminal) erase(grapheme string, isPassword bool) string {
	n := uniseg.StringWidth(grapheme)
	if isPassword {
		n = utf8.RuneCountInString(grapheme) * uniseg.StringWidth(t.mask)
	}
	if n < 1 {
		n = 1
	}
	return strings.Repeat("\b \b", n)
}

// dropLastGrapheme splits s before its last user-perceived character.
func dropLastGrapheme(s string) (rest, removed string) {
	if s == "" {
		return "", ""
	}
	last := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		start, _ := g.Positions()
		last = start
	}
	return s[:last], s[last:]
}
