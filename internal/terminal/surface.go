package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Surface is where a pseudo-terminal renders and where its keystrokes come
// from.
type Surface interface {
	io.Writer

	// Attach registers the keystroke and close handlers. The owning terminal
	// calls it exactly once, before any other method.
	Attach(onInput func(string), onClose func())

	// Show brings the surface into view.
	Show(preserveFocus bool)

	// Hide moves the surface out of view.
	Hide()

	// Close releases the surface. onClose fires if it has not already.
	Close() error
}

// EventSurface renders through a callback, typically as protocol output
// events, and receives keystrokes through Feed.
type EventSurface struct {
	write func(text string)

	mu      sync.Mutex
	onInput func(string)
	onClose func()
	closed  bool
}

// NewEventSurface creates a surface that hands every write to write.
func NewEventSurface(write func(text string)) *EventSurface {
	return &EventSurface{write: write}
}

// Write forwards p to the write callback.
func (s *EventSurface) Write(p []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrTerminalClosed
	}
	s.write(string(p))
	return len(p), nil
}

// Attach implements Surface.
func (s *EventSurface) Attach(onInput func(string), onClose func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInput = onInput
	s.onClose = onClose
}

// Feed delivers text as if it had been typed.
func (s *EventSurface) Feed(text string) {
	s.mu.Lock()
	onInput := s.onInput
	closed := s.closed
	s.mu.Unlock()
	if closed || onInput == nil {
		return
	}
	onInput(text)
}

// Show is a no-op; the client decides when its console is visible.
func (s *EventSurface) Show(bool) {}

// Hide is a no-op.
func (s *EventSurface) Hide() {}

// Close marks the surface closed and notifies the owner.
func (s *EventSurface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	onClose := s.onClose
	s.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}

// StreamSurface reads keystrokes from a reader and renders to a writer.
// When the reader is a terminal device it is switched to raw mode so single
// keystrokes arrive unbuffered.
type StreamSurface struct {
	in  io.Reader
	out io.Writer

	fd       int
	rawState *term.State

	mu          sync.Mutex
	closed      bool
	onClose     func()
	onInterrupt func()
}

// NewStreamSurface creates a surface over in and out. If in is a terminal
// it is put into raw mode until Close.
func NewStreamSurface(in io.Reader, out io.Writer) (*StreamSurface, error) {
	s := &StreamSurface{in: in, out: out, fd: -1}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return nil, fmt.Errorf("raw mode: %w", err)
		}
		s.fd = int(f.Fd())
		s.rawState = state
	}
	return s, nil
}

// OpenTTY opens a terminal device, such as one reported by tty(1) in
// another window, as a surface.
func OpenTTY(path string) (*StreamSurface, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open tty: %w", err)
	}
	if !term.IsTerminal(int(f.Fd())) {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotTerminal, path)
	}
	s, err := NewStreamSurface(f, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// OnInterrupt registers fn to run when Ctrl-C is typed in raw mode.
func (s *StreamSurface) OnInterrupt(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInterrupt = fn
}

// Write writes p to the output stream.
func (s *StreamSurface) Write(p []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrTerminalClosed
	}
	return s.out.Write(p)
}

// Attach implements Surface and starts the keystroke reader.
func (s *StreamSurface) Attach(onInput func(string), onClose func()) {
	s.mu.Lock()
	s.onClose = onClose
	s.mu.Unlock()

	go s.readLoop(onInput)
}

func (s *StreamSurface) readLoop(onInput func(string)) {
	buf := make([]byte, 256)
	for {
		n, err := s.in.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			if s.rawState != nil && chunk == "\x03" {
				s.mu.Lock()
				fn := s.onInterrupt
				s.mu.Unlock()
				if fn != nil {
					fn()
					continue
				}
			}
			onInput(chunk)
		}
		if errors.Is(err, io.EOF) {
			// Input ended; output stays usable.
			return
		}
		if err != nil {
			s.Close()
			return
		}
	}
}

// Show is a no-op for streams.
func (s *StreamSurface) Show(bool) {}

// Hide is a no-op for streams.
func (s *StreamSurface) Hide() {}

// Close restores the terminal mode, closes the input if it can be closed and
// notifies the owner.
func (s *StreamSurface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	onClose := s.onClose
	s.mu.Unlock()

	var err error
	if s.rawState != nil {
		err = term.Restore(s.fd, s.rawState)
	}
	if c, ok := s.in.(io.Closer); ok && s.in != os.Stdin {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	if onClose != nil {
		onClose()
	}
	return err
}
