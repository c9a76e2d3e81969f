package interp

import "time"

// Debugger is consulted by the engine at every statement checkpoint.
//
// GetBreakpoint reports whether execution should suspend at ctx. When it
// does, Interact is called once with the fully captured context and the
// engine then polls Proceed until it returns true. While Proceed returns
// false the engine blocks on the returned channel, which must close on the
// next change of the debugger's pause state.
type Debugger interface {
	GetBreakpoint(ctx *Context) bool
	Interact(ctx *Context)
	Proceed() (bool, <-chan struct{})
}

// OutputHandler receives the program's terminal traffic. Every blocking
// method must return promptly once exit is closed.
type OutputHandler interface {
	// Print writes text emitted from the given source line.
	Print(line int, text string, newline bool)

	// Clear clears the display.
	Clear()

	// Progress shows a progress indicator for timeout.
	Progress(exit <-chan struct{}, timeout time.Duration)

	// WaitForInput shows prompt and returns the line typed by the user.
	WaitForInput(exit <-chan struct{}, isPassword bool, prompt string) string

	// WaitForKeyPress shows prompt and returns the next key pressed.
	WaitForKeyPress(exit <-chan struct{}, prompt string) KeyEvent
}

type discardOutput struct{}

func (discardOutput) Print(int, string, bool) {}

func (discardOutput) Clear() {}

func (discardOutput) Progress(<-chan struct{}, time.Duration) {}

func (discardOutput) WaitForInput(<-chan struct{}, bool, string) string { return "" }

func (discardOutput) WaitForKeyPress(<-chan struct{}, string) KeyEvent {
	return KeyEvent{Name: "Enter", Code: 13}
}
