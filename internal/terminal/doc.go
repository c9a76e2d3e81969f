// Package terminal provides the pseudo-terminal a debugged program talks to.
//
// A PseudoTerminal renders text onto a Surface and turns the keystrokes the
// surface delivers into blocking reads:
//
//	t, _ := registry.Create(terminal.NewEventSurface(send), terminal.Options{})
//	t.Print("Enter a name:", false)
//	name := t.WaitForInput(ctx, exited, false)
//
// Every read resolves exactly once, through Enter, the exit channel, the
// terminal closing or the context. Surfaces exist for protocol output events
// (EventSurface) and for byte streams such as a tty device (StreamSurface).
//
// The Registry is owned by the caller. Creating a terminal through it
// disposes the previously active one.
package terminal
