package terminal

import "errors"

// Sentinel errors for the terminal package.
var (
	// ErrTerminalClosed is returned when writing to a disposed terminal.
	ErrTerminalClosed = errors.New("terminal is closed")

	// ErrTerminalNotFound is returned when a terminal ID is not registered.
	ErrTerminalNotFound = errors.New("terminal not found")

	// ErrRegistryClosed is returned when creating terminals after DisposeAll.
	ErrRegistryClosed = errors.New("terminal registry is closed")

	// ErrNotTerminal is returned when a tty surface is opened on a regular file.
	ErrNotTerminal = errors.New("not a terminal device")
)
