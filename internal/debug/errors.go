package debug

import "errors"

// Errors reported to the client in failed responses.
var (
	// ErrInvalidLaunchArguments is returned when launch arguments are not a
	// JSON object.
	ErrInvalidLaunchArguments = errors.New("invalid launch arguments")

	// ErrNoProgram is returned when a launch request names no program.
	ErrNoProgram = errors.New("launch arguments name no program")

	// ErrNotInitialized is returned for launch before initialize.
	ErrNotInitialized = errors.New("session is not initialized")

	// ErrAlreadyLaunched is returned for launch while a program runs.
	ErrAlreadyLaunched = errors.New("a program is already running")

	// ErrNoProgramRunning is returned for evaluate without a program.
	ErrNoProgramRunning = errors.New("no program is running")
)
