package interp

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

// Errors for engine operations.
var (
	// ErrNotRunning is returned by Exit and Inject when no program runs.
	ErrNotRunning = errors.New("interp: program is not running")

	// ErrAlreadyRunning is returned by Run while a previous run is active.
	ErrAlreadyRunning = errors.New("interp: program is already running")

	// ErrNotSuspended is returned by Inject when execution is not paused.
	ErrNotSuspended = errors.New("interp: execution is not suspended")

	// ErrNoTarget is returned by Run when no program path was set.
	ErrNoTarget = errors.New("interp: no program target")

	// ErrStatementLimit is raised inside the program when it executes more
	// statements than allowed.
	ErrStatementLimit = errors.New("statement limit exceeded")
)

// PrepareError reports that a program could not be started: the file or a
// required module is missing or does not parse.
type PrepareError struct {
	Target string
	Err    error
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("%v in %s", e.Err, e.Target)
}

func (e *PrepareError) Unwrap() error {
	return e.Err
}

// RuntimeError reports a Lua error raised while the program executed.
type RuntimeError struct {
	// Target is the file that was executing when the error was raised.
	Target string

	// Line is the last statement line reached in Target.
	Line int

	// Message is the Lua error value as a string.
	Message string

	// Trace is the Lua stack traceback.
	Trace string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s in %s", e.Message, e.Target)
}

// classify maps an error returned by PCall onto the error taxonomy.
// Anything that is neither a preparation nor a Lua runtime failure is
// wrapped with a stack trace.
func classify(err error, target string, line int) error {
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return pkgerrors.WithStack(err)
	}

	if ud, ok := apiErr.Object.(*lua.LUserData); ok {
		if pe, ok := ud.Value.(*PrepareError); ok {
			return pe
		}
	}

	switch apiErr.Type {
	case lua.ApiErrorSyntax, lua.ApiErrorFile:
		return &PrepareError{Target: target, Err: apiErr}
	case lua.ApiErrorRun, lua.ApiErrorError:
		msg := lua.LVAsString(apiErr.Object)
		if msg == "" && apiErr.Object != nil {
			msg = apiErr.Object.String()
		}
		return &RuntimeError{
			Target:  target,
			Line:    line,
			Message: msg,
			Trace:   strings.TrimSpace(apiErr.StackTrace),
		}
	default:
		return pkgerrors.Wrap(apiErr, "interpreter panic")
	}
}
