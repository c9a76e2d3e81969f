package debug

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/luadap/internal/interp"
	"github.com/dshills/luadap/internal/richtext"
)

// Diagnostic formats a failed run for the terminal. The first line is a
// summary; runtime errors add the Lua traceback and unexpected errors the
// Go stack.
func Diagnostic(err error) string {
	var (
		perr *interp.PrepareError
		rerr *interp.RuntimeError
	)
	switch {
	case errors.As(err, &perr):
		return fmt.Sprintf("Prepare error: %v in %s", perr.Err, perr.Target)
	case errors.As(err, &rerr):
		msg := fmt.Sprintf("Runtime error: %s in %s", rerr.Message, rerr.Target)
		if rerr.Trace != "" {
			msg += "\n" + rerr.Trace
		}
		return msg
	default:
		return fmt.Sprintf("Unexpected error: %+v", err)
	}
}

// Summary returns the first line of a diagnostic.
func Summary(diagnostic string) string {
	first, _, _ := strings.Cut(diagnostic, "\n")
	return first
}

// RichDiagnostic is Diagnostic wrapped in red rich-text markup.
func RichDiagnostic(err error) string {
	return richtext.Colorize("red", Diagnostic(err))
}
