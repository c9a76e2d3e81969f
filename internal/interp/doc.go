// Package interp runs Lua programs under a cooperative debugger.
//
// Programs are parsed with gopher-lua and rewritten before compilation so
// that every statement is preceded by a checkpoint call. At each checkpoint
// the engine asks its Debugger whether to suspend; a suspended program
// blocks inside the checkpoint until the debugger lets it proceed, the run
// is exited, or code is injected for evaluation.
//
// Basic usage:
//
//	e := interp.New(interp.Options{Output: handler})
//	e.SetTarget("main.lua")
//	e.SetDebugger(bridge)
//	if err := e.Run(ctx); err != nil {
//		var rt *interp.RuntimeError
//		if errors.As(err, &rt) {
//			// rt.Line, rt.Trace
//		}
//	}
//
// Programs see print, a term table for terminal I/O, the arg and env
// tables, and a require that loads modules relative to the program.
package interp
