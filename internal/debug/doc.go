// Package debug serves Lua programs over the Debug Adapter Protocol.
//
// A Session reads requests from a dap.Transport and drives one
// interp.Engine at a time. Breakpoints live in a BreakpointTable; the
// Bridge connects the table and the session's pause, continue and next
// requests to the engine's statement checkpoints. Program output flows
// through a Queue onto a terminal.PseudoTerminal, whose surface either
// renders to a local tty or turns writes into protocol output events.
//
// Server accepts connections and runs one Session per connection.
package debug
