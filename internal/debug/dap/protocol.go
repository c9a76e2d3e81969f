package dap

import (
	godap "github.com/google/go-dap"
)

// Output event categories.
const (
	CategoryConsole   = "console"
	CategoryStdout    = "stdout"
	CategoryStderr    = "stderr"
	CategoryImportant = "important"
)

// Stopped event reasons.
const (
	ReasonBreakpoint = "breakpoint"
	ReasonStep       = "step"
	ReasonPause      = "pause"
	ReasonEntry      = "entry"
)

// NewResponse returns a successful response skeleton for req.
func NewResponse(req *godap.Request) godap.Response {
	return godap.Response{
		ProtocolMessage: godap.ProtocolMessage{Type: "response"},
		Command:         req.Command,
		RequestSeq:      req.Seq,
		Success:         true,
	}
}

// NewErrorResponse returns a failed response carrying message.
func NewErrorResponse(req *godap.Request, message string) *godap.ErrorResponse {
	resp := NewResponse(req)
	resp.Success = false
	resp.Message = message
	return &godap.ErrorResponse{Response: resp}
}

// NewEvent returns an event skeleton named event.
func NewEvent(event string) godap.Event {
	return godap.Event{
		ProtocolMessage: godap.ProtocolMessage{Type: "event"},
		Event:           event,
	}
}

// InitializedEvent builds the "initialized" event.
func InitializedEvent() *godap.InitializedEvent {
	return &godap.InitializedEvent{Event: NewEvent("initialized")}
}

// StoppedEvent builds a "stopped" event for threadID.
func StoppedEvent(reason string, threadID int, hitIDs []int) *godap.StoppedEvent {
	return &godap.StoppedEvent{
		Event: NewEvent("stopped"),
		Body: godap.StoppedEventBody{
			Reason:            reason,
			ThreadId:          threadID,
			AllThreadsStopped: true,
			HitBreakpointIds:  hitIDs,
		},
	}
}

// BreakpointEvent builds a "breakpoint" event.
func BreakpointEvent(reason string, bp godap.Breakpoint) *godap.BreakpointEvent {
	return &godap.BreakpointEvent{
		Event: NewEvent("breakpoint"),
		Body: godap.BreakpointEventBody{
			Reason:     reason,
			Breakpoint: bp,
		},
	}
}

// TerminatedEvent builds the "terminated" event.
func TerminatedEvent() *godap.TerminatedEvent {
	return &godap.TerminatedEvent{Event: NewEvent("terminated")}
}

// OutputEvent builds an "output" event. A positive line is attached to the
// body as the source position of the output.
func OutputEvent(category, output string, line int) *godap.OutputEvent {
	return &godap.OutputEvent{
		Event: NewEvent("output"),
		Body: godap.OutputEventBody{
			Category: category,
			Output:   output,
			Line:     line,
		},
	}
}
