package debug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	godap "github.com/google/go-dap"
	"go.uber.org/zap"

	"github.com/dshills/luadap/internal/config"
	"github.com/dshills/luadap/internal/debug/dap"
	"github.com/dshills/luadap/internal/interp"
	"github.com/dshills/luadap/internal/terminal"
	"github.com/dshills/luadap/internal/watch"
)

// SessionState is the lifecycle state of a debug session.
type SessionState int32

const (
	StateUninitialized SessionState = iota
	StateInitialized
	StateLaunched
	StateRunning
	StateSuspended
	StateTerminated
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateLaunched:
		return "launched"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("SessionState(%d)", int32(s))
	}
}

const (
	// threadID is the single synthetic thread reported to clients.
	threadID = 1

	// scopeRef is the variables reference of the only scope.
	scopeRef = 1
)

// ArgumentPrompt asks for program arguments when a launch names none.
const ArgumentPrompt = "Enter execution parameters: "

// SurfaceFactory creates the surface of a launch's terminal. write sends
// rendered text to the client as output events.
type SurfaceFactory func(write func(text string)) (terminal.Surface, error)

// Options configures a Session.
type Options struct {
	Logger *zap.Logger

	// Registry tracks the session's terminals. A private registry is used
	// when nil.
	Registry *terminal.Registry

	// Config defaults to config.Default().
	Config *config.Config

	// NewSurface defaults to an event surface, which renders terminal
	// output as output events and accepts input from repl evaluations.
	NewSurface SurfaceFactory
}

// Session serves one debug client.
type Session struct {
	conn     dap.Transport
	cfg      *config.Config
	logger   *zap.Logger
	registry *terminal.Registry
	factory  SurfaceFactory
	table    *BreakpointTable

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sourceLine      atomic.Int64
	linesStartAt1   atomic.Bool
	columnsStartAt1 atomic.Bool

	mu        sync.Mutex
	state     SessionState
	launch    LaunchArguments
	engine    *interp.Engine
	bridge    *Bridge
	term      *terminal.PseudoTerminal
	surface   *terminal.EventSurface
	output    *Output
	watcher   *watch.Watcher
	runCtx    context.Context
	cancelRun context.CancelFunc
	running   bool
	launched  bool
	restart   bool
	prompted  bool
	closing   bool
}

var _ Notifier = (*Session)(nil)

// NewSession creates a session over conn.
func NewSession(conn dap.Transport, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = terminal.NewRegistry()
	}
	factory := opts.NewSurface
	if factory == nil {
		factory = func(write func(string)) (terminal.Surface, error) {
			return terminal.NewEventSurface(write), nil
		}
	}

	s := &Session{
		conn:     conn,
		cfg:      cfg,
		logger:   logger.Named("session"),
		registry: registry,
		factory:  factory,
		table:    NewBreakpointTable(),
	}
	s.linesStartAt1.Store(true)
	s.columnsStartAt1.Store(true)
	return s
}

// State returns the session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Breakpoints returns the session's breakpoint table.
func (s *Session) Breakpoints() *BreakpointTable {
	return s.table
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Serve reads and dispatches requests until the client disconnects, the
// stream ends or ctx is done. It returns after the running program and
// every pending evaluation have finished.
func (s *Session) Serve(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, func() {
		_ = s.conn.Close()
	})
	defer func() {
		stop()
		s.shutdown()
	}()

	for {
		msg, err := s.conn.Receive()
		if err != nil {
			if s.recoverable(err) {
				continue
			}
			if isClosed(err) || s.ctx.Err() != nil {
				return nil
			}
			s.logger.Error("receive failed", zap.Error(err))
			return fmt.Errorf("receive: %w", err)
		}
		if s.dispatch(msg) {
			return nil
		}
	}
}

// recoverable answers decode failures that leave the stream aligned.
func (s *Session) recoverable(err error) bool {
	var ferr *godap.DecodeProtocolMessageFieldError
	if errors.As(err, &ferr) {
		s.logger.Debug("undecodable message", zap.String("field", ferr.FieldName), zap.String("value", ferr.FieldValue))
		if strings.EqualFold(ferr.SubType, "request") && ferr.FieldName == "command" {
			s.send(&godap.ErrorResponse{Response: godap.Response{
				ProtocolMessage: godap.ProtocolMessage{Type: "response"},
				Command:         ferr.FieldValue,
				RequestSeq:      ferr.Seq,
				Message:         "unsupported command",
			}})
		}
		return true
	}
	var serr *json.SyntaxError
	var terr *json.UnmarshalTypeError
	if errors.As(err, &serr) || errors.As(err, &terr) {
		s.logger.Warn("malformed message", zap.Error(err))
		return true
	}
	return false
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, dap.ErrClosed)
}

func (s *Session) shutdown() {
	s.mu.Lock()
	s.closing = true
	s.restart = false
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}
	s.disarm()
	if err := s.stopRun(); err != nil {
		s.logger.Warn("exit failed", zap.Error(err))
	}
	s.wg.Wait()
	s.cancel()

	s.mu.Lock()
	term := s.term
	s.term = nil
	s.mu.Unlock()
	if term != nil {
		_ = term.Dispose()
	}
	_ = s.conn.Close()
}

func (s *Session) send(msg godap.Message) {
	if err := s.conn.Send(msg); err != nil && !isClosed(err) {
		s.logger.Error("send failed", zap.Error(err))
	}
}

// dispatch handles one message and reports whether the serve loop ends.
func (s *Session) dispatch(msg godap.Message) bool {
	if rm, ok := msg.(godap.RequestMessage); ok {
		r := rm.GetRequest()
		s.logger.Debug("request", zap.String("command", r.Command), zap.Int("seq", r.Seq))
	}

	switch req := msg.(type) {
	case *godap.InitializeRequest:
		s.onInitialize(req)
	case *godap.LaunchRequest:
		s.onLaunch(req)
	case *godap.SetBreakpointsRequest:
		s.onSetBreakpoints(req)
	case *godap.BreakpointLocationsRequest:
		s.onBreakpointLocations(req)
	case *godap.ConfigurationDoneRequest:
		s.send(&godap.ConfigurationDoneResponse{Response: dap.NewResponse(&req.Request)})
	case *godap.SetExceptionBreakpointsRequest:
		s.send(&godap.SetExceptionBreakpointsResponse{Response: dap.NewResponse(&req.Request)})
	case *godap.ContinueRequest:
		s.onContinue(req)
	case *godap.PauseRequest:
		s.onPause(req)
	case *godap.NextRequest:
		s.onNext(req)
	case *godap.StepInRequest:
		s.unsupportedStep(&req.Request, "Step in")
	case *godap.StepOutRequest:
		s.unsupportedStep(&req.Request, "Step out")
	case *godap.StepBackRequest:
		s.unsupportedStep(&req.Request, "Step back")
	case *godap.ThreadsRequest:
		s.send(&godap.ThreadsResponse{
			Response: dap.NewResponse(&req.Request),
			Body:     godap.ThreadsResponseBody{Threads: []godap.Thread{{Id: threadID, Name: "main"}}},
		})
	case *godap.StackTraceRequest:
		s.onStackTrace(req)
	case *godap.ScopesRequest:
		s.send(&godap.ScopesResponse{
			Response: dap.NewResponse(&req.Request),
			Body:     godap.ScopesResponseBody{Scopes: []godap.Scope{{Name: "Current scope", VariablesReference: scopeRef}}},
		})
	case *godap.VariablesRequest:
		s.onVariables(req)
	case *godap.EvaluateRequest:
		s.onEvaluate(req)
	case *godap.RestartRequest:
		s.onRestart(req)
	case *godap.TerminateRequest:
		s.onTerminate(req)
	case *godap.DisconnectRequest:
		s.onDisconnect(req)
		return true
	case godap.RequestMessage:
		s.send(dap.NewErrorResponse(req.GetRequest(), "unsupported command"))
	default:
		s.logger.Debug("ignoring message", zap.String("type", fmt.Sprintf("%T", msg)))
	}
	return false
}

func (s *Session) onInitialize(req *godap.InitializeRequest) {
	s.linesStartAt1.Store(req.Arguments.LinesStartAt1)
	s.columnsStartAt1.Store(req.Arguments.ColumnsStartAt1)

	s.mu.Lock()
	if s.state == StateUninitialized {
		s.state = StateInitialized
	}
	s.mu.Unlock()

	s.send(&godap.InitializeResponse{
		Response: dap.NewResponse(&req.Request),
		Body: godap.Capabilities{
			SupportsConfigurationDoneRequest:   true,
			SupportsBreakpointLocationsRequest: true,
			SupportsRestartRequest:             true,
			SupportsTerminateRequest:           true,
			SupportsEvaluateForHovers:          true,
		},
	})
	s.send(dap.InitializedEvent())
}

func (s *Session) onLaunch(req *godap.LaunchRequest) {
	la, err := ParseLaunchArguments(req.Arguments)
	if err != nil {
		s.send(dap.NewErrorResponse(&req.Request, err.Error()))
		return
	}

	s.mu.Lock()
	switch {
	case s.state == StateUninitialized:
		err = ErrNotInitialized
	case s.running:
		err = ErrAlreadyLaunched
	}
	if err != nil {
		s.mu.Unlock()
		s.send(dap.NewErrorResponse(&req.Request, err.Error()))
		return
	}

	term, surface, err := s.newTerminal()
	if err != nil {
		s.mu.Unlock()
		s.send(dap.NewErrorResponse(&req.Request, fmt.Sprintf("create terminal: %v", err)))
		return
	}

	engine := interp.New(interp.Options{
		Environment:    s.environment(la.Env),
		Seed:           s.cfg.Interpreter.Seed,
		StatementLimit: s.cfg.Interpreter.StatementLimit,
		CallStackSize:  s.cfg.Interpreter.CallStackSize,
		Logger:         s.logger,
	})
	engine.SetTarget(la.Program)
	if la.HasArgs {
		engine.SetParams(la.Args)
	}

	s.bridge = nil
	var dbg interp.Debugger = PassThrough{}
	if !la.NoDebug {
		s.bridge = NewBridge(s.table, s)
		if la.StopOnEntry {
			s.bridge.PauseWithReason(dap.ReasonEntry)
		}
		dbg = s.bridge
	}
	engine.SetDebugger(dbg)

	s.launch = la
	s.engine = engine
	s.term = term
	s.surface = surface
	s.state = StateLaunched
	s.running = true
	s.launched = true
	s.restart = false
	s.prompted = false
	s.armRunLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.send(&godap.LaunchResponse{Response: dap.NewResponse(&req.Request)})
	s.startWatcher(la)
	go s.runLoop()
}

// newTerminal activates a fresh terminal, disposing the previous one.
func (s *Session) newTerminal() (*terminal.PseudoTerminal, *terminal.EventSurface, error) {
	surface, err := s.factory(s.writeOutput)
	if err != nil {
		return nil, nil, err
	}
	term, err := s.registry.Create(surface, terminal.Options{
		Name:         s.cfg.Terminal.Name,
		PasswordMask: s.cfg.Terminal.PasswordMask,
	})
	if err != nil {
		_ = surface.Close()
		return nil, nil, err
	}
	events, _ := surface.(*terminal.EventSurface)
	return term, events, nil
}

// renewTerminal gives a restarted run a fresh terminal. The registry
// disposes the previous one. On failure the old terminal is kept.
func (s *Session) renewTerminal() {
	term, surface, err := s.newTerminal()
	if err != nil {
		s.logger.Warn("terminal failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.term = term
	s.surface = surface
	s.mu.Unlock()
}

// writeOutput sends terminal text to the client, tagged with the source
// line of the output item being rendered.
func (s *Session) writeOutput(text string) {
	line := int(s.sourceLine.Load())
	if line > 0 {
		line = s.clientLine(line)
	}
	s.send(dap.OutputEvent(dap.CategoryStdout, text, line))
}

func (s *Session) environment(extra map[string]string) map[string]string {
	env := make(map[string]string, len(s.cfg.Interpreter.Environment)+len(extra))
	for k, v := range s.cfg.Interpreter.Environment {
		env[k] = v
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

func (s *Session) startWatcher(la LaunchArguments) {
	if !la.Watch && !s.cfg.Launch.RestartOnChange {
		return
	}
	w, err := watch.New(la.Program, s.cfg.Launch.WatchDebounce(), func(path string) {
		s.logger.Info("restarting after change", zap.String("path", path))
		s.restartRun()
	}, s.logger)
	if err != nil {
		s.logger.Warn("watch failed", zap.String("program", la.Program), zap.Error(err))
		return
	}

	s.mu.Lock()
	previous := s.watcher
	s.watcher = w
	closing := s.closing
	if closing {
		s.watcher = nil
	}
	s.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}
	if closing {
		_ = w.Close()
	}
}

// runLoop runs the launched program until it ends without a pending
// restart.
func (s *Session) runLoop() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		engine, term, la := s.engine, s.term, s.launch
		runCtx, cancel := s.runCtx, s.cancelRun
		out := NewOutput(s.ctx, term, OutputOptions{
			ProgressWidth:    s.cfg.Terminal.ProgressWidth,
			ProgressInterval: s.cfg.Terminal.ProgressInterval(),
			SourceLine:       &s.sourceLine,
		})
		s.output = out
		prompt := !la.HasArgs && !s.prompted && s.cfg.Launch.PromptForArguments
		s.prompted = true
		s.mu.Unlock()

		engine.SetOutput(out)
		if prompt {
			line := out.WaitForInput(runCtx.Done(), false, ArgumentPrompt)
			engine.SetParams(SplitParams(line))
		}

		s.table.ResetVerification()
		s.setState(StateRunning)
		if err := engine.Run(runCtx); err != nil {
			s.reportError(out, err)
		}
		out.Queue().End()
		cancel()

		s.mu.Lock()
		if s.restart && !s.closing {
			s.restart = false
			s.state = StateLaunched
			s.armRunLocked()
			if s.bridge != nil && la.StopOnEntry {
				s.bridge.PauseWithReason(dap.ReasonEntry)
			}
			s.mu.Unlock()
			s.logger.Debug("restarting", zap.String("program", la.Program))
			s.renewTerminal()
			continue
		}
		s.running = false
		s.state = StateTerminated
		s.mu.Unlock()

		s.send(dap.TerminatedEvent())
		return
	}
}

// reportError renders a failed run on the terminal and as an important
// notification.
func (s *Session) reportError(out *Output, err error) {
	s.logger.Debug("run failed", zap.Error(err))
	msg := Diagnostic(err)
	out.Print(0, RichDiagnostic(err), true)
	s.send(dap.OutputEvent(dap.CategoryImportant, Summary(msg), 0))
}

// stopRun asks the current run to exit.
func (s *Session) stopRun() error {
	s.mu.Lock()
	engine, cancel := s.engine, s.cancelRun
	s.mu.Unlock()

	var err error
	if engine != nil && engine.Running() {
		if err = engine.Exit(); errors.Is(err, interp.ErrNotRunning) {
			err = nil
		}
	}
	if cancel != nil {
		cancel()
	}
	return err
}

// armRunLocked prepares the context of the next run. s.mu must be held.
func (s *Session) armRunLocked() {
	s.runCtx, s.cancelRun = context.WithCancel(s.ctx)
}

// disarm clears the pause flag so a suspended program can unwind.
func (s *Session) disarm() {
	s.mu.Lock()
	b := s.bridge
	s.mu.Unlock()
	if b != nil {
		b.Continue()
	}
}

// restartRun reruns the launched program. A running program is exited and
// the run loop starts it again; a finished one is started anew.
func (s *Session) restartRun() {
	s.mu.Lock()
	if s.closing || !s.launched {
		s.mu.Unlock()
		return
	}
	if s.running {
		// Cancel the run observed here, not one the loop may start next.
		s.restart = true
		cancel := s.cancelRun
		s.mu.Unlock()
		s.disarm()
		cancel()
		return
	}
	s.running = true
	s.state = StateLaunched
	s.armRunLocked()
	if s.bridge != nil && s.launch.StopOnEntry {
		s.bridge.PauseWithReason(dap.ReasonEntry)
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go s.runLoop()
}

func (s *Session) onRestart(req *godap.RestartRequest) {
	s.restartRun()
	s.send(&godap.RestartResponse{Response: dap.NewResponse(&req.Request)})
}

func (s *Session) onTerminate(req *godap.TerminateRequest) {
	s.disarm()
	s.mu.Lock()
	s.restart = false
	running := s.running
	ended := s.state == StateTerminated
	s.mu.Unlock()

	if err := s.stopRun(); err != nil {
		s.logger.Warn("exit failed", zap.Error(err))
	}
	s.send(&godap.TerminateResponse{Response: dap.NewResponse(&req.Request)})
	// A finished run has already announced termination.
	if !running && !ended {
		s.setState(StateTerminated)
		s.send(dap.TerminatedEvent())
	}
}

func (s *Session) onDisconnect(req *godap.DisconnectRequest) {
	s.disarm()
	s.mu.Lock()
	s.restart = false
	s.closing = true
	s.mu.Unlock()

	if err := s.stopRun(); err != nil {
		s.logger.Warn("exit failed", zap.Error(err))
	}
	s.send(&godap.DisconnectResponse{Response: dap.NewResponse(&req.Request)})
}

func (s *Session) onSetBreakpoints(req *godap.SetBreakpointsRequest) {
	args := req.Arguments
	lines := make([]int, 0, len(args.Breakpoints)+len(args.Lines))
	if len(args.Breakpoints) > 0 {
		for _, bp := range args.Breakpoints {
			lines = append(lines, s.interpLine(bp.Line))
		}
	} else {
		for _, line := range args.Lines {
			lines = append(lines, s.interpLine(line))
		}
	}

	set := s.table.Set(args.Source.Path, lines)
	bps := make([]godap.Breakpoint, 0, len(set))
	for _, bp := range set {
		bps = append(bps, s.toBreakpoint(bp))
	}
	s.send(&godap.SetBreakpointsResponse{
		Response: dap.NewResponse(&req.Request),
		Body:     godap.SetBreakpointsResponseBody{Breakpoints: bps},
	})
}

func (s *Session) onBreakpointLocations(req *godap.BreakpointLocationsRequest) {
	args := req.Arguments
	locations := []godap.BreakpointLocation{}
	if s.table.Has(args.Source.Path, s.interpLine(args.Line)) {
		locations = append(locations, godap.BreakpointLocation{Line: args.Line})
	}
	s.send(&godap.BreakpointLocationsResponse{
		Response: dap.NewResponse(&req.Request),
		Body:     godap.BreakpointLocationsResponseBody{Breakpoints: locations},
	})
}

func (s *Session) toBreakpoint(bp Breakpoint) godap.Breakpoint {
	return godap.Breakpoint{
		Id:       bp.ID,
		Verified: bp.Verified,
		Line:     s.clientLine(bp.Line),
		Source:   &godap.Source{Name: filepath.Base(bp.Path), Path: bp.Path},
	}
}

// resume moves a suspended session back to running.
func (s *Session) resume(fn func(*Bridge)) {
	s.mu.Lock()
	b := s.bridge
	if s.state == StateSuspended {
		s.state = StateRunning
	}
	s.mu.Unlock()
	if b != nil {
		fn(b)
	}
}

func (s *Session) onContinue(req *godap.ContinueRequest) {
	s.resume((*Bridge).Continue)
	s.send(&godap.ContinueResponse{
		Response: dap.NewResponse(&req.Request),
		Body:     godap.ContinueResponseBody{AllThreadsContinued: true},
	})
}

func (s *Session) onNext(req *godap.NextRequest) {
	s.resume((*Bridge).Next)
	s.send(&godap.NextResponse{Response: dap.NewResponse(&req.Request)})
}

func (s *Session) onPause(req *godap.PauseRequest) {
	s.mu.Lock()
	b := s.bridge
	s.mu.Unlock()
	if b != nil {
		b.Pause()
	}
	s.send(&godap.PauseResponse{Response: dap.NewResponse(&req.Request)})
}

func (s *Session) unsupportedStep(req *godap.Request, name string) {
	msg := name + " is not supported."
	s.send(dap.NewErrorResponse(req, msg))
	s.send(dap.OutputEvent(dap.CategoryImportant, msg, 0))
}

// lastActive returns the context of the most recent suspension.
func (s *Session) lastActive() *interp.Context {
	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()
	if engine == nil {
		return nil
	}
	return engine.LastActive()
}

func (s *Session) onStackTrace(req *godap.StackTraceRequest) {
	var frames []interp.Frame
	if ctx := s.lastActive(); ctx != nil {
		frames = ctx.Frames
	}

	start := req.Arguments.StartFrame
	if start < 0 {
		start = 0
	}
	if start > len(frames) {
		start = len(frames)
	}
	end := len(frames)
	if levels := req.Arguments.Levels; levels > 0 && start+levels < end {
		end = start + levels
	}

	stack := make([]godap.StackFrame, 0, end-start)
	for i := start; i < end; i++ {
		f := frames[i]
		sf := godap.StackFrame{
			Id:     i + 1,
			Name:   f.Name,
			Line:   s.clientLine(f.Line),
			Column: s.clientColumn(f.Column),
		}
		if f.File != "" {
			sf.Source = &godap.Source{Name: filepath.Base(f.File), Path: f.File}
		}
		stack = append(stack, sf)
	}
	s.send(&godap.StackTraceResponse{
		Response: dap.NewResponse(&req.Request),
		Body:     godap.StackTraceResponseBody{StackFrames: stack, TotalFrames: len(frames)},
	})
}

func (s *Session) onVariables(req *godap.VariablesRequest) {
	vars := []godap.Variable{}
	if ctx := s.lastActive(); ctx != nil && req.Arguments.VariablesReference == scopeRef {
		for _, b := range ctx.Bindings() {
			vars = append(vars, godap.Variable{
				Name:         b.Name,
				Value:        b.Value,
				Type:         b.Type,
				EvaluateName: b.Name,
			})
		}
	}
	s.send(&godap.VariablesResponse{
		Response: dap.NewResponse(&req.Request),
		Body:     godap.VariablesResponseBody{Variables: vars},
	})
}

func (s *Session) onEvaluate(req *godap.EvaluateRequest) {
	expr := req.Arguments.Expression

	s.mu.Lock()
	term, surface := s.term, s.surface
	s.mu.Unlock()
	if req.Arguments.Context == "repl" && term != nil && surface != nil && term.Waiting() {
		surface.Feed(expr + "\r")
		s.send(&godap.EvaluateResponse{Response: dap.NewResponse(&req.Request)})
		return
	}

	s.mu.Lock()
	engine := s.engine
	if engine == nil || s.closing {
		s.mu.Unlock()
		s.send(dap.NewErrorResponse(&req.Request, ErrNoProgramRunning.Error()))
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		// Failures are reported as the result text, like successes.
		result, err := engine.Inject(s.ctx, expr)
		switch {
		case err != nil:
			result = err.Error()
		case result == "":
			result = fmt.Sprintf("Execution of %s was successful.", expr)
		}
		s.send(&godap.EvaluateResponse{
			Response: dap.NewResponse(&req.Request),
			Body:     godap.EvaluateResponseBody{Result: result},
		})
	}()
}

// BreakpointChanged implements Notifier.
func (s *Session) BreakpointChanged(bp Breakpoint) {
	s.send(dap.BreakpointEvent("changed", s.toBreakpoint(bp)))
}

// Stopped implements Notifier. Output queued before the suspension is
// delivered ahead of the stopped event.
func (s *Session) Stopped(_ *interp.Context, reason string, hitIDs []int) {
	s.mu.Lock()
	s.state = StateSuspended
	out := s.output
	s.mu.Unlock()

	if out != nil {
		out.Queue().Flush()
	}
	s.send(dap.StoppedEvent(reason, threadID, hitIDs))
}

// interpLine converts a client line to a 1-based interpreter line.
func (s *Session) interpLine(line int) int {
	if s.linesStartAt1.Load() {
		return line
	}
	return line + 1
}

func (s *Session) clientLine(line int) int {
	if s.linesStartAt1.Load() {
		return line
	}
	return line - 1
}

func (s *Session) clientColumn(col int) int {
	if col <= 0 {
		col = 1
	}
	if s.columnsStartAt1.Load() {
		return col
	}
	return col - 1
}
