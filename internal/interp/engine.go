package interp

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultCallStackSize bounds the Lua call depth.
const DefaultCallStackSize = 256

// Options configures an Engine.
type Options struct {
	// Output receives print and terminal traffic. Defaults to a handler
	// that discards output and answers reads with empty input.
	Output OutputHandler

	// Environment is exposed to programs as the env table and os.getenv.
	Environment map[string]string

	// Seed, when set, seeds math.random before the program starts.
	Seed string

	// StatementLimit aborts a run after this many statements. Zero means
	// unlimited.
	StatementLimit int64

	// CallStackSize is the maximum Lua call depth.
	CallStackSize int

	Logger *zap.Logger
}

// Engine runs Lua programs one at a time under an optional Debugger.
//
// Run executes on the caller's goroutine, which owns the interpreter state
// for the duration of the run. All other methods may be called from any
// goroutine.
type Engine struct {
	opts   Options
	logger *zap.Logger

	mu         sync.Mutex
	target     string
	params     []string
	debugger   Debugger
	lastActive *Context
	run        *runState
}

// runState is shared between the interpreter goroutine and callers of
// Exit and Inject.
type runState struct {
	exit     chan struct{}
	exitOnce sync.Once
	cancel   context.CancelFunc
	exiting  atomic.Bool
	done     chan struct{}

	inject chan *injection

	mu     sync.Mutex
	parked chan struct{}
}

func (rs *runState) close() {
	rs.exitOnce.Do(func() {
		close(rs.exit)
	})
}

// park marks the interpreter as suspended and returns a func that undoes it.
func (rs *runState) park() func() {
	ch := make(chan struct{})
	rs.mu.Lock()
	rs.parked = ch
	rs.mu.Unlock()
	return func() {
		rs.mu.Lock()
		rs.parked = nil
		rs.mu.Unlock()
		close(ch)
	}
}

func (rs *runState) parkedChan() chan struct{} {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.parked
}

type injection struct {
	code   string
	result chan injectionResult
}

type injectionResult struct {
	value string
	err   error
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Output == nil {
		opts.Output = discardOutput{}
	}
	if opts.CallStackSize <= 0 {
		opts.CallStackSize = DefaultCallStackSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		opts:   opts,
		logger: logger.Named("interp"),
	}
}

// SetTarget sets the program file run by the next Run.
func (e *Engine) SetTarget(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = path
}

// Target returns the program file.
func (e *Engine) Target() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

// SetParams sets the program arguments exposed as arg[1..n].
func (e *Engine) SetParams(params []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = append([]string(nil), params...)
}

// Params returns the program arguments.
func (e *Engine) Params() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.params...)
}

// SetDebugger installs the debugger consulted by the next Run. A nil
// debugger never suspends.
func (e *Engine) SetDebugger(d Debugger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debugger = d
}

// SetOutput replaces the output handler used by the next Run.
func (e *Engine) SetOutput(out OutputHandler) {
	if out == nil {
		out = discardOutput{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Output = out
}

// LastActive returns the context captured at the most recent suspension of
// the current or last run, or nil.
func (e *Engine) LastActive() *Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActive
}

func (e *Engine) setLastActive(ctx *Context) {
	e.mu.Lock()
	e.lastActive = ctx
	e.mu.Unlock()
}

// Running reports whether a program is executing.
func (e *Engine) Running() bool {
	return e.current() != nil
}

// Exited returns a channel closed when the current run ends or is asked to
// exit. When nothing runs the channel is already closed.
func (e *Engine) Exited() <-chan struct{} {
	if rs := e.current(); rs != nil {
		return rs.exit
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (e *Engine) current() *runState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run
}

// Run executes the target program and blocks until it finishes, fails or
// is exited. A program stopped by Exit returns nil.
//
// Errors are *PrepareError when the program cannot be loaded and
// *RuntimeError when it raises a Lua error. Anything else carries a stack
// trace.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.run != nil {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	if e.target == "" {
		e.mu.Unlock()
		return ErrNoTarget
	}

	runCtx, cancel := context.WithCancel(ctx)
	rs := &runState{
		exit:   make(chan struct{}),
		cancel: cancel,
		done:   make(chan struct{}),
		inject: make(chan *injection),
	}
	e.run = rs
	e.lastActive = nil

	target, err := filepath.Abs(e.target)
	if err != nil {
		target = e.target
	}
	x := &execution{
		engine:   e,
		run:      rs,
		target:   target,
		params:   append([]string(nil), e.params...),
		debugger: e.debugger,
		output:   e.opts.Output,
		file:     target,
	}
	e.mu.Unlock()

	stop := context.AfterFunc(runCtx, rs.close)
	defer func() {
		stop()
		cancel()
		rs.close()
		e.mu.Lock()
		e.run = nil
		e.mu.Unlock()
		close(rs.done)
	}()

	e.logger.Debug("run started", zap.String("target", target), zap.Strings("params", x.params))
	err = x.execute(runCtx)
	if err != nil {
		e.logger.Debug("run failed", zap.String("target", target), zap.Error(err))
	}
	return err
}

// Exit stops the current run. Blocking waits inside the program return and
// the interpreter aborts at its next instruction.
func (e *Engine) Exit() error {
	rs := e.current()
	if rs == nil {
		return ErrNotRunning
	}
	rs.exiting.Store(true)
	rs.cancel()
	rs.close()
	return nil
}

// Wait blocks until the current run, if any, has returned.
func (e *Engine) Wait(ctx context.Context) error {
	rs := e.current()
	if rs == nil {
		return nil
	}
	select {
	case <-rs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inject executes code inside the suspended frame. Locals of that frame can
// be read and assigned; other names resolve to globals. Checkpoints are
// disarmed while the code runs, so it never suspends.
//
// code may be an expression, whose rendered value is returned, or a block
// of statements, which yields an empty value.
func (e *Engine) Inject(ctx context.Context, code string) (string, error) {
	rs := e.current()
	if rs == nil {
		return "", ErrNotRunning
	}
	parked := rs.parkedChan()
	if parked == nil {
		return "", ErrNotSuspended
	}

	inj := &injection{code: code, result: make(chan injectionResult, 1)}
	select {
	case rs.inject <- inj:
	case <-parked:
		return "", ErrNotSuspended
	case <-rs.exit:
		return "", ErrNotRunning
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case res := <-inj.result:
		return res.value, res.err
	case <-rs.done:
		return "", ErrNotRunning
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
