package interp

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// execution is the per-run interpreter. Every field below run is owned by
// the interpreter goroutine.
type execution struct {
	engine   *Engine
	run      *runState
	target   string
	params   []string
	debugger Debugger
	output   OutputHandler

	file      string
	line      int
	steps     int64
	injecting bool
	baseline  map[string]bool
	modules   map[string]lua.LValue
}

func (x *execution) execute(ctx context.Context) error {
	proto, err := compileFile(x.target)
	if err != nil {
		return err
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       x.engine.opts.CallStackSize,
		IncludeGoStackTrace: true,
	})
	defer L.Close()

	if err := openLibraries(L, x.engine.opts.Environment); err != nil {
		return classify(err, x.target, 0)
	}
	x.installBuiltins(L)
	x.installRandom(L)
	x.snapshotGlobals(L)

	L.SetContext(ctx)
	L.Push(L.NewFunctionFromProto(proto))
	err = L.PCall(0, lua.MultRet, nil)
	if err == nil {
		return nil
	}
	if x.run.exiting.Load() || ctx.Err() != nil {
		return nil
	}
	return classify(err, x.file, x.line)
}

// compileFile parses, instruments and compiles a Lua source file.
func compileFile(path string) (*lua.FunctionProto, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PrepareError{Target: path, Err: err}
	}
	defer f.Close()

	chunk, err := parse.Parse(bufio.NewReader(f), path)
	if err != nil {
		return nil, &PrepareError{Target: path, Err: err}
	}
	proto, err := lua.Compile(instrument(chunk, path), path)
	if err != nil {
		return nil, &PrepareError{Target: path, Err: err}
	}
	return proto, nil
}

// snapshotGlobals remembers the globals defined before the program starts
// so that only user globals are reported.
func (x *execution) snapshotGlobals(L *lua.LState) {
	x.baseline = make(map[string]bool)
	L.G.Global.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			x.baseline[string(s)] = true
		}
	})
}

// checkpoint is called by instrumented code before every statement with
// the statement's line, file and kind.
func (x *execution) checkpoint(L *lua.LState) int {
	if x.injecting {
		return 0
	}
	line := L.CheckInt(1)
	file := L.CheckString(2)
	kind := L.OptString(3, KindCall)
	x.line, x.file = line, file

	x.steps++
	if limit := x.engine.opts.StatementLimit; limit > 0 && x.steps > limit {
		L.RaiseError("%s", ErrStatementLimit.Error())
	}

	if x.debugger == nil {
		return 0
	}
	probe := &Context{
		Target: file,
		Frames: []Frame{{Kind: kind, File: file, Line: line, Column: 1}},
	}
	if !x.debugger.GetBreakpoint(probe) {
		return 0
	}

	unpark := x.run.park()
	defer unpark()

	captured := x.capture(L, line, file, kind)
	x.engine.setLastActive(captured)
	x.debugger.Interact(captured)
	x.suspend(L, line, file, kind)
	return 0
}

// suspend blocks the interpreter until the debugger lets it proceed or the
// run exits. Injected code is executed while waiting.
func (x *execution) suspend(L *lua.LState, line int, file, kind string) {
	for {
		ok, wake := x.debugger.Proceed()
		if ok {
			return
		}
		select {
		case <-wake:
		case <-x.run.exit:
			return
		case <-L.Context().Done():
			return
		case inj := <-x.run.inject:
			value, err := x.inject(L, inj.code)
			inj.result <- injectionResult{value: value, err: err}
			x.engine.setLastActive(x.capture(L, line, file, kind))
		}
	}
}

// inject runs code with the locals of the suspended frame in scope and
// writes assignments to those locals back into the frame. Code that parses
// as an expression is evaluated and its value returned.
func (x *execution) inject(L *lua.LState, code string) (string, error) {
	fn, err := L.Load(strings.NewReader("return "+code), "evaluate")
	if err != nil {
		fn, err = L.Load(strings.NewReader(code), "evaluate")
	}
	if err != nil {
		return "", evaluationError(err)
	}

	dbg, ok := L.GetStack(1)
	slots := make(map[string]int)
	if ok {
		for i := 1; ; i++ {
			name, _ := L.GetLocal(dbg, i)
			if name == "" {
				break
			}
			if isInternalName(name) {
				continue
			}
			slots[name] = i
		}
	}

	env := L.NewTable()
	for name, slot := range slots {
		_, v := L.GetLocal(dbg, slot)
		env.RawSetString(name, v)
	}
	meta := L.NewTable()
	meta.RawSetString("__index", L.G.Global)
	meta.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		t := L.CheckTable(1)
		k, v := L.CheckAny(2), L.Get(3)
		if s, ok := k.(lua.LString); ok {
			if _, local := slots[string(s)]; local {
				t.RawSet(k, v)
				return 0
			}
		}
		L.SetTable(L.G.Global, k, v)
		return 0
	}))
	L.SetMetatable(env, meta)
	fn.Env = env

	x.injecting = true
	L.Push(fn)
	err = L.PCall(0, 1, nil)
	x.injecting = false

	for name, slot := range slots {
		L.SetLocal(dbg, slot, env.RawGetString(name))
	}
	if err != nil {
		return "", evaluationError(err)
	}

	result := L.Get(-1)
	L.Pop(1)
	if result == lua.LNil {
		return "", nil
	}
	return describe(result, true), nil
}

func evaluationError(err error) error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return errors.New(apiErr.Object.String())
	}
	return err
}

// isInternalName reports compiler temporaries and engine names that are
// never shown to the user.
func isInternalName(name string) bool {
	return strings.HasPrefix(name, "(") || name == checkpointName
}
