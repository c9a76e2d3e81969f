package interp

import (
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// errModuleLoop is raised when a module requires itself while loading.
const errModuleLoop = "loop or previous error loading module '%s'"

// loadingSentinel marks a module whose chunk is still executing.
var loadingSentinel = lua.LString("\x00loading")

func (x *execution) installBuiltins(L *lua.LState) {
	L.SetGlobal(checkpointName, L.NewFunction(x.checkpoint))
	L.SetGlobal("print", L.NewFunction(x.print))
	L.SetGlobal("require", L.NewFunction(x.require))

	term := L.NewTable()
	L.SetFuncs(term, map[string]lua.LGFunction{
		"write":    x.termWrite,
		"clear":    x.termClear,
		"progress": x.termProgress,
		"input":    x.termInput,
		"keypress": x.termKeyPress,
	})
	L.SetGlobal("term", term)

	arg := L.NewTable()
	arg.RawSetInt(0, lua.LString(x.target))
	for i, p := range x.params {
		arg.RawSetInt(i+1, lua.LString(p))
	}
	L.SetGlobal("arg", arg)

	env := L.NewTable()
	for k, v := range x.engine.opts.Environment {
		env.RawSetString(k, lua.LString(v))
	}
	L.SetGlobal("env", env)

	x.modules = make(map[string]lua.LValue)
}

// print joins its arguments with tabs, like the standard print, and sends
// the line to the output handler.
func (x *execution) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	x.output.Print(x.line, strings.Join(parts, "\t"), true)
	return 0
}

func (x *execution) termWrite(L *lua.LState) int {
	text := L.ToStringMeta(L.CheckAny(1)).String()
	x.output.Print(x.line, text, L.OptBool(2, false))
	return 0
}

func (x *execution) termClear(L *lua.LState) int {
	x.output.Clear()
	return 0
}

func (x *execution) termProgress(L *lua.LState) int {
	ms := L.CheckInt64(1)
	x.output.Progress(x.run.exit, time.Duration(ms)*time.Millisecond)
	return 0
}

func (x *execution) termInput(L *lua.LState) int {
	prompt := L.OptString(1, "")
	isPassword := L.OptBool(2, false)
	L.Push(lua.LString(x.output.WaitForInput(x.run.exit, isPassword, prompt)))
	return 1
}

func (x *execution) termKeyPress(L *lua.LState) int {
	key := x.output.WaitForKeyPress(x.run.exit, L.OptString(1, ""))

	t := L.NewTable()
	t.RawSetString("key", lua.LString(key.Name))
	t.RawSetString("name", lua.LString(key.Name))
	t.RawSetString("char", lua.LString(key.Char))
	t.RawSetString("code", lua.LNumber(key.Code))
	L.Push(t)
	return 1
}

// require loads name.lua relative to the program directory. Modules are
// instrumented like the program itself and cached per run.
func (x *execution) require(L *lua.LState) int {
	name := L.CheckString(1)
	if builtinModules[name] {
		L.Push(L.GetGlobal(name))
		return 1
	}

	if v, ok := x.modules[name]; ok {
		if v == loadingSentinel {
			L.RaiseError(errModuleLoop, name)
		}
		L.Push(v)
		return 1
	}

	path := filepath.Join(filepath.Dir(x.target), filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))+".lua")
	proto, err := compileFile(path)
	if err != nil {
		ud := L.NewUserData()
		ud.Value = err
		L.Error(ud, 1)
		return 0
	}

	x.modules[name] = loadingSentinel
	L.Push(L.NewFunctionFromProto(proto))
	L.Push(lua.LString(name))
	L.Call(1, 1)

	result := L.Get(-1)
	L.Pop(1)
	if result == lua.LNil {
		result = lua.LTrue
	}
	x.modules[name] = result
	L.Push(result)
	return 1
}
