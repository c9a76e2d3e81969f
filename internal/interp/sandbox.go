package interp

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// libraries opened for every program. io, package and debug stay closed:
// require is provided by the engine and the debugger owns introspection.
var libraries = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
	{lua.CoroutineLibName, lua.OpenCoroutine},
	{lua.OsLibName, lua.OpenOs},
}

// removedGlobals would let a program run code that bypasses instrumentation.
var removedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "module"}

// osAllowed lists the os functions a program keeps.
var osAllowed = map[string]bool{
	"clock":    true,
	"date":     true,
	"difftime": true,
	"time":     true,
}

// openLibraries opens the allowed standard libraries and trims them.
func openLibraries(L *lua.LState, environment map[string]string) error {
	for _, lib := range libraries {
		err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name))
		if err != nil {
			return fmt.Errorf("open %q library: %w", lib.name, err)
		}
	}

	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	if os, ok := L.GetGlobal(lua.OsLibName).(*lua.LTable); ok {
		var drop []lua.LValue
		os.ForEach(func(k, _ lua.LValue) {
			if !osAllowed[lua.LVAsString(k)] {
				drop = append(drop, k)
			}
		})
		for _, k := range drop {
			os.RawSet(k, lua.LNil)
		}
		os.RawSetString("getenv", L.NewFunction(func(L *lua.LState) int {
			if v, ok := environment[L.CheckString(1)]; ok {
				L.Push(lua.LString(v))
				return 1
			}
			L.Push(lua.LNil)
			return 1
		}))
	}
	return nil
}

// builtinModules are answered by require without touching the disk.
var builtinModules = map[string]bool{
	lua.TabLibName:       true,
	lua.StringLibName:    true,
	lua.MathLibName:      true,
	lua.CoroutineLibName: true,
	lua.OsLibName:        true,
}
