package interp

import (
	"sort"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

const (
	// previewEntries bounds the number of table entries shown in a value.
	previewEntries = 8

	maxCaptureDepth = 200
)

// capture builds a Context for the statement at line. It must be called
// from the checkpoint, where stack level 1 is the instrumented caller.
func (x *execution) capture(L *lua.LState, line int, file, kind string) *Context {
	ctx := &Context{Target: file}

	var top, main *lua.Debug
	for level := 1; level < maxCaptureDepth; level++ {
		dbg, ok := L.GetStack(level)
		if !ok {
			break
		}
		if _, err := L.GetInfo("Sln", dbg, lua.LNil); err != nil {
			break
		}
		if dbg.What == "G" {
			continue
		}

		frame := Frame{
			Name:   dbg.Name,
			Kind:   KindCall,
			File:   dbg.Source,
			Line:   dbg.CurrentLine,
			Column: 1,
		}
		if top == nil {
			top = dbg
			frame.Kind, frame.File, frame.Line = kind, file, line
		}
		ctx.Frames = append(ctx.Frames, frame)

		if dbg.What == "main" {
			main = dbg
			break
		}
	}

	if top != nil && top != main {
		ctx.Locals = frameLocals(L, top)
	}
	ctx.IsGlobal = top == main

	if main != nil {
		ctx.Globals = frameLocals(L, main)
	}
	ctx.Globals = append(ctx.Globals, x.userGlobals(L)...)
	return ctx
}

// frameLocals lists the named locals of a frame. When a name is declared
// twice the innermost declaration wins.
func frameLocals(L *lua.LState, dbg *lua.Debug) []Binding {
	index := make(map[string]int)
	var out []Binding
	for i := 1; ; i++ {
		name, value := L.GetLocal(dbg, i)
		if name == "" {
			break
		}
		if isInternalName(name) {
			continue
		}
		b := bind(name, value)
		if at, ok := index[name]; ok {
			out[at] = b
			continue
		}
		index[name] = len(out)
		out = append(out, b)
	}
	return out
}

// userGlobals lists globals the program defined, sorted by name.
func (x *execution) userGlobals(L *lua.LState) []Binding {
	var out []Binding
	L.G.Global.ForEach(func(k, v lua.LValue) {
		s, ok := k.(lua.LString)
		if !ok || x.baseline[string(s)] {
			return
		}
		out = append(out, bind(string(s), v))
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func bind(name string, v lua.LValue) Binding {
	return Binding{Name: name, Value: describe(v, true), Type: v.Type().String()}
}

// describe renders a value the way it is shown in a variables view.
// Strings are quoted and tables are previewed one level deep.
func describe(v lua.LValue, expand bool) string {
	switch val := v.(type) {
	case lua.LString:
		return strconv.Quote(string(val))
	case *lua.LTable:
		if !expand {
			return "{…}"
		}
		return previewTable(val)
	default:
		return v.String()
	}
}

func previewTable(t *lua.LTable) string {
	var parts []string
	n := t.Len()
	for i := 1; i <= n && len(parts) < previewEntries; i++ {
		parts = append(parts, describe(t.RawGetInt(i), false))
	}

	more := false
	k, v := t.Next(lua.LNil)
	for k != lua.LNil {
		if num, ok := k.(lua.LNumber); !ok || !isArrayIndex(num, n) {
			if len(parts) >= previewEntries {
				more = true
				break
			}
			parts = append(parts, tableKey(k)+" = "+describe(v, false))
		}
		k, v = t.Next(k)
	}
	if n > previewEntries {
		more = true
	}
	if more {
		parts = append(parts, "…")
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func isArrayIndex(num lua.LNumber, n int) bool {
	f := float64(num)
	return f >= 1 && f <= float64(n) && f == float64(int(f))
}

func tableKey(k lua.LValue) string {
	if s, ok := k.(lua.LString); ok && isIdentifier(string(s)) {
		return string(s)
	}
	return "[" + describe(k, false) + "]"
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
