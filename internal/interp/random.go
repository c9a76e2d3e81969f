package interp

import (
	"hash/fnv"
	"math/rand"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// installRandom replaces math.random and math.randomseed with functions
// backed by a source private to the run. A configured seed makes the
// sequence repeatable; runs never share state with each other.
func (x *execution) installRandom(L *lua.LState) {
	m, ok := L.GetGlobal(lua.MathLibName).(*lua.LTable)
	if !ok {
		return
	}

	src := rand.New(rand.NewSource(seedValue(x.engine.opts.Seed)))
	L.SetFuncs(m, map[string]lua.LGFunction{
		"random": func(L *lua.LState) int {
			switch L.GetTop() {
			case 0:
				L.Push(lua.LNumber(src.Float64()))
			case 1:
				n := L.CheckInt(1)
				if n < 1 {
					L.ArgError(1, "interval is empty")
				}
				L.Push(lua.LNumber(src.Intn(n) + 1))
			default:
				lo, hi := L.CheckInt(1), L.CheckInt(2)
				if hi < lo {
					L.ArgError(2, "interval is empty")
				}
				L.Push(lua.LNumber(src.Intn(hi-lo+1) + lo))
			}
			return 1
		},
		"randomseed": func(L *lua.LState) int {
			src.Seed(L.CheckInt64(1))
			return 0
		},
	})
}

// seedValue hashes a configured seed. An empty seed yields a time based
// value.
func seedValue(seed string) int64 {
	if seed == "" {
		return time.Now().UnixNano()
	}
	h := fnv.New64a()
	h.Write([]byte(seed))
	return int64(h.Sum64())
}
