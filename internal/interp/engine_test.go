package interp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type printed struct {
	line    int
	text    string
	newline bool
}

// recorder is an OutputHandler that keeps everything printed.
type recorder struct {
	mu      sync.Mutex
	printed []printed
	waiting chan struct{}
	input   string
	key     KeyEvent
	block   bool
}

func newRecorder() *recorder {
	return &recorder{waiting: make(chan struct{}, 1)}
}

func (r *recorder) Print(line int, text string, newline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printed = append(r.printed, printed{line, text, newline})
}

func (r *recorder) Clear() {}

func (r *recorder) Progress(<-chan struct{}, time.Duration) {}

func (r *recorder) WaitForInput(exit <-chan struct{}, _ bool, prompt string) string {
	if prompt != "" {
		r.Print(0, prompt, false)
	}
	if r.block {
		r.waiting <- struct{}{}
		<-exit
		return ""
	}
	return r.input
}

func (r *recorder) WaitForKeyPress(<-chan struct{}, string) KeyEvent {
	return r.key
}

func (r *recorder) text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for _, p := range r.printed {
		b.WriteString(p.text)
		if p.newline {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// lineDebugger suspends on the listed lines until Resume is called.
type lineDebugger struct {
	lines map[int]bool
	hits  chan *Context

	mu      sync.Mutex
	proceed bool
	wake    chan struct{}
}

func newLineDebugger(lines ...int) *lineDebugger {
	d := &lineDebugger{
		lines: make(map[int]bool),
		hits:  make(chan *Context, 16),
		wake:  make(chan struct{}),
	}
	for _, l := range lines {
		d.lines[l] = true
	}
	return d
}

func (d *lineDebugger) GetBreakpoint(ctx *Context) bool {
	return d.lines[ctx.Line()]
}

func (d *lineDebugger) Interact(ctx *Context) {
	d.hits <- ctx
}

func (d *lineDebugger) Proceed() (bool, <-chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.proceed {
		d.proceed = false
		return true, nil
	}
	return false, d.wake
}

func (d *lineDebugger) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.proceed = true
	close(d.wake)
	d.wake = make(chan struct{})
}

func writeProgram(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func runProgram(t *testing.T, src string, opts Options) (*recorder, error) {
	t.Helper()
	rec := newRecorder()
	opts.Output = rec
	e := New(opts)
	e.SetTarget(writeProgram(t, t.TempDir(), "main.lua", src))
	return rec, e.Run(context.Background())
}

const sampleProgram = `local t = {}
for i = 1, 5 do t[#t + 1] = i * i end
local function sum(list, ...)
  local s = 0
  for _, v in ipairs(list) do s = s + v end
  for _, v in ipairs({...}) do s = s + v end
  return s
end
local n = 0
while n < 3 do n = n + 1 end
repeat n = n - 1 until n == 0
local obj = {v = 2}
function obj:double() return self.v * 2 end
if sum(t) > 100 then print("big") elseif sum(t) > 10 then print("mid") else print("small") end
print(sum(t, 1, 2), obj:double(), n)
local fib
fib = function(k) if k < 2 then return k end return fib(k - 1) + fib(k - 2) end
print(fib(10), string.format("%05.1f", 3.14159))
do local s = "" for w in string.gmatch("a b c", "%a") do s = s .. w end print(s) end
`

func TestInstrumentedProgramMatchesPlainRun(t *testing.T) {
	var plain strings.Builder
	L := lua.NewState()
	defer L.Close()
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		plain.WriteString(strings.Join(parts, "\t") + "\n")
		return 0
	}))
	require.NoError(t, L.DoString(sampleProgram))

	rec, err := runProgram(t, sampleProgram, Options{})
	require.NoError(t, err)
	assert.Equal(t, plain.String(), rec.text())
	assert.Equal(t, "mid\n58\t4\t0\n55\t003.1\nabc\n", rec.text())
}

func TestPrintCarriesSourceLine(t *testing.T) {
	rec, err := runProgram(t, "local x = 1\nprint('a', x)\nterm.write('b')\nterm.write('c', true)\n", Options{})
	require.NoError(t, err)

	assert.Equal(t, []printed{
		{2, "a\t1", true},
		{3, "b", false},
		{4, "c", true},
	}, rec.printed)
}

func TestArgsAndEnvironment(t *testing.T) {
	rec := newRecorder()
	e := New(Options{
		Output:      rec,
		Environment: map[string]string{"HOME_DIR": "/x"},
	})
	e.SetTarget(writeProgram(t, t.TempDir(), "main.lua",
		"print(arg[1], arg[2], #arg, env.HOME_DIR, os.getenv('HOME_DIR'), os.getenv('PATH'))\n"))
	e.SetParams([]string{"a", "b"})

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, "a\tb\t2\t/x\t/x\tnil\n", rec.text())
	assert.Equal(t, []string{"a", "b"}, e.Params())
}

func TestSandboxRemovesLoaders(t *testing.T) {
	rec, err := runProgram(t, "print(dofile, loadfile, load, io, os.execute)\n", Options{})
	require.NoError(t, err)
	assert.Equal(t, "nil\tnil\tnil\tnil\tnil\n", rec.text())
}

func TestSeedIsDeterministic(t *testing.T) {
	src := "print(math.random(1, 1000000), math.random(1, 1000000))\n"
	first, err := runProgram(t, src, Options{Seed: "luadap"})
	require.NoError(t, err)
	second, err := runProgram(t, src, Options{Seed: "luadap"})
	require.NoError(t, err)
	assert.Equal(t, first.text(), second.text())

	other, err := runProgram(t, src, Options{Seed: "another seed"})
	require.NoError(t, err)
	assert.NotEqual(t, first.text(), other.text())
}

func TestRandomSeedRestartsSequence(t *testing.T) {
	src := "math.randomseed(7)\nlocal a = math.random(1, 1000000)\nmath.randomseed(7)\nprint(a == math.random(1, 1000000), math.random(3, 3), math.random() < 1)\n"
	rec, err := runProgram(t, src, Options{})
	require.NoError(t, err)
	assert.Equal(t, "true\t3\ttrue\n", rec.text())

	_, err = runProgram(t, "print(math.random(0))\n", Options{})
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Contains(t, rt.Message, "interval is empty")
}

func TestTerminalInputAndKeyPress(t *testing.T) {
	rec := newRecorder()
	rec.input = "world"
	rec.key = KeyEvent{Name: "Up", Code: 257}
	e := New(Options{Output: rec})
	e.SetTarget(writeProgram(t, t.TempDir(), "main.lua",
		"local name = term.input('Name: ')\nprint('hello ' .. name)\nlocal k = term.keypress('key')\nprint(k.name, k.key, k.char, k.code)\n"))

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, "Name: hello world\nUp\tUp\t\t257\n", rec.text())
}

func TestExitUnblocksInput(t *testing.T) {
	rec := newRecorder()
	rec.block = true
	e := New(Options{Output: rec})
	e.SetTarget(writeProgram(t, t.TempDir(), "main.lua", "local name = term.input('? ')\nprint('got ' .. name)\n"))

	assert.ErrorIs(t, e.Exit(), ErrNotRunning)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	<-rec.waiting
	require.NoError(t, e.Exit())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after Exit")
	}
	assert.NotContains(t, rec.text(), "got")
	assert.False(t, e.Running())

	select {
	case <-e.Exited():
	default:
		t.Fatal("Exited should be closed when idle")
	}
}

func TestRunTwiceConcurrentlyFails(t *testing.T) {
	rec := newRecorder()
	rec.block = true
	e := New(Options{Output: rec})
	e.SetTarget(writeProgram(t, t.TempDir(), "main.lua", "term.input()\n"))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	<-rec.waiting

	assert.ErrorIs(t, e.Run(context.Background()), ErrAlreadyRunning)
	require.NoError(t, e.Exit())
	require.NoError(t, <-done)
}

func TestNoTarget(t *testing.T) {
	assert.ErrorIs(t, New(Options{}).Run(context.Background()), ErrNoTarget)
}

func TestPrepareErrors(t *testing.T) {
	t.Run("syntax", func(t *testing.T) {
		_, err := runProgram(t, "local = 1\n", Options{})
		var pe *PrepareError
		require.ErrorAs(t, err, &pe)
		assert.True(t, strings.HasSuffix(pe.Target, "main.lua"))
	})

	t.Run("missing file", func(t *testing.T) {
		e := New(Options{})
		e.SetTarget(filepath.Join(t.TempDir(), "absent.lua"))
		var pe *PrepareError
		require.ErrorAs(t, e.Run(context.Background()), &pe)
		assert.ErrorIs(t, pe, os.ErrNotExist)
	})

	t.Run("missing module", func(t *testing.T) {
		_, err := runProgram(t, "local m = require('nowhere')\n", Options{})
		var pe *PrepareError
		require.ErrorAs(t, err, &pe)
		assert.True(t, strings.HasSuffix(pe.Target, "nowhere.lua"))
	})
}

func TestRuntimeError(t *testing.T) {
	_, err := runProgram(t, "local a = 1\nerror('boom')\n", Options{})

	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, 2, rt.Line)
	assert.Contains(t, rt.Message, "boom")
	assert.True(t, strings.HasSuffix(rt.Target, "main.lua"))
	assert.Contains(t, rt.Trace, "stack traceback")
}

func TestStatementLimit(t *testing.T) {
	_, err := runProgram(t, "local i = 0\nwhile true do i = i + 1 end\n", Options{StatementLimit: 100})

	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Contains(t, rt.Message, ErrStatementLimit.Error())
}

func TestBreakpointSuspendsAndCaptures(t *testing.T) {
	src := `local greeting = "hi"
counter = 3
local function add(a, b)
  local sum = a + b
  return sum
end
print(add(1, 2), greeting)
`
	rec := newRecorder()
	dbg := newLineDebugger(5)
	e := New(Options{Output: rec})
	e.SetTarget(writeProgram(t, t.TempDir(), "main.lua", src))
	e.SetDebugger(dbg)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	ctx := <-dbg.hits
	assert.Equal(t, 5, ctx.Line())
	assert.False(t, ctx.IsGlobal)
	require.Len(t, ctx.Frames, 2)
	assert.Equal(t, KindReturn, ctx.Frames[0].Kind)
	assert.Equal(t, 1, ctx.Frames[0].Column)
	assert.Equal(t, "main chunk", ctx.Frames[1].Name)
	assert.Equal(t, 7, ctx.Frames[1].Line)

	assert.Equal(t, []Binding{
		{Name: "a", Value: "1", Type: "number"},
		{Name: "b", Value: "2", Type: "number"},
		{Name: "sum", Value: "3", Type: "number"},
	}, ctx.Locals)
	assert.Contains(t, ctx.Globals, Binding{Name: "greeting", Value: `"hi"`, Type: "string"})
	assert.Contains(t, ctx.Globals, Binding{Name: "counter", Value: "3", Type: "number"})
	for _, b := range ctx.Globals {
		assert.NotEqual(t, checkpointName, b.Name)
		assert.NotEqual(t, "print", b.Name)
	}
	assert.Same(t, ctx, e.LastActive())
	assert.Empty(t, rec.text(), "nothing runs past the breakpoint")

	dbg.Resume()
	require.NoError(t, <-done)
	assert.Equal(t, "3\thi\n", rec.text())
}

func TestInjectAssignsLocals(t *testing.T) {
	src := `local function bump(x)
  local y = x * 2
  return y
end
print(bump(5), seen)
`
	rec := newRecorder()
	dbg := newLineDebugger(3)
	e := New(Options{Output: rec})
	e.SetTarget(writeProgram(t, t.TempDir(), "main.lua", src))
	e.SetDebugger(dbg)

	_, err := e.Inject(context.Background(), "y = 1")
	assert.ErrorIs(t, err, ErrNotRunning)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	<-dbg.hits

	value, err := e.Inject(context.Background(), "y = y + x + 1\nseen = true")
	require.NoError(t, err)
	assert.Empty(t, value)
	assert.Contains(t, e.LastActive().Locals, Binding{Name: "y", Value: "16", Type: "number"})

	value, err = e.Inject(context.Background(), "x * y")
	require.NoError(t, err)
	assert.Equal(t, "80", value)

	_, err = e.Inject(context.Background(), "error('nope')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	_, err = e.Inject(context.Background(), "this is not lua")
	require.Error(t, err)

	dbg.Resume()
	require.NoError(t, <-done)
	assert.Equal(t, "16\ttrue\n", rec.text())
}

func TestInjectRequiresSuspension(t *testing.T) {
	rec := newRecorder()
	rec.block = true
	e := New(Options{Output: rec})
	e.SetTarget(writeProgram(t, t.TempDir(), "main.lua", "term.input()\n"))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	<-rec.waiting

	_, err := e.Inject(context.Background(), "x = 1")
	assert.ErrorIs(t, err, ErrNotSuspended)
	require.NoError(t, e.Exit())
	require.NoError(t, <-done)
}

func TestExitWhileSuspended(t *testing.T) {
	dbg := newLineDebugger(2)
	e := New(Options{})
	e.SetTarget(writeProgram(t, t.TempDir(), "main.lua", "local a = 1\nlocal b = 2\n"))
	e.SetDebugger(dbg)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	<-dbg.hits

	require.NoError(t, e.Exit())
	require.NoError(t, <-done)
}

func TestRequireInstrumentsModules(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "lib/util.lua", `local M = {}
function M.twice(n)
  return n * 2
end
return M
`)
	main := writeProgram(t, dir, "main.lua", "local util = require('lib.util')\nlocal again = require('lib.util')\nprint(util.twice(4), util == again)\n")

	rec := newRecorder()
	dbg := newLineDebugger(3)
	e := New(Options{Output: rec})
	e.SetTarget(main)
	e.SetDebugger(dbg)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	// Line 3 of main.lua is reached first, then line 3 of the module.
	first := <-dbg.hits
	assert.True(t, strings.HasSuffix(first.File(), "main.lua"))
	dbg.Resume()

	second := <-dbg.hits
	assert.True(t, strings.HasSuffix(second.File(), filepath.Join("lib", "util.lua")))
	assert.Equal(t, "main chunk", second.Frames[len(second.Frames)-1].Name)
	dbg.Resume()

	require.NoError(t, <-done)
	assert.Equal(t, "8\ttrue\n", rec.text())
}

func TestRequireBuiltinModule(t *testing.T) {
	rec, err := runProgram(t, "local s = require('string')\nprint(s.upper('x'))\n", Options{})
	require.NoError(t, err)
	assert.Equal(t, "X\n", rec.text())
}

func TestClassifyUnexpected(t *testing.T) {
	err := classify(errors.New("disk on fire"), "main.lua", 0)
	assert.Contains(t, err.Error(), "disk on fire")

	var pe *PrepareError
	var rt *RuntimeError
	assert.False(t, errors.As(err, &pe))
	assert.False(t, errors.As(err, &rt))
}
