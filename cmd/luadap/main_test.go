package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/luadap/internal/config"
	"github.com/dshills/luadap/internal/config/loader"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.lua")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &lockedBuffer{}
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(""))
	root.SetOut(out)
	root.SetErr(out)
	err := root.Execute()
	return out.String(), err
}

func TestRunPrintsOutput(t *testing.T) {
	t.Setenv(loader.EnvPrefix+"ENV_GREETING", "hi")
	program := writeProgram(t, `print("hello", arg[1], #arg, os.getenv("GREETING"), env.NAME)`)

	out, err := execute(t, "run", "--env", "NAME=lua", program, "world", "--not-a-flag")
	require.NoError(t, err)
	assert.Contains(t, out, "hello\tworld\t2\thi\tlua")
}

func TestRunReportsRuntimeError(t *testing.T) {
	program := writeProgram(t, "local x = 1\nerror(\"boom\")\n")

	out, err := execute(t, "run", program)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "Runtime error:")
	assert.Contains(t, out, "boom")
}

func TestRunReportsPrepareError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.lua")

	out, err := execute(t, "run", missing)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "Prepare error:")
}

func TestRunRequiresProgram(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	program := writeProgram(t, `print("unreachable")`)

	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "luadap.toml"), "run", program)
	require.ErrorIs(t, err, config.ErrConfigNotFound)
}

func TestInvalidLogLevel(t *testing.T) {
	program := writeProgram(t, `print("unreachable")`)

	_, err := execute(t, "--log-level", "loud", "run", program)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "luadap dev (commit unknown, built unknown)\n", out)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Level: "debug", File: filepath.Join(t.TempDir(), "luadap.log")})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))
	_ = logger.Sync()

	_, err = newLogger(config.LogConfig{Level: "verbose"})
	require.Error(t, err)
}
