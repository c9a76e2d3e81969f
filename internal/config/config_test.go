package config

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/luadap/internal/config/loader"
)

type mapFS struct{ fstest.MapFS }

func (m mapFS) ReadFile(path string) ([]byte, error) { return m.MapFS.ReadFile(path) }

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 256, cfg.Interpreter.CallStackSize)
	assert.Equal(t, "*", cfg.Terminal.PasswordMask)
	assert.True(t, cfg.Launch.PromptForArguments)
	assert.Equal(t, int64(100), cfg.Terminal.ProgressInterval().Milliseconds())
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	fsys := mapFS{fstest.MapFS{
		"luadap.toml": {Data: []byte(`
[interpreter]
seed = "abc"
statementLimit = 5000

[interpreter.environment]
HOME = "/home/lua"

[terminal]
progressWidth = 40
`)},
	}}

	cfg, err := LoadFrom(fsys, "luadap.toml", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Interpreter.Seed)
	assert.Equal(t, int64(5000), cfg.Interpreter.StatementLimit)
	assert.Equal(t, "/home/lua", cfg.Interpreter.Environment["HOME"])
	assert.Equal(t, 40, cfg.Terminal.ProgressWidth)
	// Untouched keys keep their defaults.
	assert.Equal(t, "Lua Debug", cfg.Terminal.Name)
	assert.Equal(t, 256, cfg.Interpreter.CallStackSize)
}

func TestLoadYAML(t *testing.T) {
	fsys := mapFS{fstest.MapFS{
		"luadap.yaml": {Data: []byte("launch:\n  promptForArguments: false\n  restartOnChange: true\nlog:\n  level: debug\n")},
	}}

	cfg, err := LoadFrom(fsys, "luadap.yaml", nil)
	require.NoError(t, err)
	assert.False(t, cfg.Launch.PromptForArguments)
	assert.True(t, cfg.Launch.RestartOnChange)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	fsys := mapFS{fstest.MapFS{
		"luadap.toml": {Data: []byte("[log]\nlevel = \"warn\"\n[interpreter]\nseed = \"file\"\n")},
	}}
	env := loader.NewEnvLoaderFrom(loader.EnvPrefix, []string{
		"LUADAP_LOG_LEVEL=error",
		"LUADAP_SEED=1",
		"LUADAP_ENV_GREETING=hi",
		"LUADAP_TERMINAL_PROGRESS_INTERVAL_MS=50",
		"OTHER=ignored",
	})

	cfg, err := LoadFrom(fsys, "luadap.toml", env)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "1", cfg.Interpreter.Seed)
	assert.Equal(t, "hi", cfg.Interpreter.Environment["GREETING"])
	assert.Equal(t, 50, cfg.Terminal.ProgressIntervalMS)
}

func TestLoadErrors(t *testing.T) {
	fsys := mapFS{fstest.MapFS{
		"bad.toml":  {Data: []byte("[interpreter\nseed = 1\n")},
		"conf.json": {Data: []byte("{}")},
		"big.toml":  {Data: []byte("[terminal]\nprogressWidth = 500\n")},
	}}

	_, err := LoadFrom(fsys, "missing.toml", nil)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	_, err = LoadFrom(fsys, "conf.json", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadFrom(fsys, "bad.toml", nil)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad.toml", perr.Path)
	assert.Positive(t, perr.Line)

	_, err = LoadFrom(fsys, "big.toml", nil)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "terminal.progressWidth", verr.Path)
}

func TestValidateLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	var verr *ValidationError
	require.True(t, errors.As(cfg.Validate(), &verr))
	assert.Equal(t, "enum", verr.Code)
}
