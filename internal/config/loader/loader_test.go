package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"log":      map[string]any{"level": "info", "file": "a.log"},
		"terminal": "x",
	}
	src := map[string]any{
		"log":      map[string]any{"level": "debug"},
		"terminal": map[string]any{"name": "T"},
	}

	got := DeepMerge(dst, src)
	assert.Equal(t, map[string]any{"level": "debug", "file": "a.log"}, got["log"])
	assert.Equal(t, map[string]any{"name": "T"}, got["terminal"])
}

func TestEnvToPath(t *testing.T) {
	l := NewEnvLoader(EnvPrefix)
	assert.Equal(t, "terminal.progressWidth", l.envToPath("LUADAP_TERMINAL_PROGRESS_WIDTH"))
	assert.Equal(t, "launch.watchDebounceMs", l.envToPath("LUADAP_LAUNCH_WATCH_DEBOUNCE_MS"))
	assert.Equal(t, "log", l.envToPath("LUADAP_LOG"))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("yes"))
	assert.Equal(t, false, parseValue("off"))
	assert.Equal(t, int64(42), parseValue("42"))
	assert.Equal(t, 1.5, parseValue("1.5"))
	assert.Equal(t, []any{"a", "b"}, parseValue(`["a","b"]`))
	assert.Equal(t, "plain", parseValue("plain"))
}

func TestEnvLoaderKeepsStrings(t *testing.T) {
	l := NewEnvLoaderFrom(EnvPrefix, []string{"LUADAP_SEED=007", "LUADAP_STATEMENT_LIMIT=10", "LUADAP_ENV_a.b=c"})
	got, err := l.Load()
	assert.NoError(t, err)
	interp := got["interpreter"].(map[string]any)
	assert.Equal(t, "007", interp["seed"])
	assert.Equal(t, int64(10), interp["statementLimit"])
	assert.Equal(t, map[string]any{"a.b": "c"}, interp["environment"])
}
