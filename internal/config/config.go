// Package config holds luadap settings.
//
// Settings are layered: built-in defaults, then an optional TOML or YAML
// file, then LUADAP_ environment variables. Each layer only overrides the
// keys it names.
package config

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/luadap/internal/config/loader"
)

// Config is the complete luadap configuration.
type Config struct {
	Interpreter InterpreterConfig `toml:"interpreter"`
	Terminal    TerminalConfig    `toml:"terminal"`
	Launch      LaunchConfig      `toml:"launch"`
	Log         LogConfig         `toml:"log"`
}

// InterpreterConfig configures the Lua engine.
type InterpreterConfig struct {
	// Seed seeds math.random. Empty leaves the generator unseeded.
	Seed string `toml:"seed"`

	// Environment is visible to programs through env and os.getenv.
	Environment map[string]string `toml:"environment"`

	// StatementLimit aborts runaway programs. Zero disables it.
	StatementLimit int64 `toml:"statementLimit"`

	CallStackSize int `toml:"callStackSize"`
}

// TerminalConfig configures the pseudo terminal.
type TerminalConfig struct {
	Name               string `toml:"name"`
	PasswordMask       string `toml:"passwordMask"`
	ProgressWidth      int    `toml:"progressWidth"`
	ProgressIntervalMS int    `toml:"progressIntervalMs"`
}

// ProgressInterval returns the progress bar redraw period.
func (t TerminalConfig) ProgressInterval() time.Duration {
	return time.Duration(t.ProgressIntervalMS) * time.Millisecond
}

// LaunchConfig configures how programs are started.
type LaunchConfig struct {
	// PromptForArguments asks for program arguments on the terminal when
	// a launch request carries none.
	PromptForArguments bool `toml:"promptForArguments"`

	// RestartOnChange reruns the program whenever its file is saved.
	RestartOnChange bool `toml:"restartOnChange"`

	WatchDebounceMS int `toml:"watchDebounceMs"`
}

// WatchDebounce returns the quiet period before a change restarts the
// program.
func (l LaunchConfig) WatchDebounce() time.Duration {
	return time.Duration(l.WatchDebounceMS) * time.Millisecond
}

// LogConfig configures the adapter log.
type LogConfig struct {
	Level string `toml:"level"`

	// File receives the log. Empty logs to stderr.
	File string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Interpreter: InterpreterConfig{
			Environment:   map[string]string{},
			CallStackSize: 256,
		},
		Terminal: TerminalConfig{
			Name:               "Lua Debug",
			PasswordMask:       "*",
			ProgressWidth:      20,
			ProgressIntervalMS: 100,
		},
		Launch: LaunchConfig{
			PromptForArguments: true,
			WatchDebounceMS:    200,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the file at path (skipped
// when path is empty) and the process environment, then validates it.
func Load(path string) (*Config, error) {
	return LoadFrom(loader.DefaultFS(), path, loader.NewEnvLoader(loader.EnvPrefix))
}

// LoadFrom is Load with an explicit file system and environment source.
// A nil env skips the environment layer.
func LoadFrom(fsys loader.FileSystem, path string, env loader.Loader) (*Config, error) {
	var layers []loader.Loader
	if path != "" {
		l := loader.ForPath(fsys, path)
		if l == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
		}
		if _, err := fsys.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		layers = append(layers, l)
	}
	if env != nil {
		layers = append(layers, env)
	}

	merged := make(map[string]any)
	for _, l := range layers {
		data, err := l.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, data)
	}

	cfg := Default()
	if err := decode(merged, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode applies the keys present in data onto cfg.
func decode(data map[string]any, cfg *Config) error {
	if len(data) == 0 {
		return nil
	}
	raw, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding merged config: %w", err)
	}
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return &ValidationError{Message: err.Error(), Code: "type"}
	}
	return nil
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks setting ranges.
func (c *Config) Validate() error {
	switch {
	case c.Interpreter.StatementLimit < 0:
		return &ValidationError{Path: "interpreter.statementLimit", Message: "must not be negative", Value: c.Interpreter.StatementLimit, Code: "range"}
	case c.Interpreter.CallStackSize <= 0:
		return &ValidationError{Path: "interpreter.callStackSize", Message: "must be positive", Value: c.Interpreter.CallStackSize, Code: "range"}
	case c.Terminal.PasswordMask == "":
		return &ValidationError{Path: "terminal.passwordMask", Message: "must not be empty", Code: "required"}
	case c.Terminal.ProgressWidth < 1 || c.Terminal.ProgressWidth > 200:
		return &ValidationError{Path: "terminal.progressWidth", Message: "must be between 1 and 200", Value: c.Terminal.ProgressWidth, Code: "range"}
	case c.Terminal.ProgressIntervalMS <= 0:
		return &ValidationError{Path: "terminal.progressIntervalMs", Message: "must be positive", Value: c.Terminal.ProgressIntervalMS, Code: "range"}
	case c.Launch.WatchDebounceMS < 0:
		return &ValidationError{Path: "launch.watchDebounceMs", Message: "must not be negative", Value: c.Launch.WatchDebounceMS, Code: "range"}
	case !logLevels[c.Log.Level]:
		return &ValidationError{Path: "log.level", Message: "must be one of debug, info, warn, error", Value: c.Log.Level, Code: "enum"}
	}
	return nil
}
