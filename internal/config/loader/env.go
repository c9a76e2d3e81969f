package loader

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of luadap environment variables.
const EnvPrefix = "LUADAP_"

// envEnvironment prefixes variables copied into the interpreter
// environment, e.g. LUADAP_ENV_HOME sets interpreter.environment.HOME.
const envEnvironment = "ENV_"

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string
	mapping map[string]string // env var -> config path
	raw     map[string]bool   // config paths kept as strings
	lookup  func() []string
}

// NewEnvLoader creates an environment loader. The prefix includes the
// trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		raw:     stringPaths(),
		lookup:  os.Environ,
	}
}

// NewEnvLoaderFrom creates an environment loader reading environ instead
// of the process environment.
func NewEnvLoaderFrom(prefix string, environ []string) *EnvLoader {
	l := NewEnvLoader(prefix)
	l.lookup = func() []string { return environ }
	return l
}

func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "SEED":              "interpreter.seed",
		prefix + "STATEMENT_LIMIT":   "interpreter.statementLimit",
		prefix + "CALL_STACK_SIZE":   "interpreter.callStackSize",
		prefix + "TERMINAL_NAME":     "terminal.name",
		prefix + "PASSWORD_MASK":     "terminal.passwordMask",
		prefix + "PROGRESS_WIDTH":    "terminal.progressWidth",
		prefix + "PROMPT_ARGS":       "launch.promptForArguments",
		prefix + "RESTART_ON_CHANGE": "launch.restartOnChange",
		prefix + "LOG_LEVEL":         "log.level",
		prefix + "LOG_FILE":          "log.file",
	}
}

// stringPaths lists settings whose values must not be coerced, so a seed
// of "1" stays a string.
func stringPaths() map[string]bool {
	return map[string]bool{
		"interpreter.seed":      true,
		"terminal.name":         true,
		"terminal.passwordMask": true,
		"log.level":             true,
		"log.file":              true,
	}
}

// AddMapping maps an environment variable to a config path.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	l.mapping[envVar] = configPath
}

// Load reads environment variables into a configuration map. Empty values
// are kept as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)
	for _, kv := range l.lookup() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}

		if path, ok := l.mapping[name]; ok {
			setByPath(config, path, l.value(path, value))
			continue
		}

		rest := strings.TrimPrefix(name, l.prefix)
		if key, ok := strings.CutPrefix(rest, envEnvironment); ok && key != "" {
			// Keys may contain dots, so bypass setByPath.
			interp, _ := config["interpreter"].(map[string]any)
			if interp == nil {
				interp = make(map[string]any)
				config["interpreter"] = interp
			}
			env, _ := interp["environment"].(map[string]any)
			if env == nil {
				env = make(map[string]any)
				interp["environment"] = env
			}
			env[key] = value
			continue
		}

		path := l.envToPath(name)
		setByPath(config, path, l.value(path, value))
	}
	return config, nil
}

func (l *EnvLoader) value(path, s string) any {
	if l.raw[path] {
		return s
	}
	return parseValue(s)
}

// envToPath converts LUADAP_TERMINAL_PROGRESS_WIDTH to
// terminal.progressWidth.
func (l *EnvLoader) envToPath(env string) string {
	parts := strings.Split(strings.TrimPrefix(env, l.prefix), "_")
	section := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return section
	}
	setting := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if part != "" {
			setting += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return section + "." + setting
}

// parseValue converts s into a bool, integer, float or JSON value when it
// looks like one.
func parseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}
