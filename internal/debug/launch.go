package debug

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// LaunchArguments are the adapter-specific fields of a launch request.
type LaunchArguments struct {
	// Program is the Lua file to run.
	Program string

	// Args are the program arguments. HasArgs distinguishes an empty list
	// from an absent one, which triggers the argument prompt.
	Args    []string
	HasArgs bool

	NoDebug     bool
	StopOnEntry bool

	// Cwd is the directory relative program paths are resolved against.
	Cwd string

	// Env is added to the configured interpreter environment.
	Env map[string]string

	// Watch restarts the program when its file changes.
	Watch bool
}

// ParseLaunchArguments decodes the arguments of a launch request. args may
// be a JSON array of strings or a single space separated string.
func ParseLaunchArguments(raw []byte) (LaunchArguments, error) {
	var la LaunchArguments
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return la, ErrInvalidLaunchArguments
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return la, ErrInvalidLaunchArguments
	}

	la.Program = doc.Get("program").String()
	if la.Program == "" {
		return la, ErrNoProgram
	}
	la.Cwd = doc.Get("cwd").String()
	la.NoDebug = doc.Get("noDebug").Bool()
	la.StopOnEntry = doc.Get("stopOnEntry").Bool()
	la.Watch = doc.Get("watch").Bool()

	if args := doc.Get("args"); args.Exists() {
		la.HasArgs = true
		la.Args = []string{}
		if args.IsArray() {
			args.ForEach(func(_, v gjson.Result) bool {
				la.Args = append(la.Args, v.String())
				return true
			})
		} else {
			la.Args = SplitParams(args.String())
		}
	}

	if env := doc.Get("env"); env.IsObject() {
		la.Env = make(map[string]string)
		env.ForEach(func(k, v gjson.Result) bool {
			la.Env[k.String()] = v.String()
			return true
		})
	}

	if !filepath.IsAbs(la.Program) && la.Cwd != "" {
		la.Program = filepath.Join(la.Cwd, la.Program)
	}
	return la, nil
}

// JSON encodes the arguments as a launch request arguments document.
func (la LaunchArguments) JSON() ([]byte, error) {
	doc := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		doc, err = sjson.SetBytes(doc, path, value)
	}

	set("program", la.Program)
	if la.HasArgs {
		set("args", append([]string{}, la.Args...))
	}
	if la.NoDebug {
		set("noDebug", true)
	}
	if la.StopOnEntry {
		set("stopOnEntry", true)
	}
	if la.Cwd != "" {
		set("cwd", la.Cwd)
	}
	if la.Watch {
		set("watch", true)
	}
	keys := make([]string, 0, len(la.Env))
	for k := range la.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		set("env."+escapePath(k), la.Env[k])
	}

	if err != nil {
		return nil, fmt.Errorf("encode launch arguments: %w", err)
	}
	return doc, nil
}

// SplitParams splits a parameter line on spaces, dropping empty fields.
func SplitParams(line string) []string {
	var params []string
	for _, p := range strings.Split(line, " ") {
		if p != "" {
			params = append(params, p)
		}
	}
	return params
}

// escapePath escapes the characters sjson treats as path syntax.
func escapePath(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`, ":", `\:`)
	return r.Replace(key)
}
