// Package richtext turns inline markup such as <color=red>…</color> and
// <b>…</b> into ANSI SGR escape sequences.
//
// Supported tags: color (hex "#rgb", "#rrggbb" or a name), mark (background
// colour), b, i, u and s. Unknown tags are left untouched.
package richtext

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const reset = "\x1b[0m"

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#00ff00",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"orange":  "#ffa500",
	"purple":  "#a020f0",
	"magenta": "#ff00ff",
	"cyan":    "#00ffff",
	"grey":    "#808080",
	"gray":    "#808080",
}

type style struct {
	tag  string
	code string
}

// Render converts markup to ANSI sequences. Every opened style is reset at
// the end of the string.
func Render(s string) string {
	return transform(s, true)
}

// Strip removes recognized markup and returns the plain text.
func Strip(s string) string {
	return transform(s, false)
}

// Colorize wraps text in a colour tag.
func Colorize(color, text string) string {
	return "<color=" + color + ">" + text + "</color>"
}

// Bold wraps text in a bold tag.
func Bold(text string) string {
	return "<b>" + text + "</b>"
}

func transform(s string, ansi bool) string {
	if !strings.Contains(s, "<") {
		return s
	}

	var out strings.Builder
	var stack []style

	for i := 0; i < len(s); {
		if s[i] != '<' {
			out.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i:], '>')
		if end < 0 || (i+1 < len(s) && s[i+1] == ' ') {
			if end >= 0 {
				out.WriteByte('<')
				i++
				continue
			}
			out.WriteString(s[i:])
			break
		}
		raw := s[i : i+end+1]
		name, value, closing := parseTag(raw[1 : len(raw)-1])

		code, ok := sgr(name, value)
		switch {
		case !ok:
			out.WriteString(raw)
		case closing:
			if idx := lastIndex(stack, name); idx >= 0 {
				stack = append(stack[:idx], stack[idx+1:]...)
				if ansi {
					out.WriteString(reset)
					for _, st := range stack {
						out.WriteString(st.code)
					}
				}
			}
		default:
			stack = append(stack, style{tag: name, code: code})
			if ansi {
				out.WriteString(code)
			}
		}
		i += end + 1
	}

	if ansi && len(stack) > 0 {
		out.WriteString(reset)
	}
	return out.String()
}

func parseTag(body string) (name, value string, closing bool) {
	if strings.HasPrefix(body, "/") {
		closing = true
		body = body[1:]
	}
	name, value, _ = strings.Cut(body, "=")
	name = strings.ToLower(strings.TrimSpace(name))
	value = strings.Trim(strings.TrimSpace(value), `"'`)
	return name, value, closing
}

// sgr returns the escape sequence for a tag. Closing tags are validated by
// name only.
func sgr(name, value string) (string, bool) {
	switch name {
	case "b":
		return "\x1b[1m", true
	case "i":
		return "\x1b[3m", true
	case "u":
		return "\x1b[4m", true
	case "s":
		return "\x1b[9m", true
	case "color", "mark":
		if value == "" {
			return "", true
		}
		c, err := parseColor(value)
		if err != nil {
			return "", false
		}
		r, g, b := c.RGB255()
		layer := 38
		if name == "mark" {
			layer = 48
		}
		return fmt.Sprintf("\x1b[%d;2;%d;%d;%dm", layer, r, g, b), true
	default:
		return "", false
	}
}

func parseColor(value string) (colorful.Color, error) {
	if hex, ok := namedColors[strings.ToLower(value)]; ok {
		value = hex
	}
	if !strings.HasPrefix(value, "#") {
		value = "#" + value
	}
	// Drop an alpha channel; terminals have no use for it.
	if len(value) == 9 {
		value = value[:7]
	}
	return colorful.Hex(value)
}

func lastIndex(stack []style, tag string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].tag == tag {
			return i
		}
	}
	return -1
}
