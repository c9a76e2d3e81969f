package terminal

import "strings"

// ANSI control sequences written by the terminal.
const (
	// ClearScreen clears the display and scrollback and homes the cursor.
	ClearScreen = "\x1b[2J\x1b[3J\x1b[;H"

	eraseLine  = "\x1b[2K"
	cursorUp   = "\x1b[1A"
	cursorLeft = "\x1b[G"
)

// EraseLines returns the sequence that erases count lines upward from the
// cursor line and leaves the cursor at column one.
func EraseLines(count int) string {
	if count <= 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < count; i++ {
		b.WriteString(eraseLine)
		if i < count-1 {
			b.WriteString(cursorUp)
		}
	}
	b.WriteString(cursorLeft)
	return b.String()
}

// NormalizeNewlines rewrites every "\n" not already preceded by "\r" as "\r\n".
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + strings.Count(s, "\n"))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' && (i == 0 || s[i-1] != '\r') {
			b.WriteByte('\r')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
