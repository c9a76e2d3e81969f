package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"named color", "<color=red>err</color>", "\x1b[38;2;255;0;0merr\x1b[0m"},
		{"hex color", "<color=#00ff00>ok</color>", "\x1b[38;2;0;255;0mok\x1b[0m"},
		{"short hex", "<color=#fff>w</color>", "\x1b[38;2;255;255;255mw\x1b[0m"},
		{"quoted", `<color="blue">b</color>`, "\x1b[38;2;0;0;255mb\x1b[0m"},
		{"mark", "<mark=#000000>m</mark>", "\x1b[48;2;0;0;0mm\x1b[0m"},
		{"bold", "<b>x</b>", "\x1b[1mx\x1b[0m"},
		{"nested reapplies outer", "<b>a<i>b</i>c</b>", "\x1b[1ma\x1b[3mb\x1b[0m\x1b[1mc\x1b[0m"},
		{"unclosed is reset", "<u>open", "\x1b[4mopen\x1b[0m"},
		{"unknown tag kept", "<div>x</div>", "<div>x</div>"},
		{"comparison kept", "a < b > c", "a < b > c"},
		{"bad color kept", "<color=nope>x</color>", "<color=nope>x"},
		{"no closing bracket", "1 <2", "1 <2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "Runtime error: boom", Strip(Colorize("red", "Runtime error: boom")))
	assert.Equal(t, "bold", Strip(Bold("bold")))
	assert.Equal(t, "<div>", Strip("<div>"))
}
