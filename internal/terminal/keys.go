package terminal

import (
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
)

// KeyEvent is one decoded keystroke.
type KeyEvent struct {
	// Key is the tcell key; tcell.KeyRune for printable input.
	Key tcell.Key

	// Rune is set when Key is tcell.KeyRune.
	Rune rune

	// Raw is the byte sequence the key was decoded from.
	Raw string
}

// Name returns a human readable key name ("Enter", "Up", "Ctrl-C", "a").
func (k KeyEvent) Name() string {
	if k.Key == tcell.KeyRune {
		return string(k.Rune)
	}
	if name, ok := tcell.KeyNames[k.Key]; ok {
		return name
	}
	return ""
}

// Code returns the numeric key code: the code point for runes, the control
// code or tcell key value otherwise.
func (k KeyEvent) Code() int {
	switch {
	case k.Key == tcell.KeyRune:
		return int(k.Rune)
	case k.Key >= tcell.KeyCtrlA && k.Key <= tcell.KeyCtrlZ:
		return int(k.Key-tcell.KeyCtrlA) + 1
	}
	return int(k.Key)
}

// IsEnter reports whether the key submits a line.
func (k KeyEvent) IsEnter() bool {
	return k.Key == tcell.KeyEnter || k.Key == tcell.KeyLF
}

// IsBackspace reports whether the key erases the previous character.
func (k KeyEvent) IsBackspace() bool {
	return k.Key == tcell.KeyBackspace2 || k.Key == tcell.KeyBackspace
}

// escapeSequences maps the xterm input sequences we understand.
var escapeSequences = map[string]tcell.Key{
	"\x1b[A":   tcell.KeyUp,
	"\x1b[B":   tcell.KeyDown,
	"\x1b[C":   tcell.KeyRight,
	"\x1b[D":   tcell.KeyLeft,
	"\x1bOA":   tcell.KeyUp,
	"\x1bOB":   tcell.KeyDown,
	"\x1bOC":   tcell.KeyRight,
	"\x1bOD":   tcell.KeyLeft,
	"\x1b[H":   tcell.KeyHome,
	"\x1b[F":   tcell.KeyEnd,
	"\x1bOH":   tcell.KeyHome,
	"\x1bOF":   tcell.KeyEnd,
	"\x1b[1~":  tcell.KeyHome,
	"\x1b[4~":  tcell.KeyEnd,
	"\x1b[2~":  tcell.KeyInsert,
	"\x1b[3~":  tcell.KeyDelete,
	"\x1b[5~":  tcell.KeyPgUp,
	"\x1b[6~":  tcell.KeyPgDn,
	"\x1b[Z":   tcell.KeyBacktab,
	"\x1bOP":   tcell.KeyF1,
	"\x1bOQ":   tcell.KeyF2,
	"\x1bOR":   tcell.KeyF3,
	"\x1bOS":   tcell.KeyF4,
	"\x1b[15~": tcell.KeyF5,
	"\x1b[17~": tcell.KeyF6,
	"\x1b[18~": tcell.KeyF7,
	"\x1b[19~": tcell.KeyF8,
	"\x1b[20~": tcell.KeyF9,
	"\x1b[21~": tcell.KeyF10,
	"\x1b[23~": tcell.KeyF11,
	"\x1b[24~": tcell.KeyF12,
}

// longestSequence is the length of the longest entry in escapeSequences.
const longestSequence = 5

// DecodeKeys splits a keystroke chunk into key events. A "\r\n" pair counts
// as a single Enter.
func DecodeKeys(s string) []KeyEvent {
	var keys []KeyEvent
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == 0x1b:
			n, key := matchEscape(s[i:])
			keys = append(keys, KeyEvent{Key: key, Raw: s[i : i+n]})
			i += n
		case c == '\r' && i+1 < len(s) && s[i+1] == '\n':
			keys = append(keys, KeyEvent{Key: tcell.KeyEnter, Raw: s[i : i+2]})
			i += 2
		case c < 0x20 || c == 0x7f:
			keys = append(keys, KeyEvent{Key: controlKey(c), Raw: s[i : i+1]})
			i++
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			keys = append(keys, KeyEvent{Key: tcell.KeyRune, Rune: r, Raw: s[i : i+size]})
			i += size
		}
	}
	return keys
}

// DecodeKey returns the first key event of a keystroke chunk. An empty chunk
// decodes to tcell.KeyNUL.
func DecodeKey(s string) KeyEvent {
	keys := DecodeKeys(s)
	if len(keys) == 0 {
		return KeyEvent{Key: tcell.KeyNUL}
	}
	return keys[0]
}

// controlKey maps a control byte to its tcell key. Bytes typed as Ctrl and
// a letter become KeyCtrlA..KeyCtrlZ; Backspace, Tab, LF and Enter keep
// their own keys.
func controlKey(c byte) tcell.Key {
	switch tcell.Key(c) {
	case tcell.KeyBackspace, tcell.KeyTab, tcell.KeyLF, tcell.KeyEnter:
		return tcell.Key(c)
	}
	if c >= 0x01 && c <= 0x1a {
		return tcell.KeyCtrlA + tcell.Key(c-1)
	}
	return tcell.Key(c)
}

func matchEscape(s string) (int, tcell.Key) {
	for n := min(longestSequence, len(s)); n >= 2; n-- {
		if key, ok := escapeSequences[s[:n]]; ok {
			return n, key
		}
	}
	// Unknown CSI sequences are swallowed whole so their tail is not typed.
	if strings.HasPrefix(s, "\x1b[") {
		for j := 2; j < len(s); j++ {
			if s[j] >= 0x40 && s[j] <= 0x7e {
				return j + 1, tcell.KeyEscape
			}
		}
	}
	return 1, tcell.KeyEscape
}
