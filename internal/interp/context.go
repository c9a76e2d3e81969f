package interp

// Frame is one entry of a captured call stack.
type Frame struct {
	// Name is the function name, or "main chunk" for the program body.
	Name string

	// Kind is the statement kind at the frame's current line for the
	// innermost frame, and "call" for its callers.
	Kind string

	File   string
	Line   int
	Column int
}

// Binding is a named value visible from a suspended frame.
type Binding struct {
	Name  string
	Value string
	Type  string
}

// Context is a snapshot of the program at a statement boundary. A Context
// is never mutated after capture, so it may be shared between goroutines.
type Context struct {
	// Target is the file of the innermost frame.
	Target string

	// Frames lists the call stack, innermost first.
	Frames []Frame

	// Locals are the bindings of the innermost function frame. They are
	// empty when execution is in the main chunk.
	Locals []Binding

	// Globals are the main chunk locals and user-defined globals.
	Globals []Binding

	// IsGlobal reports whether the innermost frame is the main chunk.
	IsGlobal bool
}

// File returns the file of the current statement.
func (c *Context) File() string {
	if len(c.Frames) == 0 {
		return c.Target
	}
	return c.Frames[0].File
}

// Line returns the line of the current statement, or 0 when unknown.
func (c *Context) Line() int {
	if len(c.Frames) == 0 {
		return 0
	}
	return c.Frames[0].Line
}

// Bindings returns locals followed by globals.
func (c *Context) Bindings() []Binding {
	out := make([]Binding, 0, len(c.Locals)+len(c.Globals))
	out = append(out, c.Locals...)
	return append(out, c.Globals...)
}

// KeyEvent describes a single key press delivered to the program.
type KeyEvent struct {
	// Name is the key name such as "Enter", "Up" or the character itself.
	Name string

	// Char is the typed character, empty for special keys.
	Char string

	// Code is the character code point or the special key code.
	Code int
}
