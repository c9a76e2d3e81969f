package debug

import (
	"path/filepath"
	"sync"
)

// Breakpoint is a line breakpoint in a source file.
type Breakpoint struct {
	// ID is unique for the lifetime of the table that created it.
	ID int

	// Path is the cleaned absolute source path.
	Path string

	// Line is the 1-based line in interpreter coordinates.
	Line int

	// Verified is set once execution reaches the line.
	Verified bool
}

// BreakpointTable holds the breakpoints of a session grouped by file.
type BreakpointTable struct {
	mu     sync.RWMutex
	byPath map[string][]*Breakpoint
	nextID int
}

// NewBreakpointTable creates an empty table. IDs start at 0.
func NewBreakpointTable() *BreakpointTable {
	return &BreakpointTable{
		byPath: make(map[string][]*Breakpoint),
	}
}

// Set replaces every breakpoint of path with unverified breakpoints on
// lines. Each new breakpoint gets a fresh ID. The new list is returned in
// the order of lines.
func (t *BreakpointTable) Set(path string, lines []int) []Breakpoint {
	path = normalizePath(path)

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(lines) == 0 {
		delete(t.byPath, path)
		return []Breakpoint{}
	}

	bps := make([]*Breakpoint, 0, len(lines))
	out := make([]Breakpoint, 0, len(lines))
	for _, line := range lines {
		bp := &Breakpoint{ID: t.nextID, Path: path, Line: line}
		t.nextID++
		bps = append(bps, bp)
		out = append(out, *bp)
	}
	t.byPath[path] = bps
	return out
}

// Get returns a copy of the breakpoints of path.
func (t *BreakpointTable) Get(path string) []Breakpoint {
	path = normalizePath(path)

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Breakpoint, 0, len(t.byPath[path]))
	for _, bp := range t.byPath[path] {
		out = append(out, *bp)
	}
	return out
}

// Has reports whether a breakpoint exists at path and line.
func (t *BreakpointTable) Has(path string, line int) bool {
	path = normalizePath(path)

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, bp := range t.byPath[path] {
		if bp.Line == line {
			return true
		}
	}
	return false
}

// Hit looks up the breakpoints at path and line and marks them verified.
// It returns the matching breakpoints and the subset that was not verified
// before.
func (t *BreakpointTable) Hit(path string, line int) (hits, flipped []Breakpoint) {
	path = normalizePath(path)

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, bp := range t.byPath[path] {
		if bp.Line != line {
			continue
		}
		if !bp.Verified {
			bp.Verified = true
			flipped = append(flipped, *bp)
		}
		hits = append(hits, *bp)
	}
	return hits, flipped
}

// ResetVerification marks every breakpoint unverified again.
func (t *BreakpointTable) ResetVerification() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, bps := range t.byPath {
		for _, bp := range bps {
			bp.Verified = false
		}
	}
}

// Count returns the number of breakpoints in the table.
func (t *BreakpointTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, bps := range t.byPath {
		n += len(bps)
	}
	return n
}

func normalizePath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}
