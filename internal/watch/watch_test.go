package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcherCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	program := filepath.Join(dir, "main.lua")
	require.NoError(t, os.WriteFile(program, []byte("print(1)\n"), 0o644))

	changed := make(chan string, 10)
	w, err := New(program, 100*time.Millisecond, func(path string) { changed <- path }, nil)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(program, []byte("print(2)\n"), 0o644))
	}

	select {
	case path := <-changed:
		assert.Equal(t, "main.lua", filepath.Base(path))
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case <-changed:
		t.Fatal("burst reported more than once")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	program := filepath.Join(dir, "main.lua")
	require.NoError(t, os.WriteFile(program, nil, 0o644))

	changed := make(chan string, 1)
	w, err := New(program, 20*time.Millisecond, func(path string) { changed <- path }, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	select {
	case path := <-changed:
		t.Fatalf("unexpected change %s", path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	program := filepath.Join(dir, "main.lua")
	require.NoError(t, os.WriteFile(program, nil, 0o644))

	w, err := New(program, 0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, w.Dir())
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
