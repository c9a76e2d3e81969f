// Package watch reruns programs when their sources change.
package watch

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is the quiet period used when none is given.
const DefaultDelay = 200 * time.Millisecond

// ErrClosed is returned when a closed watcher is used.
var ErrClosed = errors.New("watcher closed")

// Watcher reports changes to Lua sources in a program's directory. Rapid
// bursts of events, such as an editor's write-then-rename save, are
// coalesced into one notification.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	delay    time.Duration
	onChange func(path string)
	logger   *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	last    string
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New watches the directory holding program. onChange is called with the
// last changed file once no event has arrived for delay.
func New(program string, delay time.Duration, onChange func(path string), logger *zap.Logger) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(program)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		dir:      dir,
		delay:    delay,
		onChange: onChange,
		logger:   logger.Named("watch"),
		closeCh:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Close stops the watcher. Pending notifications are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if relevant(ev) {
				w.schedule(ev.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(ev.Name), ".lua") {
		return false
	}
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename)
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.last = path
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	path := w.last
	w.timer = nil
	w.mu.Unlock()

	w.logger.Debug("source changed", zap.String("path", path))
	if w.onChange != nil {
		w.onChange(path)
	}
}
