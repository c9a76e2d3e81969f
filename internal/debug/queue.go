package debug

import (
	"runtime"
	"sync"
)

// Item is one unit of program output.
type Item struct {
	Text          string
	AppendNewline bool

	// SourceLine is the program line that produced the output, or 0.
	SourceLine int

	clear bool
}

// Sink renders queued output.
type Sink interface {
	Render(item Item)
	Clear()
}

// Queue serializes program output onto a Sink in FIFO order. Items are
// rendered by at most one digestion at a time, off the caller's goroutine
// until the queue is ended.
type Queue struct {
	sink Sink

	mu        sync.Mutex
	items     []Item
	digesting bool
	ending    bool
	done      chan struct{}
}

// NewQueue creates a queue that renders onto sink.
func NewQueue(sink Sink) *Queue {
	return &Queue{sink: sink}
}

// Print enqueues item and starts a digestion if none is in flight. Once the
// queue is ending an idle queue renders synchronously.
func (q *Queue) Print(item Item) {
	q.push(item)
}

// Clear enqueues a screen clear so it stays ordered with printed items.
func (q *Queue) Clear() {
	q.push(Item{clear: true})
}

// End marks the queue as ending and returns once every item has been
// rendered, digesting on the caller when no digestion is in flight.
func (q *Queue) End() {
	q.mu.Lock()
	q.ending = true
	if q.digesting {
		done := q.done
		q.mu.Unlock()
		<-done
		return
	}
	if len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	q.startLocked()
	q.mu.Unlock()
	q.digest()
}

// Flush waits for the digestion in flight, if any, to empty the queue.
func (q *Queue) Flush() {
	q.mu.Lock()
	if !q.digesting {
		q.mu.Unlock()
		return
	}
	done := q.done
	q.mu.Unlock()
	<-done
}

// Len returns the number of items waiting to be rendered.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) push(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	if q.digesting {
		q.mu.Unlock()
		return
	}
	q.startLocked()
	flush := q.ending
	q.mu.Unlock()

	if flush {
		q.digest()
		return
	}
	go q.digest()
}

func (q *Queue) startLocked() {
	q.digesting = true
	q.done = make(chan struct{})
}

// digest renders items until the buffer is empty.
func (q *Queue) digest() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.digesting = false
			close(q.done)
			q.mu.Unlock()
			return
		}
		item := q.items[0]
		q.items[0] = Item{}
		q.items = q.items[1:]
		q.mu.Unlock()

		if item.clear {
			q.sink.Clear()
		} else {
			q.sink.Render(item)
		}
		runtime.Gosched()
	}
}
