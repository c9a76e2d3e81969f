// Package dap implements the server side of the Debug Adapter Protocol wire
// layer: Content-Length framed messages over stdio or a socket, decoded with
// github.com/google/go-dap.
package dap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"

	godap "github.com/google/go-dap"
)

// ErrClosed is returned when sending on a closed connection.
var ErrClosed = errors.New("dap: connection closed")

// Transport moves protocol messages between the adapter and its client.
type Transport interface {
	// Send writes a message to the client.
	Send(msg godap.Message) error

	// Receive blocks until the next message from the client arrives.
	Receive() (godap.Message, error)

	// Close releases the underlying stream.
	Close() error
}

// Conn is a Transport over any io.ReadWriteCloser.
//
// Outgoing messages are stamped with a connection-wide sequence number at
// send time so responses and events share one monotonic counter.
type Conn struct {
	rwc    io.ReadWriteCloser
	reader *bufio.Reader

	seq    int64
	mu     sync.Mutex
	closed atomic.Bool
}

// NewConn creates a connection from any ReadWriteCloser.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{
		rwc:    rwc,
		reader: bufio.NewReader(rwc),
	}
}

// NewStdioConn creates a connection over the process standard streams.
func NewStdioConn() *Conn {
	return NewConn(stdio{in: os.Stdin, out: os.Stdout})
}

// NewSocketConn wraps an accepted network connection.
func NewSocketConn(conn net.Conn) *Conn {
	return NewConn(conn)
}

// Send stamps the message with the next sequence number and writes it.
func (c *Conn) Send(msg godap.Message) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stamp(msg, int(atomic.AddInt64(&c.seq, 1)))
	if err := godap.WriteProtocolMessage(c.rwc, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Receive reads and decodes the next message.
//
// Requests for commands go-dap does not know are returned as a
// *godap.DecodeProtocolMessageFieldError so callers can answer them with an
// error response instead of dropping the connection.
func (c *Conn) Receive() (godap.Message, error) {
	msg, err := godap.ReadProtocolMessage(c.reader)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Close closes the underlying stream. It is safe to call more than once.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.rwc.Close()
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

func stamp(msg godap.Message, seq int) {
	switch m := msg.(type) {
	case godap.ResponseMessage:
		m.GetResponse().Seq = seq
	case godap.EventMessage:
		m.GetEvent().Seq = seq
	case godap.RequestMessage:
		m.GetRequest().Seq = seq
	}
}

// stdio joins stdin and stdout into one stream. Closing it only closes stdin
// so a blocked read returns; stdout stays usable for logging on exit.
type stdio struct {
	in  io.ReadCloser
	out io.Writer
}

func (s stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdio) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s stdio) Close() error                { return s.in.Close() }
