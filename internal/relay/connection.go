// Package relay wraps raw byte streams into framed protocol connections
// with explicit failure reporting for the send and receive paths.
package relay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// Sentinel errors reported by Connection operations. Everything else that
// comes back from Send or Receive is a transport failure and is fatal to
// the connection.
var (
	// ErrConnClosed is returned when an operation is attempted on a
	// connection that has already been closed.
	ErrConnClosed = errors.New("connection is not open")

	// ErrTooLong is returned when a message would exceed MaxLen once
	// encoded. The connection stays usable; nothing was written.
	ErrTooLong = errors.New("message is too long")
)

// Connection frames a duplex byte stream into one protocol message per
// line. A Connection is driven by exactly one goroutine at a time; only
// Close is safe to call concurrently, so a watchdog can tear the stream
// down from outside the owning worker.
type Connection struct {
	mu     sync.Mutex
	stream io.ReadWriteCloser
	closed bool

	reader *bufio.Reader
	addr   string
	last   error
}

// NewConnection wraps an accepted or dialed stream. The remote address is
// kept for log context only.
func NewConnection(stream io.ReadWriteCloser, addr string) *Connection {
	return &Connection{
		stream: stream,
		// One byte of headroom so a maximal encoded message plus its
		// newline still fits the framing buffer.
		reader: bufio.NewReaderSize(stream, MaxLen+1),
		addr:   addr,
	}
}

// Dial connects to a relay server over TCP and returns the wrapped
// connection.
func Dial(addr string) (*Connection, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return NewConnection(conn, conn.RemoteAddr().String()), nil
}

// RemoteAddr returns the peer address recorded at creation time.
func (c *Connection) RemoteAddr() string {
	return c.addr
}

// IsOpen reports whether the connection has not been closed yet.
func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// LastResult returns the outcome of the most recent Send or Receive, nil
// meaning success. Callers use it to distinguish a refused over-length
// send from a dead stream.
func (c *Connection) LastResult() error {
	return c.last
}

// Send writes one encoded message to the stream. It fails with
// ErrConnClosed on a closed connection and with ErrTooLong when the
// encoded form would exceed MaxLen; in the latter case no bytes are
// written and the connection stays usable.
func (c *Connection) Send(msg Message) error {
	if !c.IsOpen() {
		c.last = ErrConnClosed
		return ErrConnClosed
	}

	encoded, err := msg.Encode()
	if err != nil {
		c.last = err
		return err
	}

	if _, err := c.stream.Write(encoded); err != nil {
		c.last = fmt.Errorf("write message: %w", err)
		return c.last
	}

	c.last = nil
	return nil
}

// Receive reads and decodes the next line from the stream. A line that
// does not fit the framing buffer, or a peer that closed the stream,
// surfaces as a transport error.
func (c *Connection) Receive() (Message, error) {
	if !c.IsOpen() {
		c.last = ErrConnClosed
		return Message{}, ErrConnClosed
	}

	// ReadSlice rather than ReadString so a line longer than the framing
	// buffer is an error instead of an unbounded accumulation.
	line, err := c.reader.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			c.last = fmt.Errorf("message exceeds framing buffer: %w", err)
		} else {
			c.last = fmt.Errorf("read message: %w", err)
		}
		return Message{}, c.last
	}

	c.last = nil
	return Decode(string(line)), nil
}

// Close releases the underlying stream. It is idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.stream.Close()
}
