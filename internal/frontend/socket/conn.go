// Package socket provides the TCP frontend: a listener that accepts client
// connections and a connection wrapper speaking the framed JSON protocol.
package socket

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/kestrel-games/waygate/internal/protocol"
)

// Conn wraps a TCP connection with framed-message handling and per-write
// serialization, so broadcast fan-out and request replies from different
// goroutines never interleave frames.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps a raw TCP connection.
//
// Precondition: raw must be a valid, open network connection.
// Postcondition: Returns a Conn ready for reading and writing.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ReadRequest reads the next framed request from the client.
//
// Postcondition: Returns the decoded request, or an error (including io.EOF
// on clean disconnect at a frame boundary).
func (c *Conn) ReadRequest() (protocol.Request, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return protocol.ReadRequest(c.reader)
}

// WriteResponse sends one framed response to the client. Safe for
// concurrent use.
func (c *Conn) WriteResponse(resp protocol.Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return protocol.WriteResponse(c.raw, resp)
}

// Close closes the underlying TCP connection.
//
// Postcondition: The connection is closed and no longer usable.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
