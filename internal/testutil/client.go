// Package testutil provides integration-test helpers.
package testutil

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/kestrel-games/waygate/internal/protocol"
)

// Client is a framed-protocol test client for integration testing.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	t      *testing.T
}

// NewClient dials the given address and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected Client or fails the test.
func NewClient(t *testing.T, addr string) *Client {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}

	t.Cleanup(func() {
		conn.Close()
	})

	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		t:      t,
	}
}

// Send writes one framed request to the server.
//
// Postcondition: The request is written, or the test fails.
func (c *Client) Send(req protocol.Request) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := protocol.WriteRequest(c.conn, req); err != nil {
		c.t.Fatalf("sending %q request: %v", req.Type, err)
	}
}

// SendRaw writes one frame carrying an arbitrary payload, bypassing request
// encoding. Useful for feeding the server bytes a well-behaved client never
// would.
func (c *Client) SendRaw(payload []byte) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := protocol.WriteFrame(c.conn, payload); err != nil {
		c.t.Fatalf("sending raw frame: %v", err)
	}
}

// Recv reads the next framed response, failing the test on error or timeout.
func (c *Client) Recv(timeout time.Duration) protocol.Response {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	resp, err := protocol.ReadResponse(c.reader)
	if err != nil {
		c.t.Fatalf("reading response: %v", err)
	}
	return resp
}

// RecvType reads responses until one of the given type arrives or timeout
// elapses. Broadcasts of other types are discarded.
//
// Postcondition: Returns the first matching response, or fails the test.
func (c *Client) RecvType(typ string, timeout time.Duration) protocol.Response {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.t.Fatalf("timed out waiting for %q response", typ)
		}
		resp := c.Recv(remaining)
		if resp.Type == typ {
			return resp
		}
	}
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.conn.Close()
}
