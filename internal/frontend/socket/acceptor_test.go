package socket_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kestrel-games/waygate/internal/config"
	"github.com/kestrel-games/waygate/internal/frontend/socket"
	"github.com/kestrel-games/waygate/internal/protocol"
	"github.com/kestrel-games/waygate/internal/testutil"
)

// echoHandler replies to every request with its type echoed back.
type echoHandler struct{}

func (echoHandler) HandleSession(conn *socket.Conn) {
	for {
		req, err := conn.ReadRequest()
		if err != nil {
			return
		}
		if err := conn.WriteResponse(protocol.Response{
			Type:    "Echo",
			Success: true,
			Message: req.Type,
		}); err != nil {
			return
		}
	}
}

func startAcceptor(t *testing.T, handler socket.SessionHandler) (*socket.Acceptor, string) {
	t.Helper()
	a := socket.NewAcceptor(config.SocketConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  time.Minute,
		WriteTimeout: 10 * time.Second,
	}, handler, zap.NewNop())

	go func() {
		if err := a.ListenAndServe(); err != nil {
			t.Error(err)
		}
	}()
	require.Eventually(t, func() bool { return a.Addr() != "" }, 5*time.Second, 10*time.Millisecond)
	return a, a.Addr()
}

// TestAcceptor_ServesConnections verifies a connected client gets responses
// for its requests.
func TestAcceptor_ServesConnections(t *testing.T) {
	a, addr := startAcceptor(t, echoHandler{})
	defer a.Stop()

	client := testutil.NewClient(t, addr)
	client.Send(protocol.Request{Type: "CreateRoom"})
	resp := client.Recv(5 * time.Second)
	assert.Equal(t, "Echo", resp.Type)
	assert.Equal(t, "CreateRoom", resp.Message)
}

// TestAcceptor_MultipleClients verifies concurrent clients are served
// independently.
func TestAcceptor_MultipleClients(t *testing.T) {
	a, addr := startAcceptor(t, echoHandler{})
	defer a.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := testutil.NewClient(t, addr)
			for j := 0; j < 10; j++ {
				client.Send(protocol.Request{Type: "JoinRoom"})
				resp := client.Recv(5 * time.Second)
				assert.Equal(t, "JoinRoom", resp.Message)
			}
		}()
	}
	wg.Wait()
}

// TestAcceptor_StopUnblocksIdleSessions verifies Stop closes live
// connections so their read loops end and shutdown does not hang.
func TestAcceptor_StopUnblocksIdleSessions(t *testing.T) {
	a, addr := startAcceptor(t, echoHandler{})

	client := testutil.NewClient(t, addr)
	client.Send(protocol.Request{Type: "CreateRoom"})
	client.Recv(5 * time.Second)

	done := make(chan struct{})
	go func() {
		a.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return with an idle session open")
	}
	assert.False(t, a.IsRunning())
}

// TestConn_ConcurrentWritesDoNotInterleave verifies frames written from
// multiple goroutines arrive intact.
func TestConn_ConcurrentWritesDoNotInterleave(t *testing.T) {
	blaster := &broadcastHandler{count: 100, writers: 4}
	a, addr := startAcceptor(t, blaster)
	defer a.Stop()

	client := testutil.NewClient(t, addr)
	client.Send(protocol.Request{Type: "go"})

	for i := 0; i < blaster.count*blaster.writers; i++ {
		resp := client.Recv(10 * time.Second)
		assert.Equal(t, "Blast", resp.Type)
		assert.True(t, resp.Success)
	}
}

// broadcastHandler fires count responses from each of writers goroutines at
// the first request, exercising the per-connection write lock.
type broadcastHandler struct {
	count   int
	writers int
}

func (h *broadcastHandler) HandleSession(conn *socket.Conn) {
	if _, err := conn.ReadRequest(); err != nil {
		return
	}
	var wg sync.WaitGroup
	for w := 0; w < h.writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < h.count; i++ {
				_ = conn.WriteResponse(protocol.Response{Type: "Blast", Success: true})
			}
		}()
	}
	wg.Wait()
}
