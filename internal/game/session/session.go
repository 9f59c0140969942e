// Package session tracks connected clients and routes their requests to the
// room each belongs to.
package session

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kestrel-games/waygate/internal/frontend/socket"
	"github.com/kestrel-games/waygate/internal/game/room"
	"github.com/kestrel-games/waygate/internal/protocol"
)

// Session is one connected client. The id doubles as the player id inside a
// room. The room field is only touched from the session's own request loop.
type Session struct {
	id   string
	conn *socket.Conn
	room *room.Room

	closeOnce sync.Once
}

// newSession wraps a connection with a fresh session id.
func newSession(conn *socket.Conn) *Session {
	return &Session{
		id:   uuid.NewString(),
		conn: conn,
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Send delivers a response to the client. A failed write means the transport
// is gone, so the connection is closed immediately; that unblocks the read
// loop, which then runs the normal disconnect teardown rather than waiting
// out the read deadline on a dead peer.
func (s *Session) Send(resp protocol.Response, logger *zap.Logger) {
	if err := s.conn.WriteResponse(resp); err != nil {
		logger.Debug("dropping undeliverable response",
			zap.String("session", s.id),
			zap.String("type", resp.Type),
			zap.Error(err),
		)
		s.Close()
	}
}

// Close closes the underlying connection. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}
