package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-games/waygate/internal/frontend/socket"
	"github.com/kestrel-games/waygate/internal/game/dice"
	"github.com/kestrel-games/waygate/internal/game/room"
	"github.com/kestrel-games/waygate/internal/game/ruleset"
	"github.com/kestrel-games/waygate/internal/game/world"
	"github.com/kestrel-games/waygate/internal/protocol"
)

// Room code shape: six characters drawn from uppercase letters and digits.
const (
	DefaultCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultCodeLength   = 6

	// codeAttempts bounds collision retries before giving up.
	codeAttempts = 10000
)

// ErrCodeSpaceExhausted is returned when a unique room code could not be
// generated.
var ErrCodeSpaceExhausted = errors.New("room code space exhausted")

// ErrUnknownRoom is returned for a join against a code with no live room.
var ErrUnknownRoom = errors.New("unknown room code")

// Config carries the collaborators every room created by the Registry is
// wired with.
type Config struct {
	Map         *world.Map
	Ruleset     *ruleset.Registry
	Source      dice.Source
	Logger      *zap.Logger
	TurnTimeout time.Duration
	Trigger     room.TriggerHook
	EnemyHealth int

	// CodeAlphabet and CodeLength override the room code shape; zero values
	// select the defaults.
	CodeAlphabet string
	CodeLength   int
}

// Registry owns all live sessions and rooms and implements
// socket.SessionHandler. Two independent mutexes guard the two maps; neither
// is ever held while calling into a room, so room broadcasts can resolve
// recipients without a lock cycle.
type Registry struct {
	cfg    Config
	logger *zap.Logger

	sessionsMu sync.RWMutex
	sessions   map[string]*Session

	roomsMu sync.RWMutex
	rooms   map[string]*room.Room
}

// NewRegistry creates an empty Registry.
//
// Precondition: cfg.Map, Ruleset, Source, and Logger must be set.
func NewRegistry(cfg Config) *Registry {
	if cfg.CodeAlphabet == "" {
		cfg.CodeAlphabet = DefaultCodeAlphabet
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = DefaultCodeLength
	}
	return &Registry{
		cfg:      cfg,
		logger:   cfg.Logger,
		sessions: make(map[string]*Session),
		rooms:    make(map[string]*room.Room),
	}
}

// SessionCount returns the number of connected sessions.
func (reg *Registry) SessionCount() int {
	reg.sessionsMu.RLock()
	defer reg.sessionsMu.RUnlock()
	return len(reg.sessions)
}

// RoomCount returns the number of live rooms.
func (reg *Registry) RoomCount() int {
	reg.roomsMu.RLock()
	defer reg.roomsMu.RUnlock()
	return len(reg.rooms)
}

// Room returns the live room with the given code.
//
// Postcondition: Returns (room, true) if found, or (nil, false).
func (reg *Registry) Room(code string) (*room.Room, bool) {
	reg.roomsMu.RLock()
	defer reg.roomsMu.RUnlock()
	r, ok := reg.rooms[strings.ToUpper(code)]
	return r, ok
}

// HandleSession runs the request loop for one connection: register the
// session, process framed requests until the connection drops, then clean
// up room membership.
func (reg *Registry) HandleSession(conn *socket.Conn) {
	sess := newSession(conn)

	reg.sessionsMu.Lock()
	reg.sessions[sess.id] = sess
	reg.sessionsMu.Unlock()

	reg.logger.Info("session started",
		zap.String("session", sess.id),
		zap.String("remote_addr", conn.RemoteAddr().String()),
	)

	for {
		req, err := conn.ReadRequest()
		if err != nil {
			// A malformed payload arrived inside an intact frame; the stream
			// is still aligned, so drop it and keep the connection open.
			if errors.Is(err, protocol.ErrMalformedPayload) {
				reg.logger.Warn("dropping malformed request frame",
					zap.String("session", sess.id),
					zap.Error(err),
				)
				continue
			}
			reg.logger.Debug("session read ended",
				zap.String("session", sess.id),
				zap.Error(err),
			)
			break
		}
		sess.Send(reg.dispatch(sess, req), reg.logger)
	}

	reg.disconnect(sess)
}

// dispatch routes one request to its handler and maps failures onto error
// responses. Every request produces exactly one unicast reply.
func (reg *Registry) dispatch(sess *Session, req protocol.Request) protocol.Response {
	typ, ok := protocol.Normalize(req.Type)
	if !ok {
		return protocol.Errorf(fmt.Sprintf("unknown request type %q", req.Type))
	}

	var (
		resp protocol.Response
		err  error
	)
	switch typ {
	case protocol.ReqCreateRoom:
		resp, err = reg.createRoomFor(sess)
	case protocol.ReqJoinRoom:
		resp, err = reg.joinRoomFor(sess, req.RoomCode)
	default:
		if sess.room == nil {
			return protocol.Errorf("join a room first")
		}
		switch typ {
		case protocol.ReqSelectClass:
			resp, err = sess.room.SelectClass(sess.id, req.PlayerClass)
		case protocol.ReqCreateTeam:
			resp, err = sess.room.CreateTeam(sess.id, req.TeamName)
		case protocol.ReqJoinTeam:
			resp, err = sess.room.JoinTeam(sess.id, req.TeamID)
		case protocol.ReqTeamReady:
			resp, err = sess.room.SetReady(sess.id, req.IsReady)
		case protocol.ReqMoveTeam:
			resp, err = sess.room.MoveTeam(sess.id, req.TargetWaypoint)
		case protocol.ReqBattleAction:
			if req.BattleAction == nil {
				return protocol.Errorf("battle_action payload required")
			}
			resp, err = sess.room.SubmitBattleAction(sess.id, *req.BattleAction)
		}
	}
	if err != nil {
		return protocol.Errorf(err.Error())
	}
	return resp
}

// createRoomFor creates a fresh room and seats the session in it.
func (reg *Registry) createRoomFor(sess *Session) (protocol.Response, error) {
	if sess.room != nil {
		return protocol.Response{}, errors.New("already in a room")
	}
	r, err := reg.CreateRoom()
	if err != nil {
		return protocol.Response{}, err
	}
	joined, err := r.Join(sess.id)
	if err != nil {
		reg.removeRoomIfEmpty(r)
		return protocol.Response{}, err
	}
	sess.room = r

	reg.logger.Info("room created",
		zap.String("room", r.Code()),
		zap.String("session", sess.id),
	)
	return protocol.Response{
		Type:        protocol.RespRoomCreated,
		Success:     true,
		RoomCode:    r.Code(),
		PlayerID:    sess.id,
		PlayerCount: joined.PlayerCount,
	}, nil
}

// joinRoomFor seats the session in an existing room by code.
func (reg *Registry) joinRoomFor(sess *Session, code string) (protocol.Response, error) {
	if sess.room != nil {
		return protocol.Response{}, errors.New("already in a room")
	}
	r, ok := reg.Room(code)
	if !ok {
		return protocol.Response{}, fmt.Errorf("%w: %q", ErrUnknownRoom, code)
	}
	resp, err := r.Join(sess.id)
	if err != nil {
		return protocol.Response{}, err
	}
	sess.room = r
	return resp, nil
}

// CreateRoom generates a unique code and registers a new room under it.
//
// Postcondition: The returned room is live and resolvable via Room until its
// last member leaves.
func (reg *Registry) CreateRoom() (*room.Room, error) {
	reg.roomsMu.Lock()
	defer reg.roomsMu.Unlock()

	code, err := reg.generateCodeLocked()
	if err != nil {
		return nil, err
	}
	r := room.New(room.Config{
		Code:        code,
		Map:         reg.cfg.Map,
		Ruleset:     reg.cfg.Ruleset,
		Source:      reg.cfg.Source,
		Logger:      reg.logger,
		Publish:     reg.publish,
		TurnTimeout: reg.cfg.TurnTimeout,
		Trigger:     reg.cfg.Trigger,
		EnemyHealth: reg.cfg.EnemyHealth,
	})
	reg.rooms[code] = r
	return r, nil
}

// generateCodeLocked draws random codes until one misses the live-room set.
//
// Precondition: roomsMu held for writing.
func (reg *Registry) generateCodeLocked() (string, error) {
	buf := make([]byte, reg.cfg.CodeLength)
	for attempt := 0; attempt < codeAttempts; attempt++ {
		for i := range buf {
			buf[i] = reg.cfg.CodeAlphabet[reg.cfg.Source.Intn(len(reg.cfg.CodeAlphabet))]
		}
		code := string(buf)
		if _, taken := reg.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// publish fans a response out to the given sessions. Called by rooms while
// holding their own lock; only sessionsMu is taken here.
func (reg *Registry) publish(sessionIDs []string, resp protocol.Response) {
	reg.sessionsMu.RLock()
	targets := make([]*Session, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		if s, ok := reg.sessions[id]; ok {
			targets = append(targets, s)
		}
	}
	reg.sessionsMu.RUnlock()

	for _, s := range targets {
		s.Send(resp, reg.logger)
	}
}

// disconnect removes a departed session from its room and the registry.
func (reg *Registry) disconnect(sess *Session) {
	if sess.room != nil {
		if empty := sess.room.Leave(sess.id); empty {
			reg.removeRoomIfEmpty(sess.room)
		}
		sess.room = nil
	}

	reg.sessionsMu.Lock()
	delete(reg.sessions, sess.id)
	reg.sessionsMu.Unlock()

	sess.Close()
	reg.logger.Info("session ended", zap.String("session", sess.id))
}

// removeRoomIfEmpty drops a room from the registry once its last member is
// gone.
func (reg *Registry) removeRoomIfEmpty(r *room.Room) {
	if r.MemberCount() > 0 {
		return
	}
	reg.roomsMu.Lock()
	delete(reg.rooms, r.Code())
	reg.roomsMu.Unlock()
	reg.logger.Info("room destroyed", zap.String("room", r.Code()))
}
