// Package room implements one running game instance: lobby membership,
// team formation, the map turn order, and delegation to the battle engine.
package room

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-games/waygate/internal/game/battle"
	"github.com/kestrel-games/waygate/internal/game/dice"
	"github.com/kestrel-games/waygate/internal/game/ruleset"
	"github.com/kestrel-games/waygate/internal/game/world"
	"github.com/kestrel-games/waygate/internal/protocol"
)

// State is the room lifecycle state. There is no transition back to Lobby.
type State int

const (
	Lobby State = iota
	Playing
	InBattle
	Finished
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case Lobby:
		return "lobby"
	case Playing:
		return "playing"
	case InBattle:
		return "in_battle"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Validation and state errors surfaced to clients as failure responses.
var (
	ErrWrongState      = errors.New("operation not valid in the current game state")
	ErrNotMember       = errors.New("player is not in this room")
	ErrUnknownClass    = errors.New("unknown player class")
	ErrNoClass         = errors.New("select a class first")
	ErrUnknownTeam     = errors.New("unknown team")
	ErrTeamFull        = fmt.Errorf("team is full (max %d members)", MaxTeamSize)
	ErrAlreadyOnTeam   = errors.New("player is already on a team")
	ErrNoTeam          = errors.New("player is not on a team")
	ErrNotYourTurn     = errors.New("not your team's turn")
	ErrUnknownWaypoint = errors.New("unknown waypoint")
	ErrNotLinked       = errors.New("waypoint is not reachable from the current position")
	ErrBattleInactive  = errors.New("no battle is active")
)

// TriggerHook decides whether entering a waypoint raises an encounter.
// Implementations may veto or force the map's hazard flag (script-driven
// triggers).
type TriggerHook interface {
	OnEnter(teamID, waypointID string, hazard bool) (bool, error)
}

// Publisher delivers a response to a set of sessions. Delivery is
// best-effort; per-recipient failures must not abort the rest.
type Publisher func(sessionIDs []string, resp protocol.Response)

// Config carries the collaborators a Room is wired with at construction.
type Config struct {
	// Code is the unique room code.
	Code string
	// Map is the waypoint graph teams move across.
	Map *world.Map
	// Ruleset resolves classes and skills.
	Ruleset *ruleset.Registry
	// Source provides all randomness.
	Source dice.Source
	// Logger must be non-nil.
	Logger *zap.Logger
	// Publish fans out room events. Must not call back into the Room.
	Publish Publisher
	// TurnTimeout bounds a human battle turn; 0 disables the timer.
	TurnTimeout time.Duration
	// Trigger optionally overrides hazard-flag encounter triggering.
	Trigger TriggerHook
	// EnemyHealth is the max health of spawned AI enemies.
	EnemyHealth int
}

// DefaultEnemyHealth is used when Config.EnemyHealth is unset.
const DefaultEnemyHealth = 100

// Room owns one game instance. A single mutex serializes every mutating
// operation, including battle timer callbacks, so requests from different
// sessions targeting the same room are processed first-arrives-first.
type Room struct {
	mu sync.Mutex

	code    string
	state   State
	gameMap *world.Map
	rules   *ruleset.Registry
	src     dice.Source
	logger  *zap.Logger
	publish Publisher
	trigger TriggerHook

	turnTimeout time.Duration
	enemyHealth int

	// members is the ordered list of session ids in the room.
	members []string
	players map[string]*Player
	teams   map[string]*Team
	teamSeq int

	// turnOrder is the fixed team rotation established at game start.
	turnOrder []string
	turnIdx   int

	battle     *battle.Battle
	battleTeam string
	turnTimer  *battle.TurnTimer
	winner     string
}

// New creates an empty Room in the Lobby state.
//
// Precondition: cfg.Code, Map, Ruleset, Source, Logger, and Publish must be set.
func New(cfg Config) *Room {
	enemyHealth := cfg.EnemyHealth
	if enemyHealth <= 0 {
		enemyHealth = DefaultEnemyHealth
	}
	return &Room{
		code:        cfg.Code,
		state:       Lobby,
		gameMap:     cfg.Map,
		rules:       cfg.Ruleset,
		src:         cfg.Source,
		logger:      cfg.Logger.With(zap.String("room", cfg.Code)),
		publish:     cfg.Publish,
		trigger:     cfg.Trigger,
		turnTimeout: cfg.TurnTimeout,
		enemyHealth: enemyHealth,
		players:     make(map[string]*Player),
		teams:       make(map[string]*Team),
	}
}

// Code returns the room code.
func (r *Room) Code() string { return r.code }

// State returns the current lifecycle state.
func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// MemberCount returns the number of sessions in the room.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// CurrentTurn returns the team id whose map move is next. Empty before the
// game starts.
func (r *Room) CurrentTurn() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentTurnLocked()
}

// Winner returns the winning team id once the room is Finished.
func (r *Room) Winner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.winner
}

func (r *Room) currentTurnLocked() string {
	if len(r.turnOrder) == 0 {
		return ""
	}
	return r.turnOrder[r.turnIdx]
}

// memberSnapshot returns a copy of the member session ids for publishing.
func (r *Room) memberSnapshot() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

// Join adds a session to the room and announces the new occupancy.
//
// Postcondition: Returns a JoinedRoom reply; members are notified with
// PlayerJoined.
func (r *Room) Join(playerID string) (protocol.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Lobby {
		return protocol.Response{}, fmt.Errorf("joining room %s: %w", r.code, ErrWrongState)
	}
	if _, exists := r.players[playerID]; exists {
		return protocol.Response{}, fmt.Errorf("player already in room %s", r.code)
	}

	r.members = append(r.members, playerID)
	r.players[playerID] = &Player{ID: playerID}

	r.publish(r.memberSnapshot(), protocol.Response{
		Type:        protocol.RespPlayerJoined,
		Success:     true,
		RoomCode:    r.code,
		PlayerID:    playerID,
		PlayerCount: len(r.members),
	})
	r.logger.Info("player joined", zap.String("player", playerID), zap.Int("count", len(r.members)))

	return protocol.Response{
		Type:        protocol.RespJoinedRoom,
		Success:     true,
		RoomCode:    r.code,
		PlayerID:    playerID,
		PlayerCount: len(r.members),
	}, nil
}

// Leave removes a session from the room, cleaning up team membership and,
// mid-game, repairing the turn rotation. Remaining members are notified of
// the updated occupancy.
//
// Postcondition: Returns true when the room is empty and should be destroyed.
func (r *Room) Leave(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return len(r.members) == 0
	}

	for i, m := range r.members {
		if m == playerID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	delete(r.players, playerID)

	if p.TeamID != "" {
		if team, ok := r.teams[p.TeamID]; ok {
			team.RemoveMember(playerID)
			if len(team.Members) == 0 {
				r.removeTeamLocked(team.ID)
				r.forfeitBattleLocked(team.ID)
			}
		}
	}

	if len(r.members) > 0 {
		r.publish(r.memberSnapshot(), protocol.Response{
			Type:        protocol.RespPlayerLeft,
			Success:     true,
			RoomCode:    r.code,
			PlayerID:    playerID,
			PlayerCount: len(r.members),
		})
	}
	r.logger.Info("player left", zap.String("player", playerID), zap.Int("count", len(r.members)))

	return len(r.members) == 0
}

// SelectClass sets the player's class and recomputes their combat stats.
//
// Postcondition: The player's Stats reflect the class at level 1.
func (r *Room) SelectClass(playerID, classID string) (protocol.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Lobby {
		return protocol.Response{}, ErrWrongState
	}
	p, ok := r.players[playerID]
	if !ok {
		return protocol.Response{}, ErrNotMember
	}
	class, ok := r.rules.Class(classID)
	if !ok {
		return protocol.Response{}, fmt.Errorf("%w: %q", ErrUnknownClass, classID)
	}

	p.Class = class.ID
	p.Stats = class.StatsFor(1)

	return protocol.Response{
		Type:     "SelectClass",
		Success:  true,
		PlayerID: playerID,
		Message:  fmt.Sprintf("class set to %s", class.Name),
	}, nil
}

// CreateTeam creates a team with the player as leader and sole member.
//
// Precondition: the player has selected a class and is not on a team.
func (r *Room) CreateTeam(playerID, name string) (protocol.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Lobby {
		return protocol.Response{}, ErrWrongState
	}
	p, ok := r.players[playerID]
	if !ok {
		return protocol.Response{}, ErrNotMember
	}
	if p.Class == "" {
		return protocol.Response{}, ErrNoClass
	}
	if p.TeamID != "" {
		return protocol.Response{}, ErrAlreadyOnTeam
	}
	if name == "" {
		return protocol.Response{}, errors.New("team name must not be empty")
	}

	r.teamSeq++
	team := &Team{
		ID:       fmt.Sprintf("team-%d", r.teamSeq),
		Name:     name,
		Members:  []string{playerID},
		LeaderID: playerID,
		Position: r.gameMap.Start,
	}
	r.teams[team.ID] = team
	p.TeamID = team.ID

	r.publish(r.memberSnapshot(), protocol.Response{
		Type:     protocol.RespTeamCreated,
		Success:  true,
		RoomCode: r.code,
		TeamID:   team.ID,
		TeamName: team.Name,
		PlayerID: playerID,
	})

	return protocol.Response{
		Type:    protocol.RespTeamCreated,
		Success: true,
		TeamID:  team.ID,
	}, nil
}

// JoinTeam adds the player to an existing team.
//
// Precondition: the player has selected a class, is not on a team, and the
// target team is below the member cap.
func (r *Room) JoinTeam(playerID, teamID string) (protocol.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Lobby {
		return protocol.Response{}, ErrWrongState
	}
	p, ok := r.players[playerID]
	if !ok {
		return protocol.Response{}, ErrNotMember
	}
	if p.Class == "" {
		return protocol.Response{}, ErrNoClass
	}
	if p.TeamID != "" {
		return protocol.Response{}, ErrAlreadyOnTeam
	}
	team, ok := r.teams[teamID]
	if !ok {
		return protocol.Response{}, fmt.Errorf("%w: %q", ErrUnknownTeam, teamID)
	}
	if len(team.Members) >= MaxTeamSize {
		return protocol.Response{}, ErrTeamFull
	}

	team.Members = append(team.Members, playerID)
	p.TeamID = team.ID

	r.publish(r.memberSnapshot(), protocol.Response{
		Type:     protocol.RespPlayerJoinedTeam,
		Success:  true,
		RoomCode: r.code,
		TeamID:   team.ID,
		PlayerID: playerID,
	})

	return protocol.Response{
		Type:    protocol.RespPlayerJoinedTeam,
		Success: true,
		TeamID:  team.ID,
	}, nil
}

// SetReady toggles the ready flag of the player's team. When every team is
// ready and at least two exist, the game starts.
func (r *Room) SetReady(playerID string, ready bool) (protocol.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Lobby {
		return protocol.Response{}, ErrWrongState
	}
	p, ok := r.players[playerID]
	if !ok {
		return protocol.Response{}, ErrNotMember
	}
	if p.TeamID == "" {
		return protocol.Response{}, ErrNoTeam
	}
	team := r.teams[p.TeamID]
	team.Ready = ready

	r.publish(r.memberSnapshot(), protocol.Response{
		Type:     protocol.RespTeamReadyChanged,
		Success:  true,
		RoomCode: r.code,
		TeamID:   team.ID,
		IsReady:  ready,
	})

	if r.canStartGameLocked() {
		r.startGameLocked()
	}

	return protocol.Response{
		Type:    protocol.RespTeamReadyChanged,
		Success: true,
		TeamID:  team.ID,
		IsReady: ready,
	}, nil
}

// CanStartGame reports whether the lobby conditions are met: at least two
// teams, every team ready.
func (r *Room) CanStartGame() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == Lobby && r.canStartGameLocked()
}

func (r *Room) canStartGameLocked() bool {
	if len(r.teams) < 2 {
		return false
	}
	for _, t := range r.teams {
		if !t.Ready {
			return false
		}
	}
	return true
}

// startGameLocked transitions Lobby → Playing: fixes the team rotation by
// sorted team id and picks a uniformly random first mover.
func (r *Room) startGameLocked() {
	r.turnOrder = make([]string, 0, len(r.teams))
	for id := range r.teams {
		r.turnOrder = append(r.turnOrder, id)
	}
	sort.Strings(r.turnOrder)
	r.turnIdx = r.src.Intn(len(r.turnOrder))
	r.state = Playing

	r.publish(r.memberSnapshot(), protocol.Response{
		Type:        protocol.RespGameStarted,
		Success:     true,
		RoomCode:    r.code,
		CurrentTurn: r.currentTurnLocked(),
	})
	r.logger.Info("game started",
		zap.Strings("turn_order", r.turnOrder),
		zap.String("first", r.currentTurnLocked()),
	)
}

// removeTeamLocked drops a team and, mid-game, repairs the turn rotation.
// If only one team remains in an active game, that team wins.
func (r *Room) removeTeamLocked(teamID string) {
	delete(r.teams, teamID)

	if r.state != Playing && r.state != InBattle {
		return
	}

	for i, id := range r.turnOrder {
		if id != teamID {
			continue
		}
		r.turnOrder = append(r.turnOrder[:i], r.turnOrder[i+1:]...)
		if len(r.turnOrder) == 0 {
			r.state = Finished
			return
		}
		if i < r.turnIdx {
			r.turnIdx--
		}
		r.turnIdx %= len(r.turnOrder)
		break
	}

	if len(r.turnOrder) == 1 && r.state == Playing {
		r.finishGameLocked(r.turnOrder[0])
	}
}

// finishGameLocked transitions to Finished and announces the winner.
func (r *Room) finishGameLocked(winnerTeam string) {
	r.state = Finished
	r.winner = winnerTeam
	r.publish(r.memberSnapshot(), protocol.Response{
		Type:     protocol.RespGameWon,
		Success:  true,
		RoomCode: r.code,
		TeamID:   winnerTeam,
	})
	r.logger.Info("game won", zap.String("team", winnerTeam))
}
