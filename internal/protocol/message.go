// Package protocol defines the framed JSON request/response types exchanged
// between clients and the Waygate game server.
package protocol

import "strings"

// RequestType identifies a client operation. Matching is case-insensitive;
// see Normalize.
type RequestType string

// Client request types.
const (
	ReqCreateRoom   RequestType = "CreateRoom"
	ReqJoinRoom     RequestType = "JoinRoom"
	ReqSelectClass  RequestType = "SelectClass"
	ReqCreateTeam   RequestType = "CreateTeam"
	ReqJoinTeam     RequestType = "JoinTeam"
	ReqTeamReady    RequestType = "TeamReady"
	ReqMoveTeam     RequestType = "MoveTeam"
	ReqBattleAction RequestType = "BattleAction"
)

// Server response types.
const (
	RespRoomCreated      = "RoomCreated"
	RespJoinedRoom       = "JoinedRoom"
	RespPlayerJoined     = "PlayerJoined"
	RespPlayerLeft       = "PlayerLeft"
	RespTeamCreated      = "TeamCreated"
	RespPlayerJoinedTeam = "PlayerJoinedTeam"
	RespTeamReadyChanged = "TeamReadyChanged"
	RespGameStarted      = "GameStarted"
	RespTeamMoved        = "TeamMoved"
	RespTurnChanged      = "TurnChanged"
	RespGameWon          = "GameWon"
	RespBattleStarted    = "BattleStarted"
	RespBattleAction     = "BattleAction"
	RespBattleEnded      = "BattleEnded"
	RespError            = "Error"
)

// requestTypes maps the lowercase form of every known request type to its
// canonical spelling.
var requestTypes = func() map[string]RequestType {
	all := []RequestType{
		ReqCreateRoom, ReqJoinRoom, ReqSelectClass, ReqCreateTeam,
		ReqJoinTeam, ReqTeamReady, ReqMoveTeam, ReqBattleAction,
	}
	m := make(map[string]RequestType, len(all))
	for _, t := range all {
		m[strings.ToLower(string(t))] = t
	}
	return m
}()

// Normalize resolves a raw type string to its canonical RequestType,
// matching case-insensitively.
//
// Postcondition: Returns (type, true) for a known request type, or ("", false).
func Normalize(raw string) (RequestType, bool) {
	t, ok := requestTypes[strings.ToLower(raw)]
	return t, ok
}

// BattleAction is a participant's chosen combat move.
type BattleAction struct {
	// Type is the action kind: "Attack", "Skill", or "Defend".
	Type string `json:"type"`
	// TargetID names the participant the action is aimed at. Empty for Defend.
	TargetID string `json:"target_id,omitempty"`
	// SkillID selects a skill from the ruleset when Type is "Skill".
	SkillID string `json:"skill_id,omitempty"`
}

// Request is the single client-to-server message shape. Type discriminates
// the operation; the remaining fields form a superset of every operation's
// payload and are only consulted where the operation requires them.
type Request struct {
	Type           string        `json:"type"`
	RoomCode       string        `json:"room_code,omitempty"`
	TeamID         string        `json:"team_id,omitempty"`
	TeamName       string        `json:"team_name,omitempty"`
	PlayerClass    string        `json:"player_class,omitempty"`
	TargetWaypoint string        `json:"target_waypoint,omitempty"`
	IsReady        bool          `json:"is_ready,omitempty"`
	BattleAction   *BattleAction `json:"battle_action,omitempty"`
}

// ActionResult is the outcome of one resolved battle action.
type ActionResult struct {
	// Success is false for unknown or inapplicable actions.
	Success bool `json:"success"`
	// Damage is the damage dealt; zero for Defend and failed actions.
	Damage int `json:"damage"`
	// Message is a human-readable account of the outcome.
	Message string `json:"message"`
}

// Response is the single server-to-client message shape, unicast as a reply
// or broadcast to a room. Failure responses always carry a non-empty Message.
type Response struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	RoomCode string `json:"room_code,omitempty"`
	// PlayerID identifies the session a player-scoped event concerns.
	PlayerID string `json:"player_id,omitempty"`
	TeamID   string `json:"team_id,omitempty"`
	TeamName string `json:"team_name,omitempty"`
	// IsReady mirrors the team ready flag on TeamReadyChanged.
	IsReady bool `json:"is_ready,omitempty"`
	// CurrentTurn names the team or participant whose move is next.
	CurrentTurn string `json:"current_turn,omitempty"`
	// Waypoint is the position a team moved to.
	Waypoint string `json:"waypoint,omitempty"`
	// PlayerCount is the room occupancy after a join or leave.
	PlayerCount int `json:"player_count,omitempty"`
	// Participants lists battle participant ids on BattleStarted.
	Participants []string `json:"participants,omitempty"`
	// Health maps participant id to current health on battle events.
	Health map[string]int `json:"health,omitempty"`
	// ActionResult carries the outcome of a resolved battle action.
	ActionResult *ActionResult `json:"action_result,omitempty"`
}

// Errorf builds a failure response of type Error with the given message.
//
// Precondition: message must be non-empty.
func Errorf(message string) Response {
	return Response{Type: RespError, Success: false, Message: message}
}
