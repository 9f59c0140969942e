package room

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kestrel-games/waygate/internal/game/world"
	"github.com/kestrel-games/waygate/internal/protocol"
)

// MoveTeam moves the acting player's team along a waypoint link. Reaching
// the goal wins the game immediately. Entering a hazardous waypoint starts
// a battle instead of passing the turn; otherwise the turn advances to the
// next team in rotation.
//
// Precondition: the room is Playing and it is the player's team's turn.
func (r *Room) MoveTeam(playerID, waypointID string) (protocol.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Playing {
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
	if team.ID != r.currentTurnLocked() {
		return protocol.Response{}, ErrNotYourTurn
	}

	from, ok := r.gameMap.Waypoint(team.Position)
	if !ok {
		return protocol.Response{}, fmt.Errorf("%w: %q", ErrUnknownWaypoint, team.Position)
	}
	dest, ok := r.gameMap.Waypoint(waypointID)
	if !ok {
		return protocol.Response{}, fmt.Errorf("%w: %q", ErrUnknownWaypoint, waypointID)
	}
	if !from.LinksTo(waypointID) {
		return protocol.Response{}, fmt.Errorf("%w: %s -> %s", ErrNotLinked, team.Position, waypointID)
	}

	team.Position = dest.ID
	r.logger.Info("team moved",
		zap.String("team", team.ID),
		zap.String("from", from.ID),
		zap.String("to", dest.ID),
	)

	r.publish(r.memberSnapshot(), protocol.Response{
		Type:     protocol.RespTeamMoved,
		Success:  true,
		RoomCode: r.code,
		TeamID:   team.ID,
		Waypoint: dest.ID,
	})

	reply := protocol.Response{
		Type:     protocol.RespTeamMoved,
		Success:  true,
		TeamID:   team.ID,
		Waypoint: dest.ID,
	}

	if dest.ID == r.gameMap.Goal {
		r.finishGameLocked(team.ID)
		return reply, nil
	}

	if r.encounterTriggersLocked(team, dest) {
		r.startBattleLocked(team, dest)
		return reply, nil
	}

	r.advanceTurnLocked()
	return reply, nil
}

// encounterTriggersLocked consults the trigger hook, falling back to the
// waypoint's hazard flag. Hook errors are logged and treated as the flag
// verbatim so a broken script cannot stall the game.
func (r *Room) encounterTriggersLocked(team *Team, wp *world.Waypoint) bool {
	if !wp.Hazard && r.trigger == nil {
		return false
	}
	if r.trigger == nil {
		return wp.Hazard
	}
	fire, err := r.trigger.OnEnter(team.ID, wp.ID, wp.Hazard)
	if err != nil {
		r.logger.Warn("trigger hook failed, using hazard flag",
			zap.String("waypoint", wp.ID),
			zap.Error(err),
		)
		return wp.Hazard
	}
	return fire
}

// advanceTurnLocked rotates the map turn to the next surviving team and
// announces the new current turn.
func (r *Room) advanceTurnLocked() {
	if len(r.turnOrder) == 0 {
		return
	}
	r.turnIdx = (r.turnIdx + 1) % len(r.turnOrder)
	r.publish(r.memberSnapshot(), protocol.Response{
		Type:        protocol.RespTurnChanged,
		Success:     true,
		RoomCode:    r.code,
		CurrentTurn: r.currentTurnLocked(),
	})
}
