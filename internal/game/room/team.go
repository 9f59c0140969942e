package room

import "github.com/kestrel-games/waygate/internal/game/ruleset"

// MaxTeamSize is the member cap for a single team.
const MaxTeamSize = 4

// Team is a group of sessions sharing one map position and one turn slot.
type Team struct {
	// ID uniquely identifies the team within its room.
	ID string
	// Name is the display name chosen at creation.
	Name string
	// Members is the ordered list of member session ids, capped at
	// MaxTeamSize. The first member is the creator.
	Members []string
	// LeaderID is the session id of the team leader.
	LeaderID string
	// Ready is the team's lobby ready flag.
	Ready bool
	// Position is the waypoint the team currently occupies.
	Position string
}

// HasMember reports whether the session id belongs to this team.
func (t *Team) HasMember(id string) bool {
	for _, m := range t.Members {
		if m == id {
			return true
		}
	}
	return false
}

// RemoveMember drops the session id from the team, promoting the next
// member to leader if the leader left.
//
// Postcondition: Returns true if the member was present and removed.
func (t *Team) RemoveMember(id string) bool {
	for i, m := range t.Members {
		if m != id {
			continue
		}
		t.Members = append(t.Members[:i], t.Members[i+1:]...)
		if t.LeaderID == id {
			t.LeaderID = ""
			if len(t.Members) > 0 {
				t.LeaderID = t.Members[0]
			}
		}
		return true
	}
	return false
}

// Player tracks one session's per-room state: chosen class and derived
// combat stats.
type Player struct {
	// ID is the session id.
	ID string
	// Class is the chosen class id; empty until SelectClass.
	Class string
	// TeamID is the joined team; empty until the player joins one.
	TeamID string
	// Stats holds the class-derived combat attributes. Zero value until a
	// class is chosen.
	Stats ruleset.Stats
}
