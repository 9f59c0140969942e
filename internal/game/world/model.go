// Package world provides the shared map model: the waypoint graph teams
// move across, with goal and encounter annotations.
package world

import "fmt"

// StartWaypointID is the waypoint every team occupies at game start.
const StartWaypointID = "start"

// EncounterType distinguishes the two battle forms a map trigger can raise.
type EncounterType string

const (
	// EncounterEnemy pits the triggering team against AI-controlled enemies.
	EncounterEnemy EncounterType = "Enemy"
	// EncounterTeamVsTeam pits the triggering team against a rival team.
	EncounterTeamVsTeam EncounterType = "TeamVsTeam"
)

// Encounter describes the combat a hazard waypoint produces when entered.
type Encounter struct {
	// Type selects enemy or team-vs-team combat.
	Type EncounterType
	// Difficulty scales enemy strength and AI turn-order priority.
	Difficulty int
	// Enemies lists the AI participant ids spawned for an Enemy encounter.
	Enemies []string
}

// Waypoint is one named node in the map's connectivity graph.
type Waypoint struct {
	// ID uniquely identifies this waypoint within the map.
	ID string
	// Name is the display name shown to players.
	Name string
	// Links lists the waypoint IDs reachable in one move.
	Links []string
	// Hazard marks this waypoint as an encounter trigger.
	Hazard bool
	// Encounter describes the battle raised when Hazard is true.
	Encounter *Encounter
}

// LinksTo reports whether target is reachable from this waypoint in one move.
func (w *Waypoint) LinksTo(target string) bool {
	for _, l := range w.Links {
		if l == target {
			return true
		}
	}
	return false
}

// Map is a complete waypoint graph for one game board.
type Map struct {
	// ID uniquely identifies this map.
	ID string
	// Name is the display name of the map.
	Name string
	// Start is the waypoint ID teams begin on.
	Start string
	// Goal is the waypoint ID that ends the game in victory when reached.
	Goal string
	// Waypoints contains all waypoints, keyed by waypoint ID.
	Waypoints map[string]*Waypoint
}

// Waypoint returns the waypoint with the given ID.
//
// Postcondition: Returns (waypoint, true) if found, or (nil, false).
func (m *Map) Waypoint(id string) (*Waypoint, bool) {
	wp, ok := m.Waypoints[id]
	return wp, ok
}

// Validate checks map invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (m *Map) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("map ID must not be empty")
	}
	if m.Start == "" {
		return fmt.Errorf("map %q: start must not be empty", m.ID)
	}
	if m.Goal == "" {
		return fmt.Errorf("map %q: goal must not be empty", m.ID)
	}
	if len(m.Waypoints) == 0 {
		return fmt.Errorf("map %q: must contain at least one waypoint", m.ID)
	}
	if _, ok := m.Waypoints[m.Start]; !ok {
		return fmt.Errorf("map %q: start waypoint %q not found", m.ID, m.Start)
	}
	if _, ok := m.Waypoints[m.Goal]; !ok {
		return fmt.Errorf("map %q: goal waypoint %q not found", m.ID, m.Goal)
	}
	for id, wp := range m.Waypoints {
		if wp.ID != id {
			return fmt.Errorf("map %q: waypoint key %q does not match waypoint ID %q", m.ID, id, wp.ID)
		}
		for _, link := range wp.Links {
			if _, ok := m.Waypoints[link]; !ok {
				return fmt.Errorf("map %q: waypoint %q links to unknown waypoint %q", m.ID, id, link)
			}
		}
		if wp.Hazard && wp.Encounter == nil {
			return fmt.Errorf("map %q: hazard waypoint %q has no encounter", m.ID, id)
		}
		if wp.Encounter != nil {
			switch wp.Encounter.Type {
			case EncounterEnemy:
				if len(wp.Encounter.Enemies) == 0 {
					return fmt.Errorf("map %q: waypoint %q enemy encounter has no enemies", m.ID, id)
				}
			case EncounterTeamVsTeam:
				// opposing team is chosen at trigger time
			default:
				return fmt.Errorf("map %q: waypoint %q has unknown encounter type %q", m.ID, id, wp.Encounter.Type)
			}
			if wp.Encounter.Difficulty < 0 {
				return fmt.Errorf("map %q: waypoint %q has negative difficulty", m.ID, id)
			}
		}
	}
	return nil
}

// DefaultMap returns the built-in board used when no map file is configured:
// a short linear track with one hazard between start and goal.
//
// Postcondition: The returned map passes Validate.
func DefaultMap() *Map {
	m := &Map{
		ID:    "default",
		Name:  "The Crossing",
		Start: StartWaypointID,
		Goal:  "goal",
		Waypoints: map[string]*Waypoint{
			StartWaypointID: {
				ID:    StartWaypointID,
				Name:  "Trailhead",
				Links: []string{"meadow", "thicket"},
			},
			"meadow": {
				ID:    "meadow",
				Name:  "Open Meadow",
				Links: []string{StartWaypointID, "crossing"},
			},
			"thicket": {
				ID:     "thicket",
				Name:   "Dark Thicket",
				Links:  []string{StartWaypointID, "crossing"},
				Hazard: true,
				Encounter: &Encounter{
					Type:       EncounterEnemy,
					Difficulty: 1,
					Enemies:    []string{"thicket-wolf"},
				},
			},
			"crossing": {
				ID:    "crossing",
				Name:  "River Crossing",
				Links: []string{"meadow", "thicket", "goal"},
			},
			"goal": {
				ID:    "goal",
				Name:  "The Waygate",
				Links: []string{"crossing"},
			},
		},
	}
	return m
}
