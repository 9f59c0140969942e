package world

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlMapFile is the top-level YAML structure for map files.
type yamlMapFile struct {
	Map yamlMap `yaml:"map"`
}

// yamlMap is the YAML representation of a map.
type yamlMap struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Start     string         `yaml:"start"`
	Goal      string         `yaml:"goal"`
	Waypoints []yamlWaypoint `yaml:"waypoints"`
}

// yamlWaypoint is the YAML representation of a waypoint.
type yamlWaypoint struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Links     []string       `yaml:"links"`
	Hazard    bool           `yaml:"hazard"`
	Encounter *yamlEncounter `yaml:"encounter"`
}

// yamlEncounter is the YAML representation of an encounter trigger.
type yamlEncounter struct {
	Type       string   `yaml:"type"`
	Difficulty int      `yaml:"difficulty"`
	Enemies    []string `yaml:"enemies"`
}

// LoadMapFromFile reads and validates a single map YAML file.
//
// Precondition: path must point to a valid YAML map file.
// Postcondition: Returns a validated Map or a non-nil error.
func LoadMapFromFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map file %s: %w", path, err)
	}
	return LoadMapFromBytes(data)
}

// LoadMapFromBytes parses and validates a map from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the map schema.
// Postcondition: Returns a validated Map or a non-nil error.
func LoadMapFromBytes(data []byte) (*Map, error) {
	var file yamlMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing map YAML: %w", err)
	}

	m := convertYAMLMap(file.Map)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validating map: %w", err)
	}
	return m, nil
}

// convertYAMLMap converts the parsed YAML structures into domain types.
func convertYAMLMap(ym yamlMap) *Map {
	m := &Map{
		ID:        ym.ID,
		Name:      ym.Name,
		Start:     ym.Start,
		Goal:      ym.Goal,
		Waypoints: make(map[string]*Waypoint, len(ym.Waypoints)),
	}
	for _, yw := range ym.Waypoints {
		wp := &Waypoint{
			ID:     yw.ID,
			Name:   yw.Name,
			Links:  yw.Links,
			Hazard: yw.Hazard,
		}
		if yw.Encounter != nil {
			wp.Encounter = &Encounter{
				Type:       EncounterType(yw.Encounter.Type),
				Difficulty: yw.Encounter.Difficulty,
				Enemies:    yw.Encounter.Enemies,
			}
		}
		m.Waypoints[yw.ID] = wp
	}
	return m
}
