// Package ruleset provides the content-defined game rules: playable classes
// with their combat stats, and skills with their typed effects.
package ruleset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Class defines a playable class and the base combat stats it grants.
//
// Precondition: ID and Name must be non-empty after loading.
type Class struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// BaseHealth is max health at level 1.
	BaseHealth int `yaml:"base_health"`
	// HealthPerLevel is added to max health for each level beyond 1.
	HealthPerLevel int `yaml:"health_per_level"`
	Attack         int `yaml:"attack"`
	Defense        int `yaml:"defense"`
	Speed          int `yaml:"speed"`
	// Skills lists the skill IDs members of this class may use.
	Skills []string `yaml:"skills"`
}

// Validate checks that the class satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty and BaseHealth >= 1.
func (c *Class) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("class: id must not be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("class %q: name must not be empty", c.ID)
	}
	if c.BaseHealth < 1 {
		return fmt.Errorf("class %q: base_health must be >= 1", c.ID)
	}
	if c.HealthPerLevel < 0 {
		return fmt.Errorf("class %q: health_per_level must be >= 0", c.ID)
	}
	return nil
}

// Stats is a per-player snapshot of combat attributes derived from a class
// and level.
type Stats struct {
	Level      int
	Experience int
	Health     int
	MaxHealth  int
	Attack     int
	Defense    int
	Speed      int
}

// StatsFor derives full-health Stats from the class at the given level.
//
// Precondition: level >= 1.
// Postcondition: Health == MaxHealth == BaseHealth + (level-1)*HealthPerLevel.
func (c *Class) StatsFor(level int) Stats {
	maxHealth := c.BaseHealth + (level-1)*c.HealthPerLevel
	return Stats{
		Level:     level,
		Health:    maxHealth,
		MaxHealth: maxHealth,
		Attack:    c.Attack,
		Defense:   c.Defense,
		Speed:     c.Speed,
	}
}

// LoadClasses reads all .yaml files in dir and parses each as a Class.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed, validated classes or a non-nil error.
func LoadClasses(dir string) ([]*Class, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	classes := make([]*Class, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var c Class
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parsing class file %s: %w", path, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("class file %s: %w", path, err)
		}
		classes = append(classes, &c)
	}
	return classes, nil
}

// yamlFiles lists the .yaml/.yml files directly under dir, sorted by name.
func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}
