package ruleset

import (
	"fmt"
	"sort"
)

// Registry indexes the loaded classes and skills by ID. It is immutable
// after construction and safe for concurrent reads.
type Registry struct {
	classes map[string]*Class
	skills  map[string]*Skill
}

// NewRegistry builds a Registry from loaded content.
//
// Precondition: every class skill reference must name a known skill.
// Postcondition: Returns a Registry or an error on duplicate IDs or
// dangling skill references.
func NewRegistry(classes []*Class, skills []*Skill) (*Registry, error) {
	r := &Registry{
		classes: make(map[string]*Class, len(classes)),
		skills:  make(map[string]*Skill, len(skills)),
	}
	for _, s := range skills {
		if _, dup := r.skills[s.ID]; dup {
			return nil, fmt.Errorf("duplicate skill id %q", s.ID)
		}
		r.skills[s.ID] = s
	}
	for _, c := range classes {
		if _, dup := r.classes[c.ID]; dup {
			return nil, fmt.Errorf("duplicate class id %q", c.ID)
		}
		for _, sid := range c.Skills {
			if _, ok := r.skills[sid]; !ok {
				return nil, fmt.Errorf("class %q references unknown skill %q", c.ID, sid)
			}
		}
		r.classes[c.ID] = c
	}
	return r, nil
}

// Class returns the class with the given ID.
//
// Postcondition: Returns (class, true) if found, or (nil, false).
func (r *Registry) Class(id string) (*Class, bool) {
	c, ok := r.classes[id]
	return c, ok
}

// Skill returns the skill with the given ID.
//
// Postcondition: Returns (skill, true) if found, or (nil, false).
func (r *Registry) Skill(id string) (*Skill, bool) {
	s, ok := r.skills[id]
	return s, ok
}

// SkillIDs returns the IDs of all registered skills in sorted order.
func (r *Registry) SkillIDs() []string {
	ids := make([]string, 0, len(r.skills))
	for id := range r.skills {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OffensiveSkillIDs returns the IDs of all registered skills whose effect
// harms its target, in sorted order. This is the pool AI participants draw
// from; supportive skills would have them aiding the opposing side.
func (r *Registry) OffensiveSkillIDs() []string {
	ids := make([]string, 0, len(r.skills))
	for id, s := range r.skills {
		if s.Effect.Supportive() {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClassCount returns the number of registered classes.
func (r *Registry) ClassCount() int { return len(r.classes) }

// DefaultRegistry returns the built-in ruleset used when no content
// directories are configured: three classes and their baseline skills.
//
// Postcondition: Returns a non-nil Registry that passes NewRegistry checks.
func DefaultRegistry() *Registry {
	skills := []*Skill{
		{
			ID:     "cleave",
			Name:   "Cleave",
			Effect: Effect{Kind: EffectDamage, Amount: 5},
		},
		{
			ID:     "mend",
			Name:   "Mend",
			Effect: Effect{Kind: EffectHealing, Amount: 15},
		},
		{
			ID:     "hex",
			Name:   "Hex",
			Effect: Effect{Kind: EffectStatusEffect, Status: "weakened", Duration: 2},
		},
		{
			ID:     "dispatch",
			Name:   "Dispatch",
			Effect: Effect{Kind: EffectExecute, Threshold: 20},
		},
		{
			ID:     "siphon",
			Name:   "Siphon",
			Effect: Effect{Kind: EffectDrain, Amount: 8},
		},
	}
	classes := []*Class{
		{
			ID: "warrior", Name: "Warrior",
			BaseHealth: 120, HealthPerLevel: 12,
			Attack: 14, Defense: 12, Speed: 8,
			Skills: []string{"cleave", "dispatch"},
		},
		{
			ID: "mage", Name: "Mage",
			BaseHealth: 90, HealthPerLevel: 8,
			Attack: 16, Defense: 8, Speed: 10,
			Skills: []string{"hex", "siphon"},
		},
		{
			ID: "rogue", Name: "Rogue",
			BaseHealth: 100, HealthPerLevel: 10,
			Attack: 13, Defense: 10, Speed: 14,
			Skills: []string{"cleave", "mend"},
		},
	}
	r, err := NewRegistry(classes, skills)
	if err != nil {
		panic("ruleset: default registry invalid: " + err.Error())
	}
	return r
}
