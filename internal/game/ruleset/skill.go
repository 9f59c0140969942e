package ruleset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EffectKind is the closed set of skill effect variants. Effects are decoded
// by the explicit "kind" discriminator only; a missing or unknown kind is a
// load error, never inferred from which fields happen to be present.
type EffectKind string

const (
	EffectDamage       EffectKind = "Damage"
	EffectHealing      EffectKind = "Healing"
	EffectStatusEffect EffectKind = "StatusEffect"
	EffectExecute      EffectKind = "Execute"
	EffectTaunt        EffectKind = "Taunt"
	EffectDrain        EffectKind = "Drain"
)

// knownEffectKinds enumerates every valid EffectKind.
var knownEffectKinds = map[EffectKind]bool{
	EffectDamage:       true,
	EffectHealing:      true,
	EffectStatusEffect: true,
	EffectExecute:      true,
	EffectTaunt:        true,
	EffectDrain:        true,
}

// Effect is one typed skill effect. Kind selects the variant; the remaining
// fields are meaningful only for the kinds documented on them.
type Effect struct {
	Kind EffectKind `yaml:"kind"`
	// Amount is the effect magnitude: bonus damage for Damage and Execute,
	// health restored for Healing, health transferred for Drain.
	Amount int `yaml:"amount"`
	// Status names the condition applied by StatusEffect (e.g. "stunned").
	Status string `yaml:"status"`
	// Duration is the number of turns a StatusEffect or Taunt persists.
	Duration int `yaml:"duration"`
	// Threshold is the health fraction (percent) below which Execute kills
	// outright.
	Threshold int `yaml:"threshold"`
}

// Supportive reports whether the effect aids its target rather than harming
// it. Supportive skills aim at the actor's own side; everything else follows
// the hostile targeting rule.
func (e *Effect) Supportive() bool {
	return e.Kind == EffectHealing
}

// Validate checks the effect's discriminator and per-kind fields.
//
// Postcondition: Returns nil iff Kind is a known variant with valid fields.
func (e *Effect) Validate() error {
	if e.Kind == "" {
		return fmt.Errorf("effect: kind must not be empty")
	}
	if !knownEffectKinds[e.Kind] {
		return fmt.Errorf("effect: unknown kind %q", e.Kind)
	}
	switch e.Kind {
	case EffectDamage, EffectHealing, EffectDrain:
		if e.Amount < 0 {
			return fmt.Errorf("effect %s: amount must be >= 0", e.Kind)
		}
	case EffectStatusEffect:
		if e.Status == "" {
			return fmt.Errorf("effect StatusEffect: status must not be empty")
		}
		if e.Duration < 1 {
			return fmt.Errorf("effect StatusEffect: duration must be >= 1")
		}
	case EffectExecute:
		if e.Threshold < 1 || e.Threshold > 100 {
			return fmt.Errorf("effect Execute: threshold must be in [1,100]")
		}
	case EffectTaunt:
		if e.Duration < 1 {
			return fmt.Errorf("effect Taunt: duration must be >= 1")
		}
	}
	return nil
}

// Skill defines a usable combat skill loaded from content.
type Skill struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Effect      Effect `yaml:"effect"`
}

// Validate checks that the skill satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty and Effect is valid.
func (s *Skill) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("skill: id must not be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("skill %q: name must not be empty", s.ID)
	}
	if err := s.Effect.Validate(); err != nil {
		return fmt.Errorf("skill %q: %w", s.ID, err)
	}
	return nil
}

// LoadSkills reads all .yaml files in dir and parses each as a Skill.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed, validated skills or a non-nil error.
func LoadSkills(dir string) ([]*Skill, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	skills := make([]*Skill, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var s Skill
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing skill file %s: %w", path, err)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("skill file %s: %w", path, err)
		}
		skills = append(skills, &s)
	}
	return skills, nil
}
