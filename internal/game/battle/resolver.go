package battle

import (
	"fmt"
	"strings"

	"github.com/kestrel-games/waygate/internal/game/dice"
	"github.com/kestrel-games/waygate/internal/game/ruleset"
)

// Damage roll bounds, half-open.
const (
	attackDamageMin = 10
	attackDamageMax = 20
	skillDamageMin  = 15
	skillDamageMax  = 25
)

// tauntStatus is the internal status name tracking an active taunt.
const tauntStatus = "taunted"

// ActionType identifies what a participant does on their turn.
type ActionType int

const (
	ActionUnknown ActionType = iota
	ActionAttack
	ActionSkill
	ActionDefend
)

// ParseActionType resolves a wire action string case-insensitively.
//
// Postcondition: Returns ActionUnknown for unrecognized input.
func ParseActionType(raw string) ActionType {
	switch strings.ToLower(raw) {
	case "attack":
		return ActionAttack
	case "skill":
		return ActionSkill
	case "defend":
		return ActionDefend
	default:
		return ActionUnknown
	}
}

// String returns the human-readable name of the ActionType.
func (a ActionType) String() string {
	switch a {
	case ActionAttack:
		return "attack"
	case ActionSkill:
		return "skill"
	case ActionDefend:
		return "defend"
	default:
		return "unknown"
	}
}

// Action is a participant's chosen move for one turn.
type Action struct {
	Type     ActionType
	TargetID string
	SkillID  string
}

// Result is the outcome of one resolved action.
type Result struct {
	// Success is false for unknown actions and invalid targets; a failed
	// action is not applied.
	Success bool
	// Damage is the health removed from the target.
	Damage int
	// Message is a human-readable account of what happened.
	Message string
}

// Resolve applies actor's action to the battle state. Attack deals a damage
// roll in [10,20); a hostile Skill deals a roll in [15,25) plus its typed
// effect, while a supportive Skill aids an ally instead (empty target means
// the actor itself); Defend deals nothing (the defense buff hook is
// reserved); an unrecognized action fails and is not applied. Damage floors
// the target's health at 0.
//
// Precondition: actor must be a living participant; src non-nil; reg non-nil
// when skills are in play.
// Postcondition: On success, target health reflects the damage; battle state
// is unchanged on failure.
func (b *Battle) Resolve(actorID string, act Action, reg *ruleset.Registry, src dice.Source) Result {
	actor, ok := b.participants[actorID]
	if !ok {
		return Result{Message: fmt.Sprintf("unknown participant %q", actorID)}
	}

	switch act.Type {
	case ActionDefend:
		return Result{
			Success: true,
			Message: fmt.Sprintf("%s braces to defend", actor.Name),
		}

	case ActionAttack:
		target, res := b.resolveTarget(actor, act.TargetID)
		if target == nil {
			return res
		}
		dmg := dice.Between(src, attackDamageMin, attackDamageMax)
		target.ApplyDamage(dmg)
		return Result{
			Success: true,
			Damage:  dmg,
			Message: fmt.Sprintf("%s attacks %s for %d damage", actor.Name, target.Name, dmg),
		}

	case ActionSkill:
		var skill *ruleset.Skill
		if act.SkillID != "" && reg != nil {
			s, ok := reg.Skill(act.SkillID)
			if !ok {
				return Result{Message: fmt.Sprintf("unknown skill %q", act.SkillID)}
			}
			skill = s
		}
		if skill != nil && skill.Effect.Supportive() {
			target, res := b.resolveAlly(actor, act.TargetID)
			if target == nil {
				return res
			}
			return b.resolveSupportiveSkill(actor, target, skill)
		}
		target, res := b.resolveTarget(actor, act.TargetID)
		if target == nil {
			return res
		}
		return b.resolveSkill(actor, target, skill, src)

	default:
		return Result{Message: "unknown action"}
	}
}

// resolveTarget validates act's target against the targeting rule. Returns
// (nil, failure result) when the target is invalid.
func (b *Battle) resolveTarget(actor *Participant, targetID string) (*Participant, Result) {
	if targetID == "" {
		return nil, Result{Message: "no target specified"}
	}
	for _, valid := range b.ValidTargets(actor.ID) {
		if valid == targetID {
			return b.participants[targetID], Result{}
		}
	}
	return nil, Result{Message: fmt.Sprintf("%q is not a valid target", targetID)}
}

// resolveAlly validates a supportive action's target against the ally rule.
// An empty target id selects the actor itself. Returns (nil, failure result)
// when the target is hostile or dead.
func (b *Battle) resolveAlly(actor *Participant, targetID string) (*Participant, Result) {
	if targetID == "" {
		return actor, Result{}
	}
	for _, valid := range b.ValidAllies(actor.ID) {
		if valid == targetID {
			return b.participants[targetID], Result{}
		}
	}
	return nil, Result{Message: fmt.Sprintf("%q is not an ally", targetID)}
}

// resolveSupportiveSkill applies a skill that aids its target.
func (b *Battle) resolveSupportiveSkill(actor, target *Participant, skill *ruleset.Skill) Result {
	// Healing is the only supportive variant so far.
	target.Heal(skill.Effect.Amount)
	if target == actor {
		return Result{
			Success: true,
			Message: fmt.Sprintf("%s uses %s, restoring %d health", actor.Name, skill.Name, skill.Effect.Amount),
		}
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("%s uses %s, restoring %d health to %s", actor.Name, skill.Name, skill.Effect.Amount, target.Name),
	}
}

// resolveSkill rolls base skill damage and applies the skill's typed hostile
// effect.
func (b *Battle) resolveSkill(actor, target *Participant, skill *ruleset.Skill, src dice.Source) Result {
	dmg := dice.Between(src, skillDamageMin, skillDamageMax)

	if skill == nil {
		// Bare skill use with no id: base roll only.
		target.ApplyDamage(dmg)
		return Result{
			Success: true,
			Damage:  dmg,
			Message: fmt.Sprintf("%s uses a skill on %s for %d damage", actor.Name, target.Name, dmg),
		}
	}

	switch skill.Effect.Kind {
	case ruleset.EffectDamage:
		dmg += skill.Effect.Amount
		target.ApplyDamage(dmg)
		return Result{
			Success: true,
			Damage:  dmg,
			Message: fmt.Sprintf("%s uses %s on %s for %d damage", actor.Name, skill.Name, target.Name, dmg),
		}

	case ruleset.EffectStatusEffect:
		target.ApplyDamage(dmg)
		b.statuses[target.ID] = append(b.statuses[target.ID], status{
			name:      skill.Effect.Status,
			remaining: skill.Effect.Duration,
		})
		return Result{
			Success: true,
			Damage:  dmg,
			Message: fmt.Sprintf("%s uses %s on %s for %d damage, inflicting %s", actor.Name, skill.Name, target.Name, dmg, skill.Effect.Status),
		}

	case ruleset.EffectExecute:
		threshold := target.MaxHealth * skill.Effect.Threshold / 100
		if target.Health <= threshold {
			dealt := target.Health
			target.ApplyDamage(dealt)
			return Result{
				Success: true,
				Damage:  dealt,
				Message: fmt.Sprintf("%s uses %s and finishes off %s", actor.Name, skill.Name, target.Name),
			}
		}
		target.ApplyDamage(dmg)
		return Result{
			Success: true,
			Damage:  dmg,
			Message: fmt.Sprintf("%s uses %s on %s for %d damage", actor.Name, skill.Name, target.Name, dmg),
		}

	case ruleset.EffectTaunt:
		b.taunts[target.ID] = actor.ID
		b.statuses[target.ID] = append(b.statuses[target.ID], status{
			name:      tauntStatus,
			remaining: skill.Effect.Duration,
		})
		return Result{
			Success: true,
			Message: fmt.Sprintf("%s uses %s, drawing %s's attention", actor.Name, skill.Name, target.Name),
		}

	case ruleset.EffectDrain:
		dmg += skill.Effect.Amount
		target.ApplyDamage(dmg)
		actor.Heal(dmg)
		return Result{
			Success: true,
			Damage:  dmg,
			Message: fmt.Sprintf("%s uses %s, draining %d health from %s", actor.Name, skill.Name, dmg, target.Name),
		}

	default:
		// Unreachable for content that passed ruleset validation.
		return Result{Message: fmt.Sprintf("unsupported skill effect %q", skill.Effect.Kind)}
	}
}
