package battle

import (
	"github.com/kestrel-games/waygate/internal/game/dice"
	"github.com/kestrel-games/waygate/internal/game/ruleset"
)

// aiAttackProbability is the chance an AI participant attacks rather than
// using a skill.
const aiAttackProbability = 0.7

// ChooseAIAction synthesizes a turn for an AI-controlled participant: a
// uniformly random valid target, then Attack with probability 0.7, otherwise
// a random offensive skill. Supportive skills are excluded from the draw so
// an AI enemy never restores its opponents' health. A participant taunting
// the actor overrides the random target choice.
//
// Precondition: actorID must name a living AI participant; src non-nil.
// Postcondition: Returns (action, true), or (Action{}, false) when no valid
// target exists and the turn must be skipped.
func (b *Battle) ChooseAIAction(actorID string, reg *ruleset.Registry, src dice.Source) (Action, bool) {
	targets := b.ValidTargets(actorID)
	if len(targets) == 0 {
		return Action{}, false
	}

	targetID := targets[src.Intn(len(targets))]
	if by, ok := b.taunts[actorID]; ok {
		for _, t := range targets {
			if t == by {
				targetID = by
				break
			}
		}
	}

	if dice.Chance(src, aiAttackProbability) {
		return Action{Type: ActionAttack, TargetID: targetID}, true
	}

	act := Action{Type: ActionSkill, TargetID: targetID}
	if reg != nil {
		if ids := reg.OffensiveSkillIDs(); len(ids) > 0 {
			act.SkillID = ids[src.Intn(len(ids))]
		}
	}
	return act, true
}
