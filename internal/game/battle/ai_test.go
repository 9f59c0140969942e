package battle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-games/waygate/internal/game/battle"
	"github.com/kestrel-games/waygate/internal/game/dice"
	"github.com/kestrel-games/waygate/internal/game/ruleset"
)

// TestChooseAIAction_TargetsOpposingSide verifies AI turns only ever aim at
// living human participants in PvE.
func TestChooseAIAction_TargetsOpposingSide(t *testing.T) {
	ps := newParticipants("team-1", "team-2", "wolf")
	ps[2].AI = true
	b := battle.New(battle.PlayerVsEnemy, ps, 0, dice.NewCryptoSource())

	for i := 0; i < 100; i++ {
		act, ok := b.ChooseAIAction("wolf", nil, dice.NewCryptoSource())
		require.True(t, ok)
		assert.Contains(t, []string{"team-1", "team-2"}, act.TargetID)
		assert.Contains(t, []battle.ActionType{battle.ActionAttack, battle.ActionSkill}, act.Type)
	}
}

// TestChooseAIAction_AttackBias verifies the 0.7 attack split: the
// per-mille draw below 700 attacks, at or above 700 uses a skill.
func TestChooseAIAction_AttackBias(t *testing.T) {
	ps := newParticipants("team-1", "wolf")
	ps[1].AI = true
	b := battle.New(battle.PlayerVsEnemy, ps, 0, dice.NewCryptoSource())
	reg := ruleset.DefaultRegistry()

	// Draws: target index, then chance draw.
	act, ok := b.ChooseAIAction("wolf", reg, &seqSource{values: []int{0, 699}})
	require.True(t, ok)
	assert.Equal(t, battle.ActionAttack, act.Type)

	act, ok = b.ChooseAIAction("wolf", reg, &seqSource{values: []int{0, 700}})
	require.True(t, ok)
	assert.Equal(t, battle.ActionSkill, act.Type)
	assert.NotEmpty(t, act.SkillID)
}

// TestChooseAIAction_SkillPoolExcludesHealing verifies the AI skill draw
// never lands on a supportive skill, whichever index the dice produce.
func TestChooseAIAction_SkillPoolExcludesHealing(t *testing.T) {
	ps := newParticipants("team-1", "wolf")
	ps[1].AI = true
	b := battle.New(battle.PlayerVsEnemy, ps, 0, dice.NewCryptoSource())
	reg := ruleset.DefaultRegistry()

	for i := 0; i < 20; i++ {
		// Draws: target index, chance draw at the skill branch, skill index.
		act, ok := b.ChooseAIAction("wolf", reg, &seqSource{values: []int{0, 700, i}})
		require.True(t, ok)
		require.Equal(t, battle.ActionSkill, act.Type)
		require.NotEmpty(t, act.SkillID)

		skill, found := reg.Skill(act.SkillID)
		require.True(t, found)
		assert.False(t, skill.Effect.Supportive(), "AI drew supportive skill %q", act.SkillID)
	}
}

// TestChooseAIAction_NoTargetSkips verifies the AI skips when nothing can
// be targeted.
func TestChooseAIAction_NoTargetSkips(t *testing.T) {
	ps := newParticipants("team-1", "wolf")
	ps[1].AI = true
	b := battle.New(battle.PlayerVsEnemy, ps, 0, dice.NewCryptoSource())

	ps[0].Health = 0
	_, ok := b.ChooseAIAction("wolf", nil, dice.NewCryptoSource())
	assert.False(t, ok)
}

// TestChooseAIAction_HonorsTaunt verifies a taunting participant overrides
// the random target pick.
func TestChooseAIAction_HonorsTaunt(t *testing.T) {
	ps := newParticipants("team-1", "team-2", "wolf")
	ps[2].AI = true
	b := battle.New(battle.PlayerVsEnemy, ps, 0, dice.NewCryptoSource())

	reg, err := ruleset.NewRegistry(nil, []*ruleset.Skill{{
		ID: "challenge", Name: "Challenge",
		Effect: ruleset.Effect{Kind: ruleset.EffectTaunt, Duration: 3},
	}})
	require.NoError(t, err)

	res := b.Resolve("team-2", battle.Action{Type: battle.ActionSkill, TargetID: "wolf", SkillID: "challenge"}, reg, dice.NewCryptoSource())
	require.True(t, res.Success)

	for i := 0; i < 50; i++ {
		act, ok := b.ChooseAIAction("wolf", nil, dice.NewCryptoSource())
		require.True(t, ok)
		assert.Equal(t, "team-2", act.TargetID)
	}
}
