package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/kestrel-games/waygate/internal/game/dice"
)

// seqSource returns pre-programmed values, cycling when exhausted.
type seqSource struct {
	values []int
	i      int
}

func (s *seqSource) Intn(n int) int {
	v := s.values[s.i%len(s.values)] % n
	s.i++
	return v
}

// TestCryptoSource_Intn_InRange verifies the postcondition:
// every value returned by Intn(6) is in [0, 6).
func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

// TestCryptoSource_Intn_PanicsOnZero verifies the precondition n > 0.
func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

// TestBetween_Property verifies min <= Between(src, min, max) < max for
// arbitrary bounds and source values.
func TestBetween_Property(t *testing.T) {
	src := dice.NewCryptoSource()
	rapid.Check(t, func(rt *rapid.T) {
		min := rapid.IntRange(-100, 100).Draw(rt, "min")
		span := rapid.IntRange(1, 200).Draw(rt, "span")
		max := min + span

		v := dice.Between(src, min, max)
		assert.GreaterOrEqual(rt, v, min)
		assert.Less(rt, v, max)
	})
}

// TestChance_Extremes verifies p=0 never succeeds and p=1 always succeeds.
func TestChance_Extremes(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 100; i++ {
		assert.False(t, dice.Chance(src, 0))
		assert.True(t, dice.Chance(src, 1))
	}
}

// TestChance_Threshold verifies the per-mille draw compares against p*1000.
func TestChance_Threshold(t *testing.T) {
	assert.True(t, dice.Chance(&seqSource{values: []int{699}}, 0.7))
	assert.False(t, dice.Chance(&seqSource{values: []int{700}}, 0.7))
}
