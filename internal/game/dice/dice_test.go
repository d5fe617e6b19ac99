package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/wayfarer/internal/game/dice"
)

// TestCryptoSource_InRange verifies the postcondition: every sample is in [0, 1).
func TestCryptoSource_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestMathSource_DeterministicForSeed(t *testing.T) {
	a := dice.NewMathSource(42)
	b := dice.NewMathSource(42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestMathSource_InRange_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		src := dice.NewMathSource(rapid.Uint64().Draw(rt, "seed"))
		for i := 0; i < 20; i++ {
			v := src.Float64()
			if v < 0 || v >= 1 {
				rt.Fatalf("sample %v outside [0, 1)", v)
			}
		}
	})
}

func TestSequence_ReplaysAndWraps(t *testing.T) {
	seq := dice.MustSequence(0.1, 0.9)
	assert.Equal(t, 0.1, seq.Float64())
	assert.Equal(t, 0.9, seq.Float64())
	assert.Equal(t, 0.1, seq.Float64())
	assert.Equal(t, 3, seq.Draws())
}

func TestSequence_RejectsInvalidSamples(t *testing.T) {
	_, err := dice.NewSequence()
	assert.Error(t, err)
	_, err = dice.NewSequence(0.5, 1.0)
	assert.Error(t, err)
	_, err = dice.NewSequence(-0.1)
	assert.Error(t, err)
	assert.Panics(t, func() { dice.MustSequence(2) })
}

func TestRoll_ConsumesOneSample(t *testing.T) {
	seq := dice.MustSequence(0.0, 0.99)
	assert.True(t, dice.Roll(seq, 0.5))
	assert.False(t, dice.Roll(seq, 0.5))
	assert.Equal(t, 2, seq.Draws())
}

func TestRoll_ChanceEdges_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sample := rapid.Float64Range(0, 0.999999).Draw(rt, "sample")
		seq := dice.MustSequence(sample)
		assert.True(rt, dice.Roll(seq, 1.0), "chance 1.0 always includes")
		assert.False(rt, dice.Roll(seq, 0.0), "chance 0 never includes")
		chance := rapid.Float64Range(0, 1).Draw(rt, "chance")
		assert.Equal(rt, sample < chance, dice.Roll(seq, chance))
	})
}

func TestLoggedSource_LogsDraws(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	src := dice.NewLoggedSource(dice.MustSequence(0.25), zap.New(core))

	require.Equal(t, 0.25, src.Float64())
	entries := logs.FilterMessage("random draw").All()
	require.Len(t, entries, 1)
	assert.Equal(t, 0.25, entries[0].ContextMap()["sample"])
}
