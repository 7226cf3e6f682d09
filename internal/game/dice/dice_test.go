package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/fieldops/internal/game/dice"
)

func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, 12, r.Total())
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		expr  string
		count int
		sides int
		mod   int
	}{
		{"d20", 1, 20, 0},
		{"2d6", 2, 6, 0},
		{"1d5-3", 1, 5, -3},
		{"3D4+1", 3, 4, 1},
	}
	for _, tc := range tests {
		e, err := dice.Parse(tc.expr)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.count, e.Count, tc.expr)
		assert.Equal(t, tc.sides, e.Sides, tc.expr)
		assert.Equal(t, tc.mod, e.Modifier, tc.expr)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, expr := range []string{"", "20", "0d6", "d1", "2dx", "1d6+x"} {
		_, err := dice.Parse(expr)
		assert.Error(t, err, "expression %q should be rejected", expr)
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParse("bogus") })
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 500; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
	assert.Panics(t, func() { src.Intn(0) })
}

func TestSeededSource_Reproducible(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestFixedSource_Cycles(t *testing.T) {
	src := dice.NewFixedSource(3, 7)
	assert.Equal(t, 3, src.Intn(10))
	assert.Equal(t, 7, src.Intn(10))
	assert.Equal(t, 3, src.Intn(10))
	assert.Equal(t, 2, src.Intn(5), "values are reduced modulo n")
}

func TestRoller_Percentile_Bounds(t *testing.T) {
	r := dice.NewRoller(dice.NewSeededSource(1), zaptest.NewLogger(t))
	for i := 0; i < 200; i++ {
		_, ok := r.Percentile(100)
		assert.True(t, ok, "chance 100 always succeeds")
		_, ok = r.Percentile(0)
		assert.False(t, ok, "chance 0 never succeeds")
	}
}

func TestProperty_RollWithinExpressionBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 6).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		mod := rapid.IntRange(-10, 10).Draw(rt, "mod")
		seed := rapid.Int64().Draw(rt, "seed")
		expr := dice.Expression{Raw: "x", Count: count, Sides: sides, Modifier: mod}

		res := dice.NewRoller(dice.NewSeededSource(seed), nil).Roll(expr)
		assert.Len(rt, res.Dice, count)
		assert.GreaterOrEqual(rt, res.Total(), expr.Min())
		assert.LessOrEqual(rt, res.Total(), expr.Max())
	})
}
