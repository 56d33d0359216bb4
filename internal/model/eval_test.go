package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvalAddSaturates(t *testing.T) {
	e := NoEval.Add(Eval{Cost: 1, Duration: 2, Distance: 3})
	assert.Equal(t, int64(math.MaxInt64), e.Cost)
	assert.Equal(t, int64(2), e.Duration)

	g := NoGain.Sub(Eval{Cost: 1})
	assert.Equal(t, int64(math.MinInt64), g.Cost)
}

func TestEvalNeg(t *testing.T) {
	e := Eval{Cost: 5, Duration: -7, Distance: 0}
	n := e.Neg()
	assert.Equal(t, Eval{Cost: -5, Duration: 7, Distance: 0}, n)

	assert.Equal(t, int64(math.MaxInt64), NoGain.Neg().Cost)
	assert.Equal(t, int64(math.MinInt64), NoEval.Neg().Cost)
}

func TestEvalOrdering(t *testing.T) {
	a := Eval{Cost: 10, Duration: 5}
	b := Eval{Cost: 10, Duration: 6}
	c := Eval{Cost: 11}

	assert.True(t, a.Less(b))
	assert.True(t, a.Less(c))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))

	assert.True(t, a.LE(b)) // cost-only comparison
	assert.True(t, b.LE(a))
	assert.False(t, c.LE(a))
}

func TestEvalAddSubRoundTrip(t *testing.T) {
	a := Eval{Cost: 100, Duration: 40, Distance: 900}
	b := Eval{Cost: 3, Duration: 2, Distance: 1}
	assert.Equal(t, a, a.Add(b).Sub(b))
}
