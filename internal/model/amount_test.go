package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountZeroIdentity(t *testing.T) {
	a := Amount{3, 5, 7}
	z := ZeroAmount(3)
	assert.Equal(t, a, a.Add(z))
	assert.Equal(t, a, a.Sub(z))
	assert.True(t, z.IsZero())
	assert.False(t, a.IsZero())
}

func TestAmountComparisons(t *testing.T) {
	a := Amount{1, 2}
	b := Amount{1, 3}
	assert.True(t, a.LE(b))
	assert.False(t, b.LE(a))
	assert.True(t, a.LE(a))
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(Amount{1, 2}))
	assert.False(t, a.Equal(Amount{1}))
}

func TestAmountMinMaxInPlace(t *testing.T) {
	a := Amount{4, 1}
	a.MinInPlace(Amount{2, 3})
	assert.Equal(t, Amount{2, 1}, a)

	b := Amount{4, 1}
	b.MaxInPlace(Amount{2, 3})
	assert.Equal(t, Amount{4, 3}, b)

	m := MaxAmount(2)
	m.MinInPlace(Amount{9, 9})
	assert.Equal(t, Amount{9, 9}, m)
}

func TestAmountCloneIsIndependent(t *testing.T) {
	a := Amount{1, 2}
	c := a.Clone()
	c.AddInPlace(Amount{10, 10})
	assert.Equal(t, Amount{1, 2}, a)
	assert.Equal(t, Amount{11, 12}, c)
}
