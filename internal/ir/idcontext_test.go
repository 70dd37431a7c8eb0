package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIDContextStartsPastNoneSentinels(t *testing.T) {
	c := NewIDContext()
	assert.Equal(t, Var(1), c.NewVar())
	assert.Equal(t, Label(1), c.NewLabel())
}

func TestNewVarAndNewLabelAreMonotonic(t *testing.T) {
	c := NewIDContext()
	v1, v2, v3 := c.NewVar(), c.NewVar(), c.NewVar()
	assert.Less(t, uint32(v1), uint32(v2))
	assert.Less(t, uint32(v2), uint32(v3))

	l1, l2 := c.NewLabel(), c.NewLabel()
	assert.Less(t, uint32(l1), uint32(l2))
}

func TestResetRewindsBothCountersToOne(t *testing.T) {
	c := NewIDContext()
	c.NewVar()
	c.NewVar()
	c.NewLabel()

	c.Reset()

	assert.Equal(t, Var(1), c.NewVar())
	assert.Equal(t, Label(1), c.NewLabel())
}
