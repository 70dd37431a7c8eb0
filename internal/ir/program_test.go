package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFunctionAppendsInOrder(t *testing.T) {
	p := NewProgram()
	ids := NewIDContext()
	f1 := NewFunction("a", ids)
	f2 := NewFunction("b", ids)

	p.AddFunction(f1)
	p.AddFunction(f2)

	require.Len(t, p.Functions, 2)
	assert.Same(t, f1, p.Functions[0])
	assert.Same(t, f2, p.Functions[1])
}
