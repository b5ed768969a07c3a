package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidParameter(t *testing.T) {
	err := InvalidParameter("k", "must be >= 1, got %d", 0)

	require.Error(t, err)
	assert.True(t, IsInvalidParameter(err))
	assert.False(t, IsComputation(err))
	assert.Equal(t, "k", ParamOf(err))
	assert.Contains(t, err.Error(), "must be >= 1, got 0")
}

func TestInvalidParameter_Wrapped(t *testing.T) {
	err := Wrap(InvalidParameter("maxIterations", "must be >= 1"), "run kmeans")

	assert.True(t, Is(err, ErrInvalidParameter))
	assert.Equal(t, "maxIterations", ParamOf(err))

	var ipe *InvalidParameterError
	require.True(t, As(err, &ipe))
	assert.Equal(t, "must be >= 1", ipe.Reason)
}

func TestComputation(t *testing.T) {
	err := Computation("centroid update", "NaN in cluster %d", 2)

	assert.True(t, IsComputation(err))
	assert.False(t, IsInvalidParameter(err))
	assert.Equal(t, "", ParamOf(err))

	var ce *ComputationError
	require.True(t, As(err, &ce))
	assert.Equal(t, "centroid update", ce.Op)
}

func TestNilChecks(t *testing.T) {
	assert.False(t, IsInvalidParameter(nil))
	assert.False(t, IsComputation(nil))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsInvalidParameter(fmt.Errorf("plain")))
}

func TestNotFound(t *testing.T) {
	err := Wrapf(ErrNotFound, "run %s", "abc")
	assert.True(t, IsNotFound(err))
}
