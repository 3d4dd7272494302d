package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrUnsupportedFormat,
		ErrEmptyQuery,
		ErrEmbedding,
		ErrStore,
		ErrGeneration,
		ErrDimensionMismatch,
	}
	for i, a := range all {
		assert.NotEmpty(t, a.Error())
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

func TestErrors_WrappedKindsMatch(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("%w: %w", ErrEmbedding, cause)

	assert.True(t, errors.Is(err, ErrEmbedding))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrStore))
	assert.Equal(t, "embedding failed: connection refused", err.Error())
}
