package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewGuardError(GuardCodeCapacityExceeded, "no seats left"))

	assert.True(t, errors.Is(err, ErrGuardFailed))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, GuardCodeCapacityExceeded, Code(err))
	assert.Contains(t, err.Error(), "capacity_exceeded")

	assert.ErrorIs(t, NewNotFoundError("booking 1"), ErrNotFound)
	assert.ErrorIs(t, NewInvalidTransitionError("unknown action"), ErrInvalidTransition)
	assert.ErrorIs(t, NewConflictError("race"), ErrConflict)
	assert.ErrorIs(t, NewExternalError("timeout"), ErrExternalFailure)
	assert.Empty(t, Code(errors.New("plain")))
}
