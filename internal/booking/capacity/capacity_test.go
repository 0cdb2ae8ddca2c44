package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFits(t *testing.T) {
	assert.True(t, Fits(0, 5, 5))
	assert.True(t, Fits(4, 1, 5))
	assert.False(t, Fits(4, 2, 5))
	assert.False(t, Fits(5, 1, 5))
	assert.False(t, Fits(0, 0, 5))
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 1, Remaining(4, 5))
	assert.Equal(t, 0, Remaining(5, 5))
	assert.Equal(t, 0, Remaining(7, 5))
}
