package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureCorrelationIDGeneratesOnce(t *testing.T) {
	ctx, first := EnsureCorrelationID(context.Background())
	assert.NotEmpty(t, first)

	_, second := EnsureCorrelationID(ctx)
	assert.Equal(t, first, second)
}

func TestDetachKeepsCorrelationID(t *testing.T) {
	parent, cid := EnsureCorrelationID(context.Background())
	parent, cancel := context.WithCancel(parent)
	cancel()

	detached := Detach(parent)
	assert.NoError(t, detached.Err())
	assert.Equal(t, cid, ExtractCorrelationID(detached))
}
