package authorization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeNoShowOnlyManagers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "manager", "42", ObjectBooking, "markNoShow"))
	assert.ErrorIs(t, svc.Authorize(ctx, "client", "7", ObjectBooking, "markNoShow"), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "system", "", ObjectBooking, "markNoShow"), ErrForbidden)
}

func TestAuthorizeSystemActions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "system", "system", ObjectBooking, "holdExpired"))
	assert.NoError(t, svc.Authorize(ctx, "client", "7", ObjectBooking, "cancel"))
	assert.ErrorIs(t, svc.Authorize(ctx, "client", "7", ObjectBooking, "processRefund"), ErrForbidden)
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", "1", ObjectBooking, "cancel"), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "manager", "1", "", "cancel"), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "manager", "1", ObjectBooking, " "), ErrInvalidAction)
}
