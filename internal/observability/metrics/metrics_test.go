package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("action", "submit"),
		attribute.String("booking_id", "456"),
		attribute.String("reason", "capacity_exceeded"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("action"))
	assert.Contains(t, keys, attribute.Key("reason"))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordTransition(ctx, "submit", "ok", time.Millisecond)
		m.RecordGuardFailure(ctx, "submit", "capacity_exceeded")
		m.RecordPaymentEvent(ctx, "liqpay", "success")
		m.RecordNotification(ctx, "TELEGRAM", "SENT")
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "venuebook"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordTransition(context.Background(), "cancel", "ok", time.Second)
	})
}
