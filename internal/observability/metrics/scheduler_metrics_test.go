package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "guard_failed",
			err:  bookingdomain.NewGuardError(bookingdomain.GuardCodeEventNotFinished, "event has not finished yet"),
			want: SchedulerJobReasonGuardFailed,
		},
		{
			name: "conflict_wrapped",
			err:  fmt.Errorf("sweep: %w", bookingdomain.NewConflictError("booking changed concurrently")),
			want: SchedulerJobReasonConflict,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsSchedulerErrorRetryable(t *testing.T) {
	if IsSchedulerErrorRetryable(bookingdomain.NewGuardError(bookingdomain.GuardCodeHoldExpired, "hold expired")) {
		t.Fatalf("guard failures must not be retryable")
	}
	if !IsSchedulerErrorRetryable(bookingdomain.NewConflictError("race")) {
		t.Fatalf("conflicts should be retryable")
	}
	if !IsSchedulerErrorRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("db errors should be retryable")
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "venuebook",
		Environment: "test",
	})

	metrics.AddBatchProcessed("hold_expiry", "bookings", 3)
	metrics.AddBatchProcessed("hold_expiry", "bookings", 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("hold_expiry", "bookings"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestIncBookingTransition(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{})

	metrics.IncBookingTransition("DRAFT", "HOLD")
	metrics.IncBookingTransition("DRAFT", "HOLD")

	got := testutil.ToFloat64(metrics.transitions.WithLabelValues("DRAFT", "HOLD"))
	if got != 2 {
		t.Fatalf("expected 2 transitions, got %v", got)
	}
}
