package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/venuebook/internal/audit/domain"
	"github.com/smallbiznis/venuebook/internal/authorization"
	"github.com/smallbiznis/venuebook/internal/booking/capacity"
	"github.com/smallbiznis/venuebook/internal/booking/domain"
	bookingrepo "github.com/smallbiznis/venuebook/internal/booking/repository"
	clientdomain "github.com/smallbiznis/venuebook/internal/client/domain"
	"github.com/smallbiznis/venuebook/internal/clock"
	"github.com/smallbiznis/venuebook/internal/config"
	eventdomain "github.com/smallbiznis/venuebook/internal/event/domain"
	"github.com/smallbiznis/venuebook/internal/eventlock"
	notificationdomain "github.com/smallbiznis/venuebook/internal/notification/domain"
	obslogger "github.com/smallbiznis/venuebook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/venuebook/internal/observability/metrics"
	"github.com/smallbiznis/venuebook/internal/observability/tracing"
	"github.com/smallbiznis/venuebook/internal/outbox"
	outboxdomain "github.com/smallbiznis/venuebook/internal/outbox/domain"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
	"github.com/smallbiznis/venuebook/pkg/db"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const lockTimeout = 10 * time.Second

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Policy     *config.PolicyHolder
	Locker     eventlock.Locker
	Queue      *outbox.Queue
	Loader     *bookingrepo.Loader
	Bookings   domain.Repository
	Events     eventdomain.Repository
	Clients    clientdomain.Repository
	Payments   paymentdomain.Repository
	Outbox     outboxdomain.Repository
	Audit      auditdomain.Service
	Authorizer authorization.Service
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

// Engine is the only writer of bookings.status.
type Engine struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	locker  eventlock.Locker
	queue   *outbox.Queue
	loader  *bookingrepo.Loader
	metrics *obsmetrics.Metrics

	bookings domain.Repository
	events   eventdomain.Repository
	outbox   outboxdomain.Repository
	audit    auditdomain.Service

	managerRecipientID string

	guards  *guardSet
	effects *effectSet
}

func NewEngine(p Params) *Engine {
	return &Engine{
		db:                 p.DB,
		log:                p.Log.Named("booking.engine"),
		genID:              p.GenID,
		clock:              p.Clock,
		locker:             p.Locker,
		queue:              p.Queue,
		loader:             p.Loader,
		metrics:            p.Metrics,
		bookings:           p.Bookings,
		events:             p.Events,
		outbox:             p.Outbox,
		audit:              p.Audit,
		managerRecipientID: strings.TrimSpace(p.Config.ManagerRecipientID),
		guards:             newGuardSet(capacity.NewCounter(p.Bookings), p.Authorizer),
		effects:            newEffectSet(p.GenID, p.Policy, p.Bookings, p.Payments, p.Clients),
	}
}

// Transition applies action to the booking: state check, guards, sync
// effects, status-conditioned persist, one audit entry and the outbox rows
// all commit together. Outbox rows are handed to the relay after commit.
func (e *Engine) Transition(ctx context.Context, bookingID snowflake.ID, action domain.Action, tc domain.TransitionContext) (result *domain.Booking, err error) {
	started := time.Now()
	actor, actorID := tc.ResolvedActor()
	tc.Actor, tc.ActorID = actor, actorID

	ctx, span := tracing.Start(ctx, "booking.transition",
		attribute.String("booking.id", bookingID.String()),
		attribute.String("booking.action", string(action)),
		attribute.String("actor.type", string(actor)),
	)
	log := obslogger.WithActor(obslogger.WithContext(ctx, e.log), string(actor), actorID).With(
		zap.String("booking_id", bookingID.String()),
		zap.String("action", string(action)),
	)
	defer func() {
		tracing.End(span, err)
		e.metrics.RecordTransition(ctx, string(action), outcome(err), time.Since(started))
	}()

	rule, ok := Lookup(action)
	if !ok {
		return nil, domain.NewInvalidTransitionError(fmt.Sprintf("unknown action %q", action))
	}

	current, err := e.bookings.FindByID(ctx, e.db, bookingID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("booking %s not found", bookingID))
	}

	release, err := e.acquire(ctx, current.EventID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		from      domain.BookingStatus
		effectIDs []snowflake.ID
	)
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := e.events.LockByID(ctx, tx, current.EventID); err != nil {
			return err
		}

		booking, err := e.loader.Load(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.NewNotFoundError(fmt.Sprintf("booking %s not found", bookingID))
		}
		from = booking.Status
		if !rule.Allows(from) {
			return domain.NewInvalidTransitionError(fmt.Sprintf("cannot %s booking in status %s", action, from))
		}

		now := e.clock.Now()
		if err := e.guards.check(ctx, rule.Guards, guardInput{
			tx:      tx,
			action:  action,
			booking: booking,
			tc:      tc,
			now:     now,
		}); err != nil {
			return err
		}

		in := &effectInput{
			tx:      tx,
			action:  action,
			booking: booking,
			tc:      tc,
			now:     now,
			changes: map[string]any{},
		}
		var notify []Effect
		for _, effect := range rule.Effects {
			if IsNotify(effect) {
				notify = append(notify, effect)
				continue
			}
			if err := e.effects.apply(ctx, effect, in); err != nil {
				return err
			}
		}

		affected, err := e.bookings.ApplyTransition(ctx, tx, domain.FieldUpdate{
			ID:         booking.ID,
			FromStatus: from,
			ToStatus:   rule.To,
			Booking:    booking,
			UpdatedAt:  now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.NewConflictError("booking was modified concurrently")
		}
		booking.Status = rule.To
		booking.UpdatedAt = now

		changes := map[string]any{"from": string(from), "to": string(rule.To)}
		for k, v := range in.changes {
			changes[k] = v
		}
		if tc.Reason != "" {
			changes["reason"] = tc.Reason
		}
		if _, err := e.audit.Record(ctx, tx, auditdomain.RecordRequest{
			EntityType: auditdomain.EntityTypeBooking,
			EntityID:   booking.ID.String(),
			Action:     action.AuditAction(),
			Changes:    changes,
			ActorType:  string(actor),
			ActorID:    actorID,
		}); err != nil {
			return fmt.Errorf("record audit: %w", err)
		}

		effectIDs, err = e.writeOutbox(ctx, tx, booking, action, tc, from, rule.To, notify, in.changes, now)
		if err != nil {
			return err
		}
		result = booking
		return nil
	})
	if err != nil {
		err = e.classify(err)
		if code := domain.Code(err); code != "" && errors.Is(err, domain.ErrGuardFailed) {
			e.metrics.RecordGuardFailure(ctx, string(action), code)
		}
		log.Info("booking transition rejected", zap.Error(err))
		return nil, err
	}

	obsmetrics.Scheduler().IncBookingTransition(string(from), string(rule.To))
	if dropped := e.queue.Offer(effectIDs...); dropped > 0 {
		log.Warn("outbox handoff queue full, effects left for relay sweep", zap.Int("dropped", dropped))
	}
	log.Info("booking transitioned",
		zap.String("from", string(from)),
		zap.String("to", string(rule.To)),
		zap.Int("effects", len(effectIDs)),
	)
	return result, nil
}

func (e *Engine) acquire(ctx context.Context, eventID snowflake.ID) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	waitStart := time.Now()
	release, err := e.locker.Acquire(lockCtx, eventID)
	obsmetrics.Scheduler().ObserveLockWait("event", time.Since(waitStart))
	if err != nil {
		if errors.Is(err, eventlock.ErrLockTimeout) {
			return nil, domain.NewConflictError("event is busy, retry")
		}
		return nil, fmt.Errorf("acquire event lock: %w", err)
	}
	return release, nil
}

func (e *Engine) writeOutbox(
	ctx context.Context,
	tx *gorm.DB,
	booking *domain.Booking,
	action domain.Action,
	tc domain.TransitionContext,
	from, to domain.BookingStatus,
	notify []Effect,
	changes map[string]any,
	now time.Time,
) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(notify))
	for _, effect := range notify {
		target := notifyEffects[effect]
		recipientID := booking.ClientID.String()
		if target.recipient == notificationdomain.RecipientManager {
			recipientID = e.managerRecipientID
		}

		payload := datatypes.JSONMap{
			outboxdomain.PayloadAction:  string(action),
			outboxdomain.PayloadActor:   string(tc.Actor),
			outboxdomain.PayloadActorID: tc.ActorID,
			outboxdomain.PayloadFrom:    string(from),
			outboxdomain.PayloadTo:      string(to),
		}
		if tc.Reason != "" {
			payload[outboxdomain.PayloadReason] = tc.Reason
		}
		if paymentID, ok := changes[changeKeyPaymentID].(string); ok {
			payload[outboxdomain.PayloadPaymentID] = paymentID
		}

		row := outboxdomain.Effect{
			ID:            e.genID.Generate(),
			BookingID:     booking.ID,
			Effect:        string(effect),
			TemplateID:    target.template,
			RecipientType: string(target.recipient),
			RecipientID:   recipientID,
			Status:        outboxdomain.StatusPending,
			Payload:       payload,
			CreatedAt:     now,
		}
		if err := e.outbox.Insert(ctx, tx, &row); err != nil {
			return nil, fmt.Errorf("write outbox: %w", err)
		}
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// classify maps persistence failures onto the lifecycle taxonomy.
func (e *Engine) classify(err error) error {
	var typed *domain.Error
	if errors.As(err, &typed) {
		return err
	}
	if db.IsDuplicateKeyErr(err) {
		return domain.NewConflictError(err.Error())
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrGuardFailed):
		return "guard_failed"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
