package outbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingrepo "github.com/smallbiznis/venuebook/internal/booking/repository"
	"github.com/smallbiznis/venuebook/internal/clock"
	notificationdomain "github.com/smallbiznis/venuebook/internal/notification/domain"
	"github.com/smallbiznis/venuebook/internal/outbox/domain"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultRelayWorkers = 2

var errBookingMissing = errors.New("booking_not_found")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Queue      *Queue
	Repo       domain.Repository
	Loader     *bookingrepo.Loader
	Dispatcher notificationdomain.Dispatcher
}

// Relay turns committed effect rows into dispatcher calls.
type Relay struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	queue      *Queue
	repo       domain.Repository
	loader     *bookingrepo.Loader
	dispatcher notificationdomain.Dispatcher

	inflight sync.Map
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

func NewRelay(p Params) *Relay {
	return &Relay{
		db:         p.DB,
		log:        p.Log.Named("outbox.relay"),
		clock:      p.Clock,
		queue:      p.Queue,
		repo:       p.Repo,
		loader:     p.Loader,
		dispatcher: p.Dispatcher,
	}
}

func (r *Relay) Start(parent context.Context, workers int) {
	if workers <= 0 {
		workers = defaultRelayWorkers
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.consume(ctx)
	}
}

func (r *Relay) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Relay) consume(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.queue.C():
			if err := r.Relay(ctx, id); err != nil {
				r.log.Warn("effect relay failed", zap.String("effect_id", id.String()), zap.Error(err))
			}
		}
	}
}

// Relay dispatches one effect row. Delivery failures are recorded on the
// row; the returned error covers only what could not be recorded.
func (r *Relay) Relay(ctx context.Context, id snowflake.ID) error {
	if _, busy := r.inflight.LoadOrStore(id, struct{}{}); busy {
		return nil
	}
	defer r.inflight.Delete(id)

	effect, err := r.repo.FindByID(ctx, r.db, id)
	if err != nil {
		return err
	}
	if effect == nil || effect.Status != domain.StatusPending {
		return nil
	}

	dispatchErr := r.dispatch(ctx, effect)
	now := r.clock.Now()
	if dispatchErr != nil {
		r.log.Warn("effect dispatch failed",
			zap.String("effect_id", effect.ID.String()),
			zap.String("effect", effect.Effect),
			zap.String("booking_id", effect.BookingID.String()),
			zap.Int("attempt", effect.Attempts+1),
			zap.Error(dispatchErr),
		)
		return r.repo.MarkAttemptFailed(ctx, r.db, effect.ID, dispatchErr.Error(), now)
	}
	_, err = r.repo.MarkDone(ctx, r.db, effect.ID, now)
	return err
}

func (r *Relay) dispatch(ctx context.Context, effect *domain.Effect) error {
	booking, err := r.loader.Load(ctx, r.db, effect.BookingID)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return errBookingMissing
	}

	custom := map[string]any{}
	for key, value := range effect.Payload {
		custom[key] = value
	}
	tctx := notificationdomain.TemplateContext{
		Booking: booking,
		Event:   booking.Event,
		Payment: pickPayment(booking.Payments, effect.Payload),
		Custom:  custom,
	}

	_, err = r.dispatcher.Dispatch(ctx,
		effect.TemplateID,
		notificationdomain.RecipientType(effect.RecipientType),
		effect.RecipientID,
		tctx,
		notificationdomain.WithBookingID(booking.ID),
	)
	return err
}

// RelayPending re-drives rows older than grace that never left PENDING.
func (r *Relay) RelayPending(ctx context.Context, grace time.Duration, limit int) (int, error) {
	ids, err := r.repo.ListPending(ctx, r.db, r.clock.Now().Add(-grace), limit)
	if err != nil {
		return 0, err
	}
	var errs []error
	relayed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := r.Relay(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		relayed++
	}
	return relayed, errors.Join(errs...)
}

// pickPayment prefers the payment named in the payload, then the latest
// payment that counts toward the total, then the latest payment.
func pickPayment(payments []paymentdomain.Payment, payload map[string]any) *paymentdomain.Payment {
	if len(payments) == 0 {
		return nil
	}
	if raw, ok := payload[domain.PayloadPaymentID].(string); ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			for i := range payments {
				if payments[i].ID == snowflake.ID(id) {
					return &payments[i]
				}
			}
		}
	}
	for i := len(payments) - 1; i >= 0; i-- {
		if payments[i].Counts() {
			return &payments[i]
		}
	}
	return &payments[len(payments)-1]
}
