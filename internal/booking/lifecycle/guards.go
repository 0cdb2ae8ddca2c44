package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/venuebook/internal/authorization"
	"github.com/smallbiznis/venuebook/internal/booking/capacity"
	"github.com/smallbiznis/venuebook/internal/booking/domain"
	"github.com/smallbiznis/venuebook/internal/client/phone"
	"gorm.io/gorm"
)

// guardInput is what every guard sees: the freshly loaded booking inside the
// transaction that will persist the transition.
type guardInput struct {
	tx      *gorm.DB
	action  domain.Action
	booking *domain.Booking
	tc      domain.TransitionContext
	now     time.Time
}

type guardFunc func(ctx context.Context, in guardInput) error

type guardSet struct {
	counter    *capacity.Counter
	authorizer authorization.Service
	registry   map[Guard]guardFunc
}

func newGuardSet(counter *capacity.Counter, authorizer authorization.Service) *guardSet {
	g := &guardSet{counter: counter, authorizer: authorizer}
	g.registry = map[Guard]guardFunc{
		GuardEventPublished:        g.eventPublished,
		GuardCapacityAvailable:     g.capacityAvailable,
		GuardPhoneValid:            g.phoneValid,
		GuardHoldNotExpired:        g.holdNotExpired,
		GuardPaymentVerified:       g.paymentVerified,
		GuardDepositAmountMet:      g.depositAmountMet,
		GuardFullAmountMet:         g.fullAmountMet,
		GuardEventDatePassed:       g.eventDatePassed,
		GuardActorIsManager:        g.actorIsManager,
		GuardHasRefundablePayments: g.hasRefundablePayments,
	}
	return g
}

// check runs guards in order and stops at the first failure.
func (g *guardSet) check(ctx context.Context, guards []Guard, in guardInput) error {
	for _, name := range guards {
		fn, ok := g.registry[name]
		if !ok {
			return fmt.Errorf("guard %q not registered", name)
		}
		if err := fn(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

func (g *guardSet) eventPublished(_ context.Context, in guardInput) error {
	if in.booking.Event == nil || !in.booking.Event.IsPublished() {
		return domain.NewGuardError(domain.GuardCodeEventNotPublished, "event is not open for booking")
	}
	return nil
}

func (g *guardSet) capacityAvailable(ctx context.Context, in guardInput) error {
	event := in.booking.Event
	if event == nil {
		return domain.NewGuardError(domain.GuardCodeEventNotPublished, "event is not open for booking")
	}
	current, err := g.counter.Current(ctx, in.tx, event.ID, in.booking.ID)
	if err != nil {
		return err
	}
	if !capacity.Fits(current, in.booking.GuestsCount, event.CapacityMax) {
		return domain.NewGuardError(domain.GuardCodeCapacityExceeded,
			fmt.Sprintf("only %d of %d seats left", capacity.Remaining(current, event.CapacityMax), event.CapacityMax))
	}
	return nil
}

func (g *guardSet) phoneValid(_ context.Context, in guardInput) error {
	if in.booking.Client == nil || !phone.IsValid(in.booking.Client.Phone) {
		return domain.NewGuardError(domain.GuardCodeInvalidPhone, "client phone is not a valid +380 number")
	}
	return nil
}

func (g *guardSet) holdNotExpired(_ context.Context, in guardInput) error {
	if in.booking.HoldExpiresAt != nil && !in.booking.HoldExpiresAt.After(in.now) {
		return domain.NewGuardError(domain.GuardCodeHoldExpired, "hold has expired")
	}
	return nil
}

func (g *guardSet) paymentVerified(_ context.Context, in guardInput) error {
	for _, p := range in.booking.Payments {
		if p.Counts() {
			return nil
		}
	}
	return domain.NewGuardError(domain.GuardCodePaymentNotVerified, "no successful payment")
}

func (g *guardSet) depositAmountMet(_ context.Context, in guardInput) error {
	paid := in.booking.TotalPaid()
	if paid < in.booking.DepositAmount {
		return domain.NewGuardError(domain.GuardCodePaymentAmountNotMet,
			fmt.Sprintf("paid %d of deposit %d", paid, in.booking.DepositAmount))
	}
	return nil
}

func (g *guardSet) fullAmountMet(_ context.Context, in guardInput) error {
	paid := in.booking.TotalPaid()
	if paid < in.booking.TotalPrice {
		return domain.NewGuardError(domain.GuardCodePaymentAmountNotMet,
			fmt.Sprintf("paid %d of total %d", paid, in.booking.TotalPrice))
	}
	return nil
}

func (g *guardSet) eventDatePassed(_ context.Context, in guardInput) error {
	if in.booking.Event == nil || !in.booking.Event.HasEnded(in.now) {
		return domain.NewGuardError(domain.GuardCodeEventNotFinished, "event has not finished")
	}
	return nil
}

func (g *guardSet) actorIsManager(ctx context.Context, in guardInput) error {
	actor, actorID := in.tc.ResolvedActor()
	if g.authorizer == nil {
		return domain.NewGuardError(domain.GuardCodeActorNotAuthorized, "authorization unavailable")
	}
	if err := g.authorizer.Authorize(ctx, string(actor), actorID, authorization.ObjectBooking, string(in.action)); err != nil {
		return domain.NewGuardError(domain.GuardCodeActorNotAuthorized,
			fmt.Sprintf("%s may not %s", actor, in.action))
	}
	return nil
}

func (g *guardSet) hasRefundablePayments(_ context.Context, in guardInput) error {
	if in.booking.TotalPaid() <= 0 {
		return domain.NewGuardError(domain.GuardCodeNoRefundablePayment, "nothing was paid")
	}
	return nil
}
