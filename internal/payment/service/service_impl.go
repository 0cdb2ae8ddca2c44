package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	bookingrepo "github.com/smallbiznis/venuebook/internal/booking/repository"
	"github.com/smallbiznis/venuebook/internal/clock"
	obslogger "github.com/smallbiznis/venuebook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/venuebook/internal/observability/metrics"
	"github.com/smallbiznis/venuebook/internal/observability/tracing"
	"github.com/smallbiznis/venuebook/internal/payment/domain"
	"github.com/smallbiznis/venuebook/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// orderSeparator joins booking and payment ids in the provider order id so
// every checkout gets a distinct order.
const orderSeparator = "_"

const webhookActorID = "liqpay"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Provider    domain.Provider
	Loader      *bookingrepo.Loader
	Transitions bookingdomain.Transitioner
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	provider    domain.Provider
	loader      *bookingrepo.Loader
	transitions bookingdomain.Transitioner
	metrics     *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		provider:    p.Provider,
		loader:      p.Loader,
		transitions: p.Transitions,
		metrics:     p.Metrics,
	}
}

// InitiatePayment opens a checkout for the booking. A HOLD booking moves to
// PENDING_PAYMENT with a deposit record; a CONFIRMED booking gets a record
// for its outstanding balance; a PENDING_PAYMENT booking gets its open
// checkout link again.
func (s *Service) InitiatePayment(ctx context.Context, req domain.InitiatePaymentRequest) (domain.InitiatePaymentResponse, error) {
	booking, err := s.loader.Load(ctx, s.db, req.BookingID)
	if err != nil {
		return domain.InitiatePaymentResponse{}, err
	}
	if booking == nil {
		return domain.InitiatePaymentResponse{}, bookingdomain.NewNotFoundError(fmt.Sprintf("booking %s not found", req.BookingID))
	}
	log := obslogger.WithBooking(obslogger.WithContext(ctx, s.log), booking.ID.String(), booking.EventID.String())

	var payment *domain.Payment
	switch booking.Status {
	case bookingdomain.StatusHold:
		paymentType, amount, err := depositTerms(req.Type, booking)
		if err != nil {
			return domain.InitiatePaymentResponse{}, err
		}
		if _, err := s.transitions.Transition(ctx, booking.ID, bookingdomain.ActionInitiatePayment, bookingdomain.TransitionContext{
			Actor:         bookingdomain.ActorClient,
			ActorID:       actorID(req.ActorID, booking),
			PaymentType:   paymentType,
			PaymentAmount: amount,
			PaymentMethod: domain.MethodLiqPay,
		}); err != nil {
			return domain.InitiatePaymentResponse{}, err
		}
		payment, err = s.repo.FindLatestPending(ctx, s.db, booking.ID)
		if err != nil {
			return domain.InitiatePaymentResponse{}, err
		}

	case bookingdomain.StatusPendingPayment:
		payment, err = s.repo.FindLatestPending(ctx, s.db, booking.ID)
		if err != nil {
			return domain.InitiatePaymentResponse{}, err
		}

	case bookingdomain.StatusConfirmed:
		payment, err = s.recordBalance(ctx, booking)
		if err != nil {
			return domain.InitiatePaymentResponse{}, err
		}

	default:
		return domain.InitiatePaymentResponse{}, bookingdomain.NewInvalidTransitionError(
			fmt.Sprintf("cannot pay booking in status %s", booking.Status))
	}
	if payment == nil {
		return domain.InitiatePaymentResponse{}, domain.ErrNoPendingPayment
	}

	url, err := s.provider.BuildPaymentURL(OrderID(booking.ID, payment.ID), booking.ID.String(), payment.Amount, description(booking))
	if err != nil {
		log.Warn("checkout link not built", zap.Error(err))
		return domain.InitiatePaymentResponse{}, fmt.Errorf("%w: %w", bookingdomain.ErrExternalFailure, err)
	}

	log.Info("payment initiated",
		zap.String("payment_id", payment.ID.String()),
		zap.String("type", string(payment.Type)),
		zap.Int64("amount", payment.Amount),
	)
	return domain.InitiatePaymentResponse{Payment: *payment, CheckoutURL: url}, nil
}

func (s *Service) recordBalance(ctx context.Context, booking *bookingdomain.Booking) (*domain.Payment, error) {
	if pending, err := s.repo.FindLatestPending(ctx, s.db, booking.ID); err != nil || pending != nil {
		return pending, err
	}
	balance := booking.BalanceDue()
	if balance <= 0 {
		return nil, domain.ErrNothingToPay
	}
	now := s.clock.Now()
	currency := "UAH"
	if booking.Event != nil && booking.Event.Currency != "" {
		currency = booking.Event.Currency
	}
	payment := domain.Payment{
		ID:           s.genID.Generate(),
		BookingID:    booking.ID,
		Amount:       balance,
		Currency:     currency,
		Type:         domain.PaymentTypeFull,
		Method:       domain.MethodLiqPay,
		Status:       domain.PaymentStatusPending,
		ProviderData: datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// HandleWebhook applies a signed provider callback: the matching PENDING
// payment is settled, then the booking advances. Redelivered callbacks for
// an already settled payment are acknowledged without side effects.
func (s *Service) HandleWebhook(ctx context.Context, data, signature string) (result domain.WebhookResult, err error) {
	ctx, requestID := correlation.EnsureCorrelationID(ctx)
	ctx, span := tracing.Start(ctx, "payment.webhook", attribute.String("payment.provider", s.provider.Name()))
	defer func() { tracing.End(span, err) }()
	log := obslogger.WithContext(ctx, s.log).With(zap.String("webhook_request_id", requestID))

	if !s.provider.VerifySignature(data, signature) {
		s.metrics.RecordPaymentEvent(ctx, s.provider.Name(), "invalid_signature")
		log.Warn("webhook signature rejected")
		return domain.WebhookResult{}, domain.ErrInvalidSignature
	}
	cb, err := s.provider.Decode(data)
	if err != nil {
		return domain.WebhookResult{}, err
	}
	s.metrics.RecordPaymentEvent(ctx, s.provider.Name(), string(cb.Status))

	bookingID, paymentID, err := ParseOrderID(cb.OrderID)
	if err != nil {
		return domain.WebhookResult{}, err
	}
	result = domain.WebhookResult{BookingID: bookingID, Status: cb.Status}
	log = log.With(zap.String("booking_id", bookingID.String()), zap.String("provider_status", cb.RawStatus))

	if cb.Status == domain.CallbackIgnored {
		log.Info("webhook status ignored")
		return result, domain.ErrEventIgnored
	}

	payment, err := s.findPayment(ctx, bookingID, paymentID)
	if err != nil {
		return result, err
	}
	if payment == nil {
		log.Warn("webhook without pending payment")
		return result, domain.ErrNoPendingPayment
	}
	result.PaymentID = payment.ID
	if payment.Status != domain.PaymentStatusPending {
		// a redelivery still moves a booking the first delivery left behind
		log.Info("webhook for settled payment", zap.String("payment_status", string(payment.Status)))
		return s.applySettled(ctx, log, result, payment.ID, payment.Status)
	}

	status := domain.PaymentStatusFailed
	if cb.Status == domain.CallbackSuccess {
		status = domain.PaymentStatusSuccess
		if cb.Amount > 0 && cb.Amount != payment.Amount {
			log.Warn("webhook amount mismatch, payment marked failed",
				zap.Int64("expected", payment.Amount),
				zap.Int64("received", cb.Amount),
			)
			status = domain.PaymentStatusFailed
			result.Status = domain.CallbackFailure
		}
	}

	providerData := datatypes.JSONMap{}
	for k, v := range cb.Raw {
		providerData[k] = v
	}
	settled, err := s.repo.MarkResult(ctx, s.db, payment.ID, status, cb.TransactionID, providerData, s.clock.Now())
	if err != nil {
		return result, err
	}
	if !settled {
		log.Info("payment settled concurrently", zap.String("payment_id", payment.ID.String()))
		return result, nil
	}

	return s.applySettled(ctx, log, result, payment.ID, status)
}

func (s *Service) applySettled(ctx context.Context, log *zap.Logger, result domain.WebhookResult, paymentID snowflake.ID, status domain.PaymentStatus) (domain.WebhookResult, error) {
	actions, err := s.advance(ctx, result.BookingID, status)
	result.Action = strings.Join(actions, ",")
	if err != nil {
		log.Warn("booking not advanced after payment", zap.String("payment_id", paymentID.String()), zap.Error(err))
		return result, err
	}
	log.Info("payment webhook applied",
		zap.String("payment_id", paymentID.String()),
		zap.String("payment_status", string(status)),
		zap.String("actions", result.Action),
	)
	return result, nil
}

// advance runs the transitions a settled payment unlocks. A deposit that
// already covers the total confirms and pays in one callback.
func (s *Service) advance(ctx context.Context, bookingID snowflake.ID, status domain.PaymentStatus) ([]string, error) {
	tc := bookingdomain.TransitionContext{Actor: bookingdomain.ActorSystem, ActorID: webhookActorID}
	booking, err := s.loader.Load(ctx, s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.NewNotFoundError(fmt.Sprintf("booking %s not found", bookingID))
	}

	var actions []string
	run := func(action bookingdomain.Action) error {
		next, err := s.transitions.Transition(ctx, bookingID, action, tc)
		if err != nil {
			return err
		}
		actions = append(actions, string(action))
		booking = next
		return nil
	}

	if status == domain.PaymentStatusFailed {
		// a newer attempt is still open
		if hasPendingPayment(booking) {
			return actions, nil
		}
		if booking.Status == bookingdomain.StatusPendingPayment {
			return actions, run(bookingdomain.ActionPaymentFailed)
		}
		return actions, nil
	}

	if booking.Status == bookingdomain.StatusPendingPayment {
		if err := run(bookingdomain.ActionDepositPaid); err != nil {
			return actions, err
		}
	}
	if booking.Status == bookingdomain.StatusConfirmed && booking.TotalPaid() >= booking.TotalPrice {
		if err := run(bookingdomain.ActionFullPayment); err != nil {
			return actions, err
		}
	}
	return actions, nil
}

func hasPendingPayment(booking *bookingdomain.Booking) bool {
	for _, p := range booking.Payments {
		if p.Status == domain.PaymentStatusPending {
			return true
		}
	}
	return false
}

func (s *Service) findPayment(ctx context.Context, bookingID, paymentID snowflake.ID) (*domain.Payment, error) {
	if paymentID == 0 {
		return s.repo.FindLatestPending(ctx, s.db, bookingID)
	}
	payments, err := s.repo.ListByBooking(ctx, s.db, bookingID)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		if payments[i].ID == paymentID {
			return &payments[i], nil
		}
	}
	return nil, nil
}

func (s *Service) TotalPaid(ctx context.Context, bookingID snowflake.ID) (int64, error) {
	return s.repo.SumSuccessful(ctx, s.db, bookingID)
}

// OrderID is the provider order id for one payment of a booking.
func OrderID(bookingID, paymentID snowflake.ID) string {
	return bookingID.String() + orderSeparator + paymentID.String()
}

// ParseOrderID accepts "<booking>" and "<booking>_<payment>". A missing
// payment part yields a zero payment id.
func ParseOrderID(orderID string) (snowflake.ID, snowflake.ID, error) {
	bookingPart, paymentPart, _ := strings.Cut(strings.TrimSpace(orderID), orderSeparator)
	bookingID, err := snowflake.ParseString(bookingPart)
	if err != nil || bookingID == 0 {
		return 0, 0, domain.ErrInvalidOrderID
	}
	if paymentPart == "" {
		return bookingID, 0, nil
	}
	paymentID, err := snowflake.ParseString(paymentPart)
	if err != nil || paymentID == 0 {
		return 0, 0, domain.ErrInvalidOrderID
	}
	return bookingID, paymentID, nil
}

func depositTerms(paymentType domain.PaymentType, booking *bookingdomain.Booking) (domain.PaymentType, int64, error) {
	switch paymentType {
	case "", domain.PaymentTypeDeposit:
		return domain.PaymentTypeDeposit, booking.DepositAmount, nil
	case domain.PaymentTypeFull:
		return domain.PaymentTypeFull, booking.TotalPrice, nil
	default:
		return "", 0, domain.ErrInvalidType
	}
}

func actorID(requested string, booking *bookingdomain.Booking) string {
	if id := strings.TrimSpace(requested); id != "" {
		return id
	}
	return booking.ClientID.String()
}

func description(booking *bookingdomain.Booking) string {
	title := ""
	if booking.Event != nil {
		title = booking.Event.Title
	}
	if number := booking.Number(); number != "" {
		return strings.TrimSpace(fmt.Sprintf("Бронювання %s %s", number, title))
	}
	return strings.TrimSpace("Бронювання " + title)
}

// IsClientError reports whether err stems from the callback itself rather
// than from processing it.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidSignature) ||
		errors.Is(err, domain.ErrInvalidPayload) ||
		errors.Is(err, domain.ErrInvalidOrderID)
}
