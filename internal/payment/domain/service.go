package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// CallbackStatus is the provider outcome reduced to what the booking flow acts on.
type CallbackStatus string

const (
	CallbackSuccess CallbackStatus = "success"
	CallbackFailure CallbackStatus = "failure"
	CallbackIgnored CallbackStatus = "ignored"
)

// CallbackData is the decoded provider callback.
type CallbackData struct {
	OrderID       string
	Status        CallbackStatus
	RawStatus     string
	Amount        int64
	Currency      string
	TransactionID string
	Raw           map[string]any
}

// Provider verifies, decodes and builds checkout links for one payment provider.
type Provider interface {
	Name() string
	VerifySignature(data, signature string) bool
	Decode(data string) (CallbackData, error)
	BuildPaymentURL(orderID, bookingID string, amount int64, description string) (string, error)
}

type InitiatePaymentRequest struct {
	BookingID snowflake.ID
	Type      PaymentType
	ActorID   string
}

type InitiatePaymentResponse struct {
	Payment     Payment `json:"payment"`
	CheckoutURL string  `json:"checkout_url"`
}

type WebhookResult struct {
	BookingID snowflake.ID   `json:"booking_id"`
	PaymentID snowflake.ID   `json:"payment_id"`
	Status    CallbackStatus `json:"status"`
	Action    string         `json:"action,omitempty"`
}

type Service interface {
	InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (InitiatePaymentResponse, error)
	HandleWebhook(ctx context.Context, data, signature string) (WebhookResult, error)
	TotalPaid(ctx context.Context, bookingID snowflake.ID) (int64, error)
}

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrInvalidOrderID   = errors.New("invalid_order_id")
	ErrNoPendingPayment = errors.New("no_pending_payment")
	ErrInvalidType      = errors.New("invalid_payment_type")
	ErrNothingToPay     = errors.New("nothing_to_pay")
	ErrNotConfigured    = errors.New("provider_not_configured")
)
