// Package liqpay implements the LiqPay checkout and callback protocol
// (API v3): base64 JSON data signed with base64(sha1(private+data+private)).
package liqpay

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/smallbiznis/venuebook/internal/config"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
)

const (
	ProviderName = "liqpay"
	checkoutURL  = "https://www.liqpay.ua/api/3/checkout"
	apiVersion   = 3

	WebhookPath = "/api/v1/payments/webhook/liqpay"
)

type Config struct {
	PublicKey  string
	PrivateKey string
	Sandbox    bool
	Currency   string
	BaseURL    string
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		PublicKey:  cfg.LiqPay.PublicKey,
		PrivateKey: cfg.LiqPay.PrivateKey,
		Sandbox:    cfg.LiqPay.Sandbox,
		Currency:   cfg.LiqPay.Currency,
		BaseURL:    cfg.BaseURL,
	}
}

type Adapter struct {
	cfg Config
}

func New(cfg config.Config) paymentdomain.Provider {
	return NewAdapter(ConfigFrom(cfg))
}

func NewAdapter(cfg Config) *Adapter {
	if strings.TrimSpace(cfg.Currency) == "" {
		cfg.Currency = "UAH"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Adapter{cfg: cfg}
}

func (a *Adapter) Name() string {
	return ProviderName
}

// Sign computes the LiqPay signature for an encoded data blob.
func (a *Adapter) Sign(data string) string {
	sum := sha1.Sum([]byte(a.cfg.PrivateKey + data + a.cfg.PrivateKey))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (a *Adapter) VerifySignature(data, signature string) bool {
	if a.cfg.PrivateKey == "" || data == "" || signature == "" {
		return false
	}
	expected := a.Sign(data)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(signature))) == 1
}

type callback struct {
	OrderID       string  `json:"order_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	TransactionID any     `json:"transaction_id"`
	PaymentID     any     `json:"payment_id"`
}

func (a *Adapter) Decode(data string) (paymentdomain.CallbackData, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return paymentdomain.CallbackData{}, paymentdomain.ErrInvalidPayload
	}

	var cb callback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return paymentdomain.CallbackData{}, paymentdomain.ErrInvalidPayload
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return paymentdomain.CallbackData{}, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(cb.OrderID) == "" {
		return paymentdomain.CallbackData{}, paymentdomain.ErrInvalidOrderID
	}

	txID := stringify(cb.TransactionID)
	if txID == "" {
		txID = stringify(cb.PaymentID)
	}

	return paymentdomain.CallbackData{
		OrderID:       strings.TrimSpace(cb.OrderID),
		Status:        MapStatus(cb.Status),
		RawStatus:     cb.Status,
		Amount:        int64(math.Round(cb.Amount * 100)),
		Currency:      strings.ToUpper(strings.TrimSpace(cb.Currency)),
		TransactionID: txID,
		Raw:           fields,
	}, nil
}

// MapStatus reduces LiqPay statuses to the outcomes the booking flow acts on.
func MapStatus(status string) paymentdomain.CallbackStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "sandbox":
		return paymentdomain.CallbackSuccess
	case "failure", "error":
		return paymentdomain.CallbackFailure
	default:
		return paymentdomain.CallbackIgnored
	}
}

type checkoutRequest struct {
	Version     int     `json:"version"`
	PublicKey   string  `json:"public_key"`
	Action      string  `json:"action"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	OrderID     string  `json:"order_id"`
	ServerURL   string  `json:"server_url"`
	ResultURL   string  `json:"result_url"`
	Sandbox     int     `json:"sandbox"`
}

// Encode builds the data and signature pair for a checkout. The order id is
// what LiqPay echoes back in the callback; the result page is per booking.
func (a *Adapter) Encode(orderID, bookingID string, amount int64, description string) (string, string, error) {
	if a.cfg.PublicKey == "" || a.cfg.PrivateKey == "" {
		return "", "", paymentdomain.ErrNotConfigured
	}
	sandbox := 0
	if a.cfg.Sandbox {
		sandbox = 1
	}
	payload, err := json.Marshal(checkoutRequest{
		Version:     apiVersion,
		PublicKey:   a.cfg.PublicKey,
		Action:      "pay",
		Amount:      float64(amount) / 100,
		Currency:    a.cfg.Currency,
		Description: description,
		OrderID:     orderID,
		ServerURL:   a.cfg.BaseURL + WebhookPath,
		ResultURL:   fmt.Sprintf("%s/booking/%s/status", a.cfg.BaseURL, bookingID),
		Sandbox:     sandbox,
	})
	if err != nil {
		return "", "", err
	}
	data := base64.StdEncoding.EncodeToString(payload)
	return data, a.Sign(data), nil
}

func (a *Adapter) BuildPaymentURL(orderID, bookingID string, amount int64, description string) (string, error) {
	data, signature, err := a.Encode(orderID, bookingID, amount, description)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("data", data)
	q.Set("signature", signature)
	return checkoutURL + "?" + q.Encode(), nil
}

func stringify(v any) string {
	switch cast := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(cast)
	case float64:
		return fmt.Sprintf("%.0f", cast)
	default:
		return fmt.Sprint(cast)
	}
}
