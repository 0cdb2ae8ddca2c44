package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/venuebook/internal/booking/bookingtest"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	bookingservice "github.com/smallbiznis/venuebook/internal/booking/service"
	clientrepo "github.com/smallbiznis/venuebook/internal/client/repository"
	clientservice "github.com/smallbiznis/venuebook/internal/client/service"
	"github.com/smallbiznis/venuebook/internal/config"
	"github.com/smallbiznis/venuebook/internal/payment/liqpay"
	paymentservice "github.com/smallbiznis/venuebook/internal/payment/service"
	promorepo "github.com/smallbiznis/venuebook/internal/promo/repository"
	"github.com/smallbiznis/venuebook/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testManagerKey = "manager-secret"

type testServer struct {
	*bookingtest.Harness
	server  *Server
	adapter *liqpay.Adapter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := bookingtest.New(t)
	log := zap.NewNop()
	cfg := config.Config{Environment: "test", ManagerAPIKey: testManagerKey}

	clients := clientservice.New(clientservice.Params{
		DB: h.DB, Log: log, GenID: h.Node, Clock: h.Clock, Repo: clientrepo.Provide(),
	})
	bookings := bookingservice.New(bookingservice.Params{
		DB:          h.DB,
		Log:         log,
		GenID:       h.Node,
		Clock:       h.Clock,
		Repo:        h.Bookings,
		Loader:      h.Loader,
		Events:      h.Events,
		Promos:      promorepo.Provide(),
		Clients:     clients,
		Audit:       h.Audit,
		Transitions: h.Engine,
	})
	adapter := liqpay.NewAdapter(liqpay.Config{
		PublicKey:  "sandbox_pub",
		PrivateKey: "sandbox_secret",
		Sandbox:    true,
		BaseURL:    "https://venue.example",
	})
	payments := paymentservice.New(paymentservice.Params{
		DB:          h.DB,
		Log:         log,
		GenID:       h.Node,
		Clock:       h.Clock,
		Repo:        h.Payments,
		Provider:    adapter,
		Loader:      h.Loader,
		Transitions: h.Engine,
	})

	srv := NewServer(ServerParams{
		Gin:         NewEngine(cfg, log),
		Cfg:         cfg,
		DB:          h.DB,
		Log:         log,
		Clock:       h.Clock,
		Events:      h.Events,
		BookingSvc:  bookings,
		PaymentSvc:  payments,
		Transitions: h.Engine,
	})
	return &testServer{Harness: h, server: srv, adapter: adapter}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(resp, req)
	return resp
}

func (ts *testServer) callback(t *testing.T, orderID, status string, amount float64) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"order_id":       orderID,
		"status":         status,
		"amount":         amount,
		"currency":       "UAH",
		"transaction_id": 555,
	})
	require.NoError(t, err)
	data := base64.StdEncoding.EncodeToString(raw)
	form := url.Values{"data": {data}, "signature": {ts.adapter.Sign(data)}}

	req := httptest.NewRequest(http.MethodPost, liqpay.WebhookPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestBookingCheckoutFlow(t *testing.T) {
	ts := newTestServer(t)
	event := ts.SeedEvent(t, bookingtest.WithPricing(50000, 0, 30))

	resp := ts.do(t, http.MethodPost, "/api/v1/bookings",
		`{"event_id":"`+event.ID.String()+`","phone":"067 123 45 67","full_name":"Олена","guests_count":2}`, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	data := decode(t, resp)["data"].(map[string]any)
	assert.Equal(t, "BK-2025-0001", data["booking_number"])
	assert.Equal(t, "HOLD", data["status"])
	assert.Equal(t, float64(30000), data["deposit_amount"])

	resp = ts.do(t, http.MethodPost, "/api/v1/bookings/number/BK-2025-0001/payments", "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	checkout := decode(t, resp)["data"].(map[string]any)
	assert.Contains(t, checkout["checkout_url"], "liqpay.ua")

	booking, err := ts.server.bookingSvc.GetByNumber(t.Context(), "BK-2025-0001")
	require.NoError(t, err)
	require.Len(t, booking.Payments, 1)

	resp = ts.callback(t, paymentservice.OrderID(booking.ID, booking.Payments[0].ID), "success", 300)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "depositPaid", decode(t, resp)["action"])

	resp = ts.do(t, http.MethodGet, "/api/v1/bookings/number/BK-2025-0001", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	data = decode(t, resp)["data"].(map[string]any)
	assert.Equal(t, "CONFIRMED", data["status"])
	assert.Equal(t, float64(70000), data["balance_due"])
	assert.Nil(t, data["hold_expires_at"])
}

func TestCreateBookingErrors(t *testing.T) {
	ts := newTestServer(t)
	event := ts.SeedEvent(t, bookingtest.WithCapacity(1, 4))
	holder := ts.SeedClient(t, "+380679999999")
	ts.SeedBooking(t, event, holder, 3, bookingdomain.StatusHold)

	resp := ts.do(t, http.MethodPost, "/api/v1/bookings", `{"phone":"+380671234567"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.do(t, http.MethodPost, "/api/v1/bookings",
		`{"event_id":"`+event.ID.String()+`","phone":"+380671234567","guests_count":5}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	errBody := decode(t, resp)["error"].(map[string]any)
	assert.Equal(t, "validation_error", errBody["type"])

	resp = ts.do(t, http.MethodPost, "/api/v1/bookings",
		`{"event_id":"`+event.ID.String()+`","phone":"+380671234567","guests_count":2}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	errBody = decode(t, resp)["error"].(map[string]any)
	assert.Equal(t, bookingdomain.GuardCodeCapacityExceeded, errBody["code"])

	resp = ts.do(t, http.MethodGet, "/api/v1/bookings/number/BK-2025-9999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestLiqPayWebhookRejections(t *testing.T) {
	ts := newTestServer(t)
	event := ts.SeedEvent(t)
	client := ts.SeedClient(t, "+380671234567")
	booking := ts.SeedBooking(t, event, client, 2, bookingdomain.StatusPendingPayment)

	form := url.Values{"data": {"e30="}, "signature": {"forged"}}
	req := httptest.NewRequest(http.MethodPost, liqpay.WebhookPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.callback(t, booking.ID.String(), "processing", 1)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ignored", decode(t, resp)["status"])
}

func TestManagerRoutes(t *testing.T) {
	ts := newTestServer(t)
	event := ts.SeedEvent(t)
	client := ts.SeedClient(t, "+380671234567")
	held := ts.SeedBooking(t, event, client, 2, bookingdomain.StatusHold)
	path := "/api/v1/manager/bookings/" + held.ID.String()
	auth := map[string]string{HeaderAPIKey: testManagerKey, HeaderManagerID: "m-7"}

	resp := ts.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.do(t, http.MethodGet, path, "", map[string]string{HeaderAPIKey: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.do(t, http.MethodPost, path+"/no-show", "", auth)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = ts.do(t, http.MethodPost, path+"/cancel", `{"reason":"client called"}`, auth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "CANCELLED", decode(t, resp)["data"].(map[string]any)["status"])

	resp = ts.do(t, http.MethodGet, path+"/audit", "", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	logs := decode(t, resp)["data"].([]any)
	require.Len(t, logs, 1)

	resp = ts.do(t, http.MethodGet, "/api/v1/manager/bookings?status=cancelled", "", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode(t, resp)["data"].([]any), 1)

	resp = ts.do(t, http.MethodGet, "/api/v1/manager/bookings?status=lost", "", auth)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubLimiter struct {
	calls int
	allow int
}

func (l *stubLimiter) Enabled() bool { return true }

func (l *stubLimiter) AllowBooking(_ context.Context, _ string) (*ratelimit.Result, error) {
	l.calls++
	if l.calls > l.allow {
		return &ratelimit.Result{Allowed: false, Limit: l.allow, RetryAfter: 1500 * time.Millisecond}, nil
	}
	return &ratelimit.Result{Allowed: true, Limit: l.allow, Remaining: l.allow - l.calls}, nil
}

func TestCreateBookingRateLimited(t *testing.T) {
	ts := newTestServer(t)
	limiter := &stubLimiter{allow: 1}
	ts.server.limiter = limiter
	event := ts.SeedEvent(t)
	body := `{"event_id":"` + event.ID.String() + `","phone":"+380671234567","guests_count":2}`

	resp := ts.do(t, http.MethodPost, "/api/v1/bookings", body, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, "0", resp.Header().Get("X-RateLimit-Remaining"))

	resp = ts.do(t, http.MethodPost, "/api/v1/bookings", body, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "2", resp.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decode(t, resp)["error"].(map[string]any)["type"])
	assert.Equal(t, int64(1), ts.Count(t, "SELECT COUNT(*) FROM bookings"))
}

func TestListEvents(t *testing.T) {
	ts := newTestServer(t)
	published := ts.SeedEvent(t)
	ts.SeedEvent(t, bookingtest.WithStatus("DRAFT"))

	resp := ts.do(t, http.MethodGet, "/api/v1/events", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	events := decode(t, resp)["data"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, published.Slug, events[0].(map[string]any)["slug"])

	resp = ts.do(t, http.MethodGet, "/api/v1/events/"+published.Slug, "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = ts.do(t, http.MethodGet, "/api/v1/events/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
