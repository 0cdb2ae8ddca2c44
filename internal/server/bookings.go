package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	paymentdomain "github.com/smallbiznis/venuebook/internal/payment/domain"
)

type createBookingRequest struct {
	EventID        string `json:"event_id" binding:"required"`
	Phone          string `json:"phone" binding:"required"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	TelegramChatID string `json:"telegram_chat_id"`
	GuestsCount    int    `json:"guests_count" binding:"required"`
	PromoCode      string `json:"promo_code"`
	Notes          string `json:"notes"`
}

type initiatePaymentRequest struct {
	Type string `json:"type"`
}

// bookingView is what a client may see of their own booking.
type bookingView struct {
	BookingNumber string                      `json:"booking_number"`
	Status        bookingdomain.BookingStatus `json:"status"`
	GuestsCount   int                         `json:"guests_count"`
	TotalPrice    int64                       `json:"total_price"`
	DepositAmount int64                       `json:"deposit_amount"`
	TotalPaid     int64                       `json:"total_paid"`
	BalanceDue    int64                       `json:"balance_due"`
	Currency      string                      `json:"currency,omitempty"`
	HoldExpiresAt *time.Time                  `json:"hold_expires_at,omitempty"`
	PromoCode     *string                     `json:"promo_code,omitempty"`
	Event         *eventView                  `json:"event,omitempty"`
}

func newBookingView(b *bookingdomain.Booking) bookingView {
	view := bookingView{
		BookingNumber: b.Number(),
		Status:        b.Status,
		GuestsCount:   b.GuestsCount,
		TotalPrice:    b.TotalPrice,
		DepositAmount: b.DepositAmount,
		TotalPaid:     b.TotalPaid(),
		BalanceDue:    b.BalanceDue(),
		PromoCode:     b.PromoCode,
	}
	if b.Status == bookingdomain.StatusHold {
		view.HoldExpiresAt = b.HoldExpiresAt
	}
	if b.Event != nil {
		ev := newEventView(b.Event)
		view.Currency = b.Event.Currency
		view.Event = &ev
	}
	return view
}

func (s *Server) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	eventID, err := parseSnowflakeID(req.EventID)
	if err != nil {
		AbortWithError(c, newValidationError("event_id", "invalid_event_id", "invalid event_id"))
		return
	}

	booking, err := s.bookingSvc.CreateBooking(c.Request.Context(), bookingdomain.CreateBookingRequest{
		EventID:        eventID,
		Phone:          req.Phone,
		FullName:       strings.TrimSpace(req.FullName),
		Email:          strings.TrimSpace(req.Email),
		TelegramChatID: strings.TrimSpace(req.TelegramChatID),
		GuestsCount:    req.GuestsCount,
		PromoCode:      req.PromoCode,
		Notes:          req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newBookingView(booking)})
}

func (s *Server) GetBookingByNumber(c *gin.Context) {
	booking, err := s.bookingSvc.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newBookingView(booking)})
}

func (s *Server) InitiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	booking, err := s.bookingSvc.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.InitiatePayment(c.Request.Context(), paymentdomain.InitiatePaymentRequest{
		BookingID: booking.ID,
		Type:      paymentdomain.PaymentType(strings.ToUpper(strings.TrimSpace(req.Type))),
		ActorID:   clientActorID(booking.ClientID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"checkout_url": resp.CheckoutURL,
			"amount":       resp.Payment.Amount,
			"currency":     resp.Payment.Currency,
			"type":         resp.Payment.Type,
		},
	})
}

func clientActorID(id snowflake.ID) string {
	if id == 0 {
		return ""
	}
	return id.String()
}
