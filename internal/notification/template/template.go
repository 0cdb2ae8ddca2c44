// Package template renders notification copy for each channel.
package template

import (
	"fmt"
	"html"
	"strings"

	bookingdomain "github.com/smallbiznis/venuebook/internal/booking/domain"
	"github.com/smallbiznis/venuebook/internal/booking/format"
	"github.com/smallbiznis/venuebook/internal/client/phone"
	"github.com/smallbiznis/venuebook/internal/notification/domain"
)

const (
	BookingCreated   = "booking_created"
	PaymentPending   = "payment_pending"
	HoldExpiring     = "hold_expiring"
	HoldExpired      = "hold_expired"
	BookingConfirmed = "booking_confirmed"
	PaymentFailed    = "payment_failed"
	BookingPaid      = "booking_paid"
	BookingCompleted = "booking_completed"
	BookingCancelled = "booking_cancelled"
	BookingRefunded  = "booking_refunded"
	Reminder24h      = "reminder_24h"
	Reminder3h       = "reminder_3h"

	ManagerNewBooking       = "mgr_new_booking"
	ManagerHoldExpired      = "mgr_hold_expired"
	ManagerBookingConfirmed = "mgr_booking_confirmed"
	ManagerPaymentReceived  = "mgr_payment_received"
	ManagerNoShow           = "mgr_no_show"
	ManagerBookingCancelled = "mgr_booking_cancelled"
	ManagerDailySummary     = "mgr_daily_summary"
	ManagerCapacityAlert    = "mgr_capacity_alert"
)

// Rendered holds the per-channel payloads of one template. A nil entry
// means the template has no copy for that channel.
type Rendered struct {
	Telegram *domain.Payload
	Email    *domain.Payload
}

// For returns the payload for a channel.
func (r Rendered) For(channel domain.Channel) *domain.Payload {
	switch channel {
	case domain.ChannelTelegram:
		return r.Telegram
	case domain.ChannelEmail:
		return r.Email
	}
	return nil
}

type renderer func(v view) Rendered

var registry = map[string]renderer{
	BookingCreated:   bookingCreated,
	PaymentPending:   paymentPending,
	HoldExpiring:     holdExpiring,
	HoldExpired:      holdExpired,
	BookingConfirmed: bookingConfirmed,
	PaymentFailed:    paymentFailed,
	BookingPaid:      bookingPaid,
	BookingCompleted: bookingCompleted,
	BookingCancelled: bookingCancelled,
	BookingRefunded:  bookingRefunded,
	Reminder24h:      reminder24h,
	Reminder3h:       reminder3h,

	ManagerNewBooking:       mgrNewBooking,
	ManagerHoldExpired:      mgrHoldExpired,
	ManagerBookingConfirmed: mgrBookingConfirmed,
	ManagerPaymentReceived:  mgrPaymentReceived,
	ManagerNoShow:           mgrNoShow,
	ManagerBookingCancelled: mgrBookingCancelled,
	ManagerDailySummary:     mgrDailySummary,
	ManagerCapacityAlert:    mgrCapacityAlert,
}

// Render returns false for an unknown template id.
func Render(templateID string, tctx domain.TemplateContext) (Rendered, bool) {
	fn, ok := registry[templateID]
	if !ok {
		return Rendered{}, false
	}
	return fn(newView(tctx)), true
}

// Known reports whether a template id is registered.
func Known(templateID string) bool {
	_, ok := registry[templateID]
	return ok
}

// view flattens a TemplateContext into escaped strings so renderers never
// deal with missing relations.
type view struct {
	ctx domain.TemplateContext

	number      string
	eventTitle  string
	eventDate   string
	location    string
	guests      int
	total       string
	deposit     string
	clientName  string
	clientPhone string
}

func newView(tctx domain.TemplateContext) view {
	v := view{ctx: tctx}
	if b := tctx.Booking; b != nil {
		v.number = html.EscapeString(b.Number())
		v.guests = b.GuestsCount
		v.total = format.Currency(b.TotalPrice)
		v.deposit = format.Currency(b.DepositAmount)
		if c := b.Client; c != nil {
			v.clientName = html.EscapeString(c.FullName)
			v.clientPhone = phone.Format(c.Phone)
		}
	}
	if e := tctx.BookingEvent(); e != nil {
		v.eventTitle = html.EscapeString(e.Title)
		v.eventDate = format.DateFull(e.DateStart)
		v.location = html.EscapeString(e.Location)
	}
	return v
}

func (v view) booking() *bookingdomain.Booking {
	return v.ctx.Booking
}

func (v view) custom(key string) string {
	if v.ctx.Custom == nil {
		return ""
	}
	raw, ok := v.ctx.Custom[key]
	if !ok || raw == nil {
		return ""
	}
	return html.EscapeString(strings.TrimSpace(fmt.Sprint(raw)))
}

func (v view) customInt(key string, def int64) int64 {
	if v.ctx.Custom == nil {
		return def
	}
	switch n := v.ctx.Custom[key].(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return def
}

func telegram(lines ...string) *domain.Payload {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		// optional lines that do not apply are passed as "-"
		if line == "-" {
			continue
		}
		kept = append(kept, line)
	}
	return &domain.Payload{Text: strings.Join(kept, "\n"), ParseMode: domain.ParseModeHTML}
}

func email(subject, text string) *domain.Payload {
	return &domain.Payload{Subject: html.UnescapeString(subject), Text: html.UnescapeString(text)}
}

func optional(cond bool, line string) string {
	if !cond {
		return "-"
	}
	return line
}
