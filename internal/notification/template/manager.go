package template

import (
	"fmt"

	"github.com/smallbiznis/venuebook/internal/booking/format"
)

func mgrNewBooking(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"📥 <b>Нове бронювання!</b>",
			"",
			fmt.Sprintf("📋 %s", v.number),
			fmt.Sprintf("👤 %s (%s)", v.clientName, v.clientPhone),
			fmt.Sprintf("🎪 %s", v.eventTitle),
			fmt.Sprintf("👥 Гостей: %d", v.guests),
			fmt.Sprintf("💰 %s", v.total),
		),
	}
}

func mgrHoldExpired(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"⌛ <b>Бронь звільнено без оплати</b>",
			"",
			fmt.Sprintf("📋 %s", v.number),
			fmt.Sprintf("👤 %s (%s)", v.clientName, v.clientPhone),
			fmt.Sprintf("🎪 %s", v.eventTitle),
			fmt.Sprintf("👥 Звільнено місць: %d", v.guests),
		),
	}
}

func mgrBookingConfirmed(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"✅ <b>Депозит оплачено</b>",
			"",
			fmt.Sprintf("📋 %s", v.number),
			fmt.Sprintf("👤 %s", v.clientName),
			fmt.Sprintf("💳 Депозит: %s", v.deposit),
		),
	}
}

func mgrPaymentReceived(v view) Rendered {
	amount := v.total
	if p := v.ctx.Payment; p != nil {
		amount = format.Currency(p.Amount)
	}
	return Rendered{
		Telegram: telegram(
			"💚 <b>Оплата отримана</b>",
			"",
			fmt.Sprintf("📋 %s", v.number),
			fmt.Sprintf("👤 %s", v.clientName),
			fmt.Sprintf("💰 %s", amount),
		),
	}
}

func mgrNoShow(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"🚫 <b>Гість не прийшов</b>",
			"",
			fmt.Sprintf("📋 %s", v.number),
			fmt.Sprintf("👤 %s (%s)", v.clientName, v.clientPhone),
			fmt.Sprintf("🎪 %s", v.eventTitle),
		),
	}
}

func mgrBookingCancelled(v view) Rendered {
	reason := v.custom("reason")
	refund := ""
	if b := v.booking(); b != nil && b.RefundAmount != nil {
		refund = format.Currency(*b.RefundAmount)
	}
	return Rendered{
		Telegram: telegram(
			"❌ <b>Бронювання скасовано</b>",
			"",
			fmt.Sprintf("📋 %s", v.number),
			fmt.Sprintf("👤 %s", v.clientName),
			fmt.Sprintf("🎪 %s", v.eventTitle),
			fmt.Sprintf("👥 Звільнено місць: %d", v.guests),
			optional(reason != "", fmt.Sprintf("📝 Причина: %s", reason)),
			optional(refund != "", fmt.Sprintf("💸 Повернення: %s", refund)),
		),
	}
}

func mgrDailySummary(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"📊 <b>Щоденний звіт</b>",
			"",
			fmt.Sprintf("📅 Бронювань сьогодні: %d", v.customInt("today_bookings", 0)),
			fmt.Sprintf("💰 Дохід: %s", format.Currency(v.customInt("today_revenue", 0))),
			fmt.Sprintf("🎪 Найближчих подій: %d", v.customInt("upcoming_events", 0)),
		),
	}
}

func mgrCapacityAlert(v view) Rendered {
	pct := v.customInt("percentage", 80)
	return Rendered{
		Telegram: telegram(
			fmt.Sprintf("⚠️ <b>Заповненість %d%%</b>", pct),
			"",
			fmt.Sprintf("🎪 %s", v.eventTitle),
			fmt.Sprintf("📅 %s", v.eventDate),
			"Скоро подія буде повністю заповнена!",
		),
	}
}
