package template

import (
	"fmt"

	"github.com/smallbiznis/venuebook/internal/booking/format"
)

func bookingCreated(v view) Rendered {
	holdLine := "⏱ Бронь утримується обмежений час, оплатіть депозит."
	if b := v.booking(); b != nil && b.HoldExpiresAt != nil {
		holdLine = fmt.Sprintf("⏱ Бронь утримується до %s.", format.KyivTime(*b.HoldExpiresAt))
	}
	return Rendered{
		Telegram: telegram(
			"🎉 <b>Бронювання створено!</b>",
			"",
			fmt.Sprintf("📋 Номер: <b>%s</b>", v.number),
			fmt.Sprintf("🎪 Подія: %s", v.eventTitle),
			fmt.Sprintf("📅 Дата: %s", v.eventDate),
			fmt.Sprintf("👥 Гостей: %d", v.guests),
			fmt.Sprintf("💰 Сума: %s", v.total),
			fmt.Sprintf("💳 Депозит: %s", v.deposit),
			"",
			holdLine,
		),
		Email: email(
			fmt.Sprintf("Бронювання %s створено", v.number),
			fmt.Sprintf("Ваше бронювання %s на \"%s\" створено. Сума: %s. Депозит: %s.", v.number, v.eventTitle, v.total, v.deposit),
		),
	}
}

func paymentPending(v view) Rendered {
	amount := v.deposit
	if p := v.ctx.Payment; p != nil {
		amount = format.Currency(p.Amount)
	}
	return Rendered{
		Telegram: telegram(
			"💳 <b>Очікуємо оплату</b>",
			"",
			fmt.Sprintf("📋 %s — %s", v.number, v.eventTitle),
			fmt.Sprintf("💰 До сплати: %s", amount),
			optional(v.custom("checkout_url") != "", fmt.Sprintf("🔗 <a href=\"%s\">Оплатити</a>", v.custom("checkout_url"))),
		),
		Email: email(
			fmt.Sprintf("Оплата бронювання %s", v.number),
			fmt.Sprintf("Очікуємо оплату %s за бронювання %s на \"%s\".", amount, v.number, v.eventTitle),
		),
	}
}

func holdExpiring(v view) Rendered {
	minutes := v.customInt("minutes_left", 5)
	return Rendered{
		Telegram: telegram(
			"⏰ <b>Увага! Бронь закінчується!</b>",
			"",
			fmt.Sprintf("📋 %s — %s", v.number, v.eventTitle),
			fmt.Sprintf("⏱ Залишилось %d хвилин для оплати депозиту.", minutes),
		),
	}
}

func holdExpired(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"⌛ <b>Час утримання броні минув</b>",
			"",
			fmt.Sprintf("📋 %s — %s", v.number, v.eventTitle),
			"Депозит не було сплачено вчасно, місця звільнено.",
			"Ви можете створити нове бронювання на сайті.",
		),
		Email: email(
			fmt.Sprintf("Бронювання %s скасовано", v.number),
			fmt.Sprintf("Час утримання бронювання %s на \"%s\" минув. Місця звільнено.", v.number, v.eventTitle),
		),
	}
}

func bookingConfirmed(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"✅ <b>Бронювання підтверджено!</b>",
			"",
			fmt.Sprintf("📋 %s", v.number),
			fmt.Sprintf("🎪 %s", v.eventTitle),
			fmt.Sprintf("📅 %s", v.eventDate),
			fmt.Sprintf("📍 %s", v.location),
			fmt.Sprintf("👥 Гостей: %d", v.guests),
			"",
			"Дякуємо за оплату депозиту! Чекаємо на вас.",
		),
		Email: email(
			fmt.Sprintf("Бронювання %s підтверджено", v.number),
			fmt.Sprintf("Ваше бронювання %s підтверджено. Подія \"%s\" відбудеться %s.", v.number, v.eventTitle, v.eventDate),
		),
	}
}

func paymentFailed(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"⚠️ <b>Оплата не пройшла</b>",
			"",
			fmt.Sprintf("📋 %s — %s", v.number, v.eventTitle),
			"Бронь знову утримується, спробуйте оплатити ще раз.",
		),
		Email: email(
			fmt.Sprintf("Оплата бронювання %s не пройшла", v.number),
			fmt.Sprintf("Оплата бронювання %s не пройшла. Бронь утримується, спробуйте ще раз.", v.number),
		),
	}
}

func bookingPaid(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"💚 <b>Бронювання повністю оплачено</b>",
			"",
			fmt.Sprintf("📋 %s", v.number),
			fmt.Sprintf("🎪 %s", v.eventTitle),
			fmt.Sprintf("📅 %s", v.eventDate),
			fmt.Sprintf("💰 Сплачено: %s", v.total),
		),
		Email: email(
			fmt.Sprintf("Бронювання %s оплачено", v.number),
			fmt.Sprintf("Бронювання %s на \"%s\" повністю оплачено. До зустрічі %s!", v.number, v.eventTitle, v.eventDate),
		),
	}
}

func bookingCompleted(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"🙏 <b>Дякуємо, що були з нами!</b>",
			"",
			fmt.Sprintf("🎪 %s", v.eventTitle),
			"Будемо раді бачити вас знову.",
		),
	}
}

func bookingCancelled(v view) Rendered {
	reason := v.custom("reason")
	refund := ""
	if b := v.booking(); b != nil && b.RefundAmount != nil && *b.RefundAmount > 0 {
		refund = format.Currency(*b.RefundAmount)
	}
	return Rendered{
		Telegram: telegram(
			"❌ <b>Бронювання скасовано</b>",
			"",
			fmt.Sprintf("📋 %s — %s", v.number, v.eventTitle),
			optional(reason != "", fmt.Sprintf("📝 Причина: %s", reason)),
			optional(refund != "", fmt.Sprintf("💸 До повернення: %s", refund)),
		),
		Email: email(
			fmt.Sprintf("Бронювання %s скасовано", v.number),
			fmt.Sprintf("Бронювання %s на \"%s\" скасовано.", v.number, v.eventTitle),
		),
	}
}

func bookingRefunded(v view) Rendered {
	amount := ""
	if b := v.booking(); b != nil && b.RefundAmount != nil {
		amount = format.Currency(*b.RefundAmount)
	}
	return Rendered{
		Telegram: telegram(
			"💸 <b>Кошти повернено</b>",
			"",
			fmt.Sprintf("📋 %s — %s", v.number, v.eventTitle),
			fmt.Sprintf("💰 Сума повернення: %s", amount),
		),
		Email: email(
			fmt.Sprintf("Повернення коштів за %s", v.number),
			fmt.Sprintf("Ми повернули %s за бронювання %s.", amount, v.number),
		),
	}
}

func reminder24h(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"🔔 <b>Нагадування: завтра ваша подія!</b>",
			"",
			fmt.Sprintf("🎪 %s", v.eventTitle),
			fmt.Sprintf("📅 %s", v.eventDate),
			fmt.Sprintf("📍 %s", v.location),
			fmt.Sprintf("👥 Гостей: %d", v.guests),
		),
	}
}

func reminder3h(v view) Rendered {
	return Rendered{
		Telegram: telegram(
			"🔔 <b>Подія через 3 години!</b>",
			"",
			fmt.Sprintf("🎪 %s", v.eventTitle),
			fmt.Sprintf("📍 %s", v.location),
			fmt.Sprintf("👥 Гостей: %d", v.guests),
		),
	}
}
