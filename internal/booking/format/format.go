// Package format renders money, dates and booking numbers for Ukrainian
// customer-facing text.
package format

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const KyivZone = "Europe/Kyiv"

var (
	kyiv    = loadKyiv()
	printer = message.NewPrinter(language.Ukrainian)
)

var monthsGenitive = [...]string{
	"січня", "лютого", "березня", "квітня", "травня", "червня",
	"липня", "серпня", "вересня", "жовтня", "листопада", "грудня",
}

var monthsShort = [...]string{
	"січ.", "лют.", "бер.", "квіт.", "трав.", "черв.",
	"лип.", "серп.", "вер.", "жовт.", "лист.", "груд.",
}

func loadKyiv() *time.Location {
	loc, err := time.LoadLocation(KyivZone)
	if err != nil {
		return time.FixedZone("EET", 2*60*60)
	}
	return loc
}

// Kyiv returns the Europe/Kyiv location.
func Kyiv() *time.Location {
	return kyiv
}

// Currency renders minor units as hryvnias with uk-UA grouping, up to two
// fraction digits, e.g. "1 500 ₴" or "1 234,56 ₴".
func Currency(minor int64) string {
	value := float64(minor) / 100
	return printer.Sprint(number.Decimal(value, number.MaxFractionDigits(2))) + " ₴"
}

// BookingNumber renders BK-YYYY-NNNN.
func BookingNumber(year int, seq int64) string {
	return fmt.Sprintf("BK-%04d-%04d", year, seq)
}

// KyivDate renders dd.mm.yyyy in Kyiv time.
func KyivDate(t time.Time) string {
	return t.In(kyiv).Format("02.01.2006")
}

// KyivTime renders HH:MM in Kyiv time.
func KyivTime(t time.Time) string {
	return t.In(kyiv).Format("15:04")
}

func KyivDateTime(t time.Time) string {
	return KyivDate(t) + " " + KyivTime(t)
}

// DateShort renders "15 черв.".
func DateShort(t time.Time) string {
	local := t.In(kyiv)
	return fmt.Sprintf("%d %s", local.Day(), monthsShort[local.Month()-1])
}

// DateFull renders "15 червня 2025 р.".
func DateFull(t time.Time) string {
	local := t.In(kyiv)
	return fmt.Sprintf("%d %s %d р.", local.Day(), monthsGenitive[local.Month()-1], local.Year())
}

// Truncate shortens text to max runes, ending with "..." when cut.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return strings.TrimSpace(string(runes[:max-3])) + "..."
}
