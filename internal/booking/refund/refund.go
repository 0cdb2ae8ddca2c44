// Package refund computes the refund owed on cancellation from the time
// remaining until the event.
package refund

import "math"

const (
	FullTierHours    = 72
	PartialTierHours = 24

	FullTierPercent    = 95
	PartialTierPercent = 50
)

const (
	ReasonFull    = ">72h: 95% повернення"
	ReasonPartial = "24-72h: 50% повернення"
	ReasonNone    = "<24h: без повернення"
)

type Result struct {
	Amount  int64
	Percent int
	Reason  string
}

// Calculate returns the refund for totalPaid minor units. More than 72h
// refunds 95%, 24h through 72h inclusive refunds 50%, under 24h nothing.
// Hours count whole hours only, so 72h59m is still 72h. Amounts round down.
func Calculate(hoursUntilEvent float64, totalPaid int64) Result {
	percent, reason := tier(hoursUntilEvent)
	if totalPaid <= 0 {
		return Result{Amount: 0, Percent: percent, Reason: reason}
	}
	return Result{
		Amount:  totalPaid * int64(percent) / 100,
		Percent: percent,
		Reason:  reason,
	}
}

func tier(hours float64) (int, string) {
	hours = math.Trunc(hours)
	switch {
	case hours > FullTierHours:
		return FullTierPercent, ReasonFull
	case hours >= PartialTierHours:
		return PartialTierPercent, ReasonPartial
	default:
		return 0, ReasonNone
	}
}
