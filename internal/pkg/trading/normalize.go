// Package trading provides order sizing calculation utilities.
package trading

import (
	"github.com/shopspring/decimal"
)

// NormalizeQty fits a desired quantity to an instrument's lot size filter:
// round to the nearest step multiple, then clamp into [minQty, maxQty].
// A desired value below the minimum returns the minimum directly; the minimum
// wins over step rounding. Zero min/max/step each mean "no constraint".
// Never fails; the worst case is the clamped minimum.
func NormalizeQty(desired, minQty, maxQty, step float64) float64 {
	if minQty > 0 && desired < minQty {
		return minQty
	}
	q := decimal.NewFromFloat(desired)
	if step > 0 {
		st := decimal.NewFromFloat(step)
		q = q.DivRound(st, 0).Mul(st)
	}
	if maxQty > 0 {
		if mx := decimal.NewFromFloat(maxQty); q.GreaterThan(mx) {
			q = mx
		}
	}
	if minQty > 0 {
		// Step rounding can undershoot the minimum for desired values just above it.
		if mn := decimal.NewFromFloat(minQty); q.LessThan(mn) {
			q = mn
		}
	}
	f, _ := q.Float64()
	return f
}

// NormalizePrice rounds a price to the decimal precision implied by the
// instrument's tick size (tick 0.001 -> 3 fractional digits). A zero tick
// passes the price through unchanged.
func NormalizePrice(desired, tick float64) float64 {
	if tick <= 0 {
		return desired
	}
	var places int32
	if t := decimal.NewFromFloat(tick); t.Exponent() < 0 {
		places = -t.Exponent()
	}
	f, _ := decimal.NewFromFloat(desired).Round(places).Float64()
	return f
}

// FormatAmount renders a quantity or price in the exact decimal string form
// the exchange accepts, free of binary float artifacts.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}
