package domain

import "github.com/shopspring/decimal"

// round2 rounds half away from zero to two decimal places using decimal
// arithmetic, so 0.285 becomes 0.29 rather than the binary-float 0.28.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
