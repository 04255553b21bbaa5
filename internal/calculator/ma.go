package calculator

import (
	"errors"

	"github.com/guregu/null/v6"
)

// Moving average windows drawn on the price panel.
const (
	ShortWindow = 5
	LongWindow  = 20
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries computes the rolling simple moving average of prices. Entries
// before the window fills are invalid.
func SMASeries(prices []float64, period int) []null.Float {
	out := make([]null.Float, len(prices))
	for i := range prices {
		ma, err := CalculateSMA(prices[:i+1], period)
		if err != nil {
			continue
		}
		out[i] = null.FloatFrom(ma)
	}
	return out
}
