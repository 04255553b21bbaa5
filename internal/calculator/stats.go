package calculator

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds descriptive statistics of a price column.
type Summary struct {
	Count  int
	Mean   float64
	Std    float64 // sample standard deviation
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Describe summarizes values. Statistics that need more data than available
// are NaN.
func Describe(values []float64) Summary {
	s := Summary{Count: len(values)}
	if len(values) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(values, nil)
	s.Std = math.NaN()
	if len(values) > 1 {
		s.Std = stat.StdDev(values, nil)
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Q25 = quantile(sorted, 0.25)
	s.Median = quantile(sorted, 0.5)
	s.Q75 = quantile(sorted, 0.75)
	return s
}

// quantile interpolates linearly between the closest ranks of sorted, placing
// p at position p*(n-1).
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
