// Package index normalizes raw district indicators to a common [0,1] scale and
// combines them into weighted composite scores.
package index

import (
	"math"
	"sort"
)

// Neutral is the score every district receives for an indicator with no spread.
const Neutral = 0.5

// Direction selects whether larger raw values mean a larger score.
type Direction int

const (
	// Direct maps the minimum to 0 and the maximum to 1.
	Direct Direction = iota
	// Inverted maps the minimum to 1 and the maximum to 0 (e.g. lower income, higher need).
	Inverted
)

// MinMax scales values to [0,1] across the cohort. When the maximum equals the
// minimum, or there are no values, every entry scores Neutral instead of
// dividing by zero.
func MinMax(values []float64, dir Direction) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if !(hi > lo) {
		for i := range out {
			out[i] = Neutral
		}
		return out
	}

	span := hi - lo
	for i, v := range values {
		s := (v - lo) / span
		if dir == Inverted {
			s = 1 - s
		}
		out[i] = Clamp(s, 0, 1)
	}
	return out
}

// Weighted pairs a score with its weight in a composite.
type Weighted struct {
	Score  float64
	Weight float64
}

// Composite returns the weighted sum of the components scaled to [0,100] and
// clamped to that range.
func Composite(components ...Weighted) float64 {
	var sum float64
	for _, c := range components {
		sum += c.Score * c.Weight
	}
	return Clamp(sum*100, 0, 100)
}

// Clamp limits v to [lo, hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Median returns the median of values, averaging the two middle elements for
// even-length input. It returns NaN for empty input.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
