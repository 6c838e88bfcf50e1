package gap

import (
	"math"
	"sort"

	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/gerontech-demand-etl/internal/index"
)

// minTertileSample is the smallest number of valid scores split into thirds.
const minTertileSample = 4

// Tertiles labels each value Low, Medium or High by the cohort's tertile
// edges. Edges are linearly interpolated quantiles; the first bin includes its
// lower edge and every other bin is closed on the right. With fewer than four
// valid values, or when two edges coincide, it falls back to a median split
// (above the median is High, otherwise Low). Nil and NaN values are Low.
func Tertiles(values []*float64) []string {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil && !math.IsNaN(*v) {
			valid = append(valid, *v)
		}
	}

	if len(valid) < minTertileSample {
		return medianSplit(values, valid)
	}

	sort.Float64s(valid)
	q1, q2 := quantile(valid, 1.0/3), quantile(valid, 2.0/3)
	q0, q3 := valid[0], valid[len(valid)-1]
	if q0 == q1 || q1 == q2 || q2 == q3 {
		return medianSplit(values, valid)
	}

	out := make([]string, len(values))
	for i, v := range values {
		switch {
		case v == nil || math.IsNaN(*v):
			out[i] = domain.PriorityLow
		case *v <= q1:
			out[i] = domain.PriorityLow
		case *v <= q2:
			out[i] = domain.PriorityMedium
		default:
			out[i] = domain.PriorityHigh
		}
	}
	return out
}

func medianSplit(values []*float64, valid []float64) []string {
	out := make([]string, len(values))
	median := index.Median(valid)
	for i, v := range values {
		if v != nil && !math.IsNaN(*v) && *v > median {
			out[i] = domain.PriorityHigh
		} else {
			out[i] = domain.PriorityLow
		}
	}
	return out
}

// quantile interpolates linearly between closest ranks of a sorted sample.
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
