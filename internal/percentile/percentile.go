// Package percentile computes score percentile thresholds for a
// (machine, venue, season) population and maps raw scores back onto them.
package percentile

import (
	"errors"
	"math"
	"sort"

	"github.com/salishmushrooms/pinstats/internal/model"
)

// DefaultLevels are the percentile levels published per population.
var DefaultLevels = []int{10, 25, 50, 75, 90, 95, 99}

// MinPopulation is the smallest population worth publishing thresholds for.
// Below this the variance makes the table misleading, so callers skip
// publishing instead.
const MinPopulation = 10

// ErrPopulationTooSmall signals a population below MinPopulation.
var ErrPopulationTooSmall = errors.New("population too small to publish")

// Summary holds one population's computed thresholds and moments.
type Summary struct {
	Thresholds []model.PercentileThreshold // ascending by level
	Mean       float64
	StdDev     float64
	Size       int
}

// Compute returns thresholds at the requested levels over the score
// population, using linear-interpolation percentile semantics: the value at
// fractional rank p/100 * (n-1) over the sorted population. Levels must be
// in (0, 100]. Returns ErrPopulationTooSmall when the population is below
// MinPopulation; the thresholds are still computed so diagnostic callers can
// inspect them, but they must not be published.
func Compute(scores []int64, levels []int) (Summary, error) {
	if len(scores) == 0 {
		return Summary{}, errors.New("empty population")
	}
	if len(levels) == 0 {
		levels = DefaultLevels
	}

	sorted := make([]float64, len(scores))
	for i, s := range scores {
		sorted[i] = float64(s)
	}
	sort.Float64s(sorted)

	lv := make([]int, len(levels))
	copy(lv, levels)
	sort.Ints(lv)

	sum := Summary{Size: len(sorted)}
	for _, level := range lv {
		sum.Thresholds = append(sum.Thresholds, model.PercentileThreshold{
			Level:      level,
			Value:      valueAt(sorted, level),
			SampleSize: len(sorted),
		})
	}

	var total float64
	for _, v := range sorted {
		total += v
	}
	sum.Mean = total / float64(len(sorted))
	var sq float64
	for _, v := range sorted {
		d := v - sum.Mean
		sq += d * d
	}
	sum.StdDev = math.Sqrt(sq / float64(len(sorted)))

	if len(sorted) < MinPopulation {
		return sum, ErrPopulationTooSmall
	}
	return sum, nil
}

// valueAt interpolates the score at percentile level over a sorted population.
func valueAt(sorted []float64, level int) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := float64(level) / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// ScoreToPercentile maps a raw score to a continuous 0-100 percentile using
// the published thresholds for one (machine, venue, season) key, sorted
// ascending by level. Below the lowest threshold it interpolates from (0, 0);
// at or above the highest it returns 100; otherwise it interpolates between
// the bracketing levels. The result is an estimate reconstructed from the
// discrete threshold samples, not an exact rank over the population.
func ScoreToPercentile(score float64, thresholds []model.PercentileThreshold) float64 {
	if len(thresholds) == 0 {
		return 0
	}
	top := thresholds[len(thresholds)-1]
	if score >= top.Value {
		return 100
	}
	for i, t := range thresholds {
		if score >= t.Value {
			continue
		}
		if i == 0 {
			if t.Value <= 0 {
				return float64(t.Level)
			}
			return score / t.Value * float64(t.Level)
		}
		prev := thresholds[i-1]
		span := t.Value - prev.Value
		if span <= 0 {
			return float64(prev.Level)
		}
		frac := (score - prev.Value) / span
		return float64(prev.Level) + frac*float64(t.Level-prev.Level)
	}
	// Unreachable: score < top.Value guarantees the loop brackets it.
	return float64(top.Level)
}
