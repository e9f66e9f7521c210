// Package interval estimates confidence intervals for score samples.
package interval

import (
	"errors"
	"fmt"
	"math"

	"github.com/salishmushrooms/pinstats/internal/model"
)

// MinSamples is the hard floor below which no interval is computed. It is
// deliberately not configurable per call.
const MinSamples = 5

// ErrInsufficientData signals a sample below MinSamples.
var ErrInsufficientData = errors.New("insufficient data")

// z-scores for the two supported confidence levels.
const (
	z95 = 1.96
	z90 = 1.645
)

// Estimate computes a confidence interval for the sample mean at the given
// level (95 or 90; no other levels are supported). The standard deviation is
// the population form (denominator n, not n-1). The lower bound is clamped
// at 0 since scores cannot be negative; the upper bound is left as computed.
func Estimate(scores []float64, level int) (model.ConfidenceInterval, error) {
	if len(scores) < MinSamples {
		return model.ConfidenceInterval{}, ErrInsufficientData
	}

	var z float64
	switch level {
	case 95:
		z = z95
	case 90:
		z = z90
	default:
		return model.ConfidenceInterval{}, fmt.Errorf("unsupported confidence level %d", level)
	}

	n := float64(len(scores))
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / n

	var sq float64
	for _, s := range scores {
		d := s - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / n)

	margin := z * stddev / math.Sqrt(n)
	lower := mean - margin
	if lower < 0 {
		lower = 0
	}

	return model.ConfidenceInterval{
		Mean:       mean,
		StdDev:     stddev,
		Lower:      lower,
		Upper:      mean + margin,
		SampleSize: len(scores),
		Level:      level,
	}, nil
}
