package generator

import (
	"math"
	"math/rand"
)

const (
	ExponentialPercentileDefault = "95"
	ExponentialFractionDefault   = "0.8571428571" // 1/7
)

// ExponentialGenerator produces a sequence of longs according to
// an exponential distribution. Smaller intervals are more frequent
// than larger ones, and there is no bound on the length of an interval.
type ExponentialGenerator struct {
	*IntegerGeneratorBase
	gamma float64
}

func NewExponentialGeneratorByMean(mean float64) *ExponentialGenerator {
	return &ExponentialGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(0),
		gamma:                1.0 / mean,
	}
}

// NewExponentialGenerator creates a generator where percentile% of the
// values fall below theRange.
func NewExponentialGenerator(percentile, theRange float64) *ExponentialGenerator {
	return &ExponentialGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(0),
		gamma:                -math.Log(1.0-percentile/100.0) / theRange, // 1.0/mean
	}
}

func (self *ExponentialGenerator) NextInt(r *rand.Rand) int64 {
	// 1 - u is in (0, 1], so the log is finite.
	next := int64(-math.Log(1.0-NextFloat64(r)) / self.gamma)
	self.SetLastInt(next)
	return next
}

func (self *ExponentialGenerator) NextString(r *rand.Rand) string {
	return self.IntegerGeneratorBase.NextString(self, r)
}

func (self *ExponentialGenerator) Mean() float64 {
	return 1.0 / self.gamma
}
