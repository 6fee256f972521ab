package generator

import (
	"math"
	"math/rand"
)

// ParetoGenerator draws integers in [lowerBound, upperBound] from a bounded
// Pareto distribution, so the low end of the range is hot and the tail
// is long. Param controls the skew: larger values concentrate draws
// near lowerBound.
type ParetoGenerator struct {
	*IntegerGeneratorBase
	lowerBound int64
	upperBound int64
	param      float64
}

const (
	ParetoParamDefault = float64(20)
)

func NewParetoGenerator(lowerBound, upperBound int64, param float64) *ParetoGenerator {
	if lowerBound > upperBound {
		lowerBound, upperBound = upperBound, lowerBound
	}
	if param <= 0 {
		param = ParetoParamDefault
	}
	return &ParetoGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(lowerBound - 1),
		lowerBound:           lowerBound,
		upperBound:           upperBound,
		param:                param,
	}
}

// alpha is the shape of the distribution over the [1, n+1) scale.
func (self *ParetoGenerator) alpha() float64 {
	return self.param / 100.0 * 5.0
}

func (self *ParetoGenerator) NextInt(r *rand.Rand) int64 {
	n := float64(self.upperBound - self.lowerBound + 1)
	alpha := self.alpha()
	// Inverse CDF of the Pareto distribution bounded to [1, n+1).
	u := NextFloat64(r)
	h := math.Pow(n+1, alpha)
	x := math.Pow(-(u*h-u-h)/h, -1.0/alpha)
	offset := int64(x) - 1
	if offset < 0 {
		offset = 0
	}
	if offset >= int64(n) {
		offset = int64(n) - 1
	}
	ret := self.lowerBound + offset
	self.SetLastInt(ret)
	return ret
}

func (self *ParetoGenerator) NextString(r *rand.Rand) string {
	return self.IntegerGeneratorBase.NextString(self, r)
}

func (self *ParetoGenerator) Mean() float64 {
	panic("unsupported operation")
}
