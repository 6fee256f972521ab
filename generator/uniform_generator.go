package generator

import (
	"math/rand"
)

// UniformIntegerGenerator generates integers uniformly randomly from
// the range [lowerBound, upperBound] inclusively.
type UniformIntegerGenerator struct {
	*IntegerGeneratorBase
	lowerBound int64
	upperBound int64
	interval   int64
}

func NewUniformIntegerGenerator(lowerBound, upperBound int64) *UniformIntegerGenerator {
	if lowerBound > upperBound {
		lowerBound, upperBound = upperBound, lowerBound
	}
	return &UniformIntegerGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(lowerBound - 1),
		lowerBound:           lowerBound,
		upperBound:           upperBound,
		interval:             upperBound - lowerBound + 1,
	}
}

func (self *UniformIntegerGenerator) NextInt(r *rand.Rand) int64 {
	ret := self.lowerBound + NextInt64(r, self.interval)
	self.SetLastInt(ret)
	return ret
}

func (self *UniformIntegerGenerator) NextString(r *rand.Rand) string {
	return self.IntegerGeneratorBase.NextString(self, r)
}

func (self *UniformIntegerGenerator) Mean() float64 {
	return float64(self.lowerBound+self.upperBound) / 2.0
}
