package generator

import (
	"math/rand"
	"strconv"
	"sync/atomic"
)

// IntegerGenerator is a generator capable of generating integers and strings.
type IntegerGenerator interface {
	Generator
	// NextInt returns the next value as an int. Implementations must call
	// SetLastInt() properly, or the LastInt() and LastString() calls
	// won't work.
	NextInt(r *rand.Rand) int64
	LastInt() int64

	Mean() float64
}

// IntegerGeneratorBase is embedded by all IntegerGenerator implementations.
type IntegerGeneratorBase struct {
	lastInt int64
}

func NewIntegerGeneratorBase(last int64) *IntegerGeneratorBase {
	return &IntegerGeneratorBase{
		lastInt: last,
	}
}

// SetLastInt sets the last value to be generated.
func (self *IntegerGeneratorBase) SetLastInt(value int64) {
	atomic.StoreInt64(&self.lastInt, value)
}

// NextString generates the next string in the distribution of g.
func (self *IntegerGeneratorBase) NextString(g IntegerGenerator, r *rand.Rand) string {
	return strconv.FormatInt(g.NextInt(r), 10)
}

func (self *IntegerGeneratorBase) LastInt() int64 {
	return atomic.LoadInt64(&self.lastInt)
}

func (self *IntegerGeneratorBase) LastString() string {
	return strconv.FormatInt(self.LastInt(), 10)
}

// ConstantIntegerGenerator is a trivial integer generator that always returns
// the same value.
type ConstantIntegerGenerator struct {
	*IntegerGeneratorBase
	value int64
}

func NewConstantIntegerGenerator(i int64) *ConstantIntegerGenerator {
	return &ConstantIntegerGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(i - 1),
		value:                i,
	}
}

func (self *ConstantIntegerGenerator) NextInt(_ *rand.Rand) int64 {
	return self.value
}

func (self *ConstantIntegerGenerator) NextString(r *rand.Rand) string {
	return self.IntegerGeneratorBase.NextString(self, r)
}

func (self *ConstantIntegerGenerator) Mean() float64 {
	return float64(self.value)
}
