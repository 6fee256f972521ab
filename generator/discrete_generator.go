package generator

import (
	"math/rand"
	"sync/atomic"
)

type Pair struct {
	Weight float64
	Value  string
}

// DiscreteGenerator generates a distribution by choosing from a discrete set
// of values with given weights.
type DiscreteGenerator struct {
	values    []*Pair
	sum       float64
	lastValue atomic.Value
}

func NewDiscreteGenerator() *DiscreteGenerator {
	return &DiscreteGenerator{
		values: make([]*Pair, 0),
	}
}

// NextIndex chooses the index of the next value. Values must not be added
// concurrently with calls to NextIndex.
func (self *DiscreteGenerator) NextIndex(r *rand.Rand) int {
	value := NextFloat64(r)
	for i, p := range self.values {
		v := p.Weight / self.sum
		if value < v {
			return i
		}
		value -= v
	}
	// floating point rounding can leave a tiny remainder
	return len(self.values) - 1
}

func (self *DiscreteGenerator) NextString(r *rand.Rand) string {
	if len(self.values) == 0 {
		return ""
	}
	ret := self.values[self.NextIndex(r)].Value
	self.lastValue.Store(ret)
	return ret
}

func (self *DiscreteGenerator) LastString() string {
	if v, ok := self.lastValue.Load().(string); ok {
		return v
	}
	return ""
}

func (self *DiscreteGenerator) AddValue(weight float64, value string) {
	if weight <= 0 {
		return
	}
	self.values = append(self.values, &Pair{
		Weight: weight,
		Value:  value,
	})
	self.sum += weight
}

func (self *DiscreteGenerator) Len() int {
	return len(self.values)
}
