package generator

import (
	"math"
	"math/rand"
)

const (
	ZipfianConstant = float64(0.99)
)

// Compute the zeta constant needed for the distribution. Do this incrementally
// for a distribution that has n items now but used to have st items.
// Use the zipfian constant theta.
func zetaStatic(st, n int64, theta, initialSum float64) float64 {
	sum := initialSum
	for i := st; i < n; i++ {
		sum += 1 / math.Pow(float64(i+1), theta)
	}
	return sum
}

// A generator of a zipfian distribution. It produces a sequence of items,
// such that some items are more popular than others, according to
// a zipfian distribution. The sequence is of items from min to max inclusive.
//
// Note that the popular items will be clustered together, e.g. min
// is the most popular, min+1 the next most popular, etc.
// If you don't want this clustering, and instead want the popular items
// scattered throughout the item space, then use ScrambledZipfianGenerator
// instead.
//
// Be aware: initializing this generator may take a long time if there are
// lots of items to choose from, since zeta is a sum sequence from 1 to n.
// Use NewZipfianGeneratorWithZetan with a precomputed value when possible.
//
// The algorithm used here is from
// "Quickly Generating Billion-Record Synthetic Databases",
// Jim Gray et al, SIGMOD 1994.
//
// A ZipfianGenerator is not safe for concurrent use.
type ZipfianGenerator struct {
	*IntegerGeneratorBase
	// Number of items.
	items int64
	// Min item to generate.
	base int64
	// Computed parameters for generating the distribution.
	alpha, zetan, eta, theta, zeta2theta float64
	// The number of items used to compute zetan the last time.
	countForZeta int64
}

// NewZipfianGenerator creates a zipfian generator for items between
// min and max(inclusive) with the default zipfian constant.
func NewZipfianGenerator(min, max int64) *ZipfianGenerator {
	items := max - min + 1
	return NewZipfianGeneratorWithZetan(
		min, max, ZipfianConstant, zetaStatic(0, items, ZipfianConstant, 0))
}

// NewZipfianGeneratorWithZetan creates a zipfian generator for items between
// min and max(inclusive) for the specified zipfian constant, using
// the precomputed value of zeta.
func NewZipfianGeneratorWithZetan(
	min, max int64, zipfianConstant, zetan float64) *ZipfianGenerator {

	if min > max {
		min, max = max, min
	}
	items := max - min + 1
	theta := zipfianConstant
	zeta2theta := zetaStatic(0, 2, theta, 0)
	object := &ZipfianGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(min - 1),
		items:                items,
		base:                 min,
		alpha:                1.0 / (1.0 - theta),
		zetan:                zetan,
		theta:                theta,
		zeta2theta:           zeta2theta,
		countForZeta:         items,
	}
	object.eta = object.computeEta()
	return object
}

func (self *ZipfianGenerator) computeEta() float64 {
	return (1 - math.Pow(2.0/float64(self.items), 1-self.theta)) /
		(1 - self.zeta2theta/self.zetan)
}

// NextInt generates the next item. This distribution will be skewed toward
// lower integers; e.g. min will be the most popular, min+1 the next most
// popular, etc.
func (self *ZipfianGenerator) NextInt(r *rand.Rand) int64 {
	return self.Next(r, self.items)
}

// Next generates the next item drawn from the first itemCount items.
// The item count may only grow; zeta is extended incrementally.
func (self *ZipfianGenerator) Next(r *rand.Rand, itemCount int64) int64 {
	if itemCount > self.countForZeta {
		self.zetan = zetaStatic(self.countForZeta, itemCount, self.theta, self.zetan)
		self.countForZeta = itemCount
		self.items = itemCount
		self.eta = self.computeEta()
	}

	var ret int64
	u := NextFloat64(r)
	uz := u * self.zetan
	switch {
	case uz < 1.0:
		ret = self.base
	case uz < 1.0+math.Pow(0.5, self.theta):
		ret = self.base + 1
	default:
		ret = self.base + int64(float64(itemCount)*math.Pow(self.eta*u-self.eta+1.0, self.alpha))
		if ret >= self.base+itemCount {
			ret = self.base + itemCount - 1
		}
	}
	self.SetLastInt(ret)
	return ret
}

func (self *ZipfianGenerator) NextString(r *rand.Rand) string {
	return self.IntegerGeneratorBase.NextString(self, r)
}

func (self *ZipfianGenerator) Mean() float64 {
	panic("unsupported operation")
}

const (
	ScrambledZipfianItemCount = int64(10000000000)
	// zeta(ScrambledZipfianItemCount, ZipfianConstant)
	ScrambledZipfianZetan = float64(26.46902820178302)
)

// ScrambledZipfianGenerator generates a zipfian distribution whose popular
// items are scattered across the item space instead of clustered at min.
type ScrambledZipfianGenerator struct {
	*IntegerGeneratorBase
	gen       *ZipfianGenerator
	min       int64
	itemCount int64
}

func NewScrambledZipfianGenerator(min, max int64) *ScrambledZipfianGenerator {
	if min > max {
		min, max = max, min
	}
	return &ScrambledZipfianGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(min - 1),
		gen: NewZipfianGeneratorWithZetan(
			0, ScrambledZipfianItemCount-1, ZipfianConstant, ScrambledZipfianZetan),
		min:       min,
		itemCount: max - min + 1,
	}
}

func (self *ScrambledZipfianGenerator) NextInt(r *rand.Rand) int64 {
	n := self.gen.NextInt(r)
	ret := self.min + int64(Hash(n)%uint64(self.itemCount))
	self.SetLastInt(ret)
	return ret
}

func (self *ScrambledZipfianGenerator) NextString(r *rand.Rand) string {
	return self.IntegerGeneratorBase.NextString(self, r)
}

func (self *ScrambledZipfianGenerator) Mean() float64 {
	return float64(self.min) + float64(self.itemCount-1)/2.0
}
