package generator

import (
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
)

// CounterGenerator generates a sequence of integers 0, 1, ...
// It is safe for concurrent use: every NextInt() returns a distinct value.
type CounterGenerator struct {
	*IntegerGeneratorBase
	count int64
}

func NewCounterGenerator(startCount int64) *CounterGenerator {
	object := &CounterGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(startCount - 1),
		count:                startCount - 1,
	}
	return object
}

func (self *CounterGenerator) NextInt(_ *rand.Rand) int64 {
	ret := atomic.AddInt64(&self.count, 1)
	self.SetLastInt(ret)
	return ret
}

func (self *CounterGenerator) NextString(r *rand.Rand) string {
	return self.IntegerGeneratorBase.NextString(self, r)
}

func (self *CounterGenerator) Mean() float64 {
	panic("unsupported operation")
}

// Skip moves the counter so that the next value is greater than last.
// It never moves the counter backwards.
func (self *CounterGenerator) Skip(last int64) {
	for {
		current := atomic.LoadInt64(&self.count)
		if current >= last {
			return
		}
		if atomic.CompareAndSwapInt64(&self.count, current, last) {
			self.SetLastInt(last)
			return
		}
	}
}

// AcknowledgedCounterGenerator is a counter whose LastInt() only reports
// values that have been acknowledged, and only once every smaller value
// has been acknowledged as well.
type AcknowledgedCounterGenerator struct {
	*CounterGenerator
	lock  sync.Mutex
	acked map[int64]struct{}
	limit int64
}

func NewAcknowledgedCounterGenerator(startCount int64) *AcknowledgedCounterGenerator {
	return &AcknowledgedCounterGenerator{
		CounterGenerator: NewCounterGenerator(startCount),
		acked:            make(map[int64]struct{}),
		limit:            startCount - 1,
	}
}

// LastInt returns the highest value such that it and all smaller values
// handed out have been acknowledged.
func (self *AcknowledgedCounterGenerator) LastInt() int64 {
	return atomic.LoadInt64(&self.limit)
}

func (self *AcknowledgedCounterGenerator) LastString() string {
	return strconv.FormatInt(self.LastInt(), 10)
}

func (self *AcknowledgedCounterGenerator) NextString(r *rand.Rand) string {
	return self.IntegerGeneratorBase.NextString(self, r)
}

// Acknowledge makes value available to LastInt() once every smaller value
// has been acknowledged.
func (self *AcknowledgedCounterGenerator) Acknowledge(value int64) {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.acked[value] = struct{}{}
	limit := atomic.LoadInt64(&self.limit)
	for {
		if _, ok := self.acked[limit+1]; !ok {
			break
		}
		delete(self.acked, limit+1)
		limit++
	}
	atomic.StoreInt64(&self.limit, limit)
}

// Skip moves both the counter and the acknowledged limit past last.
func (self *AcknowledgedCounterGenerator) Skip(last int64) {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.CounterGenerator.Skip(last)
	if atomic.LoadInt64(&self.limit) < last {
		for v := range self.acked {
			if v <= last {
				delete(self.acked, v)
			}
		}
		atomic.StoreInt64(&self.limit, last)
	}
}
