package workgen

import (
	"sync"
	"time"

	g "github.com/hhkbp2/workgen/generator"
)

// Context holds the state shared by every thread of every workload run with
// it: the seed and the append counter of each table. Reusing a Context for
// successive runs continues the key sequences where the last run stopped.
type Context struct {
	Seed int64

	lock     sync.Mutex
	counters map[string]*g.AcknowledgedCounterGenerator
}

func NewContext() *Context {
	return NewContextWithSeed(time.Now().UnixNano())
}

func NewContextWithSeed(seed int64) *Context {
	return &Context{
		Seed:     seed,
		counters: make(map[string]*g.AcknowledgedCounterGenerator),
	}
}

func (self *Context) counter(uri string) *g.AcknowledgedCounterGenerator {
	self.lock.Lock()
	defer self.lock.Unlock()
	c, ok := self.counters[uri]
	if !ok {
		c = g.NewAcknowledgedCounterGenerator(1)
		self.counters[uri] = c
	}
	return c
}

// LastKey returns the highest key number appended to the table such that
// every smaller number has been appended as well.
func (self *Context) LastKey(uri string) int64 {
	return self.counter(uri).LastInt()
}

// Skip makes the counter of the table continue after last, e.g. when the
// rows up to last were loaded by another process.
func (self *Context) Skip(uri string, last int64) {
	self.counter(uri).Skip(last)
}
