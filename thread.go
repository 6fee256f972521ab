package workgen

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/hhkbp2/workgen/engine"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	RetryLimitDefault    = 3
	RetryIntervalDefault = 10 * time.Millisecond
)

type ThreadOptions struct {
	Name string
	// Throttle caps the thread at this many operations per second.
	// Zero means no cap.
	Throttle float64
	// RetryLimit is how many times a conflicting request is retried
	// before it is recorded as one failure.
	RetryLimit int
	// RetryInterval is the mean wait between retries.
	RetryInterval time.Duration
}

// Thread runs an operation tree in its own goroutine with its own session.
type Thread struct {
	Op      *Operation
	Options ThreadOptions
}

func NewThread(op *Operation) *Thread {
	return &Thread{
		Op: op,
		Options: ThreadOptions{
			RetryLimit:    RetryLimitDefault,
			RetryInterval: RetryIntervalDefault,
		},
	}
}

// Times returns n threads running the same operation tree.
func (self *Thread) Times(n int) []*Thread {
	ret := make([]*Thread, 0, n)
	for i := 0; i < n; i++ {
		t := *self
		if len(t.Options.Name) > 0 {
			t.Options.Name = fmt.Sprintf("%s-%d", self.Options.Name, i)
		}
		ret = append(ret, &t)
	}
	return ret
}

var errBudgetExhausted = errors.New("operation budget exhausted")

func isStop(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, errBudgetExhausted)
}

// runState is shared by the threads of one workload run.
type runState struct {
	wctx    *Context
	conn    *engine.Connection
	limiter *rate.Limiter
	// budget is the number of operations left, nil when unbounded.
	budget *int64
	repeat int
}

type threadState struct {
	thread   *Thread
	run      *runState
	session  *engine.Session
	rng      *rand.Rand
	stats    *ThreadStats
	limiter  *rate.Limiter
	keys     map[*Operation]*keyChooser
	values   map[*Operation]*valueBuilder
	schemas  map[string]*engine.Schema
	poisoned map[string]bool
}

func (self *Thread) name(index int) string {
	if len(self.Options.Name) > 0 {
		return self.Options.Name
	}
	return fmt.Sprintf("thread-%d", index)
}

func (self *Thread) run(ctx context.Context, index int, run *runState, stats *ThreadStats) {
	session, err := run.conn.OpenSession()
	if err != nil {
		stats.Err = errors.WithMessagef(err, "thread %s", stats.Name)
		return
	}
	defer session.Close()

	ts := &threadState{
		thread:   self,
		run:      run,
		session:  session,
		rng:      rand.New(rand.NewSource(run.wctx.Seed + int64(index))),
		stats:    stats,
		keys:     make(map[*Operation]*keyChooser),
		values:   make(map[*Operation]*valueBuilder),
		schemas:  make(map[string]*engine.Schema),
		poisoned: make(map[string]bool),
	}
	if self.Options.Throttle > 0 {
		ts.limiter = rate.NewLimiter(rate.Limit(self.Options.Throttle), 1)
	}
	repeat := run.repeat
	if repeat == 0 && self.Op.Count() == 0 {
		repeat = 1
	}
	Debugf("%s: start %s", stats.Name, self.Op)
	for i := 0; repeat == 0 || i < repeat; i++ {
		if ctx.Err() != nil {
			break
		}
		err := ts.runOp(ctx, self.Op)
		if err == nil {
			continue
		}
		if !isStop(err) {
			stats.Err = errors.WithMessagef(err, "thread %s", stats.Name)
			Errorf("%s: abort: %v", stats.Name, err)
		}
		break
	}
	Debugf("%s: done, %d operations", stats.Name, stats.Operations())
}

func (self *threadState) runOp(ctx context.Context, op *Operation) error {
	switch op.group {
	case groupNone:
		return self.execute(ctx, op)
	case groupRepeat:
		for i := 0; i < op.repeat; i++ {
			if err := self.runOp(ctx, op.children[0]); err != nil {
				return err
			}
		}
	case groupSequence:
		for _, c := range op.children {
			if err := self.runOp(ctx, c); err != nil {
				return err
			}
		}
	case groupMix:
		return self.runOp(ctx, op.children[op.chooser.NextIndex(self.rng)])
	}
	return nil
}

func (self *threadState) keyChooser(op *Operation) *keyChooser {
	c, ok := self.keys[op]
	if !ok {
		c = newKeyChooser(op.Key)
		self.keys[op] = c
	}
	return c
}

func (self *threadState) valueBuilder(op *Operation) *valueBuilder {
	b, ok := self.values[op]
	if !ok {
		b = newValueBuilder(op.Value)
		self.values[op] = b
	}
	return b
}

func (self *threadState) schema(uri string) (*engine.Schema, error) {
	s, ok := self.schemas[uri]
	if ok {
		return s, nil
	}
	s, err := self.run.conn.Schema(uri)
	if err != nil {
		return nil, err
	}
	self.schemas[uri] = s
	return s, nil
}

func (self *threadState) poison(uri string, err error) {
	self.poisoned[uri] = true
	Warnf("%s: skip table %s from now on: %v", self.stats.Name, uri, err)
}

func (self *threadState) throttle(ctx context.Context) error {
	for _, l := range []*rate.Limiter{self.run.limiter, self.limiter} {
		if l == nil {
			continue
		}
		if err := l.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// the wait would outlive the deadline of the run
			return context.DeadlineExceeded
		}
	}
	return nil
}

// backoff sleeps for a random time between [0.8, 1.2)*RetryInterval.
func (self *threadState) backoff(ctx context.Context) error {
	interval := self.thread.Options.RetryInterval
	if interval <= 0 {
		return nil
	}
	d := time.Duration(float64(interval) * (0.8 + 0.4*self.rng.Float64()))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// execute issues one request. It returns an error only when the thread
// must stop: on cancellation, an exhausted budget or a fatal failure.
func (self *threadState) execute(ctx context.Context, op *Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if budget := self.run.budget; budget != nil && atomic.AddInt64(budget, -1) < 0 {
		return errBudgetExhausted
	}
	uri := op.Table.URI
	if self.poisoned[uri] {
		self.stats.recordSkip(op.Kind)
		return nil
	}
	schema, err := self.schema(uri)
	if err != nil {
		self.stats.record(op.Kind, 0, err)
		return self.outcome(uri, err)
	}
	if err := self.throttle(ctx); err != nil {
		return err
	}

	counter := self.run.wctx.counter(uri)
	var number int64
	appended := op.Kind == engine.OpInsert && op.Key.appends()
	if appended {
		number = counter.NextInt(self.rng)
		defer counter.Acknowledge(number)
	} else {
		n, ok := self.keyChooser(op).next(self.rng, counter.LastInt())
		if !ok {
			// nothing appended yet, so there is no key to find
			self.stats.record(op.Kind, 0, engine.ErrNotFound)
			return nil
		}
		number = n
	}
	req := engine.Request{
		Kind: op.Kind,
		Key:  op.Key.Render(schema.KeyFormat, number),
	}
	if op.Kind == engine.OpInsert || op.Kind == engine.OpUpdate {
		req.Value = self.valueBuilder(op).build(self.rng, req.Key)
	}

	var res engine.Result
	var latency time.Duration
	for attempt := 0; ; attempt++ {
		start := time.Now()
		res, err = self.session.Execute(ctx, uri, req)
		latency = time.Since(start)
		if err == nil || !engine.IsRetryable(err) || attempt >= self.thread.Options.RetryLimit {
			break
		}
		if ctx.Err() != nil {
			break
		}
		self.stats.Retries++
		Verbosef("%s: retry %s on %s: %v", self.stats.Name, op.Kind, uri, err)
		if err := self.backoff(ctx); err != nil {
			return err
		}
	}
	if err != nil && ctx.Err() != nil {
		// interrupted, not an outcome of the request
		return ctx.Err()
	}
	if err == nil && op.verify && !bytes.Equal(res.Value, FillValue(req.Key, len(res.Value))) {
		Warnf("%s: unexpected value for key %s in %s", self.stats.Name,
			schema.KeyFormat.Display(req.Key), uri)
		self.stats.recordUnexpected(op.Kind, latency)
		return nil
	}
	self.stats.record(op.Kind, latency, err)
	return self.outcome(uri, err)
}

func (self *threadState) outcome(uri string, err error) error {
	switch {
	case err == nil, errors.Is(err, engine.ErrNotFound):
		return nil
	case errors.Is(err, engine.ErrSchema):
		self.poison(uri, err)
		return nil
	case engine.IsFatal(err):
		return err
	}
	Debugf("%s: %s: %v", self.stats.Name, uri, err)
	return nil
}
