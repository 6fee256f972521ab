package workgen

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hhkbp2/workgen/engine"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
)

type WorkloadOptions struct {
	// RunTime bounds the run. Zero means no bound.
	RunTime time.Duration
	// RepeatCount is how many times every thread runs its operation tree.
	// Zero, together with a RunTime, repeats until the time is up.
	RepeatCount int
	// MaxOperations bounds the operations of all threads together.
	// Zero means no bound.
	MaxOperations int64
	// Throttle caps all threads together at this many operations per
	// second. Zero means no cap.
	Throttle float64
	// ReportInterval is the period of OnStatus calls.
	ReportInterval time.Duration
	OnStatus       func(Status)
	Measurement    MeasurementConfig
}

// Workload runs threads against a connection.
type Workload struct {
	Context *Context
	Threads []*Thread
	Options WorkloadOptions
}

func NewWorkload(ctx *Context, threads ...*Thread) *Workload {
	return &Workload{
		Context: ctx,
		Threads: threads,
		Options: WorkloadOptions{
			RepeatCount:    1,
			ReportInterval: 10 * time.Second,
			Measurement:    DefaultMeasurementConfig(),
		},
	}
}

func (self *Workload) validate() error {
	if self.Context == nil {
		return errors.New("workload without a context")
	}
	opts := self.Options
	if opts.RepeatCount < 0 {
		return errors.Errorf("negative repeat count %d", opts.RepeatCount)
	}
	if opts.RepeatCount == 0 && opts.RunTime <= 0 && opts.MaxOperations <= 0 {
		return errors.New("repeat count 0 needs a run time or an operation budget")
	}
	for i, t := range self.Threads {
		if t == nil || t.Op == nil {
			return errors.Errorf("thread %d has no operation", i)
		}
		if err := t.Op.validate(); err != nil {
			return errors.WithMessagef(err, "thread %s", t.name(i))
		}
	}
	return nil
}

func (self *Workload) Run(conn *engine.Connection) (*WorkloadStats, error) {
	return self.RunContext(context.Background(), conn)
}

// RunContext runs every thread until it finishes, the run time is up, the
// operation budget is spent or ctx is cancelled. The stats of aborted
// threads are reported with the others; the returned error joins their
// errors. Cancelling ctx also returns ctx.Err().
func (self *Workload) RunContext(ctx context.Context, conn *engine.Connection) (*WorkloadStats, error) {
	if err := self.validate(); err != nil {
		return nil, err
	}
	config := self.Options.Measurement
	if config.Max == 0 {
		config = DefaultMeasurementConfig()
	}
	stats := newWorkloadStats(config)
	if len(self.Threads) == 0 {
		return stats, nil
	}
	if err := self.seed(ctx, conn); err != nil {
		return stats, err
	}

	runCtx := ctx
	if self.Options.RunTime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, self.Options.RunTime)
		defer cancel()
	}
	run := &runState{
		wctx:   self.Context,
		conn:   conn,
		repeat: self.Options.RepeatCount,
	}
	if self.Options.Throttle > 0 {
		run.limiter = rate.NewLimiter(rate.Limit(self.Options.Throttle), 1)
	}
	if self.Options.MaxOperations > 0 {
		budget := self.Options.MaxOperations
		run.budget = &budget
	}

	Infof("run %s: %d threads", stats.RunID, len(self.Threads))
	results := make([]*ThreadStats, len(self.Threads))
	for i, t := range self.Threads {
		results[i] = newThreadStats(t.name(i), config)
	}
	var wg sync.WaitGroup
	for i, t := range self.Threads {
		wg.Add(1)
		go func(i int, t *Thread) {
			defer wg.Done()
			t.run(runCtx, i, run, results[i])
		}(i, t)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	self.report(done, stats.Start, results)

	stats.Duration = time.Since(stats.Start)
	var err error
	for _, r := range results {
		stats.add(r)
		err = multierr.Append(err, r.Err)
	}
	Infof("run %s: %s", stats.RunID, stats.Summary())
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = multierr.Append(err, ctxErr)
	}
	return stats, err
}

// report calls OnStatus every ReportInterval until done is closed.
// The thread stats are only read through their atomic counters.
func (self *Workload) report(done <-chan struct{}, start time.Time, results []*ThreadStats) {
	if self.Options.OnStatus == nil || self.Options.ReportInterval <= 0 {
		<-done
		return
	}
	ticker := time.NewTicker(self.Options.ReportInterval)
	defer ticker.Stop()
	var lastOps int64
	lastTime := start
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			status := Status{Elapsed: now.Sub(start)}
			for _, r := range results {
				status.Operations += r.Operations()
				status.Failures += r.Failures()
			}
			if d := now.Sub(lastTime).Seconds(); d > 0 {
				status.Throughput = float64(status.Operations-lastOps) / d
			}
			lastOps, lastTime = status.Operations, now
			self.Options.OnStatus(status)
		}
	}
}

// seed moves the append counters of the tables the workload touches past
// the last key already stored, so a fresh context never overwrites rows.
// Tables appended with hashed keys are left alone: their last key is not
// their highest key number.
func (self *Workload) seed(ctx context.Context, conn *engine.Connection) error {
	tables := make(map[string]bool)
	for _, t := range self.Threads {
		t.Op.walk(func(leaf *Operation) {
			uri := leaf.Table.URI
			if leaf.Key.Mode == KeyHashed || leaf.Key.Hashed {
				tables[uri] = false
			} else if _, ok := tables[uri]; !ok {
				tables[uri] = true
			}
		})
	}
	session, err := conn.OpenSession()
	if err != nil {
		return err
	}
	defer session.Close()
	for uri, ok := range tables {
		if !ok {
			continue
		}
		schema, err := conn.Schema(uri)
		if err != nil {
			// reported by the threads that use the table
			continue
		}
		n, err := lastKeyNumber(ctx, session, uri, schema)
		if err != nil {
			return err
		}
		if n > 0 {
			self.Context.Skip(uri, n)
		}
	}
	return nil
}

// lastKeyNumber returns the greatest key number found in the table uri,
// or 0 when it holds none. Integer keys sort numerically, so the last key
// is enough. Rendered keys sort by bytes once they outgrow their width,
// so every key is parsed.
func lastKeyNumber(ctx context.Context, session *engine.Session, uri string, schema *engine.Schema) (int64, error) {
	if schema.KeyFormat.IsInteger() {
		last, err := session.LastKey(ctx, uri)
		if errors.Is(err, engine.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		n, err := schema.KeyFormat.UnpackInt(last)
		if err != nil {
			Debugf("table %s: last key %q is not a key number", uri, last)
			return 0, nil
		}
		return n, nil
	}
	cursor, err := session.OpenCursor(uri)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()
	cursor.WithContext(ctx)
	last := int64(0)
	for cursor.Next() {
		n, err := strconv.ParseInt(string(cursor.Key()), 10, 64)
		if err != nil {
			continue
		}
		if n > last {
			last = n
		}
	}
	return last, cursor.Err()
}
