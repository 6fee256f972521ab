package binding

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/hhkbp2/workgen/engine"
	"go.uber.org/zap"
)

const (
	ConfigBasicVerbose        = "verbose"
	ConfigBasicSimulateDelay  = "simulate_delay"
	ConfigBasicRandomizeDelay = "randomize_delay"
)

func MillisecondToNanosecond(millis int64) int64 {
	return millis * 1000 * 1000
}

// BasicDriver opens memory stores that optionally print every request and
// sleep before serving it, to stand in for a slow engine.
type BasicDriver struct {
	memory *MemoryDriver
}

func NewBasicDriver() *BasicDriver {
	return &BasicDriver{
		memory: NewMemoryDriver(),
	}
}

func (self *BasicDriver) ConfigKeys() []string {
	return []string{
		ConfigBasicVerbose,
		ConfigBasicSimulateDelay,
		ConfigBasicRandomizeDelay,
	}
}

func (self *BasicDriver) Open(ctx context.Context, home string, config *engine.Config) (engine.Store, error) {
	verbose, err := config.GetBool(ConfigBasicVerbose, true)
	if err != nil {
		return nil, err
	}
	toDelay, err := strconv.ParseInt(config.Get(ConfigBasicSimulateDelay, "0"), 10, 64)
	if err != nil || toDelay < 0 {
		return nil, engine.Errorf(engine.ErrConnection,
			"invalid %s %q", ConfigBasicSimulateDelay, config.Get(ConfigBasicSimulateDelay, ""))
	}
	randomizeDelay, err := config.GetBool(ConfigBasicRandomizeDelay, true)
	if err != nil {
		return nil, err
	}
	store, err := self.memory.Open(ctx, home, config)
	if err != nil {
		return nil, err
	}
	if verbose {
		zap.S().Infof("basic store %q: %s", home, config)
	}
	return &BasicStore{
		Store:          store,
		verbose:        verbose,
		toDelay:        toDelay,
		randomizeDelay: randomizeDelay,
	}, nil
}

// BasicStore wraps another store, printing and delaying each request.
type BasicStore struct {
	engine.Store
	verbose        bool
	randomizeDelay bool
	toDelay        int64
}

func (self *BasicStore) delay(ctx context.Context) error {
	if self.toDelay <= 0 {
		return nil
	}
	var nanos int64
	if self.randomizeDelay {
		nanos = MillisecondToNanosecond(rand.Int63n(self.toDelay))
		if nanos == 0 {
			return nil
		}
	} else {
		nanos = MillisecondToNanosecond(self.toDelay)
	}
	timer := time.NewTimer(time.Duration(nanos))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (self *BasicStore) output(format string, args ...interface{}) {
	if self.verbose {
		zap.S().Infof(format, args...)
	}
}

func (self *BasicStore) CreateTable(ctx context.Context, table string, schema string) error {
	self.output("CREATE %s %s", table, schema)
	return self.Store.CreateTable(ctx, table, schema)
}

func (self *BasicStore) Insert(ctx context.Context, table string, key, value []byte) error {
	if err := self.delay(ctx); err != nil {
		return err
	}
	self.output("INSERT %s %q [%d bytes]", table, key, len(value))
	return self.Store.Insert(ctx, table, key, value)
}

func (self *BasicStore) Search(ctx context.Context, table string, key []byte) ([]byte, error) {
	if err := self.delay(ctx); err != nil {
		return nil, err
	}
	self.output("READ %s %q", table, key)
	return self.Store.Search(ctx, table, key)
}

func (self *BasicStore) Update(ctx context.Context, table string, key, value []byte) error {
	if err := self.delay(ctx); err != nil {
		return err
	}
	self.output("UPDATE %s %q [%d bytes]", table, key, len(value))
	return self.Store.Update(ctx, table, key, value)
}

func (self *BasicStore) Remove(ctx context.Context, table string, key []byte) error {
	if err := self.delay(ctx); err != nil {
		return err
	}
	self.output("REMOVE %s %q", table, key)
	return self.Store.Remove(ctx, table, key)
}

func (self *BasicStore) Scan(ctx context.Context, table string, after []byte, limit int) ([]engine.KV, error) {
	if err := self.delay(ctx); err != nil {
		return nil, err
	}
	self.output("SCAN %s %q %d", table, after, limit)
	return self.Store.Scan(ctx, table, after, limit)
}
