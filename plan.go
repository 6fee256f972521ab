package workgen

import (
	"os"
	"time"

	"github.com/hhkbp2/workgen/engine"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Plan is a workload definition decoded from YAML. Build turns it into
// the typed builders before anything runs.
//
//	seed: 42
//	tables:
//	  - uri: table:simple
//	    config: key_format=S,value_format=S
//	threads:
//	  - name: writer
//	    count: 2
//	    op:
//	      kind: insert
//	      table: table:simple
//	      key: {mode: append, size: 10}
//	      value: {size: 40}
//	      times: 5
//	options:
//	  repeat: 1
//
// A key without a size renders string keys unpadded ("1", "2", ... "10").
// Such keys do not sort numerically, which only matters to readers of the
// table: appends still continue after the greatest key number.
type Plan struct {
	Seed    int64        `yaml:"seed"`
	Tables  []PlanTable  `yaml:"tables"`
	Threads []PlanThread `yaml:"threads"`
	Options PlanOptions  `yaml:"options"`
}

type PlanTable struct {
	URI    string `yaml:"uri"`
	Config string `yaml:"config"`
}

type PlanThread struct {
	Name          string        `yaml:"name"`
	Count         int           `yaml:"count"`
	Throttle      float64       `yaml:"throttle"`
	RetryLimit    *int          `yaml:"retry_limit"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Op            PlanOp        `yaml:"op"`
}

// PlanOp is a single operation when Kind is set, otherwise a sequence or
// a mix of nested operations. Times repeats either.
type PlanOp struct {
	Kind     string    `yaml:"kind"`
	Table    string    `yaml:"table"`
	Key      PlanKey   `yaml:"key"`
	Value    PlanValue `yaml:"value"`
	Verify   bool      `yaml:"verify"`
	Times    int       `yaml:"times"`
	Weight   float64   `yaml:"weight"`
	Sequence []PlanOp  `yaml:"sequence"`
	Mix      []PlanOp  `yaml:"mix"`
}

type PlanKey struct {
	Mode           string  `yaml:"mode"`
	// Size is the minimum width of a string key, zero padded. Zero, the
	// default, leaves keys unpadded.
	Size           int     `yaml:"size"`
	Min            int64   `yaml:"min"`
	Max            int64   `yaml:"max"`
	HotsetFraction float64 `yaml:"hotset_fraction"`
	HotOpnFraction float64 `yaml:"hotopn_fraction"`
	ParetoParam    float64 `yaml:"pareto_param"`
	Hashed         bool    `yaml:"hashed"`
}

type PlanValue struct {
	Mode         string `yaml:"mode"`
	Size         int    `yaml:"size"`
	Distribution string `yaml:"distribution"`
	Histogram    string `yaml:"histogram"`
}

type PlanOptions struct {
	RunTime        time.Duration `yaml:"run_time"`
	Repeat         *int          `yaml:"repeat"`
	MaxOperations  int64         `yaml:"max_operations"`
	Throttle       float64       `yaml:"throttle"`
	ReportInterval time.Duration `yaml:"report_interval"`
}

func ParsePlan(data []byte) (*Plan, error) {
	plan := &Plan{}
	if err := yaml.Unmarshal(data, plan); err != nil {
		return nil, errors.Wrap(err, "parse plan")
	}
	return plan, nil
}

func LoadPlan(filename string) (*Plan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "load plan %q", filename)
	}
	plan, err := ParsePlan(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "plan %q", filename)
	}
	return plan, nil
}

// CreateTables creates the tables of the plan. Tables that already exist
// with the same configuration are left alone.
func (self *Plan) CreateTables(session *engine.Session) error {
	for _, t := range self.Tables {
		if err := session.Create(t.URI, t.Config); err != nil {
			return err
		}
	}
	return nil
}

// Build returns the workload of the plan. A zero seed picks one from the
// clock.
func (self *Plan) Build() (*Workload, error) {
	ctx := NewContext()
	if self.Seed != 0 {
		ctx = NewContextWithSeed(self.Seed)
	}
	threads := make([]*Thread, 0, len(self.Threads))
	for i, pt := range self.Threads {
		op, err := pt.Op.build()
		if err != nil {
			return nil, errors.WithMessagef(err, "thread %d", i)
		}
		t := NewThread(op)
		t.Options.Name = pt.Name
		t.Options.Throttle = pt.Throttle
		if pt.RetryLimit != nil {
			t.Options.RetryLimit = *pt.RetryLimit
		}
		if pt.RetryInterval > 0 {
			t.Options.RetryInterval = pt.RetryInterval
		}
		count := pt.Count
		if count <= 0 {
			count = 1
		}
		if count == 1 {
			threads = append(threads, t)
		} else {
			threads = append(threads, t.Times(count)...)
		}
	}
	w := NewWorkload(ctx, threads...)
	opts := self.Options
	w.Options.RunTime = opts.RunTime
	if opts.Repeat != nil {
		w.Options.RepeatCount = *opts.Repeat
	}
	w.Options.MaxOperations = opts.MaxOperations
	w.Options.Throttle = opts.Throttle
	if opts.ReportInterval > 0 {
		w.Options.ReportInterval = opts.ReportInterval
	}
	if err := w.validate(); err != nil {
		return nil, err
	}
	return w, nil
}

var planKinds = map[string]engine.OpKind{
	"insert": engine.OpInsert,
	"read":   engine.OpRead,
	"update": engine.OpUpdate,
	"remove": engine.OpRemove,
}

func (self PlanOp) build() (*Operation, error) {
	var op *Operation
	switch {
	case len(self.Kind) > 0:
		kind, ok := planKinds[self.Kind]
		if !ok {
			return nil, errors.Errorf("unknown operation kind %q", self.Kind)
		}
		key, err := self.Key.build()
		if err != nil {
			return nil, err
		}
		value, err := self.Value.build()
		if err != nil {
			return nil, err
		}
		op = NewOperation(kind, NewTable(self.Table), key, value)
		if self.Verify {
			op = op.Verify()
		}
	case len(self.Sequence) > 0:
		ops := make([]*Operation, 0, len(self.Sequence))
		for _, c := range self.Sequence {
			child, err := c.build()
			if err != nil {
				return nil, err
			}
			ops = append(ops, child)
		}
		op = Sequence(ops...)
	case len(self.Mix) > 0:
		choices := make([]Choice, 0, len(self.Mix))
		for _, c := range self.Mix {
			child, err := c.build()
			if err != nil {
				return nil, err
			}
			choices = append(choices, Weighted(c.Weight, child))
		}
		op = Mix(choices...)
	default:
		return nil, errors.New("operation needs a kind, a sequence or a mix")
	}
	if self.Times > 0 {
		op = op.Times(self.Times)
	}
	return op, nil
}

func (self PlanKey) build() (Key, error) {
	mode := KeyAppend
	if len(self.Mode) > 0 {
		m, err := ParseKeyMode(self.Mode)
		if err != nil {
			return Key{}, err
		}
		mode = m
	}
	if mode == KeyCustom {
		return Key{}, errors.New("custom keys cannot be defined in a plan")
	}
	key := NewKey(mode, self.Size)
	if self.Max > 0 {
		key = key.WithRange(self.Min, self.Max)
	}
	if self.HotsetFraction > 0 || self.HotOpnFraction > 0 {
		key = key.WithHotspot(self.HotsetFraction, self.HotOpnFraction)
	}
	if self.ParetoParam > 0 {
		key.ParetoParam = self.ParetoParam
	}
	key.Hashed = self.Hashed
	return key, nil
}

func (self PlanValue) build() (Value, error) {
	value := NewValue(self.Size)
	switch self.Mode {
	case "", "fill":
	case "random":
		value.Mode = ValueRandom
	default:
		return Value{}, errors.Errorf("unknown value mode %q", self.Mode)
	}
	if len(self.Distribution) > 0 {
		sizes, err := ValueSizes(self.Distribution, int64(self.Size), self.Histogram)
		if err != nil {
			return Value{}, err
		}
		value = value.WithSizes(sizes)
	}
	return value, nil
}
