package workgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hhkbp2/workgen/engine"
	g "github.com/hhkbp2/workgen/generator"
	"github.com/pkg/errors"
)

type opGroup int

const (
	groupNone opGroup = iota
	groupRepeat
	groupSequence
	groupMix
)

// Operation is either a single request against a table or a group of
// operations. Operations are immutable once built; the combinators wrap
// their operands instead of copying them, so repeating an operation
// shares its key and value state.
type Operation struct {
	Kind  engine.OpKind
	Table Table
	Key   Key
	Value Value

	verify   bool
	group    opGroup
	children []*Operation
	repeat   int
	chooser  *g.DiscreteGenerator
}

func NewOperation(kind engine.OpKind, table Table, key Key, value Value) *Operation {
	return &Operation{
		Kind:  kind,
		Table: table,
		Key:   key,
		Value: value,
	}
}

func Insert(table Table, key Key, value Value) *Operation {
	return NewOperation(engine.OpInsert, table, key, value)
}

func Read(table Table, key Key) *Operation {
	return NewOperation(engine.OpRead, table, key, Value{})
}

func Update(table Table, key Key, value Value) *Operation {
	return NewOperation(engine.OpUpdate, table, key, value)
}

func Remove(table Table, key Key) *Operation {
	return NewOperation(engine.OpRemove, table, key, Value{})
}

// Verify returns a read that checks every value it finds against the fill
// value of its key.
func (self *Operation) Verify() *Operation {
	op := *self
	op.verify = true
	return &op
}

// Times returns an operation that runs this one n times in a row.
// Repeating a repeated operation multiplies the counts.
func (self *Operation) Times(n int) *Operation {
	return &Operation{
		group:    groupRepeat,
		children: []*Operation{self},
		repeat:   n,
	}
}

// Then returns an operation that runs this one followed by others.
func (self *Operation) Then(others ...*Operation) *Operation {
	return Sequence(append([]*Operation{self}, others...)...)
}

func Sequence(ops ...*Operation) *Operation {
	return &Operation{
		group:    groupSequence,
		children: ops,
	}
}

// Choice is one weighted operand of Mix.
type Choice struct {
	Weight float64
	Op     *Operation
}

func Weighted(weight float64, op *Operation) Choice {
	return Choice{Weight: weight, Op: op}
}

// Mix returns an operation that runs one of the choices each time it runs,
// picked at random by weight. Choices without a positive weight never run.
func Mix(choices ...Choice) *Operation {
	op := &Operation{
		group:   groupMix,
		chooser: g.NewDiscreteGenerator(),
	}
	for _, c := range choices {
		if c.Weight <= 0 {
			continue
		}
		op.chooser.AddValue(c.Weight, strconv.Itoa(len(op.children)))
		op.children = append(op.children, c.Op)
	}
	return op
}

func (self *Operation) IsLeaf() bool {
	return self.group == groupNone
}

// walk calls f on every leaf once per appearance in the tree.
func (self *Operation) walk(f func(leaf *Operation)) {
	if self.IsLeaf() {
		f(self)
		return
	}
	for _, c := range self.children {
		c.walk(f)
	}
}

// Count returns how many requests one run of the operation issues, or -1
// when that depends on random choices.
func (self *Operation) Count() int64 {
	switch self.group {
	case groupNone:
		return 1
	case groupRepeat:
		n := self.children[0].Count()
		if n < 0 {
			return -1
		}
		return n * int64(self.repeat)
	case groupSequence:
		total := int64(0)
		for _, c := range self.children {
			n := c.Count()
			if n < 0 {
				return -1
			}
			total += n
		}
		return total
	}
	return -1
}

// issues reports whether one run of the operation always issues at least
// one request.
func (self *Operation) issues() bool {
	if self == nil {
		return false
	}
	switch self.group {
	case groupNone:
		return true
	case groupRepeat:
		return self.repeat > 0 && self.children[0].issues()
	case groupSequence:
		for _, c := range self.children {
			if c.issues() {
				return true
			}
		}
		return false
	case groupMix:
		for _, c := range self.children {
			if !c.issues() {
				return false
			}
		}
		return len(self.children) > 0
	}
	return false
}

func (self *Operation) validate() error {
	switch self.group {
	case groupNone:
		if _, err := engine.ParseURI(self.Table.URI); err != nil {
			return err
		}
		if err := self.Key.validate(); err != nil {
			return errors.WithMessagef(err, "%s %s", self.Kind, self.Table)
		}
		if err := self.Value.validate(); err != nil {
			return errors.WithMessagef(err, "%s %s", self.Kind, self.Table)
		}
		if self.verify && self.Kind != engine.OpRead {
			return errors.Errorf("verify on %s %s", self.Kind, self.Table)
		}
		return nil
	case groupRepeat:
		if self.repeat < 0 {
			return errors.Errorf("negative repeat count %d", self.repeat)
		}
	case groupMix:
		if len(self.children) == 0 {
			return errors.New("mix without a positive weight")
		}
		for _, c := range self.children {
			if c != nil && !c.issues() {
				return errors.Errorf("mix choice %s issues no request", c)
			}
		}
	}
	for _, c := range self.children {
		if c == nil {
			return errors.New("nil operation")
		}
		if err := c.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (self *Operation) String() string {
	switch self.group {
	case groupRepeat:
		return fmt.Sprintf("(%s)*%d", self.children[0], self.repeat)
	case groupSequence, groupMix:
		parts := make([]string, 0, len(self.children))
		for _, c := range self.children {
			parts = append(parts, c.String())
		}
		if self.group == groupMix {
			return "mix(" + strings.Join(parts, " | ") + ")"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return fmt.Sprintf("%s %s %s", self.Kind, self.Table, self.Key.Mode)
}
