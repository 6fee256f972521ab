package workgen

import (
	"bytes"
	"encoding/hex"
	"math/rand"
	"strconv"

	g "github.com/hhkbp2/workgen/generator"
	"github.com/pkg/errors"
)

type ValueMode int

const (
	// ValueFill derives the value from its key, so reads can be verified.
	ValueFill ValueMode = iota
	ValueRandom
)

// Value describes the values written by insert and update operations.
// Values are printable, so they suit both string and raw value formats.
type Value struct {
	Mode ValueMode
	Size int
	// Sizes, when set, builds a per thread generator of value sizes that
	// overrides Size.
	Sizes func() g.IntegerGenerator
}

func NewValue(size int) Value {
	return Value{
		Mode: ValueFill,
		Size: size,
	}
}

func NewRandomValue(size int) Value {
	return Value{
		Mode: ValueRandom,
		Size: size,
	}
}

func (self Value) WithSizes(f func() g.IntegerGenerator) Value {
	self.Sizes = f
	return self
}

func (self Value) validate() error {
	if self.Size < 0 {
		return errors.Errorf("negative value size %d", self.Size)
	}
	return nil
}

func javaStringHashcode(b []byte) int64 {
	hash := int64(0)
	for i := 0; i < len(b); i++ {
		hash = 31*hash + int64(b[i])
	}
	return hash
}

func printableKey(key []byte) []byte {
	for _, c := range key {
		if c < 0x20 || c > 0x7e {
			return []byte(hex.EncodeToString(key))
		}
	}
	return key
}

// FillValue returns the deterministic value of size bytes for key.
func FillValue(key []byte, size int) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, size+24))
	buf.Write(printableKey(key))
	for buf.Len() < size {
		buf.WriteString(":")
		buf.WriteString(strconv.FormatInt(javaStringHashcode(buf.Bytes()), 10))
	}
	buf.Truncate(size)
	return buf.Bytes()
}

// valueBuilder is the per thread state of one Value.
type valueBuilder struct {
	value Value
	sizes g.IntegerGenerator
}

func newValueBuilder(value Value) *valueBuilder {
	b := &valueBuilder{
		value: value,
	}
	if value.Sizes != nil {
		b.sizes = value.Sizes()
	}
	return b
}

func (self *valueBuilder) size(r *rand.Rand) int {
	if self.sizes == nil {
		return self.value.Size
	}
	n := self.sizes.NextInt(r)
	if n < 0 {
		n = 0
	}
	return int(n)
}

func (self *valueBuilder) build(r *rand.Rand, key []byte) []byte {
	size := self.size(r)
	if self.value.Mode == ValueRandom {
		return RandomBytes(r, int64(size))
	}
	return FillValue(key, size)
}

// ValueSizes returns a factory of value size generators for a distribution:
// "constant" (always size), "uniform" (1 to size), "zipfian" (favoring
// short values up to size) or "histogram" (read from histogramFile).
func ValueSizes(distribution string, size int64, histogramFile string) (func() g.IntegerGenerator, error) {
	switch distribution {
	case "constant":
		return func() g.IntegerGenerator {
			return g.NewConstantIntegerGenerator(size)
		}, nil
	case "uniform":
		return func() g.IntegerGenerator {
			return g.NewUniformIntegerGenerator(1, size)
		}, nil
	case "zipfian":
		return func() g.IntegerGenerator {
			return g.NewZipfianGenerator(1, size)
		}, nil
	case "histogram":
		gen, err := g.NewHistogramGeneratorFromFile(histogramFile)
		if err != nil {
			return nil, err
		}
		return func() g.IntegerGenerator {
			return gen
		}, nil
	}
	return nil, errors.Errorf("unknown value size distribution %s", distribution)
}
