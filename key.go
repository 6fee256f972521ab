package workgen

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/hhkbp2/workgen/engine"
	g "github.com/hhkbp2/workgen/generator"
	"github.com/pkg/errors"
)

// KeyMode selects how the key number of an operation is chosen.
type KeyMode int

const (
	// KeyAppend takes the next number of the table counter on insert.
	KeyAppend KeyMode = iota
	KeyUniform
	KeyZipfian
	KeyHotspot
	KeyExponential
	KeyPareto
	// KeyLatest favors the most recently appended keys.
	KeyLatest
	// KeyHashed appends like KeyAppend but renders the hash of the number,
	// so inserts are spread over the key space.
	KeyHashed
	KeyCustom
)

var keyModeNames = map[KeyMode]string{
	KeyAppend:      "append",
	KeyUniform:     "uniform",
	KeyZipfian:     "zipfian",
	KeyHotspot:     "hotspot",
	KeyExponential: "exponential",
	KeyPareto:      "pareto",
	KeyLatest:      "latest",
	KeyHashed:      "hashed",
	KeyCustom:      "custom",
}

func (self KeyMode) String() string {
	if name, ok := keyModeNames[self]; ok {
		return name
	}
	return "unknown"
}

func ParseKeyMode(name string) (KeyMode, error) {
	for mode, n := range keyModeNames {
		if n == strings.ToLower(name) {
			return mode, nil
		}
	}
	return KeyAppend, errors.Errorf("unknown key mode: %s", name)
}

// Key describes how an operation picks its key. Keys are key numbers
// rendered in the key format of the table: zero padded decimal of at least
// Size characters for strings and raw bytes, packed integers otherwise.
//
// Without an explicit range, key numbers are drawn from the keys appended
// to the table so far, [1, last].
type Key struct {
	Mode KeyMode
	Size int
	Min  int64
	Max  int64

	HotsetFraction float64
	HotOpnFraction float64
	Percentile     float64
	Fraction       float64
	ParetoParam    float64
	// Hashed renders the hash of the key number, to find the rows
	// appended with KeyHashed.
	Hashed bool

	Custom func(r *rand.Rand) int64
}

func NewKey(mode KeyMode, size int) Key {
	return Key{
		Mode:           mode,
		Size:           size,
		HotsetFraction: 0.2,
		HotOpnFraction: 0.8,
		Percentile:     95,
		Fraction:       0.8571428571,
		ParetoParam:    g.ParetoParamDefault,
	}
}

// NewCustomKey creates a key computed by f for each operation.
func NewCustomKey(size int, f func(r *rand.Rand) int64) Key {
	k := NewKey(KeyCustom, size)
	k.Custom = f
	return k
}

// WithRange restricts the key numbers to [min, max].
func (self Key) WithRange(min, max int64) Key {
	if min > max {
		min, max = max, min
	}
	self.Min, self.Max = min, max
	return self
}

func (self Key) WithHotspot(hotsetFraction, hotOpnFraction float64) Key {
	self.HotsetFraction = hotsetFraction
	self.HotOpnFraction = hotOpnFraction
	return self
}

func (self Key) hasRange() bool {
	return self.Max > 0
}

// appends reports whether inserts with this key take new counter numbers.
func (self Key) appends() bool {
	return self.Mode == KeyAppend || self.Mode == KeyHashed
}

func (self Key) validate() error {
	if self.Size < 0 {
		return errors.Errorf("negative key size %d", self.Size)
	}
	if self.Mode == KeyCustom && self.Custom == nil {
		return errors.New("custom key without a function")
	}
	if _, ok := keyModeNames[self.Mode]; !ok {
		return errors.Errorf("unknown key mode %d", self.Mode)
	}
	return nil
}

// Render returns the bytes of key number n for the format.
func (self Key) Render(format engine.Format, n int64) []byte {
	if self.Mode == KeyHashed || self.Hashed {
		n = int64(g.Hash(n) >> 1)
	}
	if format.IsInteger() {
		return format.PackInt(n)
	}
	return []byte(fmt.Sprintf("%0*d", self.Size, n))
}

// keyChooser is the per thread state of one Key. Generators are not safe
// for concurrent use, so every thread builds its own.
type keyChooser struct {
	key    Key
	fixed  g.IntegerGenerator
	zipf   *g.ZipfianGenerator
	latest *g.ZipfianGenerator
}

func newKeyChooser(key Key) *keyChooser {
	c := &keyChooser{
		key: key,
	}
	if !key.hasRange() {
		return c
	}
	min, max := key.Min, key.Max
	switch key.Mode {
	case KeyUniform, KeyAppend, KeyHashed:
		c.fixed = g.NewUniformIntegerGenerator(min, max)
	case KeyZipfian:
		c.fixed = g.NewScrambledZipfianGenerator(min, max)
	case KeyHotspot:
		c.fixed = g.NewHotspotIntegerGenerator(min, max, key.HotsetFraction, key.HotOpnFraction)
	case KeyPareto:
		c.fixed = g.NewParetoGenerator(min, max, key.ParetoParam)
	}
	return c
}

// next returns a key number for a request on existing keys. last is the
// highest appended key number of the table. It returns false when there
// is no key to choose from.
func (self *keyChooser) next(r *rand.Rand, last int64) (int64, bool) {
	if self.key.Mode == KeyCustom {
		return self.key.Custom(r), true
	}
	if self.fixed != nil {
		return self.fixed.NextInt(r), true
	}
	min, max := int64(1), last
	if self.key.hasRange() {
		min, max = self.key.Min, self.key.Max
	}
	if max < min {
		return 0, false
	}
	items := max - min + 1
	switch self.key.Mode {
	case KeyZipfian:
		if self.zipf == nil {
			self.zipf = g.NewZipfianGeneratorWithZetan(
				0, g.ScrambledZipfianItemCount-1, g.ZipfianConstant, g.ScrambledZipfianZetan)
		}
		return min + int64(g.Hash(self.zipf.NextInt(r))%uint64(items)), true
	case KeyHotspot:
		gen := g.NewHotspotIntegerGenerator(min, max, self.key.HotsetFraction, self.key.HotOpnFraction)
		return gen.NextInt(r), true
	case KeyPareto:
		return g.NewParetoGenerator(min, max, self.key.ParetoParam).NextInt(r), true
	case KeyExponential:
		gen := g.NewExponentialGenerator(self.key.Percentile, float64(items)*self.key.Fraction)
		for {
			n := max - gen.NextInt(r)
			if n >= min {
				return n, true
			}
		}
	case KeyLatest:
		if self.latest == nil {
			self.latest = g.NewZipfianGenerator(0, items-1)
		}
		return max - self.latest.Next(r, items), true
	}
	return min + g.NextInt64(r, items), true
}
