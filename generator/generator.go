package generator

import (
	"errors"
	"fmt"
	"math/rand"
)

// Generator is a generator of string values. Implementations that keep
// state between calls are not safe for concurrent use unless documented
// otherwise; each worker gets its own *rand.Rand.
type Generator interface {
	// NextString generates the next string in the distribution.
	NextString(r *rand.Rand) string
	// LastString returns the previous string generated by the distribution,
	// e.g. the string returned by the last NextString() call.
	// Calling LastString() should not advance the distribution or have any
	// side effects. If NextString() has not yet been called, LastString()
	// should return something reasonable.
	LastString() string
}

func NewErrorf(format string, args ...interface{}) error {
	return errors.New(fmt.Sprintf(format, args...))
}

// NextInt64 returns a non-negative random value in [0, n).
// It returns 0 when n is not positive.
func NextInt64(r *rand.Rand, n int64) int64 {
	if n <= 0 {
		return 0
	}
	return r.Int63n(n)
}

// NextFloat64 returns a random value in [0.0, 1.0).
func NextFloat64(r *rand.Rand) float64 {
	return r.Float64()
}
