package generator

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniformIntegerGenerator(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	lowerBound := int64(1000)
	upperBound := int64(2000)
	var g IntegerGenerator
	uig := NewUniformIntegerGenerator(lowerBound, upperBound)
	g = uig
	total := 10
	for i := 0; i < total; i++ {
		last := g.NextInt(r)
		require.True(t, last >= lowerBound && last <= upperBound)
		require.Equal(t, last, g.LastInt())
		str := g.NextString(r)
		v, err := strconv.ParseInt(str, 0, 64)
		require.Nil(t, err)
		require.True(t, v >= lowerBound && v <= upperBound)
		require.Equal(t, float64(lowerBound+upperBound)/2.0, g.Mean())
	}
}

func TestUniformIntegerGeneratorDeterministic(t *testing.T) {
	g1 := NewUniformIntegerGenerator(0, 1<<40)
	g2 := NewUniformIntegerGenerator(0, 1<<40)
	r1 := rand.New(rand.NewSource(99))
	r2 := rand.New(rand.NewSource(99))
	for i := 0; i < 100; i++ {
		require.Equal(t, g1.NextInt(r1), g2.NextInt(r2))
	}
}

func TestParetoGenerator(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	g := NewParetoGenerator(1, 1000, ParetoParamDefault)
	low := 0
	total := 2000
	for i := 0; i < total; i++ {
		v := g.NextInt(r)
		require.True(t, v >= 1 && v <= 1000)
		require.Equal(t, v, g.LastInt())
		if v <= 100 {
			low++
		}
	}
	// the first tenth of the range should be hit far more than a tenth of the time
	require.True(t, low > total/2)
}
