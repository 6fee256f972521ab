package generator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHotspotIntegerGenerator(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	lowerBound := int64(1000)
	upperBound := int64(2000)
	hotsetFraction := float64(0.2)
	hotOpnFraction := float64(0.99)
	var g IntegerGenerator
	hig := NewHotspotIntegerGenerator(lowerBound, upperBound, hotsetFraction, hotOpnFraction)
	g = hig
	interval := upperBound - lowerBound + 1
	hotsetHigh := lowerBound + int64(float64(interval)*hotsetFraction)
	hot := 0
	total := 1000
	for i := 0; i < total; i++ {
		last := g.NextInt(r)
		require.True(t, last >= lowerBound && last <= upperBound)
		require.Equal(t, last, g.LastInt())
		if last < hotsetHigh {
			hot++
		}
	}
	require.True(t, hot > total*9/10)
}

func TestHotspotIntegerGeneratorFractionOutOfRange(t *testing.T) {
	g := NewHotspotIntegerGenerator(10, 1, 1.5, -1)
	require.Equal(t, int64(1), g.GetLowerBound())
	require.Equal(t, int64(10), g.GetUpperBound())
	require.Equal(t, 0.0, g.GetHotsetFraction())
	require.Equal(t, 0.0, g.GetHotOpnFraction())
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		v := g.NextInt(r)
		require.True(t, v >= 1 && v <= 10)
	}
}
