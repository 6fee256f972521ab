package generator

import (
	"fmt"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscreteGenerator(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	var g Generator
	dg := NewDiscreteGenerator()
	g = dg
	require.Equal(t, "", g.LastString())
	startWeight := float64(1.0)
	total := 4
	for i := 0; i < total; i++ {
		dg.AddValue(startWeight, fmt.Sprintf("%g", startWeight+float64(i)))
	}
	require.Equal(t, total, dg.Len())
	for i := 0; i < total; i++ {
		n := g.NextString(r)
		v, err := strconv.ParseFloat(n, 64)
		require.Nil(t, err)
		require.True(t, v < startWeight+float64(total))
		require.Equal(t, n, g.LastString())
	}
}

func TestDiscreteGeneratorWeights(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	dg := NewDiscreteGenerator()
	dg.AddValue(0.9, "hot")
	dg.AddValue(0.1, "cold")
	dg.AddValue(0, "never")
	counts := make(map[string]int)
	for i := 0; i < 10000; i++ {
		counts[dg.NextString(r)]++
	}
	require.Zero(t, counts["never"])
	require.InDelta(t, 9000, counts["hot"], 300)
}
