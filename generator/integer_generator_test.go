package generator

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstantIntegerGenerator(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	value := int64(100)
	var g IntegerGenerator
	g = NewConstantIntegerGenerator(value)
	require.Equal(t, value-1, g.LastInt())
	for i := 0; i < 10; i++ {
		require.Equal(t, value, g.NextInt(r))
		require.Equal(t, value-1, g.LastInt())
		require.Equal(t, fmt.Sprintf("%d", value), g.NextString(r))
		require.Equal(t, fmt.Sprintf("%d", value-1), g.LastString())
		require.Equal(t, float64(value), g.Mean())
	}
}

func TestHashSpreads(t *testing.T) {
	require.Equal(t, Hash(42), Hash(42))
	seen := make(map[uint64]struct{})
	for i := int64(0); i < 1000; i++ {
		seen[Hash(i)%1000] = struct{}{}
	}
	require.True(t, len(seen) > 500)
}
