package generator

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterGenerator(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	value := int64(100)
	var g IntegerGenerator
	g = NewCounterGenerator(value)
	require.Equal(t, value-1, g.LastInt())
	for i := int64(0); i < 5; i++ {
		require.Equal(t, value+i, g.NextInt(r))
		require.Equal(t, value+i, g.LastInt())
	}
	for i := int64(5); i < 10; i++ {
		require.Equal(t, fmt.Sprintf("%d", value+i), g.NextString(r))
		require.Equal(t, fmt.Sprintf("%d", value+i), g.LastString())
	}
	require.Panics(t, func() { g.Mean() })
}

func TestCounterGeneratorConcurrent(t *testing.T) {
	g := NewCounterGenerator(0)
	workers, each := 8, 1000
	results := make([][]int64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(w)))
			for i := 0; i < each; i++ {
				results[w] = append(results[w], g.NextInt(r))
			}
		}(w)
	}
	wg.Wait()
	seen := make(map[int64]struct{})
	for _, rs := range results {
		for _, v := range rs {
			_, dup := seen[v]
			require.False(t, dup, "duplicate value %d", v)
			seen[v] = struct{}{}
		}
	}
	require.Len(t, seen, workers*each)
}

func TestCounterGeneratorSkip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	g := NewCounterGenerator(1)
	g.Skip(10)
	require.Equal(t, int64(11), g.NextInt(r))
	g.Skip(5)
	require.Equal(t, int64(12), g.NextInt(r))
}

func TestAcknowledgedCounterGenerator(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	value := int64(100)
	total := int64(10)
	var g IntegerGenerator
	acg := NewAcknowledgedCounterGenerator(value)
	g = acg
	require.Equal(t, value-1, g.LastInt())
	for i := int64(0); i < total/2; i++ {
		require.Equal(t, value+i, g.NextInt(r))
		require.Equal(t, value-1, g.LastInt())
	}
	for i := total / 2; i < total; i++ {
		require.Equal(t, fmt.Sprintf("%d", value+i), g.NextString(r))
		require.Equal(t, fmt.Sprintf("%d", value-1), g.LastString())
	}
	for i := int64(0); i < total; i++ {
		acg.Acknowledge(value + i)
		require.Equal(t, value+i, g.LastInt())
		require.Equal(t, fmt.Sprintf("%d", value+i), g.LastString())
	}
	require.Equal(t, value+total, acg.NextInt(r))
	require.Panics(t, func() { g.Mean() })
}

func TestAcknowledgedCounterGeneratorOutOfOrder(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	acg := NewAcknowledgedCounterGenerator(1)
	for i := 0; i < 3; i++ {
		acg.NextInt(r)
	}
	acg.Acknowledge(3)
	require.Equal(t, int64(0), acg.LastInt())
	acg.Acknowledge(2)
	require.Equal(t, int64(0), acg.LastInt())
	acg.Acknowledge(1)
	require.Equal(t, int64(3), acg.LastInt())
}
