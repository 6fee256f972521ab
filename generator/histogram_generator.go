package generator

import (
	"bufio"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// Generate integers according to a histogram distribution. The histogram
// buckets are of width one, but the values are multiplied by a block size.
// Therefore, instead of drawing sizes uniformly at random within each bucket,
// we always draw the largest value in the current bucket, so the value drawn
// is always a multiple of blockSize.
// The minimum value this distribution returns is blockSize(not zero).
type HistogramGenerator struct {
	*IntegerGeneratorBase
	blockSize    int64
	buckets      []int64
	area         int64
	weightedArea int64
	meanSize     float64
}

// NewHistogramGeneratorFromFile reads a histogram from a tab separated file.
// The first line is "BlockSize\t<n>", then one "<bucket>\t<count>" per line.
func NewHistogramGeneratorFromFile(file string) (*HistogramGenerator, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buckets := make([]int64, 0)
	scanner := bufio.NewScanner(f)
	lineCount := 0
	var size int64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			return nil, NewErrorf("invalid format for histogram file: %s", file)
		}
		if lineCount == 0 {
			if parts[0] != "BlockSize" {
				return nil, NewErrorf(
					"First line of histogram file is not the BlockSize")
			}
			size, err = strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return nil, err
			}
		} else {
			k, err := strconv.Atoi(parts[0])
			if err != nil {
				return nil, err
			}
			v, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return nil, err
			}
			if k < 0 {
				return nil, NewErrorf("negative bucket index %d in %s", k, file)
			}
			for len(buckets) <= k {
				buckets = append(buckets, 0)
			}
			buckets[k] = v
		}
		lineCount++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if lineCount == 0 {
		return nil, NewErrorf("empty histogram file: %s", file)
	}
	return NewHistogramGenerator(buckets, size), nil
}

func NewHistogramGenerator(buckets []int64, blockSize int64) *HistogramGenerator {
	object := &HistogramGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(0),
		blockSize:            blockSize,
		buckets:              buckets,
	}
	object.init()
	return object
}

func (self *HistogramGenerator) init() {
	var area, weightedArea int64
	for i := 0; i < len(self.buckets); i++ {
		area += self.buckets[i]
		weightedArea += int64(i) * self.buckets[i]
	}
	self.area = area
	self.weightedArea = weightedArea
	if area > 0 {
		// calculate average file size
		self.meanSize = float64(self.blockSize) * float64(weightedArea) / float64(area)
	}
}

func (self *HistogramGenerator) NextInt(r *rand.Rand) int64 {
	number := NextInt64(r, self.area)
	var i int
	for i = 0; i < len(self.buckets)-1; i++ {
		number -= self.buckets[i]
		if number < 0 {
			break
		}
	}
	next := int64(i+1) * self.blockSize
	self.SetLastInt(next)
	return next
}

func (self *HistogramGenerator) NextString(r *rand.Rand) string {
	return self.IntegerGeneratorBase.NextString(self, r)
}

func (self *HistogramGenerator) Mean() float64 {
	return self.meanSize
}
