package workgen

import (
	"fmt"
	"math/rand"
	"os"
	"time"
)

var (
	// OutputDest receives the reports and the shell output.
	OutputDest *os.File = os.Stdout
)

func Output(format string, args ...interface{}) {
	fmt.Fprintf(OutputDest, format, args...)
	fmt.Fprintln(OutputDest, "")
}

func SecondToNanosecond(second int64) int64 {
	return second * int64(time.Second)
}

func MillisecondToNanosecond(millisecond int64) int64 {
	return millisecond * int64(time.Millisecond)
}

func MillisecondToSecond(millisecond int64) int64 {
	return millisecond / 1000
}

func NanosecondToMicrosecond(nanosecond int64) int64 {
	return nanosecond / int64(time.Microsecond)
}

func NanosecondToMillisecond(nanosecond int64) int64 {
	return nanosecond / int64(time.Millisecond)
}

const printable = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomBytes returns length printable bytes drawn from r.
func RandomBytes(r *rand.Rand, length int64) []byte {
	b := make([]byte, length)
	for i := range b {
		b[i] = printable[r.Intn(len(printable))]
	}
	return b
}
