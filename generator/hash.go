package generator

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Hash scrambles a key number into a well-distributed 64-bit value.
func Hash(n int64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	sum := blake3.Sum256(buf[:])
	return binary.LittleEndian.Uint64(sum[:8])
}
