package engine

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	name, err := ParseURI("table:simple")
	require.Nil(t, err)
	require.Equal(t, "simple", name)
	require.Equal(t, "table:simple", TableURI(name))
	for _, bad := range []string{"simple", "table:", "file:simple", "table:a/b", "table:a b"} {
		_, err := ParseURI(bad)
		require.ErrorIs(t, err, ErrSchema, bad)
	}
}

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema("key_format=S,value_format=S")
	require.Nil(t, err)
	require.Equal(t, FormatString, s.KeyFormat)
	require.Equal(t, FormatString, s.ValueFormat)
	require.Equal(t, CompressorNone, s.Compressor)
	require.Equal(t, "key_format=S,value_format=S,block_compressor=none", s.String())

	d, err := ParseSchema("")
	require.Nil(t, err)
	require.Equal(t, FormatBytes, d.KeyFormat)
	require.False(t, d.Equal(s))

	z, err := ParseSchema("value_format=S,key_format=S,block_compressor=none")
	require.Nil(t, err)
	require.True(t, z.Equal(s))

	for _, bad := range []string{
		"key_format=X",
		"key_format=SS",
		"columns=(a,b)",
		"block_compressor=lz4",
		"value_format=q,block_compressor=zstd",
		`key_format="S`,
	} {
		_, err := ParseSchema(bad)
		require.ErrorIs(t, err, ErrSchema, bad)
	}
}

func TestFormatOrder(t *testing.T) {
	numbers := []int64{-1 << 40, -5, -1, 0, 1, 7, 1 << 40}
	packed := make([][]byte, 0, len(numbers))
	for _, n := range numbers {
		b := FormatInt.PackInt(n)
		require.Nil(t, FormatInt.Validate(b))
		v, err := FormatInt.UnpackInt(b)
		require.Nil(t, err)
		require.Equal(t, n, v)
		packed = append(packed, b)
	}
	require.True(t, sort.SliceIsSorted(packed, func(i, j int) bool {
		return bytes.Compare(packed[i], packed[j]) < 0
	}))
	require.Equal(t, "-5", FormatInt.Display(FormatInt.PackInt(-5)))
	require.Equal(t, "42", FormatRecno.Display(FormatRecno.PackInt(42)))

	require.ErrorIs(t, FormatUint.Validate([]byte("short")), ErrSchema)
	require.ErrorIs(t, FormatString.Validate([]byte("a\x00b")), ErrSchema)
	require.Nil(t, FormatBytes.Validate([]byte("a\x00b")))
}

func TestCompressors(t *testing.T) {
	src := bytes.Repeat([]byte("workgen "), 64)
	for _, name := range []string{CompressorNone, CompressorSnappy, CompressorZstd} {
		c, err := NewCompressor(name)
		require.Nil(t, err, name)
		compressed := c.Compress(src)
		if name != CompressorNone {
			require.True(t, len(compressed) < len(src), name)
		}
		out, err := c.Decompress(compressed)
		require.Nil(t, err, name)
		require.Equal(t, src, out, name)
	}
	c, err := NewCompressor(CompressorZstd)
	require.Nil(t, err)
	_, err = c.Decompress([]byte("not zstd"))
	require.ErrorIs(t, err, ErrEngine)
}

func TestErrorKinds(t *testing.T) {
	err := Wrap(ErrConflict, ErrNotFound, "already classified")
	require.Equal(t, ErrNotFound, KindOf(err))

	err = Errorf(ErrConflict, "deadlock on %s", "t")
	require.True(t, IsRetryable(err))
	require.False(t, IsFatal(err))
	require.Equal(t, "conflict", KindName(err))
	require.Contains(t, err.Error(), "deadlock on t")

	require.True(t, IsFatal(Errorf(ErrConnection, "lost")))
	require.True(t, IsFatal(Errorf(ErrInvalidState, "closed")))
	require.True(t, IsFatal(Errorf(ErrUnavailable, "down")))
	require.False(t, IsFatal(Errorf(ErrSchema, "bad")))
	require.Nil(t, KindOf(nil))
	require.Equal(t, "ok", KindName(nil))
	require.Equal(t, ErrEngine, KindOf(bytesError("raw")))
}

type bytesError string

func (self bytesError) Error() string {
	return string(self)
}
