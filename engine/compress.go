package engine

import (
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

const (
	CompressorNone   = "none"
	CompressorSnappy = "snappy"
	CompressorZstd   = "zstd"
)

// Compressor compresses values on their way into a store.
// Implementations are safe for concurrent use.
type Compressor interface {
	Compress(src []byte) []byte
	Decompress(src []byte) ([]byte, error)
}

func NewCompressor(name string) (Compressor, error) {
	switch name {
	case "", CompressorNone:
		return noneCompressor{}, nil
	case CompressorSnappy:
		return snappyCompressor{}, nil
	case CompressorZstd:
		codec, err := getZstd()
		if err != nil {
			return nil, err
		}
		return codec, nil
	}
	return nil, Errorf(ErrSchema, "unknown block_compressor %q", name)
}

type noneCompressor struct{}

func (noneCompressor) Compress(src []byte) []byte {
	return src
}

func (noneCompressor) Decompress(src []byte) ([]byte, error) {
	return src, nil
}

type snappyCompressor struct{}

func (snappyCompressor) Compress(src []byte) []byte {
	return snappy.Encode(nil, src)
}

func (snappyCompressor) Decompress(src []byte) ([]byte, error) {
	dst, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, Wrap(ErrEngine, err, "snappy decode")
	}
	return dst, nil
}

type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var (
	zstdOnce  sync.Once
	zstdCodec *zstdCompressor
	zstdErr   error
)

// EncodeAll and DecodeAll may be used concurrently, so one codec serves
// every table.
func getZstd() (*zstdCompressor, error) {
	zstdOnce.Do(func() {
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			zstdErr = Wrap(ErrEngine, err, "zstd encoder")
			return
		}
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			zstdErr = Wrap(ErrEngine, err, "zstd decoder")
			return
		}
		zstdCodec = &zstdCompressor{encoder: encoder, decoder: decoder}
	})
	return zstdCodec, zstdErr
}

func (self *zstdCompressor) Compress(src []byte) []byte {
	return self.encoder.EncodeAll(src, make([]byte, 0, len(src)))
}

func (self *zstdCompressor) Decompress(src []byte) ([]byte, error) {
	dst, err := self.decoder.DecodeAll(src, nil)
	if err != nil {
		return nil, Wrap(ErrEngine, err, "zstd decode")
	}
	return dst, nil
}
