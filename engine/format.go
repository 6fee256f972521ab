package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Format is the encoding of a table key or value.
type Format byte

const (
	// FormatString is a string without NUL bytes.
	FormatString Format = 'S'
	// FormatBytes is an arbitrary byte string.
	FormatBytes Format = 'u'
	// FormatInt is a signed 64-bit integer.
	FormatInt Format = 'q'
	// FormatUint is an unsigned 64-bit integer.
	FormatUint Format = 'Q'
	// FormatRecno is a record number, an unsigned 64-bit integer.
	FormatRecno Format = 'r'
)

func ParseFormat(s string) (Format, error) {
	if len(s) != 1 {
		return 0, Errorf(ErrSchema, "unsupported format %q", s)
	}
	f := Format(s[0])
	switch f {
	case FormatString, FormatBytes, FormatInt, FormatUint, FormatRecno:
		return f, nil
	}
	return 0, Errorf(ErrSchema, "unsupported format %q", s)
}

func (self Format) String() string {
	return string([]byte{byte(self)})
}

// IsInteger reports whether items of this format are fixed width integers.
func (self Format) IsInteger() bool {
	switch self {
	case FormatInt, FormatUint, FormatRecno:
		return true
	}
	return false
}

// PackInt encodes n so that the byte order of encoded items is the
// numeric order.
func (self Format) PackInt(n int64) []byte {
	buf := make([]byte, 8)
	switch self {
	case FormatInt:
		binary.BigEndian.PutUint64(buf, uint64(n)^(1<<63))
	case FormatUint, FormatRecno:
		binary.BigEndian.PutUint64(buf, uint64(n))
	default:
		return []byte(strconv.FormatInt(n, 10))
	}
	return buf
}

// UnpackInt decodes an integer item.
func (self Format) UnpackInt(b []byte) (int64, error) {
	switch self {
	case FormatInt, FormatUint, FormatRecno:
		if len(b) != 8 {
			return 0, Errorf(ErrSchema, "format %s needs 8 bytes, got %d", self, len(b))
		}
		v := binary.BigEndian.Uint64(b)
		if self == FormatInt {
			v ^= 1 << 63
		}
		return int64(v), nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, Wrap(ErrSchema, err, "item %q is not an integer", b)
	}
	return n, nil
}

// Validate checks that b is a well formed item of this format.
func (self Format) Validate(b []byte) error {
	switch self {
	case FormatString:
		if bytes.IndexByte(b, 0) >= 0 {
			return Errorf(ErrSchema, "string item contains a NUL byte")
		}
	case FormatInt, FormatUint, FormatRecno:
		if len(b) != 8 {
			return Errorf(ErrSchema, "format %s needs 8 bytes, got %d", self, len(b))
		}
	}
	return nil
}

// Display renders an item for humans.
func (self Format) Display(b []byte) string {
	switch self {
	case FormatString:
		return string(b)
	case FormatInt, FormatUint, FormatRecno:
		n, err := self.UnpackInt(b)
		if err != nil {
			return fmt.Sprintf("%x", b)
		}
		if self == FormatInt {
			return strconv.FormatInt(n, 10)
		}
		return strconv.FormatUint(uint64(n), 10)
	}
	return fmt.Sprintf("%q", b)
}
