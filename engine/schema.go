package engine

import (
	"fmt"
	"strings"
)

const (
	TablePrefix = "table:"

	SchemaKeyFormat       = "key_format"
	SchemaValueFormat     = "value_format"
	SchemaBlockCompressor = "block_compressor"
)

// Schema is the definition of a table.
type Schema struct {
	KeyFormat   Format
	ValueFormat Format
	Compressor  string
}

// ParseURI returns the table name of a "table:<name>" uri.
func ParseURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, TablePrefix) {
		return "", Errorf(ErrSchema, "unsupported uri %q", uri)
	}
	name := uri[len(TablePrefix):]
	if len(name) == 0 {
		return "", Errorf(ErrSchema, "empty table name in uri %q", uri)
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return "", Errorf(ErrSchema, "invalid table name %q", name)
		}
	}
	return name, nil
}

// TableURI returns the uri of the named table.
func TableURI(name string) string {
	return TablePrefix + name
}

// ParseSchema parses a table configuration such as
// "key_format=S,value_format=S,block_compressor=zstd".
// Unspecified formats default to raw bytes.
func ParseSchema(config string) (*Schema, error) {
	items, err := ParseConfigString(config)
	if err != nil {
		return nil, Errorf(ErrSchema, "table configuration %q: %v", config, err)
	}
	schema := &Schema{
		KeyFormat:   FormatBytes,
		ValueFormat: FormatBytes,
		Compressor:  CompressorNone,
	}
	for _, item := range items {
		switch item.Key {
		case SchemaKeyFormat:
			if schema.KeyFormat, err = ParseFormat(item.Value); err != nil {
				return nil, err
			}
		case SchemaValueFormat:
			if schema.ValueFormat, err = ParseFormat(item.Value); err != nil {
				return nil, err
			}
		case SchemaBlockCompressor:
			if _, err := NewCompressor(item.Value); err != nil {
				return nil, err
			}
			schema.Compressor = item.Value
			if len(schema.Compressor) == 0 {
				schema.Compressor = CompressorNone
			}
		default:
			return nil, Errorf(ErrSchema, "unknown table configuration key %q", item.Key)
		}
	}
	if schema.Compressor != CompressorNone && schema.ValueFormat.IsInteger() {
		return nil, Errorf(ErrSchema, "cannot compress %s values", schema.ValueFormat)
	}
	return schema, nil
}

// String returns the canonical form of the schema. Two schemas are
// identical iff their canonical forms are equal.
func (self *Schema) String() string {
	return fmt.Sprintf("%s=%s,%s=%s,%s=%s",
		SchemaKeyFormat, self.KeyFormat,
		SchemaValueFormat, self.ValueFormat,
		SchemaBlockCompressor, self.Compressor)
}

func (self *Schema) Equal(other *Schema) bool {
	return self.String() == other.String()
}
