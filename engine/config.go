package engine

import (
	"sort"
	"strconv"
	"strings"
)

// ConfigItem is one key=value pair of a configuration string.
// A key given without a value has the value "true".
type ConfigItem struct {
	Key   string
	Value string
}

// ParseConfigString splits a configuration string of the form
// "create,cache_size=1G,dsn=\"a,b\",log=(enabled=true)" into its items.
// Values may be double quoted or enclosed in balanced parentheses.
func ParseConfigString(s string) ([]ConfigItem, error) {
	items := make([]ConfigItem, 0)
	i := 0
	for i < len(s) {
		// key
		start := i
		for i < len(s) && s[i] != '=' && s[i] != ',' {
			i++
		}
		key := strings.TrimSpace(s[start:i])
		if len(key) == 0 {
			if i < len(s) && s[i] == ',' {
				i++
				continue
			}
			return nil, Errorf(ErrConnection, "empty key in configuration %q", s)
		}
		if !validConfigKey(key) {
			return nil, Errorf(ErrConnection, "malformed key %q in configuration %q", key, s)
		}
		if i == len(s) || s[i] == ',' {
			items = append(items, ConfigItem{Key: key, Value: "true"})
			i++
			continue
		}
		// skip '='
		i++
		for i < len(s) && s[i] == ' ' {
			i++
		}
		var value string
		switch {
		case i < len(s) && s[i] == '"':
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				return nil, Errorf(ErrConnection, "unterminated quote in configuration %q", s)
			}
			value = s[i+1 : i+1+end]
			i += end + 2
		case i < len(s) && s[i] == '(':
			depth := 0
			start := i
			for ; i < len(s); i++ {
				if s[i] == '(' {
					depth++
				} else if s[i] == ')' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if depth != 0 {
				return nil, Errorf(ErrConnection, "unbalanced parentheses in configuration %q", s)
			}
			value = s[start+1 : i]
			i++
		default:
			start := i
			for i < len(s) && s[i] != ',' {
				i++
			}
			value = strings.TrimSpace(s[start:i])
		}
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i < len(s) && s[i] != ',' {
			return nil, Errorf(ErrConnection, "unexpected %q in configuration %q", s[i], s)
		}
		i++
		items = append(items, ConfigItem{Key: key, Value: value})
	}
	return items, nil
}

func validConfigKey(key string) bool {
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// ParseSize parses a byte size with an optional K, M, G or T suffix.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return 0, Errorf(ErrConnection, "empty size")
	}
	multiplier := int64(1)
	switch strings.ToUpper(s[len(s)-1:]) {
	case "B":
		s = s[:len(s)-1]
	case "K":
		multiplier = 1 << 10
		s = s[:len(s)-1]
	case "M":
		multiplier = 1 << 20
		s = s[:len(s)-1]
	case "G":
		multiplier = 1 << 30
		s = s[:len(s)-1]
	case "T":
		multiplier = 1 << 40
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, Errorf(ErrConnection, "invalid size %q", s)
	}
	return n * multiplier, nil
}

func parseBool(key, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "1", "on", "yes":
		return true, nil
	case "false", "0", "off", "no":
		return false, nil
	}
	return false, Errorf(ErrConnection, "invalid boolean %q for %s", value, key)
}

const (
	ConfigCreate     = "create"
	ConfigCacheSize  = "cache_size"
	ConfigSessionMax = "session_max"

	CacheSizeDefault  = int64(100 << 20)
	SessionMaxDefault = 100
)

// Config is a parsed connection configuration.
type Config struct {
	// Create the database if it does not exist.
	Create bool
	// CacheSize is the cache size in bytes.
	CacheSize int64
	// SessionMax is the maximum number of sessions open at once.
	SessionMax int
	// Extra holds the keys declared by the driver.
	Extra map[string]string
}

// ParseConfig parses a connection configuration string. Keys other than
// create, cache_size, session_max and the given driver keys are rejected
// with ErrConnection.
func ParseConfig(s string, driverKeys ...string) (*Config, error) {
	items, err := ParseConfigString(s)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{}, len(driverKeys))
	for _, k := range driverKeys {
		allowed[k] = struct{}{}
	}
	config := &Config{
		CacheSize:  CacheSizeDefault,
		SessionMax: SessionMaxDefault,
		Extra:      make(map[string]string),
	}
	for _, item := range items {
		switch item.Key {
		case ConfigCreate:
			if config.Create, err = parseBool(item.Key, item.Value); err != nil {
				return nil, err
			}
		case ConfigCacheSize:
			if config.CacheSize, err = ParseSize(item.Value); err != nil {
				return nil, err
			}
		case ConfigSessionMax:
			n, err := strconv.Atoi(item.Value)
			if err != nil || n <= 0 {
				return nil, Errorf(ErrConnection, "invalid session_max %q", item.Value)
			}
			config.SessionMax = n
		default:
			if _, ok := allowed[item.Key]; !ok {
				return nil, Errorf(ErrConnection, "unknown configuration key %q", item.Key)
			}
			config.Extra[item.Key] = item.Value
		}
	}
	return config, nil
}

// Get returns the driver key value or defaultValue.
func (self *Config) Get(key, defaultValue string) string {
	if v, ok := self.Extra[key]; ok {
		return v
	}
	return defaultValue
}

func (self *Config) GetBool(key string, defaultValue bool) (bool, error) {
	v, ok := self.Extra[key]
	if !ok {
		return defaultValue, nil
	}
	return parseBool(key, v)
}

// String renders the configuration back into a canonical string.
func (self *Config) String() string {
	parts := make([]string, 0, len(self.Extra)+3)
	if self.Create {
		parts = append(parts, ConfigCreate)
	}
	parts = append(parts,
		ConfigCacheSize+"="+strconv.FormatInt(self.CacheSize, 10),
		ConfigSessionMax+"="+strconv.Itoa(self.SessionMax))
	keys := make([]string, 0, len(self.Extra))
	for k := range self.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"=\""+self.Extra[k]+"\"")
	}
	return strings.Join(parts, ",")
}
