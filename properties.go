package workgen

import (
	"sort"
	"strconv"
	"time"

	"github.com/magiconair/properties"
	"github.com/pkg/errors"
)

type Properties map[string]string

func NewProperties() Properties {
	return make(Properties)
}

// LoadProperties reads a java style property file.
func LoadProperties(filename string) (Properties, error) {
	p, err := properties.LoadFile(filename, properties.UTF8)
	if err != nil {
		return nil, errors.Wrapf(err, "load properties %q", filename)
	}
	return Properties(p.Map()), nil
}

func (self Properties) Get(key string) string {
	v, _ := self[key]
	return v
}

func (self Properties) GetDefault(key string, defaultValue string) string {
	if v, ok := self[key]; ok {
		return v
	}
	return defaultValue
}

func (self Properties) Add(key, value string) {
	self[key] = value
}

// Merge copies every entry of other, overriding existing ones.
func (self Properties) Merge(other map[string]string) {
	for k, v := range other {
		self[k] = v
	}
}

func (self Properties) GetInt(key string, defaultValue string) (int64, error) {
	v := self.GetDefault(key, defaultValue)
	i, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0, errors.Errorf("invalid integer property %s=%q", key, v)
	}
	return i, nil
}

func (self Properties) GetFloat(key string, defaultValue string) (float64, error) {
	v := self.GetDefault(key, defaultValue)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Errorf("invalid float property %s=%q", key, v)
	}
	return f, nil
}

func (self Properties) GetBool(key string, defaultValue string) (bool, error) {
	v := self.GetDefault(key, defaultValue)
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Errorf("invalid bool property %s=%q", key, v)
	}
	return b, nil
}

// GetSeconds reads a property holding a number of seconds.
func (self Properties) GetSeconds(key string, defaultValue string) (time.Duration, error) {
	f, err := self.GetFloat(key, defaultValue)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}

func (self Properties) Keys() []string {
	keys := make([]string, 0, len(self))
	for k := range self {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func OutputProperties(p Properties) {
	Output("***************** properties *****************")
	if p != nil {
		for _, k := range p.Keys() {
			Output("\"%s\"=\"%s\"", k, p[k])
		}
	}
	Output("**********************************************")
}
