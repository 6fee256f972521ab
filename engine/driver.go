package engine

import (
	"context"
	"sort"
	"sync"
)

// KV is one table row as stored, with the value still compressed.
type KV struct {
	Key   []byte
	Value []byte
}

// Store is an open storage engine behind a Connection.
// A Store is shared by every session of its connection and must be safe
// for concurrent use.
//
// Insert and Update both overwrite an existing row. Search and Remove
// return ErrNotFound for a missing key. Native errors are translated into
// the kinds of this package.
type Store interface {
	// CreateTable records a table and its canonical schema.
	CreateTable(ctx context.Context, table string, schema string) error
	// Tables returns the canonical schema of every table.
	Tables(ctx context.Context) (map[string]string, error)

	Insert(ctx context.Context, table string, key, value []byte) error
	Search(ctx context.Context, table string, key []byte) ([]byte, error)
	Update(ctx context.Context, table string, key, value []byte) error
	Remove(ctx context.Context, table string, key []byte) error

	// Scan returns up to limit rows in key order whose key is greater
	// than after. A nil after starts at the first row.
	Scan(ctx context.Context, table string, after []byte, limit int) ([]KV, error)
	// Last returns the greatest key of the table, or ErrNotFound when
	// the table is empty.
	Last(ctx context.Context, table string) ([]byte, error)

	Close() error
}

// Driver opens stores of one kind.
type Driver interface {
	// ConfigKeys lists the connection configuration keys the driver
	// accepts in addition to create, cache_size and session_max.
	ConfigKeys() []string
	// Open opens the store at home. home is a directory for embedded
	// engines and a name or address for remote ones.
	Open(ctx context.Context, home string, config *Config) (Store, error)
}

type DriverFactory func() Driver

var (
	driversLock sync.RWMutex
	drivers     = make(map[string]DriverFactory)
)

// Register makes a driver available by name. Registering a name twice
// replaces the earlier driver.
func Register(name string, f DriverFactory) {
	driversLock.Lock()
	defer driversLock.Unlock()
	drivers[name] = f
}

func lookupDriver(name string) (Driver, bool) {
	driversLock.RLock()
	defer driversLock.RUnlock()
	f, ok := drivers[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Drivers returns the names of the registered drivers.
func Drivers() []string {
	driversLock.RLock()
	defer driversLock.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
