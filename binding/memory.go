package binding

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/hhkbp2/workgen/engine"
)

// MemoryDriver keeps tables in process memory. Data outlives a closed
// connection: reopening the same home sees the same tables, as if the
// home were a directory on disk.
type MemoryDriver struct{}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{}
}

func (self *MemoryDriver) ConfigKeys() []string {
	return nil
}

var (
	memoryHomesLock sync.Mutex
	memoryHomes     = make(map[string]*memoryDatabase)
)

// DropMemoryHome forgets the data kept for home.
func DropMemoryHome(home string) {
	memoryHomesLock.Lock()
	defer memoryHomesLock.Unlock()
	delete(memoryHomes, home)
}

func (self *MemoryDriver) Open(_ context.Context, home string, config *engine.Config) (engine.Store, error) {
	if len(home) == 0 {
		return nil, engine.Errorf(engine.ErrConnection, "empty home")
	}
	memoryHomesLock.Lock()
	defer memoryHomesLock.Unlock()
	db, ok := memoryHomes[home]
	if !ok {
		if !config.Create {
			return nil, engine.Errorf(engine.ErrConnection, "home %q does not exist", home)
		}
		db = &memoryDatabase{
			schemas: make(map[string]string),
			tables:  make(map[string]*memoryTable),
		}
		memoryHomes[home] = db
	}
	return &MemoryStore{db: db}, nil
}

type memoryDatabase struct {
	lock    sync.RWMutex
	schemas map[string]string
	tables  map[string]*memoryTable
}

// memoryTable is a sorted key slice next to a map of values.
type memoryTable struct {
	keys   [][]byte
	values map[string][]byte
}

func (self *memoryTable) find(key []byte) (int, bool) {
	i := sort.Search(len(self.keys), func(i int) bool {
		return bytes.Compare(self.keys[i], key) >= 0
	})
	return i, i < len(self.keys) && bytes.Equal(self.keys[i], key)
}

func (self *memoryTable) put(key, value []byte) {
	i, found := self.find(key)
	if !found {
		self.keys = append(self.keys, nil)
		copy(self.keys[i+1:], self.keys[i:])
		self.keys[i] = copyBytes(key)
	}
	self.values[string(key)] = copyBytes(value)
}

func (self *memoryTable) remove(key []byte) bool {
	i, found := self.find(key)
	if !found {
		return false
	}
	self.keys = append(self.keys[:i], self.keys[i+1:]...)
	delete(self.values, string(key))
	return true
}

// MemoryStore is a connection to a memory database.
type MemoryStore struct {
	db *memoryDatabase
}

func (self *MemoryStore) table(name string) (*memoryTable, error) {
	t, ok := self.db.tables[name]
	if !ok {
		return nil, engine.Errorf(engine.ErrSchema, "no table %q", name)
	}
	return t, nil
}

func (self *MemoryStore) CreateTable(_ context.Context, name string, schema string) error {
	self.db.lock.Lock()
	defer self.db.lock.Unlock()
	if _, ok := self.db.tables[name]; ok {
		return nil
	}
	self.db.schemas[name] = schema
	self.db.tables[name] = &memoryTable{
		keys:   make([][]byte, 0),
		values: make(map[string][]byte),
	}
	return nil
}

func (self *MemoryStore) Tables(_ context.Context) (map[string]string, error) {
	self.db.lock.RLock()
	defer self.db.lock.RUnlock()
	ret := make(map[string]string, len(self.db.schemas))
	for k, v := range self.db.schemas {
		ret[k] = v
	}
	return ret, nil
}

func (self *MemoryStore) Insert(_ context.Context, table string, key, value []byte) error {
	self.db.lock.Lock()
	defer self.db.lock.Unlock()
	t, err := self.table(table)
	if err != nil {
		return err
	}
	t.put(key, value)
	return nil
}

func (self *MemoryStore) Update(ctx context.Context, table string, key, value []byte) error {
	return self.Insert(ctx, table, key, value)
}

func (self *MemoryStore) Search(_ context.Context, table string, key []byte) ([]byte, error) {
	self.db.lock.RLock()
	defer self.db.lock.RUnlock()
	t, err := self.table(table)
	if err != nil {
		return nil, err
	}
	v, ok := t.values[string(key)]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return copyBytes(v), nil
}

func (self *MemoryStore) Remove(_ context.Context, table string, key []byte) error {
	self.db.lock.Lock()
	defer self.db.lock.Unlock()
	t, err := self.table(table)
	if err != nil {
		return err
	}
	if !t.remove(key) {
		return engine.ErrNotFound
	}
	return nil
}

func (self *MemoryStore) Scan(_ context.Context, table string, after []byte, limit int) ([]engine.KV, error) {
	self.db.lock.RLock()
	defer self.db.lock.RUnlock()
	t, err := self.table(table)
	if err != nil {
		return nil, err
	}
	start := 0
	if after != nil {
		i, found := t.find(after)
		if found {
			i++
		}
		start = i
	}
	ret := make([]engine.KV, 0, limit)
	for i := start; i < len(t.keys) && len(ret) < limit; i++ {
		k := t.keys[i]
		ret = append(ret, engine.KV{
			Key:   copyBytes(k),
			Value: copyBytes(t.values[string(k)]),
		})
	}
	return ret, nil
}

func (self *MemoryStore) Last(_ context.Context, table string) ([]byte, error) {
	self.db.lock.RLock()
	defer self.db.lock.RUnlock()
	t, err := self.table(table)
	if err != nil {
		return nil, err
	}
	if len(t.keys) == 0 {
		return nil, engine.ErrNotFound
	}
	return copyBytes(t.keys[len(t.keys)-1]), nil
}

func (self *MemoryStore) Close() error {
	return nil
}
