package binding

import (
	"context"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/hhkbp2/workgen/engine"
)

const (
	ConfigPebbleSync = "sync"
)

var (
	pebbleTablePrefix  = []byte("t\x00")
	pebbleSchemaPrefix = []byte("s\x00")
)

// PebbleDriver stores tables in a pebble LSM database rooted at home.
// All tables share one keyspace; rows are prefixed by their table name.
type PebbleDriver struct{}

func NewPebbleDriver() *PebbleDriver {
	return &PebbleDriver{}
}

func (self *PebbleDriver) ConfigKeys() []string {
	return []string{ConfigPebbleSync}
}

func (self *PebbleDriver) Open(_ context.Context, home string, config *engine.Config) (engine.Store, error) {
	if len(home) == 0 {
		return nil, engine.Errorf(engine.ErrConnection, "empty home")
	}
	if !config.Create {
		if _, err := os.Stat(home); err != nil {
			return nil, engine.Wrap(engine.ErrConnection, err, "home %q", home)
		}
	}
	sync, err := config.GetBool(ConfigPebbleSync, false)
	if err != nil {
		return nil, err
	}
	cache := pebble.NewCache(config.CacheSize)
	defer cache.Unref()
	db, err := pebble.Open(home, &pebble.Options{
		Cache:            cache,
		ErrorIfNotExists: !config.Create,
	})
	if err != nil {
		return nil, engine.Wrap(engine.ErrConnection, err, "pebble open %q", home)
	}
	writeOptions := pebble.NoSync
	if sync {
		writeOptions = pebble.Sync
	}
	return &PebbleStore{
		db:           db,
		writeOptions: writeOptions,
	}, nil
}

type PebbleStore struct {
	db           *pebble.DB
	writeOptions *pebble.WriteOptions
}

func pebbleTableKey(table string, key []byte) []byte {
	ret := make([]byte, 0, len(pebbleTablePrefix)+len(table)+1+len(key))
	ret = append(ret, pebbleTablePrefix...)
	ret = append(ret, table...)
	ret = append(ret, 0)
	return append(ret, key...)
}

// pebbleTableBounds returns the key range holding the rows of table.
func pebbleTableBounds(table string) ([]byte, []byte) {
	lower := pebbleTableKey(table, nil)
	upper := copyBytes(lower)
	upper[len(upper)-1] = 1
	return lower, upper
}

func pebbleError(err error, format string, args ...interface{}) error {
	if err == pebble.ErrNotFound {
		return engine.ErrNotFound
	}
	return engine.Wrap(engine.ErrEngine, err, format, args...)
}

func (self *PebbleStore) CreateTable(_ context.Context, table string, schema string) error {
	key := append(copyBytes(pebbleSchemaPrefix), table...)
	if err := self.db.Set(key, []byte(schema), pebble.Sync); err != nil {
		return pebbleError(err, "create %q", table)
	}
	return nil
}

func (self *PebbleStore) Tables(_ context.Context) (map[string]string, error) {
	upper := copyBytes(pebbleSchemaPrefix)
	upper[len(upper)-1] = 1
	iter, err := self.db.NewIter(&pebble.IterOptions{
		LowerBound: pebbleSchemaPrefix,
		UpperBound: upper,
	})
	if err != nil {
		return nil, pebbleError(err, "list tables")
	}
	defer iter.Close()
	ret := make(map[string]string)
	for iter.First(); iter.Valid(); iter.Next() {
		name := string(iter.Key()[len(pebbleSchemaPrefix):])
		ret[name] = string(iter.Value())
	}
	if err := iter.Error(); err != nil {
		return nil, pebbleError(err, "list tables")
	}
	return ret, nil
}

func (self *PebbleStore) Insert(_ context.Context, table string, key, value []byte) error {
	if err := self.db.Set(pebbleTableKey(table, key), value, self.writeOptions); err != nil {
		return pebbleError(err, "insert into %q", table)
	}
	return nil
}

func (self *PebbleStore) Update(ctx context.Context, table string, key, value []byte) error {
	return self.Insert(ctx, table, key, value)
}

func (self *PebbleStore) Search(_ context.Context, table string, key []byte) ([]byte, error) {
	value, closer, err := self.db.Get(pebbleTableKey(table, key))
	if err != nil {
		return nil, pebbleError(err, "read from %q", table)
	}
	defer closer.Close()
	return copyBytes(value), nil
}

func (self *PebbleStore) Remove(ctx context.Context, table string, key []byte) error {
	k := pebbleTableKey(table, key)
	_, closer, err := self.db.Get(k)
	if err != nil {
		return pebbleError(err, "remove from %q", table)
	}
	closer.Close()
	if err := self.db.Delete(k, self.writeOptions); err != nil {
		return pebbleError(err, "remove from %q", table)
	}
	return nil
}

func (self *PebbleStore) Scan(_ context.Context, table string, after []byte, limit int) ([]engine.KV, error) {
	lower, upper := pebbleTableBounds(table)
	iter, err := self.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, pebbleError(err, "scan %q", table)
	}
	defer iter.Close()
	ret := make([]engine.KV, 0, limit)
	valid := iter.First()
	if after != nil {
		start := pebbleTableKey(table, after)
		valid = iter.SeekGE(start)
		if valid && string(iter.Key()) == string(start) {
			valid = iter.Next()
		}
	}
	for ; valid && len(ret) < limit; valid = iter.Next() {
		ret = append(ret, engine.KV{
			Key:   copyBytes(iter.Key()[len(lower):]),
			Value: copyBytes(iter.Value()),
		})
	}
	if err := iter.Error(); err != nil {
		return nil, pebbleError(err, "scan %q", table)
	}
	return ret, nil
}

func (self *PebbleStore) Last(_ context.Context, table string) ([]byte, error) {
	lower, upper := pebbleTableBounds(table)
	iter, err := self.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, pebbleError(err, "last of %q", table)
	}
	defer iter.Close()
	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return nil, pebbleError(err, "last of %q", table)
		}
		return nil, engine.ErrNotFound
	}
	return copyBytes(iter.Key()[len(lower):]), nil
}

func (self *PebbleStore) Close() error {
	return self.db.Close()
}
