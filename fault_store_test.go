package workgen

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hhkbp2/workgen/binding"
	"github.com/hhkbp2/workgen/engine"
	"github.com/stretchr/testify/require"
)

func init() {
	binding.AddBindings()
	SetLogLevel(LevelQuiet)
}

// openMemory opens a connection to a fresh memory home.
func openMemory(t *testing.T) *engine.Connection {
	home := t.Name()
	binding.DropMemoryHome(home)
	conn, err := engine.Open(binding.DriverMemory, home, "create")
	require.Nil(t, err)
	t.Cleanup(func() {
		conn.Close()
		binding.DropMemoryHome(home)
	})
	return conn
}

// reopenMemory opens another connection to the home of openMemory, one
// that sees the tables created since.
func reopenMemory(t *testing.T) *engine.Connection {
	conn, err := engine.Open(binding.DriverMemory, t.Name(), "")
	require.Nil(t, err)
	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}

func createTable(t *testing.T, conn *engine.Connection, uri, config string) {
	session, err := conn.OpenSession()
	require.Nil(t, err)
	defer session.Close()
	require.Nil(t, session.Create(uri, config))
}

type row struct {
	key   string
	value string
}

func tableRows(t *testing.T, conn *engine.Connection, uri string) []row {
	session, err := conn.OpenSession()
	require.Nil(t, err)
	defer session.Close()
	cursor, err := session.OpenCursor(uri)
	require.Nil(t, err)
	defer cursor.Close()
	var rows []row
	for cursor.Next() {
		rows = append(rows, row{string(cursor.Key()), string(cursor.Value())})
	}
	require.Nil(t, cursor.Err())
	return rows
}

// faultStore fails every write with err. Reads find nothing.
type faultStore struct {
	err    error
	writes int64

	lock    sync.Mutex
	schemas map[string]string
}

func newFaultStore(err error) *faultStore {
	return &faultStore{
		err:     err,
		schemas: make(map[string]string),
	}
}

func (self *faultStore) CreateTable(_ context.Context, table string, schema string) error {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.schemas[table] = schema
	return nil
}

func (self *faultStore) Tables(_ context.Context) (map[string]string, error) {
	self.lock.Lock()
	defer self.lock.Unlock()
	ret := make(map[string]string, len(self.schemas))
	for k, v := range self.schemas {
		ret[k] = v
	}
	return ret, nil
}

func (self *faultStore) write() error {
	atomic.AddInt64(&self.writes, 1)
	return self.err
}

func (self *faultStore) Insert(_ context.Context, _ string, _, _ []byte) error {
	return self.write()
}

func (self *faultStore) Search(_ context.Context, _ string, _ []byte) ([]byte, error) {
	return nil, engine.Errorf(engine.ErrNotFound, "no rows")
}

func (self *faultStore) Update(_ context.Context, _ string, _, _ []byte) error {
	return self.write()
}

func (self *faultStore) Remove(_ context.Context, _ string, _ []byte) error {
	return self.write()
}

func (self *faultStore) Scan(_ context.Context, _ string, _ []byte, _ int) ([]engine.KV, error) {
	return nil, nil
}

func (self *faultStore) Last(_ context.Context, _ string) ([]byte, error) {
	return nil, engine.Errorf(engine.ErrNotFound, "no rows")
}

func (self *faultStore) Close() error {
	return nil
}

type faultDriver struct {
	store *faultStore
}

func (self *faultDriver) ConfigKeys() []string {
	return nil
}

func (self *faultDriver) Open(_ context.Context, _ string, _ *engine.Config) (engine.Store, error) {
	return self.store, nil
}

// openFault registers a driver serving store under the test name and
// opens it.
func openFault(t *testing.T, store *faultStore) *engine.Connection {
	name := "fault-" + t.Name()
	engine.Register(name, func() engine.Driver {
		return &faultDriver{store: store}
	})
	conn, err := engine.Open(name, "home", "create")
	require.Nil(t, err)
	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}
