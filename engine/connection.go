package engine

import (
	"context"
	"sort"
	"sync"
)

// Connection is an open database. It is safe for concurrent use; the
// sessions it hands out are not.
type Connection struct {
	driver string
	home   string
	config *Config
	store  Store

	lock     sync.Mutex
	closed   bool
	sessions map[*Session]struct{}
	catalog  map[string]*table
}

type table struct {
	name       string
	schema     *Schema
	compressor Compressor
}

// Open opens the database at home with the named driver. The
// configuration string accepts create, cache_size, session_max and the
// keys declared by the driver. An unknown driver, a malformed
// configuration or a home that cannot be opened yields ErrConnection.
func Open(driver, home, config string) (*Connection, error) {
	return OpenContext(context.Background(), driver, home, config)
}

func OpenContext(ctx context.Context, driver, home, config string) (*Connection, error) {
	d, ok := lookupDriver(driver)
	if !ok {
		return nil, Errorf(ErrConnection, "unknown driver %q", driver)
	}
	c, err := ParseConfig(config, d.ConfigKeys()...)
	if err != nil {
		return nil, err
	}
	store, err := d.Open(ctx, home, c)
	if err != nil {
		return nil, Wrap(ErrConnection, err, "open %s at %q", driver, home)
	}
	conn := &Connection{
		driver:   driver,
		home:     home,
		config:   c,
		store:    store,
		sessions: make(map[*Session]struct{}),
		catalog:  make(map[string]*table),
	}
	tables, err := store.Tables(ctx)
	if err != nil {
		store.Close()
		return nil, Wrap(ErrConnection, err, "load catalog of %q", home)
	}
	for name, def := range tables {
		schema, err := ParseSchema(def)
		if err != nil {
			store.Close()
			return nil, Wrap(ErrConnection, err, "catalog entry %q", name)
		}
		t, err := newTable(name, schema)
		if err != nil {
			store.Close()
			return nil, err
		}
		conn.catalog[name] = t
	}
	return conn, nil
}

func newTable(name string, schema *Schema) (*table, error) {
	compressor, err := NewCompressor(schema.Compressor)
	if err != nil {
		return nil, err
	}
	return &table{
		name:       name,
		schema:     schema,
		compressor: compressor,
	}, nil
}

func (self *Connection) Driver() string {
	return self.driver
}

func (self *Connection) Home() string {
	return self.home
}

func (self *Connection) Config() *Config {
	return self.config
}

// OpenSession opens a new session. It fails with ErrInvalidState once the
// connection is closed and with ErrConnection when session_max sessions
// are already open.
func (self *Connection) OpenSession() (*Session, error) {
	self.lock.Lock()
	defer self.lock.Unlock()
	if self.closed {
		return nil, Errorf(ErrInvalidState, "connection to %q is closed", self.home)
	}
	if len(self.sessions) >= self.config.SessionMax {
		return nil, Errorf(ErrConnection, "session_max %d reached", self.config.SessionMax)
	}
	session := newSession(self)
	self.sessions[session] = struct{}{}
	return session, nil
}

// Close closes every open session and then the store.
// Closing a closed connection fails with ErrInvalidState.
func (self *Connection) Close() error {
	self.lock.Lock()
	if self.closed {
		self.lock.Unlock()
		return Errorf(ErrInvalidState, "connection to %q is already closed", self.home)
	}
	self.closed = true
	sessions := make([]*Session, 0, len(self.sessions))
	for s := range self.sessions {
		sessions = append(sessions, s)
	}
	self.lock.Unlock()

	for _, s := range sessions {
		s.closeInternal()
	}
	self.lock.Lock()
	self.sessions = make(map[*Session]struct{})
	self.lock.Unlock()
	if err := self.store.Close(); err != nil {
		return Wrap(ErrConnection, err, "close %q", self.home)
	}
	return nil
}

func (self *Connection) IsClosed() bool {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.closed
}

// Tables returns the uris of all tables in name order.
func (self *Connection) Tables() ([]string, error) {
	self.lock.Lock()
	defer self.lock.Unlock()
	if self.closed {
		return nil, Errorf(ErrInvalidState, "connection to %q is closed", self.home)
	}
	uris := make([]string, 0, len(self.catalog))
	for name := range self.catalog {
		uris = append(uris, TableURI(name))
	}
	sort.Strings(uris)
	return uris, nil
}

// Schema returns the schema of the table uri.
func (self *Connection) Schema(uri string) (*Schema, error) {
	t, err := self.lookup(uri)
	if err != nil {
		return nil, err
	}
	return t.schema, nil
}

func (self *Connection) lookup(uri string) (*table, error) {
	name, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	self.lock.Lock()
	defer self.lock.Unlock()
	if self.closed {
		return nil, Errorf(ErrInvalidState, "connection to %q is closed", self.home)
	}
	t, ok := self.catalog[name]
	if !ok {
		return nil, Errorf(ErrSchema, "table %q does not exist", uri)
	}
	return t, nil
}

func (self *Connection) createTable(ctx context.Context, uri, config string) error {
	name, err := ParseURI(uri)
	if err != nil {
		return err
	}
	schema, err := ParseSchema(config)
	if err != nil {
		return err
	}
	self.lock.Lock()
	defer self.lock.Unlock()
	if self.closed {
		return Errorf(ErrInvalidState, "connection to %q is closed", self.home)
	}
	if t, ok := self.catalog[name]; ok {
		if t.schema.Equal(schema) {
			return nil
		}
		return Errorf(ErrSchema, "table %q exists as %q, not %q", uri, t.schema, schema)
	}
	t, err := newTable(name, schema)
	if err != nil {
		return err
	}
	if err := self.store.CreateTable(ctx, name, schema.String()); err != nil {
		return Wrap(ErrSchema, err, "create %q", uri)
	}
	self.catalog[name] = t
	return nil
}

func (self *Connection) release(session *Session) {
	self.lock.Lock()
	defer self.lock.Unlock()
	delete(self.sessions, session)
}
