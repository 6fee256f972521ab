package engine

import (
	"context"
	"sync"
)

type SessionState int

const (
	SessionCreated SessionState = iota
	SessionActive
	SessionClosed
)

func (self SessionState) String() string {
	switch self {
	case SessionCreated:
		return "created"
	case SessionActive:
		return "active"
	case SessionClosed:
		return "closed"
	}
	return "unknown"
}

// OpKind is the kind of a single key/value request.
type OpKind int

const (
	OpInsert OpKind = iota
	OpRead
	OpUpdate
	OpRemove
)

var opKindNames = []string{"INSERT", "READ", "UPDATE", "REMOVE"}

func (self OpKind) String() string {
	if self < 0 || int(self) >= len(opKindNames) {
		return "UNKNOWN"
	}
	return opKindNames[self]
}

// OpKinds lists every request kind.
func OpKinds() []OpKind {
	return []OpKind{OpInsert, OpRead, OpUpdate, OpRemove}
}

// Request is one key/value operation. Value is ignored by read and remove.
type Request struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

// Result is the outcome of a successful request. Value is set for reads.
type Result struct {
	Value []byte
}

// Session is a single-threaded handle on a Connection. Sessions move from
// created to active on their first operation and to closed on Close.
// Every call on a closed session fails with ErrInvalidState.
type Session struct {
	conn *Connection

	lock    sync.Mutex
	state   SessionState
	cursors map[*Cursor]struct{}
}

func newSession(conn *Connection) *Session {
	return &Session{
		conn:    conn,
		state:   SessionCreated,
		cursors: make(map[*Cursor]struct{}),
	}
}

func (self *Session) State() SessionState {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.state
}

func (self *Session) Connection() *Connection {
	return self.conn
}

func (self *Session) activate() error {
	self.lock.Lock()
	defer self.lock.Unlock()
	if self.state == SessionClosed {
		return Errorf(ErrInvalidState, "session is closed")
	}
	self.state = SessionActive
	return nil
}

// Create creates the table uri with the given configuration. Creating a
// table again with an identical schema is a no-op; a different schema
// fails with ErrSchema.
func (self *Session) Create(uri, config string) error {
	return self.CreateContext(context.Background(), uri, config)
}

func (self *Session) CreateContext(ctx context.Context, uri, config string) error {
	if err := self.activate(); err != nil {
		return err
	}
	return self.conn.createTable(ctx, uri, config)
}

// OpenCursor opens a cursor on the table uri positioned before the
// first row.
func (self *Session) OpenCursor(uri string) (*Cursor, error) {
	if err := self.activate(); err != nil {
		return nil, err
	}
	t, err := self.conn.lookup(uri)
	if err != nil {
		return nil, err
	}
	cursor := newCursor(self, uri, t)
	self.lock.Lock()
	defer self.lock.Unlock()
	if self.state == SessionClosed {
		return nil, Errorf(ErrInvalidState, "session is closed")
	}
	self.cursors[cursor] = struct{}{}
	return cursor, nil
}

// Execute runs one request against the table uri. Keys and values must
// be well formed for the table formats.
func (self *Session) Execute(ctx context.Context, uri string, req Request) (Result, error) {
	if err := self.activate(); err != nil {
		return Result{}, err
	}
	t, err := self.conn.lookup(uri)
	if err != nil {
		return Result{}, err
	}
	if err := t.schema.KeyFormat.Validate(req.Key); err != nil {
		return Result{}, Wrap(ErrSchema, err, "key for %q", uri)
	}
	store := self.conn.store
	switch req.Kind {
	case OpInsert, OpUpdate:
		if err := t.schema.ValueFormat.Validate(req.Value); err != nil {
			return Result{}, Wrap(ErrSchema, err, "value for %q", uri)
		}
		value := t.compressor.Compress(req.Value)
		if req.Kind == OpInsert {
			err = store.Insert(ctx, t.name, req.Key, value)
		} else {
			err = store.Update(ctx, t.name, req.Key, value)
		}
		return Result{}, err
	case OpRead:
		value, err := store.Search(ctx, t.name, req.Key)
		if err != nil {
			return Result{}, err
		}
		value, err = t.compressor.Decompress(value)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: value}, nil
	case OpRemove:
		return Result{}, store.Remove(ctx, t.name, req.Key)
	}
	return Result{}, Errorf(ErrInvalidState, "unknown request kind %d", req.Kind)
}

// LastKey returns the greatest key of the table uri, or ErrNotFound when
// the table is empty.
func (self *Session) LastKey(ctx context.Context, uri string) ([]byte, error) {
	if err := self.activate(); err != nil {
		return nil, err
	}
	t, err := self.conn.lookup(uri)
	if err != nil {
		return nil, err
	}
	return self.conn.store.Last(ctx, t.name)
}

func (self *Session) scan(ctx context.Context, t *table, after []byte, limit int) ([]KV, error) {
	if err := self.activate(); err != nil {
		return nil, err
	}
	if self.conn.IsClosed() {
		return nil, Errorf(ErrInvalidState, "connection to %q is closed", self.conn.home)
	}
	return self.conn.store.Scan(ctx, t.name, after, limit)
}

// Close closes the open cursors of the session and the session itself.
// Closing a closed session fails with ErrInvalidState.
func (self *Session) Close() error {
	if !self.closeInternal() {
		return Errorf(ErrInvalidState, "session is already closed")
	}
	self.conn.release(self)
	return nil
}

func (self *Session) closeInternal() bool {
	self.lock.Lock()
	if self.state == SessionClosed {
		self.lock.Unlock()
		return false
	}
	self.state = SessionClosed
	cursors := self.cursors
	self.cursors = make(map[*Cursor]struct{})
	self.lock.Unlock()
	for c := range cursors {
		c.markClosed()
	}
	return true
}

func (self *Session) releaseCursor(cursor *Cursor) {
	self.lock.Lock()
	defer self.lock.Unlock()
	delete(self.cursors, cursor)
}
