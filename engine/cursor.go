package engine

import (
	"context"
	"sync/atomic"
)

// CursorBatchSize is the number of rows a cursor fetches from the store
// at a time.
const CursorBatchSize = 128

// Cursor iterates over the rows of one table in key order. Rows are
// fetched lazily in batches. A cursor belongs to one session and is not
// safe for concurrent use.
//
//	cursor, err := session.OpenCursor("table:simple")
//	for cursor.Next() {
//		fmt.Println(string(cursor.Key()), string(cursor.Value()))
//	}
//	err = cursor.Err()
type Cursor struct {
	session *Session
	uri     string
	table   *table
	ctx     context.Context

	closed    int32
	batch     []KV
	pos       int
	exhausted bool
	after     []byte
	key       []byte
	value     []byte
	err       error
}

func newCursor(session *Session, uri string, t *table) *Cursor {
	return &Cursor{
		session: session,
		uri:     uri,
		table:   t,
		ctx:     context.Background(),
		pos:     -1,
	}
}

func (self *Cursor) URI() string {
	return self.uri
}

func (self *Cursor) Schema() *Schema {
	return self.table.schema
}

// WithContext sets the context used by later fetches.
func (self *Cursor) WithContext(ctx context.Context) *Cursor {
	self.ctx = ctx
	return self
}

func (self *Cursor) isClosed() bool {
	return atomic.LoadInt32(&self.closed) != 0
}

// Next advances to the next row. It returns false at the end of the table
// or on error; Err tells the two apart.
func (self *Cursor) Next() bool {
	if self.isClosed() {
		self.err = Errorf(ErrInvalidState, "cursor on %q is closed", self.uri)
		return false
	}
	if self.err != nil {
		return false
	}
	self.key, self.value = nil, nil
	self.pos++
	if self.pos >= len(self.batch) {
		if self.exhausted {
			return false
		}
		rows, err := self.session.scan(self.ctx, self.table, self.after, CursorBatchSize)
		if err != nil {
			self.err = err
			return false
		}
		self.batch = rows
		self.pos = 0
		if len(rows) < CursorBatchSize {
			self.exhausted = true
		}
		if len(rows) == 0 {
			return false
		}
		self.after = rows[len(rows)-1].Key
	}
	row := self.batch[self.pos]
	value, err := self.table.compressor.Decompress(row.Value)
	if err != nil {
		self.err = err
		return false
	}
	self.key = row.Key
	self.value = value
	return true
}

// Key returns the key of the current row, or nil when the cursor is not
// positioned on a row.
func (self *Cursor) Key() []byte {
	return self.key
}

// Value returns the value of the current row, or nil when the cursor is
// not positioned on a row.
func (self *Cursor) Value() []byte {
	return self.value
}

func (self *Cursor) Err() error {
	return self.err
}

// Reset positions the cursor before the first row again.
func (self *Cursor) Reset() error {
	if self.isClosed() {
		return Errorf(ErrInvalidState, "cursor on %q is closed", self.uri)
	}
	self.batch = nil
	self.pos = -1
	self.exhausted = false
	self.after = nil
	self.key, self.value = nil, nil
	self.err = nil
	return nil
}

// Search looks up key and positions the cursor on it.
func (self *Cursor) Search(key []byte) ([]byte, error) {
	if self.isClosed() {
		return nil, Errorf(ErrInvalidState, "cursor on %q is closed", self.uri)
	}
	res, err := self.session.Execute(self.ctx, self.uri, Request{Kind: OpRead, Key: key})
	if err != nil {
		return nil, err
	}
	self.key, self.value = key, res.Value
	return res.Value, nil
}

func (self *Cursor) Insert(key, value []byte) error {
	return self.write(OpInsert, key, value)
}

func (self *Cursor) Update(key, value []byte) error {
	return self.write(OpUpdate, key, value)
}

func (self *Cursor) Remove(key []byte) error {
	return self.write(OpRemove, key, nil)
}

func (self *Cursor) write(kind OpKind, key, value []byte) error {
	if self.isClosed() {
		return Errorf(ErrInvalidState, "cursor on %q is closed", self.uri)
	}
	_, err := self.session.Execute(self.ctx, self.uri, Request{Kind: kind, Key: key, Value: value})
	return err
}

// Close releases the cursor. Closing a closed cursor fails with
// ErrInvalidState.
func (self *Cursor) Close() error {
	if !atomic.CompareAndSwapInt32(&self.closed, 0, 1) {
		return Errorf(ErrInvalidState, "cursor on %q is already closed", self.uri)
	}
	self.session.releaseCursor(self)
	self.batch = nil
	return nil
}

func (self *Cursor) markClosed() {
	atomic.StoreInt32(&self.closed, 1)
}
