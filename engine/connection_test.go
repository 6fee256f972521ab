package engine_test

import (
	"context"
	"testing"

	"github.com/hhkbp2/workgen/binding"
	"github.com/hhkbp2/workgen/engine"
	"github.com/stretchr/testify/require"
)

func init() {
	binding.AddBindings()
}

func openMemory(t *testing.T, config string) *engine.Connection {
	home := t.Name()
	t.Cleanup(func() {
		binding.DropMemoryHome(home)
	})
	conn, err := engine.Open(binding.DriverMemory, home, config)
	require.Nil(t, err)
	return conn
}

func TestOpenErrors(t *testing.T) {
	_, err := engine.Open("no-such-driver", "x", "create")
	require.ErrorIs(t, err, engine.ErrConnection)
	_, err = engine.Open(binding.DriverMemory, "", "create")
	require.ErrorIs(t, err, engine.ErrConnection)
	_, err = engine.Open(binding.DriverMemory, "x", "create,bogus=1")
	require.ErrorIs(t, err, engine.ErrConnection)
	require.Contains(t, engine.Drivers(), binding.DriverPebble)
}

func TestConnectionLifecycle(t *testing.T) {
	conn := openMemory(t, "create,cache_size=1G")
	session, err := conn.OpenSession()
	require.Nil(t, err)
	require.Equal(t, engine.SessionCreated, session.State())
	require.Nil(t, session.Create("table:simple", "key_format=S,value_format=S"))
	require.Equal(t, engine.SessionActive, session.State())
	cursor, err := session.OpenCursor("table:simple")
	require.Nil(t, err)

	require.Nil(t, conn.Close())
	require.True(t, conn.IsClosed())
	require.Equal(t, engine.SessionClosed, session.State())
	require.False(t, cursor.Next())
	require.ErrorIs(t, cursor.Err(), engine.ErrInvalidState)
	require.ErrorIs(t, cursor.Close(), engine.ErrInvalidState)
	require.ErrorIs(t, session.Close(), engine.ErrInvalidState)
	_, err = session.Execute(context.Background(), "table:simple", engine.Request{Kind: engine.OpRead, Key: []byte("k")})
	require.ErrorIs(t, err, engine.ErrInvalidState)
	_, err = conn.OpenSession()
	require.ErrorIs(t, err, engine.ErrInvalidState)
	require.ErrorIs(t, conn.Close(), engine.ErrInvalidState)
}

func TestSessionClose(t *testing.T) {
	conn := openMemory(t, "create,session_max=1")
	defer conn.Close()
	session, err := conn.OpenSession()
	require.Nil(t, err)
	_, err = conn.OpenSession()
	require.ErrorIs(t, err, engine.ErrConnection)
	require.Nil(t, session.Close())
	require.ErrorIs(t, session.Create("table:t", ""), engine.ErrInvalidState)
	_, err = session.OpenCursor("table:t")
	require.ErrorIs(t, err, engine.ErrInvalidState)
	// the slot is free again
	session, err = conn.OpenSession()
	require.Nil(t, err)
	require.Nil(t, session.Close())
}

func TestCreateTable(t *testing.T) {
	conn := openMemory(t, "create")
	defer conn.Close()
	session, err := conn.OpenSession()
	require.Nil(t, err)
	require.Nil(t, session.Create("table:simple", "key_format=S,value_format=S"))
	require.Nil(t, session.Create("table:simple", "value_format=S,key_format=S"))
	require.ErrorIs(t, session.Create("table:simple", "key_format=q,value_format=S"), engine.ErrSchema)
	require.ErrorIs(t, session.Create("table:other", "key_format=Z"), engine.ErrSchema)
	require.ErrorIs(t, session.Create("simple", "key_format=S"), engine.ErrSchema)
	tables, err := conn.Tables()
	require.Nil(t, err)
	require.Equal(t, []string{"table:simple"}, tables)

	_, err = session.OpenCursor("table:missing")
	require.ErrorIs(t, err, engine.ErrSchema)
	_, err = session.Execute(context.Background(), "table:missing", engine.Request{Kind: engine.OpRead, Key: []byte("k")})
	require.ErrorIs(t, err, engine.ErrSchema)
}

func TestExecuteValidatesFormats(t *testing.T) {
	conn := openMemory(t, "create")
	defer conn.Close()
	session, err := conn.OpenSession()
	require.Nil(t, err)
	require.Nil(t, session.Create("table:nums", "key_format=q,value_format=S"))
	ctx := context.Background()
	_, err = session.Execute(ctx, "table:nums", engine.Request{Kind: engine.OpInsert, Key: []byte("abc"), Value: []byte("v")})
	require.ErrorIs(t, err, engine.ErrSchema)
	key := engine.FormatInt.PackInt(-3)
	_, err = session.Execute(ctx, "table:nums", engine.Request{Kind: engine.OpInsert, Key: key, Value: []byte("a\x00b")})
	require.ErrorIs(t, err, engine.ErrSchema)
	_, err = session.Execute(ctx, "table:nums", engine.Request{Kind: engine.OpInsert, Key: key, Value: []byte("v")})
	require.Nil(t, err)
}

func TestCursor(t *testing.T) {
	conn := openMemory(t, "create")
	defer conn.Close()
	session, err := conn.OpenSession()
	require.Nil(t, err)
	require.Nil(t, session.Create("table:c", "key_format=r,value_format=S,block_compressor=zstd"))
	cursor, err := session.OpenCursor("table:c")
	require.Nil(t, err)
	require.False(t, cursor.Next())
	require.Nil(t, cursor.Err())
	require.Nil(t, cursor.Key())

	total := engine.CursorBatchSize + 1
	for i := 1; i <= total; i++ {
		require.Nil(t, cursor.Insert(engine.FormatRecno.PackInt(int64(i)), []byte("value")))
	}
	require.Nil(t, cursor.Reset())
	n := int64(0)
	for cursor.Next() {
		n++
		v, err := engine.FormatRecno.UnpackInt(cursor.Key())
		require.Nil(t, err)
		require.Equal(t, n, v)
		require.Equal(t, "value", string(cursor.Value()))
	}
	require.Nil(t, cursor.Err())
	require.Equal(t, int64(total), n)

	value, err := cursor.Search(engine.FormatRecno.PackInt(5))
	require.Nil(t, err)
	require.Equal(t, "value", string(value))
	require.Nil(t, cursor.Update(engine.FormatRecno.PackInt(5), []byte("five")))
	require.Nil(t, cursor.Remove(engine.FormatRecno.PackInt(6)))
	_, err = cursor.Search(engine.FormatRecno.PackInt(6))
	require.ErrorIs(t, err, engine.ErrNotFound)
	require.Nil(t, cursor.Close())
	require.ErrorIs(t, cursor.Reset(), engine.ErrInvalidState)
}
