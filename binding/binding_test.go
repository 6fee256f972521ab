package binding

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hhkbp2/workgen/engine"
	"github.com/stretchr/testify/require"
)

func init() {
	AddBindings()
}

// runStoreTests exercises a driver through the engine adapter.
func runStoreTests(t *testing.T, driver, home, extra string) {
	config := "create"
	if len(extra) > 0 {
		config += "," + extra
	}
	conn, err := engine.Open(driver, home, config)
	require.Nil(t, err)
	session, err := conn.OpenSession()
	require.Nil(t, err)

	uri := "table:store"
	require.Nil(t, session.Create(uri, "key_format=S,value_format=S,block_compressor=snappy"))
	ctx := context.Background()
	_, err = session.LastKey(ctx, uri)
	require.ErrorIs(t, err, engine.ErrNotFound)

	total := engine.CursorBatchSize*2 + 3
	for i := total - 1; i >= 0; i-- {
		_, err := session.Execute(ctx, uri, engine.Request{
			Kind:  engine.OpInsert,
			Key:   []byte(fmt.Sprintf("%05d", i)),
			Value: []byte(strings.Repeat("v", i%7+1)),
		})
		require.Nil(t, err)
	}
	res, err := session.Execute(ctx, uri, engine.Request{Kind: engine.OpRead, Key: []byte("00003")})
	require.Nil(t, err)
	require.Equal(t, "vvvv", string(res.Value))

	_, err = session.Execute(ctx, uri, engine.Request{Kind: engine.OpUpdate, Key: []byte("00003"), Value: []byte("x")})
	require.Nil(t, err)
	res, err = session.Execute(ctx, uri, engine.Request{Kind: engine.OpRead, Key: []byte("00003")})
	require.Nil(t, err)
	require.Equal(t, "x", string(res.Value))

	_, err = session.Execute(ctx, uri, engine.Request{Kind: engine.OpRemove, Key: []byte("00004")})
	require.Nil(t, err)
	_, err = session.Execute(ctx, uri, engine.Request{Kind: engine.OpRemove, Key: []byte("00004")})
	require.ErrorIs(t, err, engine.ErrNotFound)
	_, err = session.Execute(ctx, uri, engine.Request{Kind: engine.OpRead, Key: []byte("00004")})
	require.ErrorIs(t, err, engine.ErrNotFound)

	last, err := session.LastKey(ctx, uri)
	require.Nil(t, err)
	require.Equal(t, fmt.Sprintf("%05d", total-1), string(last))

	cursor, err := session.OpenCursor(uri)
	require.Nil(t, err)
	count := 0
	var prev string
	for cursor.Next() {
		key := string(cursor.Key())
		require.True(t, key > prev)
		prev = key
		count++
	}
	require.Nil(t, cursor.Err())
	require.Equal(t, total-1, count)
	require.Nil(t, cursor.Reset())
	require.True(t, cursor.Next())
	require.Equal(t, "00000", string(cursor.Key()))
	require.Equal(t, "v", string(cursor.Value()))
	require.Nil(t, conn.Close())

	// reopen without create sees the same catalog and rows
	conn, err = engine.Open(driver, home, extra)
	require.Nil(t, err)
	defer conn.Close()
	schema, err := conn.Schema(uri)
	require.Nil(t, err)
	require.Equal(t, engine.FormatString, schema.KeyFormat)
	require.Equal(t, engine.CompressorSnappy, schema.Compressor)
	session, err = conn.OpenSession()
	require.Nil(t, err)
	res, err = session.Execute(ctx, uri, engine.Request{Kind: engine.OpRead, Key: []byte("00003")})
	require.Nil(t, err)
	require.Equal(t, "x", string(res.Value))
}

func TestMemoryStore(t *testing.T) {
	home := "TestMemoryStore"
	defer DropMemoryHome(home)
	runStoreTests(t, DriverMemory, home, "")
}

func TestMemoryStoreMissingHome(t *testing.T) {
	_, err := engine.Open(DriverMemory, "TestMemoryStoreMissingHome", "")
	require.ErrorIs(t, err, engine.ErrConnection)
}

func TestBasicStore(t *testing.T) {
	home := "TestBasicStore"
	defer DropMemoryHome(home)
	runStoreTests(t, DriverBasic, home, "verbose=false,simulate_delay=1")
}

func TestBasicStoreBadDelay(t *testing.T) {
	_, err := engine.Open(DriverBasic, "TestBasicStoreBadDelay", "create,simulate_delay=soon")
	require.ErrorIs(t, err, engine.ErrConnection)
}

func TestPebbleStore(t *testing.T) {
	runStoreTests(t, DriverPebble, filepath.Join(t.TempDir(), "pebble"), "cache_size=8M")
}

func TestPebbleStoreMissingHome(t *testing.T) {
	_, err := engine.Open(DriverPebble, filepath.Join(t.TempDir(), "missing"), "")
	require.ErrorIs(t, err, engine.ErrConnection)
}

func TestSqliteStore(t *testing.T) {
	home := filepath.Join(t.TempDir(), "sqlite")
	conn, err := engine.Open(DriverSqlite3, home, "create")
	if err != nil && strings.Contains(err.Error(), "cgo") {
		t.Skip("sqlite3 requires cgo")
	}
	require.Nil(t, err)
	require.Nil(t, conn.Close())
	runStoreTests(t, DriverSqlite3, home, "")
}

func TestPebbleTableBounds(t *testing.T) {
	lower, upper := pebbleTableBounds("a")
	require.Equal(t, "t\x00a\x00", string(lower))
	require.Equal(t, "t\x00a\x01", string(upper))
	key := pebbleTableKey("a", []byte("k"))
	require.True(t, string(key) >= string(lower) && string(key) < string(upper))
	// a table whose name extends another's stays out of its range
	other := pebbleTableKey("ab", []byte("k"))
	require.False(t, string(other) >= string(lower) && string(other) < string(upper))
}
