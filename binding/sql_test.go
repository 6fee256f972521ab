package binding

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/hhkbp2/workgen/engine"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestSQLStatements(t *testing.T) {
	s := newSQLStatements(mysqlDialect{}, "t_simple")
	require.Equal(t, "INSERT INTO `t_simple` (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)", s.insert)
	require.Equal(t, "SELECT v FROM `t_simple` WHERE k = ?", s.search)
	require.Equal(t, "SELECT k, v FROM `t_simple` WHERE k > ? ORDER BY k LIMIT ?", s.after)
	require.Equal(t, "SELECT k FROM `t_simple` ORDER BY k DESC LIMIT 1", s.last)

	s = newSQLStatements(sqliteDialect{}, "t_simple")
	require.Equal(t, `INSERT OR REPLACE INTO "t_simple" (k, v) VALUES (?, ?)`, s.insert)
	require.Equal(t, `DELETE FROM "t_simple" WHERE k = ?`, s.remove)
	require.Equal(t, `SELECT k, v FROM "t_simple" ORDER BY k LIMIT ?`, s.first)

	require.Equal(t,
		`CREATE TABLE IF NOT EXISTS "t_simple" (k bytea NOT NULL PRIMARY KEY, v bytea)`,
		postgresCreateTable("t_simple"))
	require.Equal(t,
		`INSERT INTO "t_simple" (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`,
		postgresUpsert("t_simple"))
}

func TestSQLErrorTranslation(t *testing.T) {
	store := &SQLStore{dialect: mysqlDialect{}}
	require.ErrorIs(t, store.translate(sql.ErrNoRows, "read"), engine.ErrNotFound)
	require.ErrorIs(t, store.translate(&mysql.MySQLError{Number: 1213}, "insert"), engine.ErrConflict)
	require.ErrorIs(t, store.translate(&mysql.MySQLError{Number: 1205}, "insert"), engine.ErrConflict)
	require.ErrorIs(t, store.translate(&mysql.MySQLError{Number: 1146}, "insert"), engine.ErrEngine)
	require.ErrorIs(t, store.translate(mysql.ErrInvalidConn, "insert"), engine.ErrUnavailable)

	store = &SQLStore{dialect: sqliteDialect{}}
	require.ErrorIs(t, store.translate(sqlite3.Error{Code: sqlite3.ErrBusy}, "insert"), engine.ErrConflict)
	require.ErrorIs(t, store.translate(sqlite3.Error{Code: sqlite3.ErrLocked}, "insert"), engine.ErrConflict)
	require.ErrorIs(t, store.translate(errors.New("boom"), "insert"), engine.ErrEngine)

	require.ErrorIs(t, postgresError(&pgconn.PgError{Code: "40001"}, "insert"), engine.ErrConflict)
	require.ErrorIs(t, postgresError(&pgconn.PgError{Code: "40P01"}, "insert"), engine.ErrConflict)
	require.ErrorIs(t, postgresError(&pgconn.PgError{Code: "23505"}, "insert"), engine.ErrEngine)
}

func TestPostgresURL(t *testing.T) {
	config, err := engine.ParseConfig(`user=bench,password=secret,host=db,options="sslmode=require"`,
		NewPostgresDriver().ConfigKeys()...)
	require.Nil(t, err)
	require.Equal(t, "postgres://bench:secret@db:5432/simple?sslmode=require", postgresURL("simple", config))
}
