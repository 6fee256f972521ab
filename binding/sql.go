package binding

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/hhkbp2/workgen/engine"
	"github.com/mattn/go-sqlite3"
)

const (
	ConfigSQLHost     = "host"
	ConfigSQLPort     = "port"
	ConfigSQLUser     = "user"
	ConfigSQLPassword = "password"
	ConfigSQLOptions  = "options"

	ConfigMysqlHostDefault     = "127.0.0.1"
	ConfigMysqlPortDefault     = "3306"
	ConfigMysqlUserDefault     = "root"
	ConfigMysqlPasswordDefault = ""
	ConfigMysqlOptionsDefault  = "charset=utf8"

	SqliteFileName = "workgen.db"

	sqlCatalogTable = "workgen_catalog"
	sqlTablePrefix  = "t_"
)

// sqlDialect holds what differs between SQL engines behind database/sql.
type sqlDialect interface {
	name() string
	// dataSource prepares home and returns the data source name to open.
	dataSource(ctx context.Context, home string, config *engine.Config) (string, error)
	configKeys() []string
	quote(identifier string) string
	createTable(table string) string
	createCatalog() string
	upsert(table string) string
	isConflict(err error) bool
}

type sqlStatements struct {
	insert string
	search string
	remove string
	first  string
	after  string
	last   string
}

func newSQLStatements(d sqlDialect, table string) *sqlStatements {
	t := d.quote(table)
	return &sqlStatements{
		insert: d.upsert(table),
		search: fmt.Sprintf("SELECT v FROM %s WHERE k = ?", t),
		remove: fmt.Sprintf("DELETE FROM %s WHERE k = ?", t),
		first:  fmt.Sprintf("SELECT k, v FROM %s ORDER BY k LIMIT ?", t),
		after:  fmt.Sprintf("SELECT k, v FROM %s WHERE k > ? ORDER BY k LIMIT ?", t),
		last:   fmt.Sprintf("SELECT k FROM %s ORDER BY k DESC LIMIT 1", t),
	}
}

// SQLDriver stores every table as a two column (k, v) SQL table.
type SQLDriver struct {
	dialect sqlDialect
}

func NewSQLDriver(dialect sqlDialect) *SQLDriver {
	return &SQLDriver{
		dialect: dialect,
	}
}

func (self *SQLDriver) ConfigKeys() []string {
	return self.dialect.configKeys()
}

func (self *SQLDriver) Open(ctx context.Context, home string, config *engine.Config) (engine.Store, error) {
	if len(home) == 0 {
		return nil, engine.Errorf(engine.ErrConnection, "empty home")
	}
	dsn, err := self.dialect.dataSource(ctx, home, config)
	if err != nil {
		return nil, engine.Wrap(engine.ErrConnection, err, "%s at %q", self.dialect.name(), home)
	}
	db, err := sql.Open(self.dialect.name(), dsn)
	if err != nil {
		return nil, engine.Wrap(engine.ErrConnection, err, "open %s", self.dialect.name())
	}
	db.SetMaxOpenConns(config.SessionMax)
	db.SetMaxIdleConns(config.SessionMax)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, engine.Wrap(engine.ErrConnection, err, "ping %s", self.dialect.name())
	}
	if _, err := db.ExecContext(ctx, self.dialect.createCatalog()); err != nil {
		db.Close()
		return nil, engine.Wrap(engine.ErrConnection, err, "create catalog")
	}
	return &SQLStore{
		dialect:    self.dialect,
		db:         db,
		statements: make(map[string]*sqlStatements),
	}, nil
}

type SQLStore struct {
	dialect    sqlDialect
	db         *sql.DB
	lock       sync.RWMutex
	statements map[string]*sqlStatements
}

func (self *SQLStore) stmts(table string) *sqlStatements {
	self.lock.RLock()
	s, ok := self.statements[table]
	self.lock.RUnlock()
	if ok {
		return s
	}
	s = newSQLStatements(self.dialect, sqlTablePrefix+table)
	self.lock.Lock()
	self.statements[table] = s
	self.lock.Unlock()
	return s
}

func (self *SQLStore) translate(err error, format string, args ...interface{}) error {
	switch {
	case err == sql.ErrNoRows:
		return engine.ErrNotFound
	case self.dialect.isConflict(err):
		return engine.Wrap(engine.ErrConflict, err, format, args...)
	case err == driver.ErrBadConn || err == mysql.ErrInvalidConn:
		return engine.Wrap(engine.ErrUnavailable, err, format, args...)
	}
	return engine.Wrap(engine.ErrEngine, err, format, args...)
}

func (self *SQLStore) CreateTable(ctx context.Context, table string, schema string) error {
	if _, err := self.db.ExecContext(ctx, self.dialect.createTable(sqlTablePrefix+table)); err != nil {
		return self.translate(err, "create %q", table)
	}
	catalog := self.dialect.upsert(sqlCatalogTable)
	if _, err := self.db.ExecContext(ctx, catalog, []byte(table), []byte(schema)); err != nil {
		return self.translate(err, "record %q", table)
	}
	return nil
}

func (self *SQLStore) Tables(ctx context.Context) (map[string]string, error) {
	query := fmt.Sprintf("SELECT k, v FROM %s", self.dialect.quote(sqlCatalogTable))
	rows, err := self.db.QueryContext(ctx, query)
	if err != nil {
		return nil, self.translate(err, "list tables")
	}
	defer rows.Close()
	ret := make(map[string]string)
	for rows.Next() {
		var name, schema []byte
		if err := rows.Scan(&name, &schema); err != nil {
			return nil, self.translate(err, "list tables")
		}
		ret[string(name)] = string(schema)
	}
	if err := rows.Err(); err != nil {
		return nil, self.translate(err, "list tables")
	}
	return ret, nil
}

func (self *SQLStore) Insert(ctx context.Context, table string, key, value []byte) error {
	if _, err := self.db.ExecContext(ctx, self.stmts(table).insert, key, value); err != nil {
		return self.translate(err, "insert into %q", table)
	}
	return nil
}

func (self *SQLStore) Update(ctx context.Context, table string, key, value []byte) error {
	if _, err := self.db.ExecContext(ctx, self.stmts(table).insert, key, value); err != nil {
		return self.translate(err, "update %q", table)
	}
	return nil
}

func (self *SQLStore) Search(ctx context.Context, table string, key []byte) ([]byte, error) {
	var value []byte
	err := self.db.QueryRowContext(ctx, self.stmts(table).search, key).Scan(&value)
	if err != nil {
		return nil, self.translate(err, "read from %q", table)
	}
	return value, nil
}

func (self *SQLStore) Remove(ctx context.Context, table string, key []byte) error {
	res, err := self.db.ExecContext(ctx, self.stmts(table).remove, key)
	if err != nil {
		return self.translate(err, "remove from %q", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return self.translate(err, "remove from %q", table)
	}
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (self *SQLStore) Scan(ctx context.Context, table string, after []byte, limit int) ([]engine.KV, error) {
	var (
		rows *sql.Rows
		err  error
	)
	s := self.stmts(table)
	if after == nil {
		rows, err = self.db.QueryContext(ctx, s.first, limit)
	} else {
		rows, err = self.db.QueryContext(ctx, s.after, after, limit)
	}
	if err != nil {
		return nil, self.translate(err, "scan %q", table)
	}
	defer rows.Close()
	ret := make([]engine.KV, 0, limit)
	for rows.Next() {
		var kv engine.KV
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, self.translate(err, "scan %q", table)
		}
		ret = append(ret, kv)
	}
	if err := rows.Err(); err != nil {
		return nil, self.translate(err, "scan %q", table)
	}
	return ret, nil
}

func (self *SQLStore) Last(ctx context.Context, table string) ([]byte, error) {
	var key []byte
	if err := self.db.QueryRowContext(ctx, self.stmts(table).last).Scan(&key); err != nil {
		return nil, self.translate(err, "last of %q", table)
	}
	return key, nil
}

func (self *SQLStore) Close() error {
	return self.db.Close()
}

type mysqlDialect struct{}

func (mysqlDialect) name() string {
	return "mysql"
}

func (mysqlDialect) configKeys() []string {
	return []string{
		ConfigSQLHost,
		ConfigSQLPort,
		ConfigSQLUser,
		ConfigSQLPassword,
		ConfigSQLOptions,
	}
}

// dataSource treats home as the database name.
func (self mysqlDialect) dataSource(ctx context.Context, home string, config *engine.Config) (string, error) {
	host := config.Get(ConfigSQLHost, ConfigMysqlHostDefault)
	port, err := strconv.ParseInt(config.Get(ConfigSQLPort, ConfigMysqlPortDefault), 0, 32)
	if err != nil {
		return "", err
	}
	user := config.Get(ConfigSQLUser, ConfigMysqlUserDefault)
	password := config.Get(ConfigSQLPassword, ConfigMysqlPasswordDefault)
	options := config.Get(ConfigSQLOptions, ConfigMysqlOptionsDefault)
	server := fmt.Sprintf("%s:%s@tcp(%s:%d)/", user, password, host, port)
	if config.Create {
		db, err := sql.Open("mysql", server+"?"+options)
		if err != nil {
			return "", err
		}
		defer db.Close()
		if _, err := db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+self.quote(home)); err != nil {
			return "", err
		}
	}
	return server + home + "?" + options, nil
}

func (mysqlDialect) quote(identifier string) string {
	return "`" + identifier + "`"
}

func (self mysqlDialect) createTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s "+
		"(k VARBINARY(767) NOT NULL PRIMARY KEY, v LONGBLOB)", self.quote(table))
}

func (self mysqlDialect) createCatalog() string {
	return self.createTable(sqlCatalogTable)
}

func (self mysqlDialect) upsert(table string) string {
	return fmt.Sprintf("INSERT INTO %s (k, v) VALUES (?, ?) "+
		"ON DUPLICATE KEY UPDATE v = VALUES(v)", self.quote(table))
}

// Deadlocks and lock wait timeouts.
func (mysqlDialect) isConflict(err error) bool {
	e, ok := err.(*mysql.MySQLError)
	if !ok {
		return false
	}
	return e.Number == 1213 || e.Number == 1205
}

type sqliteDialect struct{}

func (sqliteDialect) name() string {
	return "sqlite3"
}

func (sqliteDialect) configKeys() []string {
	return nil
}

// dataSource treats home as a directory holding the database file.
func (sqliteDialect) dataSource(_ context.Context, home string, config *engine.Config) (string, error) {
	file := filepath.Join(home, SqliteFileName)
	if config.Create {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", err
		}
	} else if _, err := os.Stat(file); err != nil {
		return "", err
	}
	cacheKiB := config.CacheSize >> 10
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_cache_size=-%d",
		file, cacheKiB), nil
}

func (sqliteDialect) quote(identifier string) string {
	return "\"" + identifier + "\""
}

func (self sqliteDialect) createTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s "+
		"(k BLOB NOT NULL PRIMARY KEY, v BLOB)", self.quote(table))
}

func (self sqliteDialect) createCatalog() string {
	return self.createTable(sqlCatalogTable)
}

func (self sqliteDialect) upsert(table string) string {
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (k, v) VALUES (?, ?)", self.quote(table))
}

func (sqliteDialect) isConflict(err error) bool {
	e, ok := err.(sqlite3.Error)
	if !ok {
		return false
	}
	return e.Code == sqlite3.ErrBusy || e.Code == sqlite3.ErrLocked
}
