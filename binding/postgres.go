package binding

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/hhkbp2/workgen/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ConfigPostgresHostDefault     = "127.0.0.1"
	ConfigPostgresPortDefault     = "5432"
	ConfigPostgresUserDefault     = "postgres"
	ConfigPostgresPasswordDefault = ""
	ConfigPostgresOptionsDefault  = "sslmode=disable"
)

// PostgresDriver stores tables in a PostgreSQL database named by home,
// one bytea (k, v) table per workgen table.
type PostgresDriver struct{}

func NewPostgresDriver() *PostgresDriver {
	return &PostgresDriver{}
}

func (self *PostgresDriver) ConfigKeys() []string {
	return []string{
		ConfigSQLHost,
		ConfigSQLPort,
		ConfigSQLUser,
		ConfigSQLPassword,
		ConfigSQLOptions,
	}
}

func postgresURL(database string, config *engine.Config) string {
	u := url.URL{
		Scheme: "postgres",
		User: url.UserPassword(
			config.Get(ConfigSQLUser, ConfigPostgresUserDefault),
			config.Get(ConfigSQLPassword, ConfigPostgresPasswordDefault)),
		Host: fmt.Sprintf("%s:%s",
			config.Get(ConfigSQLHost, ConfigPostgresHostDefault),
			config.Get(ConfigSQLPort, ConfigPostgresPortDefault)),
		Path:     "/" + database,
		RawQuery: config.Get(ConfigSQLOptions, ConfigPostgresOptionsDefault),
	}
	return u.String()
}

func postgresQuote(identifier string) string {
	return pgx.Identifier{identifier}.Sanitize()
}

func (self *PostgresDriver) createDatabase(ctx context.Context, home string, config *engine.Config) error {
	conn, err := pgx.Connect(ctx, postgresURL("postgres", config))
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	var exists bool
	err = conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", home).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = conn.Exec(ctx, "CREATE DATABASE "+postgresQuote(home))
	return err
}

func (self *PostgresDriver) Open(ctx context.Context, home string, config *engine.Config) (engine.Store, error) {
	if len(home) == 0 {
		return nil, engine.Errorf(engine.ErrConnection, "empty home")
	}
	if config.Create {
		if err := self.createDatabase(ctx, home, config); err != nil {
			return nil, engine.Wrap(engine.ErrConnection, err, "create database %q", home)
		}
	}
	poolConfig, err := pgxpool.ParseConfig(postgresURL(home, config))
	if err != nil {
		return nil, engine.Wrap(engine.ErrConnection, err, "postgres config")
	}
	poolConfig.MaxConns = int32(config.SessionMax)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, engine.Wrap(engine.ErrConnection, err, "postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, engine.Wrap(engine.ErrConnection, err, "ping postgres")
	}
	if _, err := pool.Exec(ctx, postgresCreateTable(sqlCatalogTable)); err != nil {
		pool.Close()
		return nil, engine.Wrap(engine.ErrConnection, err, "create catalog")
	}
	return &PostgresStore{pool: pool}, nil
}

func postgresCreateTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s "+
		"(k bytea NOT NULL PRIMARY KEY, v bytea)", postgresQuote(table))
}

func postgresUpsert(table string) string {
	return fmt.Sprintf("INSERT INTO %s (k, v) VALUES ($1, $2) "+
		"ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v", postgresQuote(table))
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Serialization failures and deadlocks.
func postgresIsConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func postgresError(err error, format string, args ...interface{}) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return engine.ErrNotFound
	case postgresIsConflict(err):
		return engine.Wrap(engine.ErrConflict, err, format, args...)
	case pgconn.Timeout(err):
		return engine.Wrap(engine.ErrUnavailable, err, format, args...)
	}
	return engine.Wrap(engine.ErrEngine, err, format, args...)
}

func postgresTable(table string) string {
	return postgresQuote(sqlTablePrefix + table)
}

func (self *PostgresStore) CreateTable(ctx context.Context, table string, schema string) error {
	if _, err := self.pool.Exec(ctx, postgresCreateTable(sqlTablePrefix+table)); err != nil {
		return postgresError(err, "create %q", table)
	}
	_, err := self.pool.Exec(ctx, postgresUpsert(sqlCatalogTable), []byte(table), []byte(schema))
	if err != nil {
		return postgresError(err, "record %q", table)
	}
	return nil
}

func (self *PostgresStore) Tables(ctx context.Context) (map[string]string, error) {
	rows, err := self.pool.Query(ctx, "SELECT k, v FROM "+postgresQuote(sqlCatalogTable))
	if err != nil {
		return nil, postgresError(err, "list tables")
	}
	defer rows.Close()
	ret := make(map[string]string)
	for rows.Next() {
		var name, schema []byte
		if err := rows.Scan(&name, &schema); err != nil {
			return nil, postgresError(err, "list tables")
		}
		ret[string(name)] = string(schema)
	}
	if err := rows.Err(); err != nil {
		return nil, postgresError(err, "list tables")
	}
	return ret, nil
}

func (self *PostgresStore) Insert(ctx context.Context, table string, key, value []byte) error {
	if _, err := self.pool.Exec(ctx, postgresUpsert(sqlTablePrefix+table), key, value); err != nil {
		return postgresError(err, "insert into %q", table)
	}
	return nil
}

func (self *PostgresStore) Update(ctx context.Context, table string, key, value []byte) error {
	return self.Insert(ctx, table, key, value)
}

func (self *PostgresStore) Search(ctx context.Context, table string, key []byte) ([]byte, error) {
	var value []byte
	query := fmt.Sprintf("SELECT v FROM %s WHERE k = $1", postgresTable(table))
	if err := self.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		return nil, postgresError(err, "read from %q", table)
	}
	return value, nil
}

func (self *PostgresStore) Remove(ctx context.Context, table string, key []byte) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE k = $1", postgresTable(table))
	tag, err := self.pool.Exec(ctx, query, key)
	if err != nil {
		return postgresError(err, "remove from %q", table)
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (self *PostgresStore) Scan(ctx context.Context, table string, after []byte, limit int) ([]engine.KV, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if after == nil {
		query := fmt.Sprintf("SELECT k, v FROM %s ORDER BY k LIMIT $1", postgresTable(table))
		rows, err = self.pool.Query(ctx, query, limit)
	} else {
		query := fmt.Sprintf("SELECT k, v FROM %s WHERE k > $1 ORDER BY k LIMIT $2", postgresTable(table))
		rows, err = self.pool.Query(ctx, query, after, limit)
	}
	if err != nil {
		return nil, postgresError(err, "scan %q", table)
	}
	defer rows.Close()
	ret := make([]engine.KV, 0, limit)
	for rows.Next() {
		var kv engine.KV
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, postgresError(err, "scan %q", table)
		}
		ret = append(ret, kv)
	}
	if err := rows.Err(); err != nil {
		return nil, postgresError(err, "scan %q", table)
	}
	return ret, nil
}

func (self *PostgresStore) Last(ctx context.Context, table string) ([]byte, error) {
	var key []byte
	query := fmt.Sprintf("SELECT k FROM %s ORDER BY k DESC LIMIT 1", postgresTable(table))
	if err := self.pool.QueryRow(ctx, query).Scan(&key); err != nil {
		return nil, postgresError(err, "last of %q", table)
	}
	return key, nil
}

func (self *PostgresStore) Close() error {
	self.pool.Close()
	return nil
}
