package binding

import (
	"github.com/hhkbp2/workgen/engine"
)

const (
	DriverMemory   = "memory"
	DriverBasic    = "basic"
	DriverPebble   = "pebble"
	DriverMysql    = "mysql"
	DriverSqlite3  = "sqlite3"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// AddBindings registers every driver of this package with the engine.
func AddBindings() {
	engine.Register(DriverMemory, func() engine.Driver {
		return NewMemoryDriver()
	})
	engine.Register(DriverBasic, func() engine.Driver {
		return NewBasicDriver()
	})
	engine.Register(DriverPebble, func() engine.Driver {
		return NewPebbleDriver()
	})
	engine.Register(DriverMysql, func() engine.Driver {
		return NewSQLDriver(mysqlDialect{})
	})
	engine.Register(DriverSqlite3, func() engine.Driver {
		return NewSQLDriver(sqliteDialect{})
	})
	engine.Register(DriverPostgres, func() engine.Driver {
		return NewPostgresDriver()
	})
	engine.Register(DriverMongo, func() engine.Driver {
		return NewMongoDriver()
	})
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	ret := make([]byte, len(b))
	copy(ret, b)
	return ret
}
