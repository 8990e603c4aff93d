// Package engine adapts the embedded SQL drivers to the handle used by the
// connection manager.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	// DriverCGO is the mattn/go-sqlite3 driver.
	DriverCGO = "sqlite3"
	// DriverPure is the modernc.org/sqlite driver.
	DriverPure = "sqlite"

	// MemoryPath denotes a transient, non-persistent database.
	MemoryPath = ":memory:"
)

// lockedMessage is matched case-insensitively against engine error text.
const lockedMessage = "database is locked"

// Opener opens a handle to the database at dataSourceName.
type Opener func(driverName, dataSourceName string) (*sqlx.DB, error)

// SupportedDriver reports whether name is a registered engine driver.
func SupportedDriver(name string) bool {
	switch name {
	case DriverCGO, DriverPure:
		return true
	default:
		return false
	}
}

// Open opens the database and pings it so an unreachable resource fails here
// rather than on first use. The pool is pinned to one connection: a
// ":memory:" database exists only on the connection that created it, and a
// pending transaction must see the same connection as later reads.
func Open(driverName, dataSourceName string) (*sqlx.DB, error) {
	if !SupportedDriver(driverName) {
		return nil, fmt.Errorf("unsupported driver %q", driverName)
	}

	db, err := sqlx.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// IsLocked reports whether err is a lock conflict reported by the engine.
func IsLocked(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return true
		}
	}

	return strings.Contains(strings.ToLower(err.Error()), lockedMessage)
}
