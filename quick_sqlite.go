// Package quick_sqlite provides a beginner-friendly SQLite wrapper with
// lifecycle events and automatic reconnection.
package quick_sqlite

import (
	"github.com/wemcdonald/quick_sqlite/pkg/listeners"
	"github.com/wemcdonald/quick_sqlite/pkg/quick_sqlite"
)

// Open creates a new connection to path and connects
func Open(path string) (*quick_sqlite.Connection, error) {
	return quick_sqlite.Open(path)
}

// New creates a connection from cfg
func New(cfg quick_sqlite.Config) (*quick_sqlite.Connection, error) {
	return quick_sqlite.New(cfg)
}

// DefaultConfig returns the default configuration for path
func DefaultConfig(path string) quick_sqlite.Config {
	return quick_sqlite.DefaultConfig(path)
}

// LoadConfig reads a HuJSON config file
func LoadConfig(path string) (quick_sqlite.Config, error) {
	return quick_sqlite.LoadConfig(path)
}

// SaveConfig writes cfg to path
func SaveConfig(path string, cfg quick_sqlite.Config) error {
	return quick_sqlite.SaveConfig(path, cfg)
}

// Where, Limit, Random and FetchAll build operation options.
var (
	Where    = quick_sqlite.Where
	Limit    = quick_sqlite.Limit
	Random   = quick_sqlite.Random
	FetchAll = quick_sqlite.FetchAll
)

// Re-export events for convenience
const (
	EventConnect            = listeners.Connect
	EventReconnect          = listeners.Reconnect
	EventDisconnect         = listeners.Disconnect
	EventError              = listeners.Error
	EventCommit             = listeners.Commit
	EventRollback           = listeners.Rollback
	EventTransactionSuccess = listeners.TransactionSuccess

	MemoryPath = quick_sqlite.MemoryPath
)

// Re-export types for convenience
type (
	Connection   = quick_sqlite.Connection
	Config       = quick_sqlite.Config
	DBError      = quick_sqlite.DBError
	ConnectError = quick_sqlite.ConnectError
	Row          = quick_sqlite.Row
	Filter       = quick_sqlite.Filter
	Event        = listeners.Event
)
