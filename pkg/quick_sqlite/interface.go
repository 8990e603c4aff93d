package quick_sqlite

import "github.com/wemcdonald/quick_sqlite/pkg/listeners"

// DB defines the operations offered by a Connection
type DB interface {
	// Lifecycle
	On(event listeners.Event, callback any) error
	Connect() error
	Close() error
	State() State

	// Transactions
	Commit() error
	Rollback() error

	// Tables
	CreateTable(name string, columns, types []string) error
	DropTable(name string) error
	Tables() ([]string, error)

	// Rows
	Insert(table string, values ...any) error
	Delete(table string, filter ...Filter) error
	Update(table, column string, value any, filter ...Filter) error
	Select(table string, columns []string, opts ...SelectOption) (any, error)
	SelectOne(table string, columns []string, opts ...SelectOption) (Row, error)
	SelectAll(table string, columns []string, opts ...SelectOption) ([]Row, error)
}

var _ DB = (*Connection)(nil)
