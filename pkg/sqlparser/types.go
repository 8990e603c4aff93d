package sqlparser

import (
	"errors"

	"github.com/xwb1989/sqlparser"
)

var (
	// ErrEmptyQuery is returned when an empty query is provided
	ErrEmptyQuery = errors.New("empty query")

	// ErrUnsupportedStatement is returned when an unsupported SQL statement is provided
	ErrUnsupportedStatement = errors.New("unsupported SQL statement")

	// ErrInvalidIdentifier is returned for table or column names outside the allow-list
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrUnknownColumnType is returned for column type tokens that are not recognised
	ErrUnknownColumnType = errors.New("unknown column type")

	// ErrColumnCount is returned when column names and types differ in length
	ErrColumnCount = errors.New("column names and types must have the same length")

	// ErrInvalidArgument is returned for other malformed statement arguments
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStatementMismatch is returned when an assembled statement does not
	// parse back to the statement that was requested
	ErrStatementMismatch = errors.New("statement does not match request")
)

// StatementType represents the type of SQL statement
type StatementType int

const (
	StatementUnknown StatementType = iota
	StatementSelect
	StatementInsert
	StatementUpdate
	StatementDelete
	StatementCreate
	StatementDrop
)

// String implements the Stringer interface for StatementType
func (s StatementType) String() string {
	switch s {
	case StatementSelect:
		return "SELECT"
	case StatementInsert:
		return "INSERT"
	case StatementUpdate:
		return "UPDATE"
	case StatementDelete:
		return "DELETE"
	case StatementCreate:
		return "CREATE"
	case StatementDrop:
		return "DROP"
	default:
		return "UNKNOWN"
	}
}

// SQLStatement represents a parsed SQL statement
type SQLStatement struct {
	Type    StatementType
	Tables  []string
	Columns []string
	Where   string
	AST     sqlparser.Statement
}

// Statement is an assembled statement ready to execute. Values are never
// part of Query; they are carried in Args and bound by the driver.
type Statement struct {
	Type  StatementType
	Table string
	Query string
	Args  []any
}

// Condition is an equality filter on one column.
type Condition struct {
	Column string
	Value  any
}

// SelectSpec describes a SELECT statement.
type SelectSpec struct {
	Table   string
	Columns []string
	Where   *Condition
	Limit   int
	Random  bool
}
