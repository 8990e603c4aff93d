package quick_sqlite

import (
	"errors"
	"fmt"
)

// Error codes carried by DBError.
const (
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeQueryFailed     = "QUERY_FAILED"
	CodeLocked          = "DATABASE_LOCKED"
	CodeCommitFailed    = "COMMIT_FAILED"
	CodeRollbackFailed  = "ROLLBACK_FAILED"
	CodeCloseFailed     = "CLOSE_FAILED"
	CodeConfigRead      = "CONFIG_READ_FAILED"
	CodeConfigWrite     = "CONFIG_WRITE_FAILED"
)

// DBError represents a database error
type DBError struct {
	Code    string
	Message string
	Err     error
}

func (e *DBError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DBError) Unwrap() error {
	return e.Err
}

// ConnectError is returned when every reconnection attempt failed and the
// caller required a connection.
type ConnectError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection to %s failed %d times (%v)", e.Path, e.Attempts, e.Err)
	}
	return fmt.Sprintf("connection to %s failed %d times", e.Path, e.Attempts)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IsLocked reports whether err is a DBError for a lock conflict that
// survived its retry.
func IsLocked(err error) bool {
	var dbErr *DBError
	return errors.As(err, &dbErr) && dbErr.Code == CodeLocked
}

// HasCode reports whether err is a DBError with the given code.
func HasCode(err error, code string) bool {
	var dbErr *DBError
	return errors.As(err, &dbErr) && dbErr.Code == code
}

// State is the connection state.
type State int

const (
	Disconnected State = iota
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}
