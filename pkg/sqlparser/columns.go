package sqlparser

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// columnTypes maps every accepted type token, upper-cased, to the storage
// class written into the CREATE TABLE statement.
var columnTypes = map[string]string{
	"TEXT":    "TEXT",
	"REAL":    "REAL",
	"INTEGER": "INTEGER",
	"NULL":    "NULL",
	"BLOB":    "BLOB",
	"INT":     "INTEGER",
	"STR":     "TEXT",
	"BYTES":   "BLOB",
	"NONE":    "NULL",
	"FLOAT":   "REAL",
}

// ColumnType resolves a type token (case-insensitive, aliases allowed) to its
// storage class.
func ColumnType(token string) (string, error) {
	if t, ok := columnTypes[strings.ToUpper(strings.TrimSpace(token))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColumnType, token)
}

// ValidIdentifier reports whether name may be used as a table or column name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// CheckIdentifier returns an error naming the offending identifier.
func CheckIdentifier(kind, name string) error {
	if !ValidIdentifier(name) {
		return fmt.Errorf("%w: %s name %q", ErrInvalidIdentifier, kind, name)
	}
	return nil
}

// quote wraps an already validated identifier in backticks, which both
// SQLite and the statement parser read as a quoted name.
func quote(name string) string {
	return "`" + name + "`"
}
