package quick_sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wemcdonald/quick_sqlite/internal/engine"
	"github.com/wemcdonald/quick_sqlite/pkg/listeners"
	"github.com/wemcdonald/quick_sqlite/pkg/sqlparser"
)

// Operation names passed to the transaction_success and error events.
const (
	opCreateTable = "create_table"
	opDropTable   = "drop_table"
	opInsert      = "insert"
	opDelete      = "delete"
	opUpdate      = "update"
	opSelect      = "select"
	opCommit      = "commit"
	opRollback    = "rollback"
	opTables      = "tables"
)

// Filter restricts an operation to rows where Column equals Value.
type Filter struct {
	Column string
	Value  any
}

// Where returns a Filter matching rows where column equals value.
func Where(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

func (f Filter) condition() (*sqlparser.Condition, error) {
	switch {
	case f.Column == "" && f.Value == nil:
		return nil, nil
	case f.Column == "":
		return nil, fmt.Errorf("%w: filter value given without a filter column", sqlparser.ErrInvalidArgument)
	case f.Value == nil:
		return nil, fmt.Errorf("%w: filter column %q given without a filter value", sqlparser.ErrInvalidArgument, f.Column)
	}
	return &sqlparser.Condition{Column: f.Column, Value: f.Value}, nil
}

func (f Filter) apply(o *selectOptions) {
	o.filters = append(o.filters, f)
}

func singleCondition(filters []Filter) (*sqlparser.Condition, error) {
	switch len(filters) {
	case 0:
		return nil, nil
	case 1:
		return filters[0].condition()
	default:
		return nil, fmt.Errorf("%w: at most one filter is supported, got %d", sqlparser.ErrInvalidArgument, len(filters))
	}
}

// SelectOption configures Select.
type SelectOption interface {
	apply(*selectOptions)
}

type selectOptions struct {
	filters  []Filter
	limit    int
	limitSet bool
	random   bool
	fetchAll bool
}

type limitOption int

func (l limitOption) apply(o *selectOptions) {
	o.limit = int(l)
	o.limitSet = true
}

type randomOption struct{}

func (randomOption) apply(o *selectOptions) { o.random = true }

type fetchAllOption struct{}

func (fetchAllOption) apply(o *selectOptions) { o.fetchAll = true }

// Limit caps the number of rows returned. n must be positive.
func Limit(n int) SelectOption {
	return limitOption(n)
}

// Random returns rows in random order.
func Random() SelectOption {
	return randomOption{}
}

// FetchAll makes Select return every matching row instead of the first.
func FetchAll() SelectOption {
	return fetchAllOption{}
}

// CreateTable creates table if it does not exist. columns and types must
// have the same length; each type is one of TEXT, REAL, INTEGER, NULL, BLOB
// or the aliases INT, STR, BYTES, NONE, FLOAT (case-insensitive).
func (c *Connection) CreateTable(table string, columns, types []string) error {
	if err := c.checkIntegrity(); err != nil {
		return err
	}
	stmt, err := sqlparser.CreateTable(table, columns, types)
	if err != nil {
		return c.invalid(opCreateTable, err)
	}
	return c.exec(opCreateTable, stmt)
}

// DropTable drops table.
func (c *Connection) DropTable(table string) error {
	if err := c.checkIntegrity(); err != nil {
		return err
	}
	stmt, err := sqlparser.DropTable(table)
	if err != nil {
		return c.invalid(opDropTable, err)
	}
	return c.exec(opDropTable, stmt)
}

// Insert adds one row holding values, in column order.
func (c *Connection) Insert(table string, values ...any) error {
	if err := c.checkIntegrity(); err != nil {
		return err
	}
	stmt, err := sqlparser.Insert(table, values)
	if err != nil {
		return c.invalid(opInsert, err)
	}
	return c.exec(opInsert, stmt)
}

// Delete removes the rows matching filter, or every row without one.
func (c *Connection) Delete(table string, filter ...Filter) error {
	if err := c.checkIntegrity(); err != nil {
		return err
	}
	cond, err := singleCondition(filter)
	if err != nil {
		return c.invalid(opDelete, err)
	}
	stmt, err := sqlparser.Delete(table, cond)
	if err != nil {
		return c.invalid(opDelete, err)
	}
	return c.exec(opDelete, stmt)
}

// Update sets column to value on the rows matching filter, or on every row
// without one.
func (c *Connection) Update(table, column string, value any, filter ...Filter) error {
	if err := c.checkIntegrity(); err != nil {
		return err
	}
	cond, err := singleCondition(filter)
	if err != nil {
		return c.invalid(opUpdate, err)
	}
	stmt, err := sqlparser.Update(table, column, value, cond)
	if err != nil {
		return c.invalid(opUpdate, err)
	}
	return c.exec(opUpdate, stmt)
}

// Select reads columns from table; no columns, or "*", reads every column.
// It returns a Row (nil when nothing matches), or a []Row with FetchAll.
func (c *Connection) Select(table string, columns []string, opts ...SelectOption) (any, error) {
	var o selectOptions
	for _, opt := range opts {
		opt.apply(&o)
	}

	rows, err := c.query(table, columns, o)
	if err != nil {
		return nil, err
	}
	if o.fetchAll {
		return rows, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// SelectOne returns the first matching row, or nil when nothing matches.
func (c *Connection) SelectOne(table string, columns []string, opts ...SelectOption) (Row, error) {
	var o selectOptions
	for _, opt := range opts {
		opt.apply(&o)
	}
	o.fetchAll = false

	rows, err := c.query(table, columns, o)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// SelectAll returns every matching row.
func (c *Connection) SelectAll(table string, columns []string, opts ...SelectOption) ([]Row, error) {
	var o selectOptions
	for _, opt := range opts {
		opt.apply(&o)
	}
	o.fetchAll = true
	return c.query(table, columns, o)
}

// Tables lists the user tables in the database, sorted by name.
func (c *Connection) Tables() ([]string, error) {
	if err := c.checkIntegrity(); err != nil {
		return nil, err
	}

	var names []string
	err := c.withLockRetry(opTables, func() error {
		names = names[:0]
		return sqlx.Select(c.target(), &names,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	})
	if err != nil {
		return nil, c.fail(opTables, c.engineError(err))
	}
	return names, nil
}

func (c *Connection) query(table string, columns []string, o selectOptions) ([]Row, error) {
	if err := c.checkIntegrity(); err != nil {
		return nil, err
	}

	cond, err := singleCondition(o.filters)
	if err != nil {
		return nil, c.invalid(opSelect, err)
	}
	if o.limitSet && o.limit <= 0 {
		return nil, c.invalid(opSelect, fmt.Errorf("%w: limit must be positive, got %d", sqlparser.ErrInvalidArgument, o.limit))
	}

	stmt, err := sqlparser.Select(sqlparser.SelectSpec{
		Table:   table,
		Columns: columns,
		Where:   cond,
		Limit:   o.limit,
		Random:  o.random,
	})
	if err != nil {
		return nil, c.invalid(opSelect, err)
	}
	if err := c.parser.Verify(stmt); err != nil {
		return nil, c.invalid(opSelect, err)
	}

	var result []Row
	err = c.withLockRetry(opSelect, func() error {
		result = result[:0]
		return c.scan(stmt, o.fetchAll, &result)
	})
	if err != nil {
		return nil, c.fail(opSelect, c.engineError(err))
	}

	c.logger.Debug("statement executed", "operation", opSelect, "query", stmt.Query, "rows", len(result))
	c.registry.Dispatch(listeners.TransactionSuccess, c.cfg.Path, opSelect)
	return result, nil
}

func (c *Connection) scan(stmt *sqlparser.Statement, all bool, out *[]Row) error {
	rows, err := c.target().Queryx(stmt.Query, stmt.Args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return err
		}
		*out = append(*out, Row(row))
		if !all {
			break
		}
	}
	return rows.Err()
}

// exec runs a mutating statement and dispatches transaction_success.
func (c *Connection) exec(op string, stmt *sqlparser.Statement) error {
	if err := c.parser.Verify(stmt); err != nil {
		return c.invalid(op, err)
	}
	if err := c.begin(); err != nil {
		return c.fail(op, &DBError{Code: CodeQueryFailed, Message: "failed to begin transaction", Err: err})
	}

	err := c.withLockRetry(op, func() error {
		_, err := c.target().Exec(stmt.Query, stmt.Args...)
		return err
	})
	if err != nil {
		return c.fail(op, c.engineError(err))
	}

	c.logger.Debug("statement executed", "operation", op, "query", stmt.Query)
	c.registry.Dispatch(listeners.TransactionSuccess, c.cfg.Path, op)
	return nil
}

// begin opens the pending transaction used when AutoCommit is off.
func (c *Connection) begin() error {
	if c.cfg.AutoCommit || c.tx != nil {
		return nil
	}
	tx, err := c.db.Beginx()
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

// target returns the pending transaction when there is one, so reads see
// uncommitted writes, and the handle otherwise.
func (c *Connection) target() sqlx.Ext {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

// withLockRetry runs fn and, if the database reported a lock conflict, waits
// LockTimeout and runs it exactly once more.
func (c *Connection) withLockRetry(op string, fn func() error) error {
	err := fn()
	if err == nil || !engine.IsLocked(err) {
		return err
	}

	c.logger.Warn("database is locked, retrying once", "operation", op, "wait", c.cfg.LockTimeout)
	c.sleep(c.cfg.LockTimeout)
	return fn()
}

func (c *Connection) engineError(err error) *DBError {
	if engine.IsLocked(err) {
		return &DBError{Code: CodeLocked, Message: "database is locked", Err: err}
	}
	return &DBError{Code: CodeQueryFailed, Message: "failed to execute statement", Err: err}
}

func (c *Connection) invalid(op string, err error) error {
	return c.fail(op, &DBError{Code: CodeInvalidArgument, Message: "invalid arguments for " + op, Err: err})
}
