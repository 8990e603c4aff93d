package sqlparser

import (
	"fmt"
	"strings"
)

// CreateTable assembles CREATE TABLE IF NOT EXISTS for the given columns.
func CreateTable(table string, columns, types []string) (*Statement, error) {
	if err := CheckIdentifier("table", table); err != nil {
		return nil, err
	}
	if len(columns) != len(types) {
		return nil, fmt.Errorf("%w: %d names, %d types", ErrColumnCount, len(columns), len(types))
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: at least one column is required", ErrInvalidArgument)
	}

	defs := make([]string, 0, len(columns))
	for i, col := range columns {
		if err := CheckIdentifier("column", col); err != nil {
			return nil, err
		}
		colType, err := ColumnType(types[i])
		if err != nil {
			return nil, err
		}
		defs = append(defs, quote(col)+" "+colType)
	}

	return &Statement{
		Type:  StatementCreate,
		Table: table,
		Query: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table), strings.Join(defs, ", ")),
	}, nil
}

// DropTable assembles DROP TABLE.
func DropTable(table string) (*Statement, error) {
	if err := CheckIdentifier("table", table); err != nil {
		return nil, err
	}
	return &Statement{
		Type:  StatementDrop,
		Table: table,
		Query: "DROP TABLE " + quote(table),
	}, nil
}

// Insert assembles an INSERT of one full row.
func Insert(table string, values []any) (*Statement, error) {
	if err := CheckIdentifier("table", table); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: at least one value is required", ErrInvalidArgument)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	args := make([]any, len(values))
	copy(args, values)

	return &Statement{
		Type:  StatementInsert,
		Table: table,
		Query: fmt.Sprintf("INSERT INTO %s VALUES (%s)", quote(table), placeholders),
		Args:  args,
	}, nil
}

// Delete assembles a DELETE, optionally filtered by where.
func Delete(table string, where *Condition) (*Statement, error) {
	if err := CheckIdentifier("table", table); err != nil {
		return nil, err
	}

	clause, args, err := whereClause(where)
	if err != nil {
		return nil, err
	}

	return &Statement{
		Type:  StatementDelete,
		Table: table,
		Query: "DELETE FROM " + quote(table) + clause,
		Args:  args,
	}, nil
}

// Update assembles an UPDATE setting column to value, optionally filtered by
// where.
func Update(table, column string, value any, where *Condition) (*Statement, error) {
	if err := CheckIdentifier("table", table); err != nil {
		return nil, err
	}
	if err := CheckIdentifier("column", column); err != nil {
		return nil, err
	}

	clause, whereArgs, err := whereClause(where)
	if err != nil {
		return nil, err
	}

	return &Statement{
		Type:  StatementUpdate,
		Table: table,
		Query: fmt.Sprintf("UPDATE %s SET %s = ?%s", quote(table), quote(column), clause),
		Args:  append([]any{value}, whereArgs...),
	}, nil
}

// Select assembles a SELECT from spec. No columns, or a single "*", selects
// every column.
func Select(spec SelectSpec) (*Statement, error) {
	if err := CheckIdentifier("table", spec.Table); err != nil {
		return nil, err
	}
	if spec.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, spec.Limit)
	}

	cols := "*"
	if len(spec.Columns) > 0 && !(len(spec.Columns) == 1 && spec.Columns[0] == "*") {
		quoted := make([]string, 0, len(spec.Columns))
		for _, col := range spec.Columns {
			if err := CheckIdentifier("column", col); err != nil {
				return nil, err
			}
			quoted = append(quoted, quote(col))
		}
		cols = strings.Join(quoted, ", ")
	}

	clause, args, err := whereClause(spec.Where)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s", cols, quote(spec.Table), clause)
	if spec.Random {
		b.WriteString(" ORDER BY RANDOM()")
	}
	if spec.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, spec.Limit)
	}

	return &Statement{
		Type:  StatementSelect,
		Table: spec.Table,
		Query: b.String(),
		Args:  args,
	}, nil
}

func whereClause(where *Condition) (string, []any, error) {
	if where == nil {
		return "", nil, nil
	}
	if err := CheckIdentifier("column", where.Column); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf(" WHERE %s = ?", quote(where.Column)), []any{where.Value}, nil
}
