package sqlparser

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// SQLParser handles the parsing of SQL statements into a structured format
type SQLParser struct{}

// NewSQLParser creates a new SQL parser instance
func NewSQLParser() *SQLParser {
	return &SQLParser{}
}

// Parse parses a SQL query and returns a SQLStatement containing the parsed information.
// It extracts the statement type, tables, columns, and where clause from the query.
// Returns an error if the query is empty or contains unsupported SQL syntax.
func (p *SQLParser) Parse(query string) (*SQLStatement, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	ast, err := sqlparser.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SQL: %w", err)
	}

	tables := make([]string, 0)
	columns := make([]string, 0)
	var stmtType StatementType
	var where string

	switch stmt := ast.(type) {
	case *sqlparser.Select:
		stmtType = StatementSelect
		if stmt.From != nil {
			tables = p.extractTablesFromTableExprs(stmt.From)
		}
		for _, expr := range stmt.SelectExprs {
			switch e := expr.(type) {
			case *sqlparser.StarExpr:
				columns = append(columns, "*")
			case *sqlparser.AliasedExpr:
				if col, ok := e.Expr.(*sqlparser.ColName); ok {
					columns = append(columns, col.Name.String())
				}
			}
		}
		if stmt.Where != nil {
			where = sqlparser.String(stmt.Where)
		}

	case *sqlparser.Insert:
		stmtType = StatementInsert
		tables = append(tables, stmt.Table.Name.String())
		for _, col := range stmt.Columns {
			columns = append(columns, col.String())
		}

	case *sqlparser.Update:
		stmtType = StatementUpdate
		if stmt.TableExprs != nil {
			tables = p.extractTablesFromTableExprs(stmt.TableExprs)
		}
		for _, expr := range stmt.Exprs {
			columns = append(columns, expr.Name.Name.String())
		}
		if stmt.Where != nil {
			where = sqlparser.String(stmt.Where)
		}

	case *sqlparser.Delete:
		stmtType = StatementDelete
		if stmt.TableExprs != nil {
			tables = p.extractTablesFromTableExprs(stmt.TableExprs)
		}
		if stmt.Where != nil {
			where = sqlparser.String(stmt.Where)
		}

	case *sqlparser.DDL:
		switch stmt.Action {
		case sqlparser.CreateStr:
			stmtType = StatementCreate
			if stmt.TableSpec != nil {
				for _, col := range stmt.TableSpec.Columns {
					columns = append(columns, col.Name.String())
				}
			}
		case sqlparser.DropStr:
			stmtType = StatementDrop
		default:
			return nil, fmt.Errorf("%w: unsupported DDL action %s", ErrUnsupportedStatement, stmt.Action)
		}
		tables = append(tables, stmt.Table.Name.String())

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedStatement, ast)
	}

	return &SQLStatement{
		Type:    stmtType,
		Tables:  tables,
		Columns: columns,
		Where:   where,
		AST:     ast,
	}, nil
}

// Verify checks that an assembled statement parses back to a single
// statement of its declared type touching only its declared table.
//
// CREATE TABLE uses SQLite storage classes the MySQL grammar cannot read, so
// it is only previewed; its identifiers were validated during assembly.
func (p *SQLParser) Verify(stmt *Statement) error {
	if stmt == nil || strings.TrimSpace(stmt.Query) == "" {
		return ErrEmptyQuery
	}

	if stmt.Type == StatementCreate {
		if sqlparser.Preview(stmt.Query) != sqlparser.StmtDDL {
			return fmt.Errorf("%w: expected DDL", ErrStatementMismatch)
		}
		return nil
	}

	parsed, err := p.Parse(stmt.Query)
	if err != nil {
		return err
	}
	if parsed.Type != stmt.Type {
		return fmt.Errorf("%w: expected %s, parsed %s", ErrStatementMismatch, stmt.Type, parsed.Type)
	}
	if len(parsed.Tables) != 1 || parsed.Tables[0] != stmt.Table {
		return fmt.Errorf("%w: expected table %q, parsed %v", ErrStatementMismatch, stmt.Table, parsed.Tables)
	}
	return nil
}

// extractTablesFromTableExprs extracts table names from a list of table expressions
func (p *SQLParser) extractTablesFromTableExprs(tableExprs sqlparser.TableExprs) []string {
	tables := make([]string, 0)
	for _, tableExpr := range tableExprs {
		switch table := tableExpr.(type) {
		case *sqlparser.AliasedTableExpr:
			if name, ok := table.Expr.(sqlparser.TableName); ok {
				tables = append(tables, name.Name.String())
			}
		case *sqlparser.JoinTableExpr:
			if left, ok := table.LeftExpr.(*sqlparser.AliasedTableExpr); ok {
				if name, ok := left.Expr.(sqlparser.TableName); ok {
					tables = append(tables, name.Name.String())
				}
			}
			if right, ok := table.RightExpr.(*sqlparser.AliasedTableExpr); ok {
				if name, ok := right.Expr.(sqlparser.TableName); ok {
					tables = append(tables, name.Name.String())
				}
			}
		}
	}
	return tables
}
