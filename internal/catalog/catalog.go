// Package catalog reads table and column definitions from a sqlite catalog and
// knows the table roles the rest of the system looks for.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingTable indicates the database exists but lacks the designated table.
var ErrMissingTable = errors.New("catalog: designated table not found")

// Role is a table naming convention. Tables are matched by substring, so a
// table named "data_cleaned_v2" carries the cleaned role too.
type Role string

const (
	RoleRaw      Role = "data"
	RoleCleaned  Role = "data_cleaned"
	RoleAnalysed Role = "data_analysed"
)

// Matches reports whether a table name carries the role.
func (r Role) Matches(name string) bool {
	return strings.Contains(name, string(r))
}

// Table is one entry of sqlite_master.
type Table struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// Column is one row of PRAGMA table_info.
type Column struct {
	CID        int
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// Querier is the subset of *sql.DB and *sql.Tx the catalog needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const listTables = `SELECT name, sql FROM sqlite_master WHERE type = 'table'`

// ListTables returns user tables in catalog order.
func ListTables(ctx context.Context, db Querier) ([]Table, error) {
	rows, err := db.QueryContext(ctx, listTables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var (
			name string
			stmt sql.NullString
		)
		if err := rows.Scan(&name, &stmt); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if strings.HasPrefix(name, "sqlite_") {
			continue
		}
		tables = append(tables, Table{Name: name, SQL: stmt.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// Filter keeps the tables whose name contains substr, preserving order.
func Filter(tables []Table, substr string) []Table {
	var out []Table
	for _, t := range tables {
		if strings.Contains(t.Name, substr) {
			out = append(out, t)
		}
	}
	return out
}

// HasTable reports whether a table with exactly this name exists.
func HasTable(ctx context.Context, db Querier, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup table %s: %w", name, err)
	}
	return n > 0, nil
}

// Columns returns the live column definitions of a table in declaration order.
func Columns(ctx context.Context, db Querier, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, "SELECT cid, name, type, \"notnull\", pk FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			c       Column
			notNull int
			pk      int
		)
		if err := rows.Scan(&c.CID, &c.Name, &c.Type, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.NotNull = notNull != 0
		c.PrimaryKey = pk != 0
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	return cols, nil
}

// QuoteIdent quotes an identifier for interpolation into SQL text.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// ValueSelectList renders cols as a select list that yields stored values
// untouched. Each column is wrapped in the no-op unary plus so that the driver
// sees no declared type and never reinterprets DATE/DATETIME text.
func ValueSelectList(cols []Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = "+" + QuoteIdent(c.Name)
	}
	return strings.Join(parts, ", ")
}
