package query

import (
	"context"
	"fmt"

	"github.com/dateja/sqlitedb/internal/catalog"
	"github.com/dateja/sqlitedb/internal/database"
)

// TableStats is the shape and size of one table.
type TableStats struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	RowCount int64    `json:"row_count"`
}

// Tables lists every user table of id in catalog order.
func (e *Executor) Tables(ctx context.Context, id string) ([]catalog.Table, error) {
	path, err := e.store.Resolve(id)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenFile(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	return catalog.ListTables(ctx, db)
}

// Stats counts the rows of table and lists its columns. The table must exist
// under exactly that name.
func (e *Executor) Stats(ctx context.Context, id, table string) (*TableStats, error) {
	path, err := e.store.Resolve(id)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenFile(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	ok, err := catalog.HasTable(ctx, db, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s has no table %q", catalog.ErrMissingTable, id, table)
	}

	cols, err := catalog.Columns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	stats := &TableStats{Name: table, Columns: make([]string, len(cols))}
	for i, c := range cols {
		stats.Columns[i] = c.Name
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+catalog.QuoteIdent(table)).Scan(&stats.RowCount); err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}
	return stats, nil
}
