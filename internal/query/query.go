// Package query runs caller-supplied SQL against one identifier's database.
//
// Statements are passed to the engine untouched. Every call opens its own
// connection and closes it before returning.
package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dateja/sqlitedb/internal/catalog"
	"github.com/dateja/sqlitedb/internal/database"
	"github.com/dateja/sqlitedb/internal/filesystem"
	"github.com/dateja/sqlitedb/internal/logger"
)

// Error carries the engine's diagnostic for a failed statement.
type Error struct {
	ID  string
	Err error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result holds positional rows. Columns is informational; callers must not
// rely on names being unique.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"results"`
}

// Executor runs statements against files held by a store.
type Executor struct {
	store *filesystem.Store
}

// NewExecutor returns an executor over store.
func NewExecutor(store *filesystem.Store) *Executor {
	return &Executor{store: store}
}

// Execute runs stmt against id. Missing identifiers fail with
// filesystem.ErrNotFound before the statement reaches the engine; engine
// failures are returned as *Error with the message unmodified.
func (e *Executor) Execute(ctx context.Context, id, stmt string) (*Result, error) {
	path, err := e.store.Resolve(id)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenFile(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		logger.FromContext(ctx).Debug("query failed", zap.String("id", id), zap.Error(err))
		return nil, &Error{ID: id, Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, values, err := database.ScanAll(rows)
	if err != nil {
		return nil, &Error{ID: id, Err: err}
	}
	return &Result{Columns: cols, Rows: values}, nil
}

// Records returns every row of table as column-name keyed records. The table
// must exist under exactly that name.
func (e *Executor) Records(ctx context.Context, id, table string) ([]map[string]any, error) {
	cols, values, err := e.readTable(ctx, id, table)
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0, len(values))
	for _, row := range values {
		rec := make(map[string]any, len(cols))
		for i, col := range cols {
			rec[col] = jsonValue(row[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e *Executor) readTable(ctx context.Context, id, table string) ([]string, [][]any, error) {
	path, err := e.store.Resolve(id)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.OpenFile(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = db.Close() }()

	ok, err := catalog.HasTable(ctx, db, table)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s has no table %q", catalog.ErrMissingTable, id, table)
	}

	cols, err := catalog.Columns(ctx, db, table)
	if err != nil {
		return nil, nil, err
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s",
		catalog.ValueSelectList(cols), catalog.QuoteIdent(table)))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	_, values, err := database.ScanAll(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", table, err)
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, values, nil
}

func jsonValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
