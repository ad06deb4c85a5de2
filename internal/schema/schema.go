// Package schema produces the bounded textual summary of a database's tables
// that is handed to language models and UIs.
package schema

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dateja/sqlitedb/internal/catalog"
	"github.com/dateja/sqlitedb/internal/database"
	"github.com/dateja/sqlitedb/internal/filesystem"
	"github.com/dateja/sqlitedb/internal/logger"
)

// DefaultSampleRows caps the example rows rendered per table.
const DefaultSampleRows = 10

// TableSummary is one table's definition and its leading rows.
type TableSummary struct {
	Name      string  `json:"name"`
	CreateSQL string  `json:"create_sql"`
	Rows      [][]any `json:"rows"`
}

// Summary is an ordered set of table summaries in catalog order.
type Summary struct {
	Tables []TableSummary `json:"tables"`
}

// String renders the summary in the line format consumers embed verbatim:
//
//	Table: <name>
//	CREATE statement: <sql>
//
//	Example rows:
//	(<row>)
//
// with a blank line after every table block.
func (s Summary) String() string {
	var lines []string
	for _, t := range s.Tables {
		lines = append(lines, "Table: "+t.Name)
		lines = append(lines, "CREATE statement: "+t.CreateSQL+"\n")
		if len(t.Rows) > 0 {
			lines = append(lines, "Example rows:")
			for _, row := range t.Rows {
				lines = append(lines, FormatRow(row))
			}
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// Introspector describes identifier databases held by a file store.
type Introspector struct {
	store      *filesystem.Store
	sampleRows int
}

// NewIntrospector returns an introspector sampling up to sampleRows rows per
// table; a non-positive value selects DefaultSampleRows.
func NewIntrospector(store *filesystem.Store, sampleRows int) *Introspector {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}
	return &Introspector{store: store, sampleRows: sampleRows}
}

// Describe summarises every table of id whose name contains roleFilter
// (the cleaned role when empty). It returns filesystem.ErrNotFound when id has
// no backing file and catalog.ErrMissingTable when nothing matches.
func (i *Introspector) Describe(ctx context.Context, id, roleFilter string) (*Summary, error) {
	if roleFilter == "" {
		roleFilter = string(catalog.RoleCleaned)
	}

	path, err := i.store.Resolve(id)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenFile(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	tables, err := catalog.ListTables(ctx, db)
	if err != nil {
		return nil, err
	}
	matched := catalog.Filter(tables, roleFilter)
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: no table matching %q in %s", catalog.ErrMissingTable, roleFilter, id)
	}

	summary := &Summary{Tables: make([]TableSummary, 0, len(matched))}
	for _, t := range matched {
		cols, err := catalog.Columns(ctx, db, t.Name)
		if err != nil {
			return nil, err
		}
		rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s LIMIT %d",
			catalog.ValueSelectList(cols), catalog.QuoteIdent(t.Name), i.sampleRows))
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", t.Name, err)
		}
		_, values, err := database.ScanAll(rows)
		_ = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", t.Name, err)
		}
		summary.Tables = append(summary.Tables, TableSummary{Name: t.Name, CreateSQL: t.SQL, Rows: values})
	}

	logger.FromContext(ctx).Debug("described database",
		zap.String("id", id),
		zap.String("filter", roleFilter),
		zap.Int("tables", len(summary.Tables)))

	return summary, nil
}
