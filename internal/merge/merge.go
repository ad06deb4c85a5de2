// Package merge rebuilds a project database from the cleaned tables of an
// ordered list of identifiers.
//
// Every merge discards the previous project file and builds a new one inside
// a single transaction. Source tables are renamed <table><position> so that
// identically named cleaned tables from different sources cannot clash.
package merge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dateja/sqlitedb/internal/catalog"
	"github.com/dateja/sqlitedb/internal/database"
	"github.com/dateja/sqlitedb/internal/filesystem"
	"github.com/dateja/sqlitedb/internal/logger"
)

// ErrNameCollision is returned when two sources would produce the same merged table name.
var ErrNameCollision = errors.New("merge: merged table name collision")

// batchRows is how many source rows are buffered per insert.
const batchRows = 500

// Table describes one merged table.
type Table struct {
	Name        string `json:"name"`
	Source      string `json:"source"`
	SourceTable string `json:"source_table"`
	Position    int    `json:"position"`
	Rows        int    `json:"rows"`
}

// Report is the outcome of a merge. Skipped lists identifiers that had no
// backing file and were left out.
type Report struct {
	ProjectID string   `json:"project_uuid"`
	Tables    []Table  `json:"tables"`
	Skipped   []string `json:"skipped"`
}

// Engine merges databases held by one store.
type Engine struct {
	store *filesystem.Store
	role  catalog.Role
}

// NewEngine returns an engine merging tables that carry the cleaned role.
func NewEngine(store *filesystem.Store) *Engine {
	return &Engine{store: store, role: catalog.RoleCleaned}
}

// Merge rebuilds projectID from the cleaned tables of ids, in order. The
// previous project file is removed first. On failure no project file is left
// behind; on success the project is addressable like any other identifier.
func (e *Engine) Merge(ctx context.Context, projectID string, ids []string) (*Report, error) {
	if err := filesystem.ValidateID(projectID); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With(zap.String("project", projectID))

	if err := e.store.Remove(projectID); err != nil {
		return nil, fmt.Errorf("remove previous project: %w", err)
	}

	staged, err := e.store.Stage(filesystem.Extension)
	if err != nil {
		return nil, err
	}
	stagedPath := staged.Name()
	_ = staged.Close()
	defer func() { _ = filesystem.DeleteFile(stagedPath) }()

	report := &Report{ProjectID: projectID, Tables: []Table{}, Skipped: []string{}}
	if err := e.build(ctx, stagedPath, ids, report); err != nil {
		log.Debug("merge failed", zap.Error(err))
		return nil, err
	}

	if _, err := e.store.Replace(stagedPath, projectID); err != nil {
		return nil, fmt.Errorf("publish project: %w", err)
	}

	log.Debug("merged project",
		zap.Int("sources", len(ids)),
		zap.Int("tables", len(report.Tables)),
		zap.Strings("skipped", report.Skipped))
	return report, nil
}

func (e *Engine) build(ctx context.Context, path string, ids []string, report *Report) error {
	db, err := database.OpenFile(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := make(map[string]string)
	for i, id := range ids {
		srcPath, err := e.store.Resolve(id)
		if err != nil {
			if errors.Is(err, filesystem.ErrNotFound) {
				report.Skipped = append(report.Skipped, id)
				continue
			}
			return err
		}

		tables, err := e.copySource(ctx, tx, srcPath, id, i, created)
		if err != nil {
			return fmt.Errorf("merge %s: %w", id, err)
		}
		report.Tables = append(report.Tables, tables...)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return db.Close()
}

func (e *Engine) copySource(ctx context.Context, tx *sql.Tx, srcPath, id string, pos int, created map[string]string) ([]Table, error) {
	src, err := database.OpenFile(ctx, srcPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	tables, err := catalog.ListTables(ctx, src)
	if err != nil {
		return nil, err
	}

	var merged []Table
	for _, t := range tables {
		if !e.role.Matches(t.Name) {
			continue
		}

		target := t.Name + strconv.Itoa(pos)
		if owner, dup := created[target]; dup {
			return nil, fmt.Errorf("%w: %s from %s already created from %s", ErrNameCollision, target, id, owner)
		}
		created[target] = id

		cols, err := catalog.Columns(ctx, src, t.Name)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, createTableSQL(target, cols)); err != nil {
			return nil, fmt.Errorf("create %s: %w", target, err)
		}

		n, err := copyRows(ctx, src, tx, t.Name, target, cols)
		if err != nil {
			return nil, err
		}
		merged = append(merged, Table{Name: target, Source: id, SourceTable: t.Name, Position: pos, Rows: n})
	}
	return merged, nil
}

// createTableSQL declares every column with its live catalog type, verbatim.
func createTableSQL(table string, cols []catalog.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = strings.TrimSpace(catalog.QuoteIdent(c.Name) + " " + c.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", catalog.QuoteIdent(table), strings.Join(defs, ", "))
}

func copyRows(ctx context.Context, src *sql.DB, dst *sql.Tx, from, to string, cols []catalog.Column) (int, error) {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}

	rows, err := src.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", catalog.ValueSelectList(cols), catalog.QuoteIdent(from)))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", from, err)
	}
	defer func() { _ = rows.Close() }()

	total := 0
	batch := make([][]any, 0, batchRows)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return total, fmt.Errorf("read %s: %w", from, err)
		}
		batch = append(batch, values)
		if len(batch) == batchRows {
			if err := database.InsertRows(ctx, dst, to, names, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return total, fmt.Errorf("read %s: %w", from, err)
	}
	if err := database.InsertRows(ctx, dst, to, names, batch); err != nil {
		return total, err
	}
	return total + len(batch), nil
}
