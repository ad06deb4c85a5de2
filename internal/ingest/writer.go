package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/dateja/sqlitedb/internal/catalog"
	"github.com/dateja/sqlitedb/internal/database"
)

// writeTable replaces table in the database at path with tbl in one transaction.
func writeTable(ctx context.Context, path, table string, tbl *Table) error {
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

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+catalog.QuoteIdent(table)); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(table, tbl.Columns)); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	if err := database.InsertRows(ctx, tx, table, tbl.ColumnNames(), tbl.Rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func createTableSQL(table string, cols []Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = catalog.QuoteIdent(c.Name) + " " + c.Type
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", catalog.QuoteIdent(table), strings.Join(defs, ", "))
}
