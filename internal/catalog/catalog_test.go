package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T, stmts ...string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(filepath.Join(t.TempDir(), "c.sqlite")))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return db
}

func TestRoleMatchesBySubstring(t *testing.T) {
	cases := []struct {
		role Role
		name string
		want bool
	}{
		{RoleCleaned, "data_cleaned", true},
		{RoleCleaned, "data_cleaned0", true},
		{RoleCleaned, "old_data_cleaned_backup", true},
		{RoleCleaned, "data", false},
		{RoleRaw, "data_cleaned", true},
		{RoleAnalysed, "data_analysed", true},
		{RoleAnalysed, "data_cleaned", false},
	}
	for _, tc := range cases {
		if got := tc.role.Matches(tc.name); got != tc.want {
			t.Fatalf("%s.Matches(%q) = %v, want %v", tc.role, tc.name, got, tc.want)
		}
	}
}

func TestListTablesAndFilter(t *testing.T) {
	db := openTestDB(t,
		`CREATE TABLE data (a TEXT)`,
		`CREATE TABLE data_cleaned (a TEXT, b INTEGER)`,
		`CREATE TABLE notes (body TEXT)`,
		`CREATE TABLE seq (id INTEGER PRIMARY KEY AUTOINCREMENT)`,
	)
	ctx := context.Background()

	tables, err := ListTables(ctx, db)
	if err != nil {
		t.Fatalf("ListTables returned error: %v", err)
	}
	names := make([]string, 0, len(tables))
	for _, tbl := range tables {
		names = append(names, tbl.Name)
		if tbl.SQL == "" {
			t.Fatalf("expected create statement for %s", tbl.Name)
		}
	}
	want := []string{"data", "data_cleaned", "notes", "seq"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}

	cleaned := Filter(tables, string(RoleCleaned))
	if len(cleaned) != 1 || cleaned[0].Name != "data_cleaned" {
		t.Fatalf("unexpected filter result: %+v", cleaned)
	}
	if got := Filter(tables, string(RoleRaw)); len(got) != 2 {
		t.Fatalf("expected substring filter to sweep both data tables, got %+v", got)
	}
}

func TestColumnsAndHasTable(t *testing.T) {
	db := openTestDB(t, `CREATE TABLE "odd ""name""" (id INTEGER PRIMARY KEY, label TEXT NOT NULL, score REAL, raw)`)
	ctx := context.Background()

	ok, err := HasTable(ctx, db, `odd "name"`)
	if err != nil || !ok {
		t.Fatalf("expected HasTable true, got %v, %v", ok, err)
	}
	ok, err = HasTable(ctx, db, "odd")
	if err != nil || ok {
		t.Fatalf("expected HasTable false for partial name, got %v, %v", ok, err)
	}

	cols, err := Columns(ctx, db, `odd "name"`)
	if err != nil {
		t.Fatalf("Columns returned error: %v", err)
	}
	if len(cols) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(cols))
	}
	if cols[0].Name != "id" || !cols[0].PrimaryKey || cols[0].Type != "INTEGER" {
		t.Fatalf("unexpected first column: %+v", cols[0])
	}
	if cols[1].Name != "label" || !cols[1].NotNull {
		t.Fatalf("unexpected second column: %+v", cols[1])
	}
	if cols[3].Name != "raw" || cols[3].Type != "" {
		t.Fatalf("expected untyped column, got %+v", cols[3])
	}
}

func TestQuoteIdent(t *testing.T) {
	if got, want := QuoteIdent(`a"b`), `"a""b"`; got != want {
		t.Fatalf("QuoteIdent = %s, want %s", got, want)
	}
}
