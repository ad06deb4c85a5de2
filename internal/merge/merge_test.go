package merge

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/dateja/sqlitedb/internal/catalog"
	"github.com/dateja/sqlitedb/internal/database"
	"github.com/dateja/sqlitedb/internal/filesystem"
)

func newStore(t *testing.T) *filesystem.Store {
	t.Helper()
	return filesystem.NewStore(filepath.Join(t.TempDir(), "uploads"))
}

func seed(t *testing.T, store *filesystem.Store, id string, stmts ...string) {
	t.Helper()
	path, err := store.Create(id)
	if err != nil {
		t.Fatalf("Create %s: %v", id, err)
	}
	db, err := database.OpenFile(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenFile %s: %v", id, err)
	}
	defer func() { _ = db.Close() }()
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

func query(t *testing.T, store *filesystem.Store, id, stmt string) [][]any {
	t.Helper()
	path, err := store.Resolve(id)
	if err != nil {
		t.Fatalf("Resolve %s: %v", id, err)
	}
	db, err := database.OpenFile(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenFile %s: %v", id, err)
	}
	defer func() { _ = db.Close() }()
	rows, err := db.Query(stmt)
	if err != nil {
		t.Fatalf("query %q: %v", stmt, err)
	}
	defer func() { _ = rows.Close() }()
	_, values, err := database.ScanAll(rows)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	return values
}

func tableNames(t *testing.T, store *filesystem.Store, id string) []string {
	t.Helper()
	path, err := store.Resolve(id)
	if err != nil {
		t.Fatalf("Resolve %s: %v", id, err)
	}
	db, err := database.OpenFile(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer func() { _ = db.Close() }()
	tables, err := catalog.ListTables(context.Background(), db)
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	names := make([]string, 0, len(tables))
	for _, tbl := range tables {
		names = append(names, tbl.Name)
	}
	sort.Strings(names)
	return names
}

func TestMergeSuffixesByPosition(t *testing.T) {
	store := newStore(t)
	seed(t, store, "T1", `CREATE TABLE data_cleaned (x INTEGER)`, `INSERT INTO data_cleaned VALUES (1)`)
	seed(t, store, "T2", `CREATE TABLE data_cleaned (x INTEGER)`, `INSERT INTO data_cleaned VALUES (2)`)

	report, err := NewEngine(store).Merge(context.Background(), "P", []string{"T1", "T2"})
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if report.ProjectID != "P" || len(report.Tables) != 2 || len(report.Skipped) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	if got := query(t, store, "P", "SELECT * FROM data_cleaned0"); !reflect.DeepEqual(got, [][]any{{int64(1)}}) {
		t.Fatalf("data_cleaned0 = %v", got)
	}
	if got := query(t, store, "P", "SELECT * FROM data_cleaned1"); !reflect.DeepEqual(got, [][]any{{int64(2)}}) {
		t.Fatalf("data_cleaned1 = %v", got)
	}
}

func TestMergeOnlyCopiesCleanedTables(t *testing.T) {
	store := newStore(t)
	seed(t, store, "T1",
		`CREATE TABLE data (x INTEGER)`,
		`CREATE TABLE data_cleaned (x INTEGER)`,
		`CREATE TABLE data_cleaned_extra (y TEXT)`,
		`CREATE TABLE data_analysed (markdown_content TEXT)`,
	)

	report, err := NewEngine(store).Merge(context.Background(), "P", []string{"T1"})
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if len(report.Tables) != 2 {
		t.Fatalf("expected two merged tables, got %+v", report.Tables)
	}
	want := []string{"data_cleaned0", "data_cleaned_extra0"}
	if got := tableNames(t, store, "P"); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected tables %v, got %v", want, got)
	}
}

func TestMergeSkipsAbsentSources(t *testing.T) {
	store := newStore(t)
	seed(t, store, "T2", `CREATE TABLE data_cleaned (x INTEGER)`, `INSERT INTO data_cleaned VALUES (2)`)

	report, err := NewEngine(store).Merge(context.Background(), "P", []string{"missing", "T2", "../bad"})
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if !reflect.DeepEqual(report.Skipped, []string{"missing", "../bad"}) {
		t.Fatalf("unexpected skipped list: %v", report.Skipped)
	}
	// Suffixes follow input position, skipped entries included.
	if got := query(t, store, "P", "SELECT * FROM data_cleaned1"); !reflect.DeepEqual(got, [][]any{{int64(2)}}) {
		t.Fatalf("data_cleaned1 = %v", got)
	}
}

func TestMergeEmptyListYieldsQueryableProject(t *testing.T) {
	for name, ids := range map[string][]string{
		"empty":         nil,
		"fully invalid": {"nope", "also-nope"},
	} {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			report, err := NewEngine(store).Merge(context.Background(), "P", ids)
			if err != nil {
				t.Fatalf("Merge returned error: %v", err)
			}
			if len(report.Tables) != 0 {
				t.Fatalf("expected no tables, got %+v", report.Tables)
			}
			if got := query(t, store, "P", "SELECT 1"); !reflect.DeepEqual(got, [][]any{{int64(1)}}) {
				t.Fatalf("expected queryable project, got %v", got)
			}
			if names := tableNames(t, store, "P"); len(names) != 0 {
				t.Fatalf("expected empty project, got %v", names)
			}
		})
	}
}

func TestMergeIsFullRebuild(t *testing.T) {
	store := newStore(t)
	seed(t, store, "P", `CREATE TABLE stale (x INTEGER)`, `INSERT INTO stale VALUES (99)`)
	seed(t, store, "T1", `CREATE TABLE data_cleaned (x INTEGER)`, `INSERT INTO data_cleaned VALUES (1)`)
	engine := NewEngine(store)

	for i := 0; i < 2; i++ {
		if _, err := engine.Merge(context.Background(), "P", []string{"T1"}); err != nil {
			t.Fatalf("Merge %d returned error: %v", i, err)
		}
	}

	if got := tableNames(t, store, "P"); !reflect.DeepEqual(got, []string{"data_cleaned0"}) {
		t.Fatalf("expected only rebuilt tables, got %v", got)
	}
	if got := query(t, store, "P", "SELECT COUNT(*) FROM data_cleaned0"); !reflect.DeepEqual(got, [][]any{{int64(1)}}) {
		t.Fatalf("expected rows not to accumulate across merges, got %v", got)
	}
}

func TestMergeContentEquivalentAcrossOrderings(t *testing.T) {
	store := newStore(t)
	seed(t, store, "A", `CREATE TABLE data_cleaned (k TEXT, v REAL)`, `INSERT INTO data_cleaned VALUES ('a', 1.5), ('b', NULL)`)
	seed(t, store, "B", `CREATE TABLE data_cleaned (k TEXT, v REAL)`, `INSERT INTO data_cleaned VALUES ('c', 3)`)
	engine := NewEngine(store)
	ctx := context.Background()

	first, err := engine.Merge(ctx, "P1", []string{"A", "B"})
	if err != nil {
		t.Fatalf("Merge P1: %v", err)
	}
	second, err := engine.Merge(ctx, "P2", []string{"B", "A"})
	if err != nil {
		t.Fatalf("Merge P2: %v", err)
	}

	contents := func(project string, report *Report) map[string][][]any {
		out := make(map[string][][]any)
		for _, tbl := range report.Tables {
			out[tbl.Source] = query(t, store, project, "SELECT * FROM "+catalog.QuoteIdent(tbl.Name)+" ORDER BY k")
		}
		return out
	}
	if a, b := contents("P1", first), contents("P2", second); !reflect.DeepEqual(a, b) {
		t.Fatalf("expected content-equivalent merges:\n%v\n%v", a, b)
	}
}

func TestMergePreservesDeclaredTypesAndValues(t *testing.T) {
	store := newStore(t)
	seed(t, store, "T1",
		`CREATE TABLE data_cleaned (id integer, label VARCHAR(10), stamp DATETIME, blob_col BLOB, loose)`,
		`INSERT INTO data_cleaned VALUES (1, 'x', '2024-01-02 03:04:05', x'00ff', 'free')`,
	)

	if _, err := NewEngine(store).Merge(context.Background(), "P", []string{"T1"}); err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}

	path, _ := store.Resolve("P")
	db, err := database.OpenFile(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer func() { _ = db.Close() }()
	cols, err := catalog.Columns(context.Background(), db, "data_cleaned0")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	var types []string
	for _, c := range cols {
		types = append(types, c.Type)
	}
	if want := []string{"integer", "VARCHAR(10)", "DATETIME", "BLOB", ""}; !reflect.DeepEqual(types, want) {
		t.Fatalf("expected declared types %v, got %v", want, types)
	}

	got := query(t, store, "P", "SELECT typeof(stamp), stamp || '', hex(blob_col), loose FROM data_cleaned0")
	want := [][]any{{"text", "2024-01-02 03:04:05", "00FF", "free"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected values copied verbatim, got %v", got)
	}
}

func TestMergeCopiesLargeTables(t *testing.T) {
	store := newStore(t)
	seed(t, store, "T1",
		`CREATE TABLE data_cleaned (n INTEGER)`,
		`WITH RECURSIVE c(n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM c WHERE n < 1234) INSERT INTO data_cleaned SELECT n FROM c`,
	)

	report, err := NewEngine(store).Merge(context.Background(), "P", []string{"T1"})
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if report.Tables[0].Rows != 1234 {
		t.Fatalf("expected 1234 rows reported, got %d", report.Tables[0].Rows)
	}
	got := query(t, store, "P", "SELECT COUNT(*), SUM(n) FROM data_cleaned0")
	if !reflect.DeepEqual(got, [][]any{{int64(1234), int64(1234 * 1235 / 2)}}) {
		t.Fatalf("unexpected aggregate %v", got)
	}
}

func TestMergeFailureLeavesNoProject(t *testing.T) {
	store := newStore(t)
	seed(t, store, "P", `CREATE TABLE previous (x INTEGER)`)
	seed(t, store, "A", `CREATE TABLE data_cleaned1 (x INTEGER)`, `INSERT INTO data_cleaned1 VALUES (1)`)
	seed(t, store, "B", `CREATE TABLE data_cleaned (x INTEGER)`, `INSERT INTO data_cleaned VALUES (2)`)

	// A at position 0 yields data_cleaned10; B at position 10 would too.
	ids := []string{"A", "m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8", "m9", "B"}
	_, err := NewEngine(store).Merge(context.Background(), "P", ids)
	if !errors.Is(err, ErrNameCollision) {
		t.Fatalf("expected ErrNameCollision, got %v", err)
	}

	if store.Exists("P") {
		t.Fatalf("a failed merge must not leave a project file")
	}
	ids, listErr := store.List()
	if listErr != nil {
		t.Fatalf("List: %v", listErr)
	}
	if !reflect.DeepEqual(ids, []string{"A", "B"}) {
		t.Fatalf("expected only sources to remain, got %v", ids)
	}
}

func TestMergeRejectsInvalidProjectID(t *testing.T) {
	store := newStore(t)

	if _, err := NewEngine(store).Merge(context.Background(), "../escape", nil); !errors.Is(err, filesystem.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}
