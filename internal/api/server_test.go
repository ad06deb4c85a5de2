package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/dateja/sqlitedb/internal/database"
	"github.com/dateja/sqlitedb/internal/filesystem"
	"github.com/dateja/sqlitedb/internal/metrics"
	"github.com/dateja/sqlitedb/internal/services"
	"github.com/dateja/sqlitedb/internal/usecase"
)

func setupServer(t *testing.T, opts Options) *Server {
	t.Helper()
	dbCtx, err := database.CreateDatabase(":memory:")
	if err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = database.CloseDatabase(dbCtx) })

	store := filesystem.NewStore(filepath.Join(t.TempDir(), "uploads"))
	dataset := usecase.NewDataset(store, usecase.WithMetadata(services.NewFileService(dbCtx)))
	return New(dataset, opts)
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return do(t, s, req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func uploadFile(t *testing.T, s *Server, name, content string) string {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.WriteField("project_uuid", "proj")
	_ = mw.WriteField("user_uuid", "user")
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload-file", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := do(t, s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		FileUUID string `json:"file_uuid"`
	}
	decode(t, rec, &resp)
	if resp.FileUUID == "" {
		t.Fatalf("expected file_uuid in %s", rec.Body.String())
	}
	return resp.FileUUID
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	var resp ErrorResponse
	decode(t, rec, &resp)
	if resp.Code != code {
		t.Fatalf("expected code %q, got %+v", code, resp)
	}
	return resp
}

func TestRootAndHealth(t *testing.T) {
	s := setupServer(t, Options{})

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "This is a sqlite-server") {
		t.Fatalf("unexpected root response %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatalf("expected health with request id, got %d %v", rec.Code, rec.Header())
	}
}

func TestUploadAndExecuteQuery(t *testing.T) {
	s := setupServer(t, Options{})
	id := uploadFile(t, s, "scores.csv", "name,score\na,1\nb,2\n")

	rec := doJSON(t, s, http.MethodPost, "/execute-query", QueryRequest{FileUUID: id, Query: "SELECT * FROM data ORDER BY score DESC"})
	if rec.Code != http.StatusOK {
		t.Fatalf("execute returned %d: %s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"results":[["b",2],["a",1]]}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestExecuteQueryErrors(t *testing.T) {
	s := setupServer(t, Options{})
	id := uploadFile(t, s, "scores.csv", "name,score\na,1\n")

	assertError(t, doJSON(t, s, http.MethodPost, "/execute-query", QueryRequest{FileUUID: "ghost", Query: "SELECT 1"}),
		http.StatusNotFound, CodeNotFound)
	resp := assertError(t, doJSON(t, s, http.MethodPost, "/execute-query", QueryRequest{FileUUID: id, Query: "SELECT nope FROM data"}),
		http.StatusBadRequest, CodeQueryError)
	if !strings.Contains(resp.Error, "no such column: nope") {
		t.Fatalf("expected engine message, got %q", resp.Error)
	}
	assertError(t, doJSON(t, s, http.MethodPost, "/execute-query", QueryRequest{FileUUID: id}),
		http.StatusBadRequest, CodeBadRequest)
}

func TestUploadRejections(t *testing.T) {
	s := setupServer(t, Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "notes.txt")
	_, _ = fw.Write([]byte("hello"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload-file", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	assertError(t, do(t, s, req), http.StatusBadRequest, CodeIngestionRejected)

	req = httptest.NewRequest(http.MethodPost, "/upload-file", strings.NewReader(""))
	assertError(t, do(t, s, req), http.StatusBadRequest, CodeBadRequest)
}

func TestUploadBodyLimit(t *testing.T) {
	s := setupServer(t, Options{MaxUploadBytes: 64})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "big.csv")
	_, _ = fw.Write([]byte("x\n" + strings.Repeat("1\n", 200)))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload-file", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())

	if rec := do(t, s, req); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSchemaDistinguishesMissingTableFromMissingFile(t *testing.T) {
	s := setupServer(t, Options{})
	id := uploadFile(t, s, "scores.csv", "name,score\na,1\n")

	assertError(t, do(t, s, httptest.NewRequest(http.MethodGet, "/get-schema/"+id, nil)), http.StatusNotFound, CodeMissingTable)
	assertError(t, do(t, s, httptest.NewRequest(http.MethodGet, "/get-schema/ghost", nil)), http.StatusNotFound, CodeNotFound)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/get-schema/"+id+"?role=data", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("schema returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Schema string `json:"schema"`
	}
	decode(t, rec, &resp)
	want := "Table: data\nCREATE statement: CREATE TABLE \"data\" (\"name\" TEXT, \"score\" INTEGER)\n\nExample rows:\n('a', 1)\n"
	if resp.Schema != want {
		t.Fatalf("expected schema %q, got %q", want, resp.Schema)
	}
}

func TestMergeAndProjectSchema(t *testing.T) {
	s := setupServer(t, Options{})
	first := uploadFile(t, s, "a.csv", "x\n1\n")
	second := uploadFile(t, s, "b.csv", "x\n2\n")
	for _, id := range []string{first, second} {
		rec := doJSON(t, s, http.MethodPost, "/execute-query", QueryRequest{FileUUID: id, Query: "CREATE TABLE data_cleaned AS SELECT * FROM data"})
		if rec.Code != http.StatusOK {
			t.Fatalf("clean %s returned %d: %s", id, rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodPost, "/merge", MergeRequest{ProjectUUID: "P", FileUUIDs: []string{first, "ghost", second}})
	if rec.Code != http.StatusOK {
		t.Fatalf("merge returned %d: %s", rec.Code, rec.Body.String())
	}
	var report struct {
		ProjectUUID string `json:"project_uuid"`
		Tables      []struct {
			Name string `json:"name"`
		} `json:"tables"`
		Skipped []string `json:"skipped"`
	}
	decode(t, rec, &report)
	if report.ProjectUUID != "P" || len(report.Tables) != 2 || len(report.Skipped) != 1 || report.Skipped[0] != "ghost" {
		t.Fatalf("unexpected merge report %+v", report)
	}

	rec = doJSON(t, s, http.MethodPost, "/execute-query", QueryRequest{FileUUID: "P", Query: "SELECT * FROM data_cleaned2"})
	if got := strings.TrimSpace(rec.Body.String()); got != `{"results":[[2]]}` {
		t.Fatalf("unexpected project rows %s", got)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/get-schemas?project_uuid=Q&file_uuids="+second+"&file_uuids="+first, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get-schemas returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Schema string `json:"schema"`
	}
	decode(t, rec, &resp)
	if !strings.HasPrefix(resp.Schema, "Table: data_cleaned0\n") || !strings.Contains(resp.Schema, "Table: data_cleaned1\n") {
		t.Fatalf("unexpected project schema %q", resp.Schema)
	}

	for _, target := range []string{"/get-schemas?project_uuid=P", "/get-schemas?project_uuid=P&file_uuids=,"} {
		assertError(t, do(t, s, httptest.NewRequest(http.MethodGet, target, nil)), http.StatusBadRequest, CodeBadRequest)
	}
	rec = doJSON(t, s, http.MethodPost, "/execute-query", QueryRequest{FileUUID: "P", Query: "SELECT * FROM data_cleaned0"})
	if got := strings.TrimSpace(rec.Body.String()); got != `{"results":[[1]]}` {
		t.Fatalf("project should survive a rejected get-schemas, got %s", got)
	}

	assertError(t, doJSON(t, s, http.MethodPost, "/merge", MergeRequest{ProjectUUID: "../x"}), http.StatusBadRequest, CodeInvalidID)
	assertError(t, doJSON(t, s, http.MethodPost, "/merge", MergeRequest{}), http.StatusBadRequest, CodeBadRequest)
}

func TestDataframeDownloadAndMetadata(t *testing.T) {
	s := setupServer(t, Options{})
	id := uploadFile(t, s, "scores.csv", "name,score\na,1\n")

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/get-file-dataframe/"+id, nil))
	if got := strings.TrimSpace(rec.Body.String()); got != `[{"name":"a","score":1}]` {
		t.Fatalf("unexpected dataframe %d %s", rec.Code, got)
	}
	assertError(t, do(t, s, httptest.NewRequest(http.MethodGet, "/get-file-dataframe/"+id+"?table_name=other", nil)),
		http.StatusNotFound, CodeMissingTable)

	assertError(t, do(t, s, httptest.NewRequest(http.MethodGet, "/download_cleaned_data/"+id, nil)),
		http.StatusNotFound, CodeMissingTable)
	doJSON(t, s, http.MethodPost, "/execute-query", QueryRequest{FileUUID: id, Query: "CREATE TABLE data_cleaned AS SELECT * FROM data"})
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/download_cleaned_data/"+id, nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "name,score\na,1\n" {
		t.Fatalf("unexpected download %d %q", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, id+"_data_cleaned.csv") {
		t.Fatalf("unexpected content disposition %q", cd)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/get-file-metadata/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metadata returned %d: %s", rec.Code, rec.Body.String())
	}
	var info usecase.Info
	decode(t, rec, &info)
	if info.FileName != "scores.csv" || info.ProjectID != "proj" || info.RowCount != 1 {
		t.Fatalf("unexpected info %+v", info)
	}
	assertError(t, do(t, s, httptest.NewRequest(http.MethodGet, "/get-file-metadata/ghost", nil)), http.StatusNotFound, CodeNotFound)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/get-uploads-dir", nil))
	var dir struct {
		UploadDir string `json:"upload_dir"`
	}
	decode(t, rec, &dir)
	if !filepath.IsAbs(dir.UploadDir) {
		t.Fatalf("expected absolute upload dir, got %q", dir.UploadDir)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupServer(t, Options{Metrics: metrics.New("sqlitedb")})
	do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",path="/health",service="sqlitedb",status="200"} 1`) {
		t.Fatalf("expected health request in metrics:\n%s", rec.Body.String())
	}
}
