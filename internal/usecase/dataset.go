package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/dateja/sqlitedb/internal/catalog"
	"github.com/dateja/sqlitedb/internal/database"
	"github.com/dateja/sqlitedb/internal/filesystem"
	"github.com/dateja/sqlitedb/internal/ingest"
	"github.com/dateja/sqlitedb/internal/logger"
	"github.com/dateja/sqlitedb/internal/merge"
	"github.com/dateja/sqlitedb/internal/query"
	"github.com/dateja/sqlitedb/internal/schema"
	"github.com/dateja/sqlitedb/internal/services"
)

// DefaultProjectID names the project describe-project merges into when the
// caller does not pick one.
const DefaultProjectID = "test"

// Recorder observes finished dataset operations.
type Recorder interface {
	IngestDone(kind string, err error)
	QueryDone(err error)
	MergeDone(tables, skipped int)
}

type nopRecorder struct{}

func (nopRecorder) IngestDone(string, error) {}
func (nopRecorder) QueryDone(error) {}
func (nopRecorder) MergeDone(int, int) {}

// Option configures a Dataset.
type Option func(*Dataset)

// WithMetadata records bookkeeping for every upload and enables Info.
func WithMetadata(files *services.FileService) Option {
	return func(d *Dataset) { d.files = files }
}

// WithRecorder reports operation outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(d *Dataset) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithSampleRows sets how many example rows schema summaries carry.
func WithSampleRows(n int) Option {
	return func(d *Dataset) { d.sampleRows = n }
}

// Dataset is the single entry point the HTTP, MCP and CLI surfaces share.
type Dataset struct {
	store      *filesystem.Store
	normalizer *ingest.Normalizer
	introspect *schema.Introspector
	executor   *query.Executor
	engine     *merge.Engine
	files      *services.FileService
	recorder   Recorder
	sampleRows int
}

// NewDataset wires every component over one upload directory.
func NewDataset(store *filesystem.Store, opts ...Option) *Dataset {
	d := &Dataset{store: store, recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(d)
	}
	d.normalizer = ingest.NewNormalizer(store)
	d.introspect = schema.NewIntrospector(store, d.sampleRows)
	d.executor = query.NewExecutor(store)
	d.engine = merge.NewEngine(store)
	return d
}

// UploadInput is one artifact to ingest.
type UploadInput struct {
	Reader    io.Reader
	FileName  string
	ProjectID string
	UserID    string
}

// Upload ingests the artifact and records its metadata when a metadata
// database is configured. A metadata failure does not undo the ingestion.
func (d *Dataset) Upload(ctx context.Context, input UploadInput) (*ingest.Result, error) {
	res, err := d.normalizer.Ingest(ctx, input.Reader, input.FileName)
	kind := ""
	if res != nil {
		kind = string(res.Kind)
	} else if k, kerr := ingest.KindFromName(input.FileName); kerr == nil {
		kind = string(k)
	}
	d.recorder.IngestDone(kind, err)
	if err != nil {
		return nil, err
	}

	if d.files != nil {
		record := database.FileRecord{
			FileID:    res.ID,
			ProjectID: input.ProjectID,
			UserID:    input.UserID,
			FileName:  filepath.Base(input.FileName),
			Kind:      string(res.Kind),
			SizeBytes: res.Size,
		}
		if err := d.files.Record(ctx, record); err != nil {
			logger.FromContext(ctx).Warn("failed to record file metadata",
				zap.String("file_uuid", res.ID),
				zap.Error(err))
		}
	}
	return res, nil
}

// Describe summarises the tables of id matching role (cleaned by default).
func (d *Dataset) Describe(ctx context.Context, id, role string) (*schema.Summary, error) {
	return d.introspect.Describe(ctx, id, role)
}

// DescribeProject rebuilds projectID from ids and summarises its cleaned tables.
func (d *Dataset) DescribeProject(ctx context.Context, projectID string, ids []string) (*schema.Summary, *merge.Report, error) {
	if projectID == "" {
		projectID = DefaultProjectID
	}
	report, err := d.Merge(ctx, projectID, ids)
	if err != nil {
		return nil, nil, err
	}
	summary, err := d.introspect.Describe(ctx, projectID, string(catalog.RoleCleaned))
	if err != nil {
		return nil, report, err
	}
	return summary, report, nil
}

// Execute runs stmt against id.
func (d *Dataset) Execute(ctx context.Context, id, stmt string) (*query.Result, error) {
	res, err := d.executor.Execute(ctx, id, stmt)
	var qerr *query.Error
	if err == nil || errors.As(err, &qerr) {
		d.recorder.QueryDone(err)
	}
	return res, err
}

// Merge rebuilds projectID from the cleaned tables of ids.
func (d *Dataset) Merge(ctx context.Context, projectID string, ids []string) (*merge.Report, error) {
	report, err := d.engine.Merge(ctx, projectID, ids)
	if err != nil {
		return nil, err
	}
	d.recorder.MergeDone(len(report.Tables), len(report.Skipped))
	return report, nil
}

// Records returns table of id as column keyed records; table defaults to the raw table.
func (d *Dataset) Records(ctx context.Context, id, table string) ([]map[string]any, error) {
	if table == "" {
		table = ingest.TableName
	}
	return d.executor.Records(ctx, id, table)
}

// ExportCSV writes table of id as CSV; table defaults to the cleaned table.
func (d *Dataset) ExportCSV(ctx context.Context, id, table string, w io.Writer) error {
	if table == "" {
		table = string(catalog.RoleCleaned)
	}
	return d.executor.ExportCSV(ctx, id, table, w)
}

// Tables lists every table of id.
func (d *Dataset) Tables(ctx context.Context, id string) ([]catalog.Table, error) {
	return d.executor.Tables(ctx, id)
}

// List returns every identifier held by the store.
func (d *Dataset) List() ([]string, error) {
	return d.store.List()
}

// UploadDir returns the absolute upload directory.
func (d *Dataset) UploadDir() (string, error) {
	return filepath.Abs(d.store.Dir())
}

// Info is the recorded metadata of an upload plus the shape of its raw table.
type Info struct {
	FileID    string    `json:"file_uuid"`
	ProjectID string    `json:"project_uuid,omitempty"`
	UserID    string    `json:"user_uuid,omitempty"`
	FileName  string    `json:"file_name,omitempty"`
	Kind      string    `json:"file_kind,omitempty"`
	Size      int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	RowCount  int64     `json:"row_count"`
	Columns   []string  `json:"columns"`
}

// Info returns what is known about id. When metadata is configured, an upload
// without a record is reported as not found, and a record whose backing file
// is gone is dropped. A file without the raw table fails with
// catalog.ErrMissingTable.
func (d *Dataset) Info(ctx context.Context, id string) (*Info, error) {
	info := &Info{FileID: id}

	if d.files != nil {
		record, err := d.files.Get(ctx, id)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", filesystem.ErrNotFound, id)
			}
			return nil, err
		}
		if !d.store.Exists(id) {
			if err := d.files.Forget(ctx, id); err != nil {
				logger.FromContext(ctx).Warn("failed to drop stale file metadata",
					zap.String("file_uuid", id),
					zap.Error(err))
			}
			return nil, fmt.Errorf("%w: %s", filesystem.ErrNotFound, id)
		}
		info.ProjectID = record.ProjectID
		info.UserID = record.UserID
		info.FileName = record.FileName
		info.Kind = record.Kind
		info.Size = record.SizeBytes
		info.CreatedAt = record.CreatedAt
	} else {
		path, err := d.store.Resolve(id)
		if err != nil {
			return nil, err
		}
		size, err := filesystem.FileSize(path)
		if err != nil {
			return nil, err
		}
		info.Size = size
	}

	stats, err := d.executor.Stats(ctx, id, ingest.TableName)
	if err != nil {
		return nil, err
	}
	info.RowCount = stats.RowCount
	info.Columns = stats.Columns
	return info, nil
}
