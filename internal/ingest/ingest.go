// Package ingest turns uploaded artifacts into identifier databases. Delimited
// text and spreadsheets become a single table named "data"; native sqlite
// files are stored byte for byte.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dateja/sqlitedb/internal/filesystem"
	"github.com/dateja/sqlitedb/internal/logger"
)

// Kind is the origin format of an ingested artifact.
type Kind string

const (
	KindCSV    Kind = "csv"
	KindXLS    Kind = "xls"
	KindXLSX   Kind = "xlsx"
	KindSQLite Kind = "sqlite"
)

// Kinds lists the accepted formats in the order they are advertised.
var Kinds = []Kind{KindCSV, KindXLS, KindXLSX, KindSQLite}

// TableName is the table every parsed artifact is written to.
const TableName = "data"

// ErrUnsupportedFormat rejects artifacts whose extension is not accepted.
var ErrUnsupportedFormat = errors.New("ingest: unsupported file format")

// RejectedError reports an artifact that could not be ingested.
type RejectedError struct {
	Reason string
	Err    error
}

func (e *RejectedError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

func reject(reason string, err error) error {
	return &RejectedError{Reason: reason, Err: err}
}

// KindFromName derives the artifact kind from a file name or bare extension.
func KindFromName(name string) (Kind, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		ext = strings.ToLower(strings.TrimPrefix(name, "."))
	}
	for _, k := range Kinds {
		if string(k) == ext {
			return k, nil
		}
	}
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return "", reject(
		fmt.Sprintf("invalid file format %q, allowed formats are: %s", ext, strings.Join(names, ", ")),
		ErrUnsupportedFormat,
	)
}

// Result describes a completed ingestion.
type Result struct {
	ID       string   `json:"file_uuid"`
	Kind     Kind     `json:"kind"`
	Path     string   `json:"-"`
	Size     int64    `json:"size"`
	Columns  []string `json:"columns,omitempty"`
	RowCount int      `json:"row_count"`
}

// Normalizer writes ingested artifacts into a file store.
type Normalizer struct {
	store *filesystem.Store
	newID func() string
}

// NewNormalizer returns a normalizer minting random UUIDs.
func NewNormalizer(store *filesystem.Store) *Normalizer {
	return &Normalizer{store: store, newID: uuid.NewString}
}

// Ingest consumes r, declared by name's extension, and returns the freshly
// minted identifier. Unsupported extensions are rejected before r is read.
// The staged upload is always removed; on failure no backing file remains.
func (n *Normalizer) Ingest(ctx context.Context, r io.Reader, name string) (*Result, error) {
	kind, err := KindFromName(name)
	if err != nil {
		return nil, err
	}

	id := n.newID()
	log := logger.FromContext(ctx).With(zap.String("id", id), zap.String("kind", string(kind)))

	var res *Result
	if kind == KindSQLite {
		res, err = n.copyNative(r, id)
	} else {
		res, err = n.convert(ctx, r, id, kind)
	}
	if err != nil {
		log.Debug("ingestion failed", zap.Error(err))
		return nil, err
	}

	res.Kind = kind
	log.Debug("ingested artifact", zap.Int64("size", res.Size), zap.Int("rows", res.RowCount))
	return res, nil
}

func (n *Normalizer) copyNative(r io.Reader, id string) (*Result, error) {
	staged, err := n.store.Stage(filesystem.Extension)
	if err != nil {
		return nil, err
	}
	stagedPath := staged.Name()
	defer func() { _ = filesystem.DeleteFile(stagedPath) }()

	size, err := io.Copy(staged, r)
	if closeErr := staged.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	path, err := n.store.Publish(stagedPath, id)
	if err != nil {
		return nil, err
	}
	return &Result{ID: id, Path: path, Size: size}, nil
}

func (n *Normalizer) convert(ctx context.Context, r io.Reader, id string, kind Kind) (*Result, error) {
	raw, err := n.store.Stage("." + string(kind))
	if err != nil {
		return nil, err
	}
	rawPath := raw.Name()
	defer func() { _ = filesystem.DeleteFile(rawPath) }()

	size, err := io.Copy(raw, r)
	if closeErr := raw.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	tbl, err := parse(rawPath, kind)
	if err != nil {
		return nil, err
	}

	dbFile, err := n.store.Stage(filesystem.Extension)
	if err != nil {
		return nil, err
	}
	dbPath := dbFile.Name()
	_ = dbFile.Close()
	defer func() { _ = filesystem.DeleteFile(dbPath) }()

	if err := writeTable(ctx, dbPath, TableName, tbl); err != nil {
		return nil, err
	}

	path, err := n.store.Publish(dbPath, id)
	if err != nil {
		return nil, err
	}

	return &Result{
		ID:       id,
		Path:     path,
		Size:     size,
		Columns:  tbl.ColumnNames(),
		RowCount: len(tbl.Rows),
	}, nil
}

func parse(path string, kind Kind) (*Table, error) {
	switch kind {
	case KindCSV:
		//nolint:gosec // G304: staged path inside the upload directory
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return readCSV(f)
	case KindXLSX:
		return readXLSX(path)
	case KindXLS:
		return readXLS(path)
	default:
		return nil, reject("no parser for "+string(kind), ErrUnsupportedFormat)
	}
}
