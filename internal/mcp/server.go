package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dateja/sqlitedb/internal/usecase"
)

// Server exposes a Dataset as MCP tools.
type Server struct {
	server  *mcp.Server
	dataset *usecase.Dataset
}

// NewServer creates a new MCP server instance
func NewServer(dataset *usecase.Dataset, version string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "sqlitedb",
		Version: version,
	}, nil)

	s := &Server{
		server:  mcpServer,
		dataset: dataset,
	}

	s.registerTools()

	return s
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dataset_ingest",
		Description: "Ingest a csv, xls, xlsx or sqlite file from disk and return its file id",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dataset_list",
		Description: "List every file id held in the upload directory",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dataset_schema",
		Description: "Describe the tables of a file id: CREATE statements and up to ten example rows",
	}, s.handleSchema)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dataset_query",
		Description: "Run a SQL statement against a file id and return positional rows",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dataset_info",
		Description: "Get upload metadata, row count and columns of a file id",
	}, s.handleInfo)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "project_merge",
		Description: "Rebuild a project database from the cleaned tables of the given file ids",
	}, s.handleMerge)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "project_schema",
		Description: "Merge the given file ids into a project and describe its cleaned tables",
	}, s.handleProjectSchema)
}

// Input/Output types for each tool

type IngestInput struct {
	Path      string `json:"path" jsonschema:"Path of the file to ingest"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"Project the upload belongs to"`
	UserID    string `json:"user_id,omitempty" jsonschema:"User the upload belongs to"`
}

type IngestOutput struct {
	FileID   string   `json:"file_id"`
	Kind     string   `json:"kind"`
	Size     int64    `json:"size"`
	Columns  []string `json:"columns"`
	RowCount int      `json:"row_count"`
}

type ListInput struct{}

type ListOutput struct {
	IDs []string `json:"ids"`
}

type SchemaInput struct {
	ID   string `json:"id" jsonschema:"File or project id"`
	Role string `json:"role,omitempty" jsonschema:"Substring selecting tables: data, data_cleaned (default) or data_analysed"`
}

type SchemaOutput struct {
	Schema string `json:"schema"`
}

type QueryInput struct {
	ID  string `json:"id" jsonschema:"File or project id"`
	SQL string `json:"sql" jsonschema:"SQL statement passed to sqlite unchanged"`
}

type QueryOutput struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type InfoInput struct {
	ID string `json:"id" jsonschema:"File id"`
}

type InfoOutput struct {
	FileID    string   `json:"file_id"`
	ProjectID string   `json:"project_id,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
	FileName  string   `json:"file_name,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Size      int64    `json:"size"`
	CreatedAt string   `json:"created_at,omitempty"`
	RowCount  int64    `json:"row_count"`
	Columns   []string `json:"columns"`
}

type MergeInput struct {
	ProjectID string   `json:"project_id" jsonschema:"Project id to rebuild"`
	IDs       []string `json:"ids" jsonschema:"File ids in merge order; the position becomes the table suffix"`
}

type MergeOutput struct {
	ProjectID string        `json:"project_id"`
	Tables    []MergedTable `json:"tables"`
	Skipped   []string      `json:"skipped"`
}

type MergedTable struct {
	Name        string `json:"name"`
	Source      string `json:"source"`
	SourceTable string `json:"source_table"`
	Rows        int    `json:"rows"`
}

type ProjectSchemaInput struct {
	ProjectID string   `json:"project_id,omitempty" jsonschema:"Project id to rebuild, test when empty"`
	IDs       []string `json:"ids" jsonschema:"File ids in merge order"`
}

type ProjectSchemaOutput struct {
	Schema  string   `json:"schema"`
	Skipped []string `json:"skipped"`
}

// Tool handlers

func (s *Server) handleIngest(ctx context.Context, req *mcp.CallToolRequest, input IngestInput) (*mcp.CallToolResult, IngestOutput, error) {
	f, err := os.Open(input.Path)
	if err != nil {
		return nil, IngestOutput{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	res, err := s.dataset.Upload(ctx, usecase.UploadInput{
		Reader:    f,
		FileName:  filepath.Base(input.Path),
		ProjectID: input.ProjectID,
		UserID:    input.UserID,
	})
	if err != nil {
		return nil, IngestOutput{}, fmt.Errorf("failed to ingest file: %w", err)
	}

	cols := res.Columns
	if cols == nil {
		cols = []string{}
	}
	return nil, IngestOutput{
		FileID:   res.ID,
		Kind:     string(res.Kind),
		Size:     res.Size,
		Columns:  cols,
		RowCount: res.RowCount,
	}, nil
}

func (s *Server) handleList(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	ids, err := s.dataset.List()
	if err != nil {
		return nil, ListOutput{}, fmt.Errorf("failed to list files: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return nil, ListOutput{IDs: ids}, nil
}

func (s *Server) handleSchema(ctx context.Context, req *mcp.CallToolRequest, input SchemaInput) (*mcp.CallToolResult, SchemaOutput, error) {
	summary, err := s.dataset.Describe(ctx, input.ID, input.Role)
	if err != nil {
		return nil, SchemaOutput{}, fmt.Errorf("failed to describe %s: %w", input.ID, err)
	}
	return nil, SchemaOutput{Schema: summary.String()}, nil
}

func (s *Server) handleQuery(ctx context.Context, req *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	res, err := s.dataset.Execute(ctx, input.ID, input.SQL)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	rows := make([][]any, len(res.Rows))
	for i, row := range res.Rows {
		out := make([]any, len(row))
		for j, v := range row {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			out[j] = v
		}
		rows[i] = out
	}
	return nil, QueryOutput{Columns: res.Columns, Rows: rows}, nil
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest, input InfoInput) (*mcp.CallToolResult, InfoOutput, error) {
	info, err := s.dataset.Info(ctx, input.ID)
	if err != nil {
		return nil, InfoOutput{}, fmt.Errorf("failed to get info: %w", err)
	}

	out := InfoOutput{
		FileID:    info.FileID,
		ProjectID: info.ProjectID,
		UserID:    info.UserID,
		FileName:  info.FileName,
		Kind:      info.Kind,
		Size:      info.Size,
		RowCount:  info.RowCount,
		Columns:   info.Columns,
	}
	if !info.CreatedAt.IsZero() {
		out.CreatedAt = info.CreatedAt.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleMerge(ctx context.Context, req *mcp.CallToolRequest, input MergeInput) (*mcp.CallToolResult, MergeOutput, error) {
	report, err := s.dataset.Merge(ctx, input.ProjectID, input.IDs)
	if err != nil {
		return nil, MergeOutput{}, fmt.Errorf("failed to merge project %s: %w", input.ProjectID, err)
	}

	tables := make([]MergedTable, 0, len(report.Tables))
	for _, t := range report.Tables {
		tables = append(tables, MergedTable{
			Name:        t.Name,
			Source:      t.Source,
			SourceTable: t.SourceTable,
			Rows:        t.Rows,
		})
	}
	return nil, MergeOutput{
		ProjectID: report.ProjectID,
		Tables:    tables,
		Skipped:   report.Skipped,
	}, nil
}

func (s *Server) handleProjectSchema(ctx context.Context, req *mcp.CallToolRequest, input ProjectSchemaInput) (*mcp.CallToolResult, ProjectSchemaOutput, error) {
	if len(input.IDs) == 0 {
		return nil, ProjectSchemaOutput{}, fmt.Errorf("ids is required")
	}
	summary, report, err := s.dataset.DescribeProject(ctx, input.ProjectID, input.IDs)
	if err != nil {
		return nil, ProjectSchemaOutput{}, fmt.Errorf("failed to describe project: %w", err)
	}
	return nil, ProjectSchemaOutput{Schema: summary.String(), Skipped: report.Skipped}, nil
}
