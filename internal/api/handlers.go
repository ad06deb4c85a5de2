package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dateja/sqlitedb/internal/catalog"
	"github.com/dateja/sqlitedb/internal/ingest"
	"github.com/dateja/sqlitedb/internal/logger"
	"github.com/dateja/sqlitedb/internal/usecase"
)

// QueryRequest is the body of POST /execute-query.
type QueryRequest struct {
	FileUUID string `json:"file_uuid"`
	Query    string `json:"query"`
}

// MergeRequest is the body of POST /merge.
type MergeRequest struct {
	ProjectUUID string   `json:"project_uuid"`
	FileUUIDs   []string `json:"file_uuids"`
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "This is a sqlite-server"})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *Server) uploadFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return s.fail(c, err)
	}
	defer func() { _ = f.Close() }()

	res, err := s.dataset.Upload(c.Request().Context(), usecase.UploadInput{
		Reader:    f,
		FileName:  fh.Filename,
		ProjectID: c.FormValue("project_uuid"),
		UserID:    c.FormValue("user_uuid"),
	})
	if err != nil {
		return s.fail(c, err)
	}

	logger.FromEcho(c, s.log).Info("file uploaded",
		zap.String("file_uuid", res.ID),
		zap.String("kind", string(res.Kind)),
		zap.Int64("size", res.Size))
	return c.JSON(http.StatusOK, echo.Map{"file_uuid": res.ID})
}

func (s *Server) executeQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.FileUUID == "" || strings.TrimSpace(req.Query) == "" {
		return badRequest(c, "file_uuid and query are required")
	}

	res, err := s.dataset.Execute(c.Request().Context(), req.FileUUID, req.Query)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"results": res.Rows})
}

func (s *Server) getSchema(c echo.Context) error {
	summary, err := s.dataset.Describe(c.Request().Context(), c.Param("uuid"), c.QueryParam("role"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"schema": summary.String()})
}

func (s *Server) getSchemas(c echo.Context) error {
	var ids []string
	for _, v := range c.QueryParams()["file_uuids"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	if len(ids) == 0 {
		return badRequest(c, "file_uuids is required")
	}

	summary, _, err := s.dataset.DescribeProject(c.Request().Context(), c.QueryParam("project_uuid"), ids)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"schema": summary.String()})
}

func (s *Server) merge(c echo.Context) error {
	var req MergeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ProjectUUID == "" {
		return badRequest(c, "project_uuid is required")
	}

	report, err := s.dataset.Merge(c.Request().Context(), req.ProjectUUID, req.FileUUIDs)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) getFileDataframe(c echo.Context) error {
	table := c.QueryParam("table_name")
	if table == "" {
		table = ingest.TableName
	}
	records, err := s.dataset.Records(c.Request().Context(), c.Param("uuid"), table)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) downloadCleanedData(c echo.Context) error {
	id := c.Param("uuid")

	var buf bytes.Buffer
	if err := s.dataset.ExportCSV(c.Request().Context(), id, string(catalog.RoleCleaned), &buf); err != nil {
		return s.fail(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", id+"_data_cleaned.csv"))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) getFileMetadata(c echo.Context) error {
	info, err := s.dataset.Info(c.Request().Context(), c.Param("uuid"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) getUploadsDir(c echo.Context) error {
	dir, err := s.dataset.UploadDir()
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"upload_dir": dir})
}
