package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dateja/sqlitedb/internal/catalog"
	"github.com/dateja/sqlitedb/internal/filesystem"
	"github.com/dateja/sqlitedb/internal/ingest"
	"github.com/dateja/sqlitedb/internal/logger"
	"github.com/dateja/sqlitedb/internal/merge"
	"github.com/dateja/sqlitedb/internal/query"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeBadRequest        = "bad_request"
	CodeNotFound          = "not_found"
	CodeMissingTable      = "missing_table"
	CodeIngestionRejected = "ingestion_rejected"
	CodeQueryError        = "query_error"
	CodeInvalidID         = "invalid_id"
	CodeNameCollision     = "name_collision"
	CodeInternal          = "internal"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func classify(err error) (int, string) {
	var rejected *ingest.RejectedError
	var qerr *query.Error
	switch {
	case errors.Is(err, filesystem.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, catalog.ErrMissingTable):
		return http.StatusNotFound, CodeMissingTable
	case errors.Is(err, filesystem.ErrInvalidID):
		return http.StatusBadRequest, CodeInvalidID
	case errors.As(err, &rejected):
		return http.StatusBadRequest, CodeIngestionRejected
	case errors.As(err, &qerr):
		return http.StatusBadRequest, CodeQueryError
	case errors.Is(err, merge.ErrNameCollision):
		return http.StatusConflict, CodeNameCollision
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// fail writes the error body for err. Internal failures are logged and their
// details withheld; query errors carry the engine message unchanged.
func (s *Server) fail(c echo.Context, err error) error {
	status, code := classify(err)
	log := logger.FromEcho(c, s.log)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		msg = "internal server error"
	} else {
		log.Debug("request rejected", zap.String("code", code), zap.Error(err))
	}
	return c.JSON(status, ErrorResponse{Error: msg, Code: code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: CodeBadRequest})
}
