package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Page      int       `json:"page,omitempty"`
	PageSize  int       `json:"page_size,omitempty"`
	Count     int       `json:"count,omitempty"`
}

func writeJSON(c *gin.Context, status int, data any) {
	writeJSONWithMeta(c, status, data, nil)
}

func writeJSONWithMeta(c *gin.Context, status int, data any, meta *ResponseMeta) {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"

	c.JSON(status, JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: requestID(c),
	})
}

func writeJSONError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: requestID(c),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// errorStatus maps an error kind to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch shared.Kind(err) {
	case shared.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case shared.ErrConflict:
		return http.StatusConflict, "conflict"
	case shared.ErrInvalidState:
		return http.StatusUnprocessableEntity, "invalid_state"
	case shared.ErrCapacityExceeded:
		return http.StatusConflict, "capacity_exceeded"
	case shared.ErrForbidden:
		return http.StatusForbidden, "forbidden"
	case shared.ErrInvalidInput:
		return http.StatusBadRequest, "invalid_input"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError renders err. Domain errors expose their message; anything else
// is logged and hidden behind a generic one.
func (s *Server) writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)

	msg := "An unexpected error occurred"
	var de *shared.DomainError
	switch {
	case errors.As(err, &de):
		msg = de.Message
	case status != http.StatusInternalServerError:
		msg = err.Error()
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context(), s.logger).Error("request failed",
			logger.String("method", c.Request.Method),
			logger.String("route", c.FullPath()),
			logger.Err(err),
		)
	}
	writeJSONError(c, status, code, msg)
}

// bindError reports a malformed request body.
func bindError(c *gin.Context, err error) {
	writeJSONError(c, http.StatusBadRequest, "invalid_input", "malformed request: "+err.Error())
}
