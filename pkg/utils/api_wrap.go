package utils

import (
	"errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"net/http"
)

type APIResponse struct {
	Status    string            `json:"status"`
	Code      int               `json:"code"`
	Message   string            `json:"message,omitempty"`
	ErrorKind string            `json:"error_kind,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	TraceID   string            `json:"trace_id,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
}

const (
	KindValidation         = "validation_error"
	KindGeneration         = "generation_error"
	KindGateway            = "gateway_error"
	KindConflict           = "conflict"
	KindNotFound           = "not_found"
	KindUnauthorized       = "unauthorized"
	KindForbidden          = "forbidden"
	KindSimulationDisabled = "simulation_disabled"
	KindBadRequest         = "bad_request"
	KindInternal           = "internal_error"
)

type errorMapping struct {
	target  error
	code    int
	kind    string
	message string
}

// checked in order; the first match wins
var serviceErrors = []errorMapping{
	{ErrValidation, http.StatusUnprocessableEntity, KindValidation, "Validation failed"},
	{ErrOrderNotFound, http.StatusNotFound, KindNotFound, "Order not found"},
	{ErrForbidden, http.StatusForbidden, KindForbidden, "Forbidden: you cannot access this order"},
	{ErrSimulationDisabled, http.StatusForbidden, KindSimulationDisabled, "Payment simulation is only available in development"},
	{ErrGeneration, http.StatusInternalServerError, KindGeneration, "Failed to generate payment QR code"},
	{ErrConflict, http.StatusConflict, KindConflict, "Payment was already updated"},
	{ErrGateway, http.StatusBadGateway, KindGateway, "Payment gateway error"},
	{ErrInvalidPage, http.StatusBadRequest, KindBadRequest, "Page must be greater than 0"},
	{ErrInvalidPageSize, http.StatusBadRequest, KindBadRequest, "Page size must be between 1 and 100"},
	{ErrDatabaseError, http.StatusInternalServerError, KindInternal, "Internal server error"},
}

func traceIDOf(c *gin.Context) string {
	return c.GetString("trace_id")
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	respond(c, http.StatusOK, data, message)
}

func RespondCreated(c *gin.Context, data interface{}, message string) {
	respond(c, http.StatusCreated, data, message)
}

func respond(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, APIResponse{
		Status:  "success",
		Code:    code,
		Message: message,
		TraceID: traceIDOf(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:    "error",
		Code:      code,
		Message:   message,
		ErrorKind: kindForStatus(code),
		TraceID:   traceIDOf(c),
	})
}

// RespondBadRequest is used for bodies that are not even valid JSON.
func RespondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, APIResponse{
		Status:    "error",
		Code:      http.StatusBadRequest,
		Message:   "Malformed request body: " + err.Error(),
		ErrorKind: KindBadRequest,
		TraceID:   traceIDOf(c),
	})
}

func HandleServiceError(c *gin.Context, err error) {
	resp := APIResponse{
		Status:    "error",
		Code:      http.StatusInternalServerError,
		Message:   "Internal server error",
		ErrorKind: KindInternal,
		TraceID:   traceIDOf(c),
	}

	matched := false
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			resp.Code, resp.ErrorKind, resp.Message = m.code, m.kind, m.message
			matched = true
			break
		}
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		resp.Errors = verr.Fields
	}
	if errors.Is(err, ErrGeneration) {
		resp.Message = resp.Message + ": " + err.Error()
	}

	if !matched || resp.Code >= http.StatusInternalServerError {
		Logger(c).Error("request failed", zap.Error(err), zap.String("trace_id", resp.TraceID))
	}
	c.JSON(resp.Code, resp)
}

func kindForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnprocessableEntity:
		return KindValidation
	}
	if code >= http.StatusInternalServerError {
		return KindInternal
	}
	return ""
}

const loggerKey = "logger"

// Logger returns the request-scoped logger installed by the logging
// middleware, or a no-op logger.
func Logger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.L()
}

func SetLogger(c *gin.Context, l *zap.Logger) {
	c.Set(loggerKey, l)
}
