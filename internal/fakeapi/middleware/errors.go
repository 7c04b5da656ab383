package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried by failure envelopes.
const (
	CodeBadRequest       = "bad_request"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeRateLimited      = "too_many_requests"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeInternal         = "internal_error"
)

// ErrorDetail names the offending field of a validation failure.
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorBody is the failure envelope of the backend.
type ErrorBody struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Code      string       `json:"code"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// Fail aborts the request with the failure envelope. 5xx answers are
// logged.
func Fail(c *gin.Context, status int, code, msg string) {
	FailField(c, status, code, "", msg)
}

// FailField is Fail for a validation error about one field.
func FailField(c *gin.Context, status int, code, field, msg string) {
	if status >= http.StatusInternalServerError {
		LoggerFrom(c).Error().Int("status", status).Str("code", code).Msg(msg)
	}
	body := ErrorBody{
		Success:   false,
		Message:   msg,
		Code:      code,
		RequestID: RequestIDFrom(c),
	}
	if field != "" {
		body.Error = &ErrorDetail{Field: field, Message: msg}
	}
	c.AbortWithStatusJSON(status, body)
}
