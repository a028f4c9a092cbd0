package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the standard error payload.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Error sends an error payload with the given status.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorBody{Error: message})
}

// ErrorWithCode sends an error payload carrying a machine-readable code.
func ErrorWithCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorBody{Error: message, Code: code})
}

// ErrorWithDetails sends an error payload with a code and extra details.
func ErrorWithDetails(c *gin.Context, status int, code, message string, details any) {
	c.JSON(status, ErrorBody{Error: message, Code: code, Details: details})
}

// BadRequest sends a 400 response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 response.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "unauthorized"
	}
	Error(c, http.StatusUnauthorized, message)
}

// Forbidden sends a 403 response.
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "forbidden"
	}
	Error(c, http.StatusForbidden, message)
}

// NotFound sends a 404 response.
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "not found"
	}
	Error(c, http.StatusNotFound, message)
}

// PaymentRequired sends a 402 response.
func PaymentRequired(c *gin.Context, message string) {
	Error(c, http.StatusPaymentRequired, message)
}

// ServiceUnavailable sends a 503 response.
func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = "service unavailable"
	}
	Error(c, http.StatusServiceUnavailable, message)
}

// InternalError sends a 500 response.
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "internal error"
	}
	Error(c, http.StatusInternalServerError, message)
}
