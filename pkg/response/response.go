package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// OK writes payload as-is with status 200. Search payloads are not wrapped
// in an envelope; clients read the category keys at the top level.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Accepted writes a 202 with the given payload.
func Accepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}

// Error sends an error response.
func Error(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorBody{Code: code, Error: message})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// ServiceUnavailable sends a 503 error response.
func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, "UNAVAILABLE", message)
}

// InternalError sends a 500 with a generic message and the underlying
// error's text so operators can correlate it with the logs.
func InternalError(c *gin.Context, message string, err error) {
	body := ErrorBody{Code: "INTERNAL_ERROR", Error: message}
	if err != nil {
		body.Message = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}
