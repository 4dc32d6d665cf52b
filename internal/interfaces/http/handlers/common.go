// Package handlers holds the gin handlers of the batch API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolGraph/internal/interfaces/http/middleware"
	"github.com/turtacn/MolGraph/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeAppError maps an error to its HTTP status.  Server-side failures are
// masked to the code's default message.
func writeAppError(c *gin.Context, err error) {
	var ae *errors.AppError
	if !errors.As(err, &ae) {
		ae = errors.Internal("internal server error")
	}

	status := errors.HTTPStatusForCode(ae.Code)
	resp := ErrorResponse{
		Code:      string(ae.Code),
		Message:   ae.Message,
		Detail:    ae.Detail,
		RequestID: middleware.GetRequestID(c),
	}
	if status >= http.StatusInternalServerError {
		resp.Message = errors.DefaultMessageForCode(ae.Code)
		resp.Detail = ""
	}
	c.AbortWithStatusJSON(status, resp)
}

// writeBadRequest reports an undecodable request body.
func writeBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:      string(errors.ErrCodeBadRequest),
		Message:   "invalid request body",
		Detail:    err.Error(),
		RequestID: middleware.GetRequestID(c),
	})
}
