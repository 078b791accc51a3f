package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a 201 response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError maps application errors onto HTTP statuses. A
// partial commit is reported with its own code so clients know the
// persisted schedule is inconsistent and a re-fetch is mandatory.
func RespondWithError(c *gin.Context, err error) {
	var partial *errors.PartialCommitError
	if stderrors.As(err, &partial) {
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error: &Error{
				Code:    "partial_commit",
				Message: partial.Error(),
			},
		})
		return
	}

	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   &Error{Code: "internal", Message: "internal server error"},
		})
		return
	}

	status := http.StatusInternalServerError
	code := "internal"
	switch appErr.Code {
	case errors.ErrNotFound:
		status, code = http.StatusNotFound, "not_found"
	case errors.ErrBadRequest:
		status, code = http.StatusBadRequest, "bad_request"
	case errors.ErrValidation:
		status, code = http.StatusUnprocessableEntity, "validation"
	case errors.ErrFetchFailed:
		status, code = http.StatusBadGateway, "fetch_failed"
	case errors.ErrConflict:
		status, code = http.StatusConflict, "conflict"
	}

	c.JSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: appErr.Message,
		},
	})
}
