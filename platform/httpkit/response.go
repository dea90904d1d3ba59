package httpkit

import (
	"errors"
	"net/http"

	"complaints_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OK writes a 200 response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Created writes a 201 response with the given payload.
func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}

// BadRequest writes a 400 response with the given message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// HandleError writes the error response when err is non-nil and reports
// whether it did so, letting handlers bail out in one line.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	Error(c, err)
	return true
}

// Error maps a domain error onto the appropriate HTTP status code.
// Unknown errors are reported as 500 without leaking internals.
func Error(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), ErrorResponse{Error: appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
