// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"
	"strings"

	"repair_ops_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// FieldError describes a single failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code, code and message.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Message: message, Code: code, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values anywhere in the chain use their Kind and Code.
// Validator errors become 400 VALIDATION_FAILED with per-field details.
// Anything else is reported as a 500 without leaking the cause.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	_ = c.Error(err)

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Message: domainErr.Message,
			Code:    domainErr.ResponseCode(),
			Details: domainErr.Details,
		})
		return true
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "validation failed",
			Code:    apperr.CodeValidation,
			Details: fieldErrors(validationErrs),
		})
		return true
	}

	internal := apperr.Internal("internal server error")
	c.JSON(internal.HTTPStatus(), ErrorResponse{
		Message: internal.Message,
		Code:    internal.ResponseCode(),
	})
	return true
}

// BadRequest reports a malformed request body or parameter.
func BadRequest(c *gin.Context, message string, details interface{}) {
	e := apperr.BadRequest(message).WithDetails(details)
	Error(c, e.HTTPStatus(), e.ResponseCode(), e.Message, e.Details)
}

func fieldErrors(errs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, FieldError{
			Field: lowerFirst(fe.Field()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message, Code: code})
}

func abortWithAppErr(c *gin.Context, err *apperr.Error) {
	abortWithError(c, err.HTTPStatus(), err.ResponseCode(), err.Message)
}
