// Package api defines the application error codes and their HTTP mapping.
// Errors are built with oops so a code travels with the error from the
// portal client or link service all the way to the response writer.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
)

// Application error codes.
const (
	ECONFLICT     = "conflict"              // key already taken locally or on the portal
	EINVALID      = "invalid"               // input failed validation, nothing was sent upstream
	ENOTFOUND     = "not_found"             // row missing or not owned by the caller
	EFORBIDDEN    = "forbidden"             // admin-only surface
	EUNAUTHORIZED = "unauthorized"          // missing identity or portal token
	EUPSTREAM     = "upstream_error"        // portal answered non-200 with a message
	EBADRESPONSE  = "upstream_bad_response" // portal answered with a body we cannot parse
	EUNREACHABLE  = "upstream_unreachable"  // transport failure or timeout
	EINTERNAL     = "internal"
)

// HTTPError is the JSON error envelope.
type HTTPError struct {
	Err  string `json:"error"`
	Code string `json:"code,omitempty"`
}

// Error implements the error interface. Not used by the application otherwise.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("error=%s code=%s", e.Err, e.Code)
}

// Errorf builds a coded application error.
func Errorf(code string, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

// Wrapf wraps err with a coded application error.
func Wrapf(code string, err error, format string, args ...any) error {
	return oops.Code(code).Wrapf(err, format, args...)
}

// ErrorCode extracts the application error code from err, defaulting to
// EINTERNAL for unclassified errors.
func ErrorCode(err error) string {
	var oopsErr oops.OopsError
	if errors.As(err, &oopsErr) {
		if code := oopsErr.Code(); code != "" {
			return code
		}
	}
	return EINTERNAL
}

// ErrorMessage returns the user-facing message for err. Unclassified
// errors are masked so internals never leak into responses.
func ErrorMessage(err error) string {
	var oopsErr oops.OopsError
	if errors.As(err, &oopsErr) {
		return oopsErr.Error()
	}
	return "An internal error has occurred"
}

// ErrorStatusCode returns the associated HTTP status code for an application error code.
func ErrorStatusCode(code string) int {
	var codes = map[string]int{
		ECONFLICT:     http.StatusConflict,
		EINVALID:      http.StatusBadRequest,
		ENOTFOUND:     http.StatusNotFound,
		EFORBIDDEN:    http.StatusForbidden,
		EUNAUTHORIZED: http.StatusUnauthorized,
		EUPSTREAM:     http.StatusBadGateway,
		EBADRESPONSE:  http.StatusBadGateway,
		EUNREACHABLE:  http.StatusGatewayTimeout,
		EINTERNAL:     http.StatusInternalServerError,
	}

	if v, ok := codes[code]; ok {
		return v
	}

	return http.StatusInternalServerError
}

// WriteError writes err as a JSON error response with the mapped status.
func WriteError(c *gin.Context, err error) {
	code := ErrorCode(err)
	c.JSON(ErrorStatusCode(code), &HTTPError{Err: ErrorMessage(err), Code: code})
}
