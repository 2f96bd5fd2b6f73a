package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an application error carrying the HTTP status it maps to.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Wrap returns a copy of base carrying err. The package-level values are
// never mutated.
func Wrap(base *Error, err error) *Error {
	return &Error{Code: base.Code, Message: base.Message, Err: err}
}

var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized       = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden          = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrTooManyRequests    = New(http.StatusTooManyRequests, "Too many requests", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
	ErrBadGateway         = New(http.StatusBadGateway, "Upstream service error", nil)
)

var (
	ErrDatabaseQuery = New(http.StatusInternalServerError, "Database query error", nil)
	ErrValidation    = New(http.StatusUnprocessableEntity, "Validation error", nil)
	ErrInvalidToken  = New(http.StatusUnauthorized, "Invalid token", nil)
)

// ErrorMiddleware renders the last gin error as {"success":false,"error":...}.
// Handlers push errors with c.Error(err) and return.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *Error
		if !errors.As(err, &appErr) {
			appErr = Wrap(ErrInternalServer, err)
		}

		c.AbortWithStatusJSON(appErr.Code, gin.H{
			"success": false,
			"error":   appErr.Message,
		})
	}
}
