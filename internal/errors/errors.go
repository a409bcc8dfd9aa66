package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError carries a machine readable code and the HTTP status a handler
// should answer with when the error reaches it.
type AppError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	HTTPCode int    `json:"-"`
	Cause    error  `json:"-"`
}

const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeConflict         = "CONFLICT"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeCacheUnavailable = "CACHE_UNAVAILABLE"
)

var statusByCode = map[string]int{
	CodeValidationFailed: http.StatusBadRequest,
	CodeNotFound:         http.StatusNotFound,
	CodeUnauthorized:     http.StatusUnauthorized,
	CodeConflict:         http.StatusConflict,
	CodeInternalError:    http.StatusInternalServerError,
	CodeCacheUnavailable: http.StatusServiceUnavailable,
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is reports a match on code and message, so package level sentinels keep
// matching after a cause is attached.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func newError(code, message string, cause error) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{Code: code, Message: message, HTTPCode: status, Cause: cause}
}

func ValidationError(message string, cause error) *AppError {
	return newError(CodeValidationFailed, message, cause)
}

func NotFoundError(message string, cause error) *AppError {
	return newError(CodeNotFound, message, cause)
}

func UnauthorizedError(message string, cause error) *AppError {
	return newError(CodeUnauthorized, message, cause)
}

func ConflictError(message string, cause error) *AppError {
	return newError(CodeConflict, message, cause)
}

func InternalError(message string, cause error) *AppError {
	return newError(CodeInternalError, message, cause)
}

func CacheUnavailableError(message string, cause error) *AppError {
	return newError(CodeCacheUnavailable, message, cause)
}

// Wrap attaches message to err. An AppError anywhere in the chain keeps its
// code and status; the message is prefixed.
func Wrap(err error, code, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:     appErr.Code,
			Message:  message + ": " + appErr.Message,
			HTTPCode: appErr.HTTPCode,
			Cause:    err,
		}
	}
	return newError(code, message, err)
}

func IsType(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// GetHTTPCode returns the status carried by an AppError in the chain, or 500.
func GetHTTPCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPCode != 0 {
		return appErr.HTTPCode
	}
	return http.StatusInternalServerError
}
