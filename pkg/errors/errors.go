package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingSourcePath  = errors.New("document has no source path")
	ErrIndexBuild         = errors.New("index build failed")
	ErrCorruptIndex       = errors.New("corrupt index")
	ErrIncompatibleFormat = errors.New("incompatible index format")
	ErrIndexNotLoaded     = errors.New("index not loaded")
	ErrArtifactNotFound   = errors.New("artifact not found")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrIndexNotLoaded),
		errors.Is(err, ErrCorruptIndex),
		errors.Is(err, ErrIncompatibleFormat),
		errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
