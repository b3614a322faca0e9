package errors

import (
	"fmt"
)

const (
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeInvalidReq     = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeStorage        = "STORAGE_ERROR"
	ErrCodeContentAPI     = "CONTENT_API_ERROR"
	ErrCodeImageGenAPI    = "IMAGE_GEN_API_ERROR"
	ErrCodeUnknownType    = "UNKNOWN_SLIDE_TYPE"
	ErrCodeLayoutNotFound = "LAYOUT_NOT_FOUND"
	ErrCodePlaceholder    = "PLACEHOLDER_UNRESOLVED"
	ErrCodeGeneration     = "EXTERNAL_GENERATION_FAILURE"
	ErrCodeMalformed      = "MALFORMED_RESULT"
	ErrCodeStepBusy       = "STEP_BUSY"
	ErrCodeDependency     = "DEPENDENCY_NOT_READY"
	ErrCodeRender         = "DECK_RENDER_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Newf(code, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

func Is(err error, code string) bool {
	for err != nil {
		appErr, ok := err.(*AppError)
		if !ok {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// Code extracts the application error code; foreign errors map to internal.
func Code(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
