package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotFound         = "NOT_FOUND"
	CodeCapacityExceeded = "CAPACITY_EXCEEDED"
	CodeUploadDisabled   = "UPLOAD_DISABLED"
	CodeStoreFailure     = "STORE_FAILURE"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports a resource id that does not resolve.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewCapacityExceededError reports an event that has no free spots.
func NewCapacityExceededError(postID string) *AppError {
	return &AppError{
		Code:    CodeCapacityExceeded,
		Message: fmt.Sprintf("Post with ID %s is at capacity", postID),
	}
}

func NewUploadDisabledError() *AppError {
	return &AppError{
		Code:    CodeUploadDisabled,
		Message: "File uploads are currently disabled",
	}
}

// NewStoreFailure wraps a persistence error with the failing operation and id.
func NewStoreFailure(op string, id interface{}, err error) *AppError {
	return &AppError{
		Code:    CodeStoreFailure,
		Message: fmt.Sprintf("%s failed for %v", op, id),
		Err:     err,
	}
}

// StatusForError maps an error to its HTTP status.
func StatusForError(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeValidation, CodeUploadDisabled:
		return fiber.StatusBadRequest
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeCapacityExceeded:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// RespondWithError writes err as an envelope. Internal details never reach the client.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	data := EnvelopeData{Message: "Internal server error"}

	var appErr *AppError
	if errors.As(err, &appErr) {
		data.Code = appErr.Code
		if appErr.Code != CodeStoreFailure {
			data.Message = appErr.Message
		}
	} else if status < fiber.StatusInternalServerError {
		data.Message = err.Error()
	}

	return c.Status(status).JSON(Envelope{Status: status, Data: data})
}

// RespondWithAppError picks the status from err.
func RespondWithAppError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, StatusForError(err), err)
}
