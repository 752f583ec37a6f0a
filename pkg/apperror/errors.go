package apperror

import (
	"errors"
	"net/http"
)

// AppError is the typed failure value every gateway operation resolves to.
// Lower layers wrap database, crypto, and token errors into one of these so
// callers above the persistence gateway never see a raw driver error.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrAuthRequired        = &AppError{Code: "AUTH_REQUIRED", Message: "You must be signed in to continue", Status: http.StatusUnauthorized}
	ErrDuplicateSubmission = &AppError{Code: "DUPLICATE_SUBMISSION", Message: "An application of this type has already been submitted", Status: http.StatusConflict}
)

func NewValidation(message string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: message, Status: http.StatusBadRequest}
}

func NewPersistenceFailure(message string) *AppError {
	return &AppError{Code: "PERSISTENCE_FAILURE", Message: message, Status: http.StatusInternalServerError}
}

// Map converts any error into an AppError suitable for an HTTP response.
func Map(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred", Status: http.StatusInternalServerError}
}

// Is reports whether err carries the given error code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
