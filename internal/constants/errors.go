package constants

import "net/http"

// APIError represents a standardized API error with code, message, and HTTP status.
// Use these predefined errors for consistent API responses across the application.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// WithMessage returns a copy of the APIError with a custom message.
// Useful for validation errors or other dynamic messages.
func (e APIError) WithMessage(message string) APIError {
	return APIError{
		Code:    e.Code,
		Message: message,
		Status:  e.Status,
	}
}

// Common errors - shared across multiple modules
var (
	ErrInvalidRequestBody = APIError{
		Code:    CodeInvalidRequest,
		Message: MsgInvalidRequestBody,
		Status:  http.StatusBadRequest,
	}
	ErrInternalError = APIError{
		Code:    CodeInternalError,
		Message: MsgInternalError,
		Status:  http.StatusInternalServerError,
	}
	ErrUnauthorized = APIError{
		Code:    CodeUnauthorized,
		Message: MsgUnauthorized,
		Status:  http.StatusUnauthorized,
	}
	ErrRateLimited = APIError{
		Code:    CodeRateLimited,
		Message: MsgRateLimited,
		Status:  http.StatusTooManyRequests,
	}
)

// Resolution errors
var (
	ErrLinkNotFound = APIError{
		Code:    CodeLinkNotFound,
		Message: MsgLinkNotFound,
		Status:  http.StatusNotFound,
	}
	ErrLinkExpired = APIError{
		Code:    CodeLinkExpired,
		Message: MsgLinkExpired,
		Status:  http.StatusGone,
	}
	ErrPasswordRequired = APIError{
		Code:    CodePasswordRequired,
		Message: MsgPasswordRequired,
		Status:  http.StatusUnauthorized,
	}
)

// Management errors
var (
	ErrInvalidURL = APIError{
		Code:    CodeInvalidURL,
		Message: MsgInvalidURL,
		Status:  http.StatusBadRequest,
	}
	ErrInvalidSlug = APIError{
		Code:    CodeInvalidSlug,
		Message: MsgInvalidSlug,
		Status:  http.StatusBadRequest,
	}
	ErrSlugTaken = APIError{
		Code:    CodeSlugTaken,
		Message: MsgSlugTaken,
		Status:  http.StatusConflict,
	}
	ErrOwnerRequired = APIError{
		Code:    CodeOwnerRequired,
		Message: MsgOwnerRequired,
		Status:  http.StatusUnauthorized,
	}
)
