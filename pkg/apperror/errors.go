package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("you do not have permission to perform this action")
	ErrBadRequest          = errors.New("bad request")
	ErrInternal            = errors.New("internal server error")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("username or email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrTooManyAttempts     = errors.New("too many verification attempts")
	ErrFlowExpired         = errors.New("verification session expired or invalid")
	ErrFederation          = errors.New("external sign-in failed")
	ErrPaymentProvider     = errors.New("payment provider error")
	ErrPaymentVerification = errors.New("payment verification failed")
	ErrPersistence         = errors.New("could not save changes, please try again")
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation wraps a user-correctable input problem.
func Validation(message string) *AppError {
	return New(http.StatusBadRequest, message, ErrInvalidInput)
}

// Forbidden wraps an authorization denial with a notice for the caller.
func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message, ErrForbidden)
}

// Persistence hides a storage failure behind the generic retry notice.
func Persistence(err error) *AppError {
	return New(http.StatusInternalServerError, ErrPersistence.Error(), errors.Join(ErrPersistence, err))
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidCode), errors.Is(err, ErrPaymentVerification):
		return http.StatusBadRequest
	case errors.Is(err, ErrFlowExpired):
		return http.StatusGone
	case errors.Is(err, ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrFederation), errors.Is(err, ErrPaymentProvider):
		return http.StatusBadGateway
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
