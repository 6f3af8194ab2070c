package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrValidation     = errors.New("validation failed")
	ErrInternalServer = errors.New("internal server error")
)

// Authentication and authorization errors surfaced at the service boundary.
// Handlers map these to transport status codes; nothing below the handler
// layer knows about HTTP.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrRateLimited        = errors.New("too many failed login attempts")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserExists         = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already in use")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

// BadRequestError is an ErrBadRequest whose message is safe to return to
// API clients. Other ErrBadRequest values may carry storage details and are
// answered with a fixed message.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return ErrBadRequest.Error() + ": " + e.Message
}

func (e *BadRequestError) Unwrap() error {
	return ErrBadRequest
}

// NewBadRequest returns a client-facing bad request error
func NewBadRequest(message string) error {
	return &BadRequestError{Message: message}
}
