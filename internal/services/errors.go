package services

import "errors"

// ValidationError reports a missing required field. It is recoverable:
// the caller shows Message next to the form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func required(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthenticationError reports a failed login. Its message says whether the
// username or the password was wrong.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

var (
	ErrUsernameIncorrect = &AuthenticationError{Message: "username incorrect"}
	ErrPasswordIncorrect = &AuthenticationError{Message: "password incorrect"}
)

var (
	// ErrDuplicateUsername is returned when registering a taken username.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrNotFound is returned when the requested post does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a user acts on a post they do not own.
	ErrForbidden = errors.New("forbidden")
)
