package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("user not found")
	// ErrConflict indicates a duplicate unique field.
	ErrConflict = errors.New("user with email or username already exists")
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("all fields are required")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing or unusable credential.
	ErrUnauthorized = errors.New("unauthorized access")
	// ErrInvalidToken indicates a malformed, expired or mismatched token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUpload indicates the avatar upload failed or produced no URL.
	ErrUpload = errors.New("avatar file is required")
)

// UserSafeMessage returns a message suitable for API responses. Known domain
// errors carry their own message, anything else collapses to a generic one so
// internals never leak to clients.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrUpload):
		return err.Error()
	default:
		return "something went wrong"
	}
}
