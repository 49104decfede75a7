package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the password does not match
	// the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when no account exists for the user id.
	ErrUserNotFound = errors.New("user not found")

	// ErrProviderUnavailable is returned when Google cannot be reached.
	// The operation is not retried; the caller re-invokes.
	ErrProviderUnavailable = errors.New("oauth provider unavailable")

	// ErrReauthRequired is returned when the stored refresh token has been
	// revoked. The caller should delete the stored token and register again.
	ErrReauthRequired = errors.New("re-authentication required: delete the stored token and register again")
)
