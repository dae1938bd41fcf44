package account

import "errors"

var (
	// ErrNotFound is returned when no account matches the lookup key.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicate is returned when the username or email is already taken.
	ErrDuplicate = errors.New("username or email already in use")

	// ErrInvalidCredentials is returned on login failure. It never
	// distinguishes an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOrExpiredCode is the single failure for code validation.
	// Wrong code and expired code are indistinguishable to the caller.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")

	// ErrForbidden is returned when the account's role does not allow the
	// operation.
	ErrForbidden = errors.New("operation not permitted for this role")

	// ErrPinAlreadySet is returned when a PIN is configured and a direct
	// set is attempted. A configured PIN is only replaced via the reset flow.
	ErrPinAlreadySet = errors.New("pin already configured")

	// ErrInvalidInput is returned for malformed input (bad PIN format,
	// missing fields, unknown role).
	ErrInvalidInput = errors.New("invalid input")
)
