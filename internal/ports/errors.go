package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// Domain errors surfaced by the lifecycle engine and ledger reconciler.
	ErrInvalidTransition = errors.New("invalid trade status transition")
	ErrInvalidAmount     = errors.New("invalid amount (non-finite or malformed)")
	ErrNotFound          = errors.New("resource not found")

	// General errors.
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Database specific errors.
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
	ErrDeleteFailed   = errors.New("database delete failed")
)
