package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists.
	// The ledger maps a unique-constraint violation to this error.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrNotEntitled indicates the tenant's plan does not include document feeds
	ErrNotEntitled = errors.New("feature not available for tenant")

	// ErrNotConfigured indicates required setup is missing (OAuth client
	// credentials, provider config) - a setup problem, not a runtime one
	ErrNotConfigured = errors.New("not configured")

	// ErrNoRefreshToken indicates the provider completed the code exchange
	// without issuing a refresh credential; nothing may be persisted
	ErrNoRefreshToken = errors.New("provider did not return a refresh token")

	// ErrStateInvalid indicates the OAuth state token failed signature checks
	ErrStateInvalid = errors.New("invalid state token")

	// ErrStateExpired indicates the OAuth state token is past its window
	ErrStateExpired = errors.New("state token expired")

	// ErrStateAudience indicates the state token was issued to a different user
	ErrStateAudience = errors.New("state token issued to a different user")

	// ErrProviderAuth indicates the provider rejected the stored credential
	// (expired or revoked) - distinct from transient provider failures
	ErrProviderAuth = errors.New("provider rejected credential")

	// ErrNotConnected indicates the source has no credential in the vault
	ErrNotConnected = errors.New("source is not connected")
)

// ProviderError wraps a transient provider failure (network, timeout,
// unexpected response) with an actionable hint for the admin.
type ProviderError struct {
	Op   string // operation that failed: "list", "download", "exchange", "refresh"
	Hint string // actionable guidance, safe to show to an admin
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s failed", e.Op)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError for the given operation.
func NewProviderError(op, hint string, err error) *ProviderError {
	return &ProviderError{Op: op, Hint: hint, Err: err}
}
