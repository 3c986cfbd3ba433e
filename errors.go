package welcome

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the Welcome client.
// All errors are defined here for easy discovery and consistent organization.
var (
	// Authentication errors
	ErrUnauthorized       = errors.New("welcome: unauthorized (invalid or expired token)")
	ErrAuthentication     = errors.New("welcome: authentication failed")
	ErrSessionInvalid     = errors.New("welcome: session is no longer valid, create a new one")
	ErrMissingCredentials = errors.New("welcome: client ID, client secret, username and password are required")

	// Resource errors
	ErrNotFound = errors.New("welcome: resource not found")

	// Transport errors
	ErrResponseTooLarge  = errors.New("welcome: response body exceeds size limit")
	ErrMalformedResponse = errors.New("welcome: malformed response")

	// Event errors
	ErrEventOutOfRange = errors.New("welcome: event index out of range")
	ErrEmptyHomeID     = errors.New("welcome: home ID cannot be empty")

	// Picture validation errors
	ErrEmptyImageID = errors.New("welcome: image ID cannot be empty")
	ErrEmptyKey     = errors.New("welcome: image key cannot be empty")

	// Ping/webhook validation errors
	ErrEmptyVPNURL      = errors.New("welcome: VPN URL cannot be empty")
	ErrEmptyCallbackURL = errors.New("welcome: webhook callback URL cannot be empty")

	// Webhook push errors
	ErrInvalidSignature = errors.New("welcome: invalid webhook signature")
	ErrMissingSignature = errors.New("welcome: missing webhook signature header")
	ErrEmptyBody        = errors.New("welcome: empty webhook body")
)

// APIError represents an error response from the Netatmo API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("welcome: API error %d: %s (code: %d)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("welcome: API error %d: %s", e.StatusCode, e.Message)
}

// Netatmo error codes that mean the access token is unusable.
const (
	apiCodeInvalidToken = 2
	apiCodeExpiredToken = 3
)

// IsUnauthorized returns true if the error indicates a rejected access token.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 ||
			apiErr.Code == apiCodeInvalidToken ||
			apiErr.Code == apiCodeExpiredToken
	}
	return false
}

// IsNotFound returns true if the error indicates the resource was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsAuthentication returns true if a grant failed or the session was
// poisoned by an earlier failed grant. Either way the session must be
// recreated.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.Is(err, ErrSessionInvalid)
}

// IsOutOfRange returns true if an ordinal event lookup missed.
func IsOutOfRange(err error) bool {
	return errors.Is(err, ErrEventOutOfRange)
}

// IsTimeout returns true if the error indicates a timeout.
func IsTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
