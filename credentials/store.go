// Package credentials persists the bearer credentials of the current session.
//
// A Store is a dumb string map: it performs no validation on what it holds and
// a backend that cannot be read reports keys as absent, which callers treat the
// same as being logged out.
package credentials

const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Store is durable key-value storage for credential strings.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}
