package aggregator

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned when the proxy is used before Start.
	ErrNotRunning = errors.New("aggregator not running")
	// ErrNoUsableKeys means the account has no key with a positive balance.
	ErrNoUsableKeys = errors.New("no usable keys (insufficient balance)")
	// ErrKeyFetch wraps failures talking to the account endpoint.
	ErrKeyFetch = errors.New("failed to fetch keys")
	// ErrAccountNotBound is returned when Start is called without credentials.
	ErrAccountNotBound = errors.New("account not bound")
)

func keyFetchError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrKeyFetch, fmt.Sprintf(format, args...))
}

// IsKeyFetch reports whether err is an account endpoint failure.
func IsKeyFetch(err error) bool { return errors.Is(err, ErrKeyFetch) }
