package cache

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedKey is returned by Unwrap when a wrapped key does not carry
// the exact prefix:version header it is parsed against.
var ErrMalformedKey = errors.New("malformed cache key")

// Key is a namespaced cache key. Prefix identifies the cached entity kind,
// Version is the configuration-controlled namespace token, ID is the
// entity's natural key. Bumping the version makes every previously written
// key of the prefix unreachable without an explicit flush.
type Key struct {
	Prefix  string
	Version string
	ID      string
}

// String returns the wrapped textual form prefix:version:id
func (k Key) String() string {
	return k.Prefix + ":" + k.Version + ":" + k.ID
}

// Unwrap parses a wrapped key back into its identifier. The header must be
// exactly prefix:version followed by a separator; anything else is rejected
// as malformed, including keys from a different version namespace.
func Unwrap(prefix, version, wrapped string) (string, error) {
	header := prefix + ":" + version
	if len(wrapped) <= len(header) || !strings.HasPrefix(wrapped, header) || wrapped[len(header)] != ':' {
		return "", fmt.Errorf("%w: %q does not match namespace %s", ErrMalformedKey, wrapped, header)
	}
	return wrapped[len(header)+1:], nil
}
