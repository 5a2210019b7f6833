package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_String(t *testing.T) {
	key := Key{Prefix: "user-preference", Version: "1", ID: "alice@example.com"}

	assert.Equal(t, "user-preference:1:alice@example.com", key.String())
}

func TestUnwrap_RoundTrip(t *testing.T) {
	cases := []struct {
		prefix  string
		version string
		id      string
	}{
		{"portfolio", "1", "0xDEADBEEF"},
		{"user-preference", "2024-03", "alice@example.com"},
		{"alert", "1", "6f1c2b9a-1111-2222-3333-444455556666"},
		// identifiers may themselves contain the separator
		{"analytics", "7", "wallet:0xABC:total"},
	}

	for _, tc := range cases {
		wrapped := Key{Prefix: tc.prefix, Version: tc.version, ID: tc.id}.String()

		id, err := Unwrap(tc.prefix, tc.version, wrapped)

		assert.NoError(t, err)
		assert.Equal(t, tc.id, id)
	}
}

func TestUnwrap_RejectsMalformedHeader(t *testing.T) {
	cases := []string{
		"",
		"portfolio",
		"portfolio:1",
		"portfolio:2:0xABC",      // wrong version namespace
		"preference:1:0xABC",     // wrong prefix
		"portfolio-1-0xABC",      // wrong separator
		"xportfolio:1:0xABC",     // prefix not anchored
	}

	for _, wrapped := range cases {
		_, err := Unwrap("portfolio", "1", wrapped)

		assert.ErrorIs(t, err, ErrMalformedKey, "input %q", wrapped)
	}
}
