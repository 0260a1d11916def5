// Package safe holds the input checks applied to everything a client hands
// the control surfaces: session IDs end up in file names and URL paths,
// page URLs are handed to Chrome, webhook URLs are dialed.
package safe

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// MaxIdentifierLen bounds client-supplied session IDs.
const MaxIdentifierLen = 128

// ErrUnsafeScheme is returned when a URL scheme is not in the allowed set.
var ErrUnsafeScheme = errors.New("safe: URL scheme not allowed")

// PageSchemes are the schemes a recording may be started on.
var PageSchemes = []string{"http", "https", "file"}

// ValidateIdentifier accepts non-empty identifiers made of ASCII letters,
// digits, underscore, hyphen and dot, not starting with a dot.
func ValidateIdentifier(s string) error {
	if s == "" {
		return errors.New("safe: identifier must not be empty")
	}
	if len(s) > MaxIdentifierLen {
		return fmt.Errorf("safe: identifier too long (max %d)", MaxIdentifierLen)
	}
	if s[0] == '.' {
		return fmt.Errorf("safe: identifier %q starts with a dot", s)
	}
	for _, r := range s {
		if !isIdentChar(r) {
			return fmt.Errorf("safe: invalid character %q in identifier", r)
		}
	}
	return nil
}

// ValidateURL checks that rawURL parses, uses one of schemes and, for http
// and https, names a host.
func ValidateURL(rawURL string, schemes ...string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("safe: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	allowed := false
	for _, s := range schemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %q", ErrUnsafeScheme, u.Scheme)
	}
	if (scheme == "http" || scheme == "https") && u.Hostname() == "" {
		return fmt.Errorf("safe: URL %q has no host", rawURL)
	}
	return nil
}

// LimitedReadAll reads at most maxBytes from r and reports whether more was
// left unread.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > maxBytes {
		return data[:maxBytes], true, nil
	}
	return data, false, nil
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}
