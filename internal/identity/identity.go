// Package identity provides opaque browser session identifiers.
package identity

import (
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// NormalizeSessionID trims a client-supplied session ID and reports whether
// it is usable as a map key. An empty result with ok=true means "none given".
func NormalizeSessionID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", true
	}
	return id, sessionIDPattern.MatchString(id)
}

// IPFromRequest returns a normalized remote IP for rate limiting.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
