// Package security validates user-supplied links before the board renders them.
package security

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// Link validation errors
var (
	ErrLinkTooLong     = errors.New("link exceeds maximum length")
	ErrInvalidLink     = errors.New("invalid link format")
	ErrUnsafeScheme    = errors.New("link must use https or http")
	ErrPrivateHost     = errors.New("link points at a private address")
	ErrHostNotAllowed  = errors.New("link host is not allowed")
	ErrEmbeddedAccount = errors.New("link must not carry credentials")
)

// Policy controls which links are accepted.
type Policy struct {
	MaxLength         int      // Maximum link length in bytes
	AllowPrivateHosts bool     // Accept localhost and private ranges
	AllowedHosts      []string // When set, only these hosts and their subdomains pass
}

// DefaultPolicy accepts public http(s) links up to 2048 bytes.
func DefaultPolicy() Policy {
	return Policy{MaxLength: 2048}
}

// LinkValidator checks links against a Policy.
type LinkValidator struct {
	policy  Policy
	allowed map[string]bool
}

// NewLinkValidator creates a validator for the given policy.
func NewLinkValidator(p Policy) *LinkValidator {
	allowed := make(map[string]bool, len(p.AllowedHosts))
	for _, h := range p.AllowedHosts {
		allowed[strings.ToLower(strings.TrimSpace(h))] = true
	}
	return &LinkValidator{policy: p, allowed: allowed}
}

// Check validates a non-empty link. Callers decide whether empty is acceptable.
func (v *LinkValidator) Check(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidLink
	}
	if v.policy.MaxLength > 0 && len(raw) > v.policy.MaxLength {
		return ErrLinkTooLong
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidLink
	}

	switch strings.ToLower(u.Scheme) {
	case "https", "http":
	default:
		return ErrUnsafeScheme
	}

	if u.User != nil {
		return ErrEmbeddedAccount
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ErrInvalidLink
	}

	if len(v.allowed) > 0 && !v.hostAllowed(host) {
		return ErrHostNotAllowed
	}

	if !v.policy.AllowPrivateHosts && isPrivateHost(host) {
		return ErrPrivateHost
	}

	return nil
}

// hostAllowed matches host or any parent domain against the allow list.
func (v *LinkValidator) hostAllowed(host string) bool {
	for {
		if v.allowed[host] {
			return true
		}
		_, parent, ok := strings.Cut(host, ".")
		if !ok {
			return false
		}
		host = parent
	}
}

func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
