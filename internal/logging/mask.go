package logging

import (
	"net/url"
	"strings"
)

// MaskKey shortens a credential to its first and last few characters.
func MaskKey(secret string) string {
	keep := 0
	switch n := len(secret); {
	case n > 8:
		keep = 4
	case n > 4:
		keep = 2
	case n > 2:
		keep = 1
	default:
		return secret
	}
	return secret[:keep] + "..." + secret[len(secret)-keep:]
}

// isCredentialName reports whether a header or query parameter name carries a
// secret. Authorization headers are handled by MaskHeader.
func isCredentialName(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "[]")
	if name == "key" {
		return true
	}
	for _, marker := range []string{"api-key", "apikey", "api_key", "token", "secret"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// MaskHeader masks values of credential-bearing headers. For Authorization the
// scheme is kept and only the credential is shortened.
func MaskHeader(name, value string) string {
	if strings.Contains(strings.ToLower(name), "authorization") {
		if scheme, cred, ok := strings.Cut(strings.TrimSpace(value), " "); ok {
			return scheme + " " + MaskKey(cred)
		}
		return MaskKey(value)
	}
	if isCredentialName(name) {
		return MaskKey(value)
	}
	return value
}

// maskQuery masks credential parameters of a raw query string, leaving every
// other pair byte-for-byte intact.
func maskQuery(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	for i, pair := range strings.Split(raw, "&") {
		if i > 0 {
			b.WriteByte('&')
		}
		rawName, value, _ := strings.Cut(pair, "=")
		name := rawName
		if decoded, err := url.QueryUnescape(rawName); err == nil {
			name = decoded
		}
		if !isCredentialName(name) {
			b.WriteString(pair)
			continue
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		b.WriteString(rawName + "=" + url.QueryEscape(MaskKey(strings.TrimSpace(value))))
	}
	return b.String()
}

// MaskURL masks credential query parameters of rawURL.
func MaskURL(rawURL string) string {
	base, query, ok := strings.Cut(rawURL, "?")
	if !ok {
		return rawURL
	}
	return base + "?" + maskQuery(query)
}
