package transport

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCategory classifies a failed provider response.
type ErrorCategory int

const (
	CategoryUnknown ErrorCategory = iota
	// CategoryUserError means the request itself is wrong (bad body, bad params).
	CategoryUserError
	// CategoryAuthError means the key was rejected.
	CategoryAuthError
	// CategoryQuotaError means rate limited or out of quota.
	CategoryQuotaError
	// CategoryTransient means a temporary server-side failure.
	CategoryTransient
	CategoryNotFound
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryUserError:
		return "user_error"
	case CategoryAuthError:
		return "auth_error"
	case CategoryQuotaError:
		return "quota_error"
	case CategoryTransient:
		return "transient"
	case CategoryNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

func (c ErrorCategory) ShouldRetry() bool {
	return c == CategoryTransient
}

// IsUserFault reports whether fixing the definition or request is the remedy.
func (c ErrorCategory) IsUserFault() bool {
	return c == CategoryUserError || c == CategoryNotFound
}

// CategorizeHTTPStatus determines category from HTTP status code
func CategorizeHTTPStatus(statusCode int) ErrorCategory {
	switch statusCode {
	case http.StatusBadRequest:
		return CategoryUserError
	case http.StatusUnauthorized:
		return CategoryAuthError
	case http.StatusPaymentRequired, http.StatusForbidden, http.StatusTooManyRequests:
		return CategoryQuotaError
	case http.StatusNotFound:
		return CategoryNotFound
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return CategoryTransient
	default:
		if statusCode >= 400 && statusCode < 500 {
			return CategoryUserError
		}
		if statusCode >= 500 {
			return CategoryTransient
		}
		return CategoryUnknown
	}
}

// CategorizeError refines the status category with well-known body messages.
func CategorizeError(statusCode int, message string) ErrorCategory {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "invalid_api_key", "invalid x-api-key", "incorrect api key"):
		return CategoryAuthError
	case containsAny(lower, "resource_exhausted", "quota", "rate limit", "too many requests"):
		return CategoryQuotaError
	case containsAny(lower, "invalid_argument", "invalid request", "malformed", "missing required", "invalid json"):
		return CategoryUserError
	}
	return CategorizeHTTPStatus(statusCode)
}

func containsAny(s string, subs ...string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 4 << 10

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	StatusCode int
	Category   ErrorCategory
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("transport: provider returned %d (%s)", e.StatusCode, e.Category)
	}
	return fmt.Sprintf("transport: provider returned %d (%s): %s", e.StatusCode, e.Category, e.Body)
}
