// Package apierr classifies BumaView API failures into the kinds callers
// act on: recover locally, surface inline, or force a logout.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind buckets an API failure by the recovery it allows.
type Kind int

const (
	KindUnknown Kind = iota
	// KindAuth: 401, expired or invalid credentials. Recovered once via
	// silent refresh; if that fails, forced logout.
	KindAuth
	// KindForbidden: 403 or role mismatch. Not retried.
	KindForbidden
	// KindValidation: 400, surfaced inline on the originating form.
	KindValidation
	// KindConflict: 409, duplicate id/email, mapped to a field where the
	// response message allows it.
	KindConflict
	// KindRateLimited: 429, transient; caller may retry later.
	KindRateLimited
	// KindServer: 5xx, generic retryable notice.
	KindServer
	// KindNetwork: fetch-level failure before any response arrived.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is a classified API failure.
type Error struct {
	Kind       Kind
	StatusCode int    // zero for network-level failures
	Message    string // server-provided message, if any
	Field      string // field-level mapping for validation/conflict errors
	Err        error  // underlying cause, if any
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("bumaview: %s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("bumaview: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("bumaview: %s (status %d)", e.Kind, e.StatusCode)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// responseBody is the error payload shape the API returns.
type responseBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Classify maps an HTTP error response to an Error. The body is optional;
// when present its message refines 409s into a field-level conflict.
func Classify(statusCode int, body []byte) *Error {
	msg := extractMessage(body)
	e := &Error{StatusCode: statusCode, Message: msg}

	switch {
	case statusCode == http.StatusUnauthorized:
		e.Kind = KindAuth
	case statusCode == http.StatusForbidden:
		e.Kind = KindForbidden
	case statusCode == http.StatusConflict:
		e.Kind = KindConflict
		e.Field = conflictField(msg)
	case statusCode == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case statusCode >= 500:
		e.Kind = KindServer
	case statusCode >= 400:
		e.Kind = KindValidation
	default:
		e.Kind = KindUnknown
	}
	return e
}

// Network wraps a transport-level failure that produced no HTTP response.
func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// Auth wraps a failure that must be treated as an authentication error,
// such as a refresh that could not produce a usable token.
func Auth(err error) *Error {
	return &Error{Kind: KindAuth, Err: err}
}

// KindOf returns the classified kind of err, or KindUnknown for errors
// that did not come out of this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var rb responseBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return ""
	}
	if rb.Message != "" {
		return rb.Message
	}
	return rb.Error
}

// conflictField classifies a 409 message into the form field it belongs
// to. The server does not return structured field names, so message
// content is the only signal available.
func conflictField(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "email"):
		return "email"
	case strings.Contains(lower, "id"):
		return "id"
	default:
		return ""
	}
}
