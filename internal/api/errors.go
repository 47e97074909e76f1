package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrDecode marks a response body that could not be decoded.
var ErrDecode = errors.New("failed to decode response")

// Error classes returned by Classify.
const (
	ClassConflict   = "conflict"
	ClassNotFound   = "not_found"
	ClassValidation = "validation"
	ClassNetwork    = "network"
	ClassServer     = "server"
	ClassInternal   = "internal"
)

// HTTPError is a non-2xx response from the server.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// newHTTPError extracts a message from either a JSON {"error": ...} body or plain text.
func newHTTPError(status int, body []byte) *HTTPError {
	var errResp ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &HTTPError{StatusCode: status, Message: errResp.Error}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &HTTPError{StatusCode: status, Message: msg}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsConflict reports a 409 response.
func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsNetworkError reports a transport-level failure (no response was received).
func IsNetworkError(err error) bool {
	if err == nil || StatusCode(err) != 0 {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof")
}

// IsTransient reports failures worth retrying later: network errors,
// undecodable bodies and 5xx/429 responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDecode) || IsNetworkError(err) {
		return true
	}
	code := StatusCode(err)
	return code >= 500 || code == http.StatusTooManyRequests
}

// Classify determines the error class for reporting.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	code := StatusCode(err)
	switch {
	case code == http.StatusConflict:
		return ClassConflict
	case code == http.StatusNotFound:
		return ClassNotFound
	case code >= 400 && code < 500:
		return ClassValidation
	case code >= 500:
		return ClassServer
	case IsNetworkError(err):
		return ClassNetwork
	}
	return ClassInternal
}

// Message returns the user-facing text of err: the server's message for
// HTTP errors, otherwise the error string.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return err.Error()
}
