package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is matched by every FetchError.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrEmptyResponse is returned when the body carries neither a
	// response nor an error object.
	ErrEmptyResponse = errors.New("empty VK response")
)

// ErrorClass represents a classification of call failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassHTTP represents non-2xx HTTP statuses.
	ErrorClassHTTP ErrorClass = "http"

	// ErrorClassAPI represents VK error envelopes.
	ErrorClassAPI ErrorClass = "api"

	// ErrorClassDecode represents bodies that are not valid VK JSON.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError is the VK error envelope: {"error":{"error_code":N,"error_msg":"..."}}.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("VK API error %d: %s", e.Code, e.Message)
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected HTTP status %s", e.Status)
}

// DecodeError wraps a JSON decoding failure of a response body.
type DecodeError struct {
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode VK response: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FetchError is the terminal failure of one operation after its retry
// budget is spent. It carries the last underlying error.
type FetchError struct {
	Method   string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Method, e.Attempts, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRetryExhausted.
func (e *FetchError) Is(target error) bool {
	return target == ErrRetryExhausted
}

// Classify returns the ErrorClass of a single-attempt failure.
func Classify(err error) ErrorClass {
	var apiErr *APIError
	var httpErr *HTTPError
	var decodeErr *DecodeError

	switch {
	case errors.As(err, &apiErr):
		return ErrorClassAPI
	case errors.As(err, &httpErr):
		return ErrorClassHTTP
	case errors.As(err, &decodeErr), errors.Is(err, ErrEmptyResponse):
		return ErrorClassDecode
	default:
		return ErrorClassNetwork
	}
}

// statusLabel maps a call outcome to the vk_requests_total status label.
func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("%d", httpErr.StatusCode)
	}
	switch Classify(err) {
	case ErrorClassAPI:
		return "api_error"
	case ErrorClassDecode:
		return "decode_error"
	default:
		return "network_error"
	}
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
