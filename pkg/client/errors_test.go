package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Code: 15, Message: "Access denied"}
	if got, want := err.Error(), "VK API error 15: Access denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestHTTPError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *HTTPError
		want string
	}{
		{"with status", &HTTPError{StatusCode: 503, Status: "503 Service Unavailable"}, "unexpected HTTP status 503 Service Unavailable"},
		{"code only", &HTTPError{StatusCode: 500}, "unexpected HTTP status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchError(t *testing.T) {
	cause := &APIError{Code: 10, Message: "Internal server error"}
	err := fmt.Errorf("collect comments: %w", &FetchError{Method: "wall.getComments", Attempts: 5, Err: cause})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Error("FetchError should match ErrRetryExhausted")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatal("errors.As should find *FetchError")
	}
	if fetchErr.Method != "wall.getComments" || fetchErr.Attempts != 5 {
		t.Errorf("unexpected FetchError fields: %+v", fetchErr)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 10 {
		t.Error("FetchError should unwrap to the last underlying error")
	}

	want := "wall.getComments failed after 5 attempts: VK API error 10: Internal server error"
	if fetchErr.Error() != want {
		t.Errorf("Error() = %q, want %q", fetchErr.Error(), want)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"api", &APIError{Code: 5}, ErrorClassAPI},
		{"wrapped api", fmt.Errorf("call: %w", &APIError{Code: 5}), ErrorClassAPI},
		{"http", &HTTPError{StatusCode: 502}, ErrorClassHTTP},
		{"decode", &DecodeError{Err: errors.New("unexpected EOF")}, ErrorClassDecode},
		{"empty", ErrEmptyResponse, ErrorClassDecode},
		{"network", errors.New("connection refused"), ErrorClassNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&HTTPError{StatusCode: 503}, "503"},
		{&APIError{Code: 6}, "api_error"},
		{ErrEmptyResponse, "decode_error"},
		{errors.New("dial tcp: i/o timeout"), "network_error"},
	}

	for _, tt := range tests {
		if got := statusLabel(tt.err); got != tt.want {
			t.Errorf("statusLabel(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
