package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/vk-wall-counter/pkg/client"
)

// MockVKResponse defines a canned response for one method.
type MockVKResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockVK is an HTTP VK API server backed by a FakeVK.
type MockVK struct {
	server   *httptest.Server
	fake     *FakeVK
	token    string
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	LastAPIVersion    string
}

// NewMockVK creates a server that accepts token and serves fake.
func NewMockVK(token string, fake *FakeVK) *MockVK {
	mock := &MockVK{
		fake:     fake,
		token:    token,
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastAPIVersion = r.URL.Query().Get("v")
		handler, exists := mock.handlers[methodOf(r)]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the method root to use as client base URL.
func (m *MockVK) URL() string {
	return m.server.URL + "/method/"
}

// Close shuts down the mock server.
func (m *MockVK) Close() {
	m.server.Close()
}

// Fake returns the backing FakeVK.
func (m *MockVK) Fake() *FakeVK {
	return m.fake
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockVK) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// SetResponse overrides the response of one VK method.
func (m *MockVK) SetResponse(method string, resp MockVKResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method] = func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}
}

func (m *MockVK) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Header.Get("Authorization") != "Bearer "+m.token {
		writeJSON(w, map[string]any{"error": &client.APIError{Code: 5, Message: "User authorization failed: invalid access_token"}})
		return
	}

	op := client.NewOperation(methodOf(r), r.URL.Query())
	page, err := m.fake.Call(r.Context(), op)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			writeJSON(w, map[string]any{"error": apiErr})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"response": page})
}

func methodOf(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, "/method/")
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(data)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockVKResponse {
	return MockVKResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewAPIErrorResponse creates a VK error envelope with HTTP 200.
func NewAPIErrorResponse(code int, msg string) MockVKResponse {
	body, _ := json.Marshal(map[string]any{"error": client.APIError{Code: code, Message: msg}})
	return MockVKResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
	}
}
