package client

import (
	"encoding/json"
	"net/url"
)

// Operation is one remote call: a VK method name plus its parameters.
// Values are treated as immutable; With returns a modified copy.
type Operation struct {
	Method string
	Params url.Values
}

// NewOperation creates an Operation owning a copy of params.
func NewOperation(method string, params url.Values) Operation {
	return Operation{Method: method, Params: cloneValues(params)}
}

// With returns a copy of the operation with key set to value.
func (o Operation) With(key, value string) Operation {
	params := cloneValues(o.Params)
	params.Set(key, value)
	return Operation{Method: o.Method, Params: params}
}

// String returns the method followed by its encoded parameters.
func (o Operation) String() string {
	if len(o.Params) == 0 {
		return o.Method
	}
	return o.Method + "?" + o.Params.Encode()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// PageResponse is one page of a VK list method: the page's items plus the
// collection total announced by the server.
type PageResponse struct {
	Items []json.RawMessage `json:"items"`
	Count int               `json:"count"`
}

// envelope is the top-level VK body; exactly one field is set.
type envelope struct {
	Response *PageResponse `json:"response"`
	Error    *APIError     `json:"error"`
}
