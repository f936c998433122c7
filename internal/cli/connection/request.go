package connection

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Request is one API call. The body is encoded when the request is built
// so a Request can be replayed on retry without side effects.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// NewRequest builds a request. body is JSON-encoded unless nil.
func NewRequest(method, path string, query url.Values, body any) (*Request, error) {
	req := &Request{
		Method: method,
		Path:   path,
	}
	if len(query) > 0 {
		req.Query = make(url.Values, len(query))
		for k, v := range query {
			req.Query[k] = append([]string(nil), v...)
		}
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req.Body = data
	}
	return req, nil
}

// Idempotent reports whether the request may be retried.
func (r *Request) Idempotent() bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// URL joins the request with a base URL.
func (r *Request) URL(base string) string {
	u := base + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	return u
}

// String identifies the request in errors.
func (r *Request) String() string {
	return r.Method + " " + r.Path
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
