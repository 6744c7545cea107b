package httpx

import (
	"net/http"
	"net/url"
)

// Request describes a call made with MakeHTTPRequest. A non nil Body is sent
// as JSON.
type Request struct {
	Method          string `validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	URL             string `validate:"required,url"`
	Body            any
	Headers         http.Header
	QueryParameters url.Values
}

func (r *Request) Validate() error {
	return validate.Struct(r)
}

// Response holds the fully read body of a call.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}
