package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptrace"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
)

// ErrResponseTooLarge is returned when a body exceeds WithMaxResponseBytes.
var ErrResponseTooLarge = errors.New("httpx: response body too large")

// MakeHTTPRequest sends input and reads the whole response body. Only
// transport failures are errors; any status code is returned as a Response.
func (c *Client) MakeHTTPRequest(ctx context.Context, input *Request) (*Response, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	if c.tracing {
		ctx = httptrace.WithClientTrace(ctx, otelhttptrace.NewClientTrace(ctx))
	}

	req, err := c.newRequest(ctx, input)
	if err != nil {
		return nil, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := c.readBody(res.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: res.StatusCode,
		Body:       body,
		Headers:    res.Header,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, input *Request) (*http.Request, error) {
	var body io.Reader
	if input.Body != nil {
		raw, err := json.Marshal(input.Body)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, input.Method, input.URL, body)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if len(input.QueryParameters) > 0 {
		q := req.URL.Query()
		for key, values := range input.QueryParameters {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	if input.Headers != nil {
		req.Header = input.Headers.Clone()
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tracing {
		otelhttptrace.Inject(ctx, req)
	}
	return req, nil
}

func (c *Client) readBody(r io.Reader) ([]byte, error) {
	if c.maxResponseBytes <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, c.maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxResponseBytes {
		return nil, errors.WithStack(ErrResponseTooLarge)
	}
	return body, nil
}
