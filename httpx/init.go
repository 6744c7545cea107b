package httpx

import (
	"crypto/tls"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Client sends JSON requests and reads whole responses. The zero timeout
// default suits long lived requests such as event streams; set WithTimeout
// for request/response calls.
type Client struct {
	httpClient       *http.Client
	transport        *http.Transport
	tracing          bool
	maxResponseBytes int64
}

func NewClientWithOptions(options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{},
		transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}

	for _, opt := range options {
		opt(client)
	}

	client.httpClient.Transport = client.transport
	return client
}

// HTTPClient returns the underlying client, for requests MakeHTTPRequest can
// not express such as streams.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}
