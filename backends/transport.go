package backends

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// Request describes one GET issued by a client or by service detection
type Request struct {
	URL             string
	UserAgent       string
	Timeout         time.Duration
	FollowRedirects bool
	Cacheable       bool
}

// Response is the status and decoded body of a Request. Callers must close Body.
type Response struct {
	StatusCode int
	Body       io.ReadCloser
}

// Transport executes HTTP requests. Implementations must be safe for
// concurrent use; one Transport may be shared by every client.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPTransport is the net/http implementation of Transport
type HTTPTransport struct {
	client     *http.Client
	noRedirect *http.Client
}

// NewHTTPTransport creates a transport backed by a fresh connection pool.
func NewHTTPTransport() *HTTPTransport {
	return NewHTTPTransportWithClient(&http.Client{})
}

// NewHTTPTransportWithClient shares the connection pool of client. Its
// Timeout is ignored in favour of Request.Timeout.
func NewHTTPTransportWithClient(client *http.Client) *HTTPTransport {
	follow := &http.Client{
		Transport: client.Transport,
		Jar:       client.Jar,
	}
	noRedirect := &http.Client{
		Transport: client.Transport,
		Jar:       client.Jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &HTTPTransport{client: follow, noRedirect: noRedirect}
}

// Do performs a GET. The request timeout covers reading the body, so the
// deadline is released when Body is closed.
func (t *HTTPTransport) Do(ctx context.Context, r Request) (*Response, error) {
	cancel := context.CancelFunc(func() {})
	if r.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}
	req.Header.Set("Accept-Encoding", "br, gzip")
	if !r.Cacheable {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}

	client := t.client
	if !r.FollowRedirects {
		client = t.noRedirect
	}

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	body, err := decodeBody(resp)
	if err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body: &responseBody{
			Reader: body,
			closeFn: func() error {
				defer cancel()
				return resp.Body.Close()
			},
		},
	}, nil
}

// decodeBody undoes the Content-Encoding negotiated by Accept-Encoding.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %v", err)
		}
		return zr, nil
	default:
		return resp.Body, nil
	}
}

type responseBody struct {
	io.Reader
	closeFn func() error
}

func (b *responseBody) Close() error {
	return b.closeFn()
}
