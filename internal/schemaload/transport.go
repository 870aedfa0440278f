package schemaload

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPFetcher abstracts the single HTTP verb schemaload needs, so tests
// can exercise the fallback path without a network.
type HTTPFetcher interface {
	Get(url string) (*http.Response, error)
}

// RealHTTPFetcher wraps a TLS-hardened http.Client for production use.
type RealHTTPFetcher struct {
	client *http.Client
}

// NewRealHTTPFetcher builds a fetcher with a bounded timeout and a
// minimum TLS version, matching the posture of every other outbound
// HTTP call this CLI makes.
func NewRealHTTPFetcher(timeout time.Duration) HTTPFetcher {
	return &RealHTTPFetcher{client: &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}}
}

func (f *RealHTTPFetcher) Get(url string) (*http.Response, error) {
	return f.client.Get(url)
}

// MockHTTPFetcher simulates HTTP responses for testing the fallback path.
type MockHTTPFetcher struct {
	responses map[string]*http.Response
	errors    map[string]error
}

func NewMockHTTPFetcher() *MockHTTPFetcher {
	return &MockHTTPFetcher{
		responses: make(map[string]*http.Response),
		errors:    make(map[string]error),
	}
}

func (m *MockHTTPFetcher) AddResponse(urlStr string, statusCode int, body string) {
	parsed, _ := url.Parse(urlStr)
	m.responses[urlStr] = &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    &http.Request{URL: parsed},
	}
}

func (m *MockHTTPFetcher) AddError(urlStr string, err error) {
	m.errors[urlStr] = err
}

func (m *MockHTTPFetcher) Get(urlStr string) (*http.Response, error) {
	if err, ok := m.errors[urlStr]; ok {
		return nil, err
	}
	if resp, ok := m.responses[urlStr]; ok {
		return resp, nil
	}
	return &http.Response{
		StatusCode: 404,
		Body:       io.NopCloser(strings.NewReader("not found")),
		Header:     make(http.Header),
	}, nil
}
