package http

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Config describes the remote backend a Factory talks to.
type Config struct {
	// BaseURL is the scheme, host and optional path prefix of the backend,
	// e.g. "http://localhost:1865".
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Defaults fills the empty halves of every call's scope.
	Defaults transport.Scope

	// Timeout bounds a whole round trip. Zero means no timeout; callers
	// may still cancel through the context.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification. Use only
	// against development backends with self-signed certificates.
	InsecureSkipVerify bool
}

// Validate checks that the configuration can produce a working Factory.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.Wrap(err, "invalid base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("base URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.Errorf("base URL %q has no host", c.BaseURL)
	}
	if c.Timeout < 0 {
		return errors.Errorf("timeout must be non-negative, got %v", c.Timeout)
	}
	return nil
}

// NewHTTPClient creates the *http.Client used when none is supplied with
// SetClient.
func (c Config) NewHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if c.InsecureSkipVerify {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   c.Timeout,
		Transport: tr,
	}
}
