package client

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
	httptransport "github.com/matteocacciola/cheshirecat-go-sdk/transport/http"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport/http/ws"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "CCAT_"

// Config describes a backend and the resilience applied to every call made
// against it.
//
// Example configuration (YAML):
//
//	base_url: http://localhost:1865
//	api_key: meow
//	agent_id: agent
//	timeout: 30s
//	max_retries: 3
//	rate_limit: 20
//	circuit_breaker: true
type Config struct {
	// BaseURL is the http(s) URL of the backend. The channel transport
	// dials the matching ws(s) URL.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates every call. Optional.
	APIKey string `yaml:"api_key"`

	// AgentID and UserID are the default scope, used wherever a call's
	// scope leaves them empty.
	AgentID string `yaml:"agent_id"`
	UserID  string `yaml:"user_id"`

	// Timeout bounds a single request/response round trip.
	// Default: 30 seconds
	Timeout time.Duration `yaml:"timeout"`

	// HandshakeTimeout bounds the opening of a channel.
	// Default: 10 seconds
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// InsecureSkipVerify disables TLS verification. Development only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// MaxRetries is the number of times an idempotent call failing with a
	// temporary error is repeated. Zero disables retries.
	MaxRetries int `yaml:"max_retries"`

	// RateLimit caps the requests per second issued for each agent. Zero
	// disables limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the number of requests allowed above RateLimit at once.
	// Default: 1
	RateBurst int `yaml:"rate_burst"`

	// CircuitBreaker stops calls for a while after repeated backend
	// failures.
	CircuitBreaker bool `yaml:"circuit_breaker"`
}

// DefaultConfig returns a Config for a local backend on the default port.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:1865",
		Timeout:          30 * time.Second,
		HandshakeTimeout: ws.DefaultHandshakeTimeout,
		RateBurst:        1,
	}
}

// LoadConfig reads a YAML file over DefaultConfig, then applies the
// environment. An empty filename loads the environment alone.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return cfg, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "failed to parse config file %s", filename)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields with the CCAT_* variables found by lookup:
// BASE_URL, API_KEY, AGENT_ID, USER_ID, TIMEOUT, MAX_RETRIES, RATE_LIMIT,
// INSECURE_SKIP_VERIFY.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	if v, ok := get("BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := get("API_KEY"); ok {
		c.APIKey = v
	}
	if v, ok := get("AGENT_ID"); ok {
		c.AgentID = v
	}
	if v, ok := get("USER_ID"); ok {
		c.UserID = v
	}
	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "%sTIMEOUT", EnvPrefix)
		}
		c.Timeout = d
	}
	if v, ok := get("MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%sMAX_RETRIES", EnvPrefix)
		}
		c.MaxRetries = n
	}
	if v, ok := get("RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "%sRATE_LIMIT", EnvPrefix)
		}
		c.RateLimit = f
	}
	if v, ok := get("INSECURE_SKIP_VERIFY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "%sINSECURE_SKIP_VERIFY", EnvPrefix)
		}
		c.InsecureSkipVerify = b
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if err := c.HTTP().Validate(); err != nil {
		return err
	}
	if c.HandshakeTimeout < 0 {
		return errors.Errorf("handshake_timeout must be non-negative, got %v", c.HandshakeTimeout)
	}
	if c.MaxRetries < 0 {
		return errors.Errorf("max_retries must be non-negative, got %d", c.MaxRetries)
	}
	if c.RateLimit < 0 {
		return errors.Errorf("rate_limit must be non-negative, got %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return errors.Errorf("rate_burst must be at least 1 when rate_limit is set, got %d", c.RateBurst)
	}
	return nil
}

// Scope returns the default scope.
func (c Config) Scope() transport.Scope {
	return transport.Scope{AgentID: c.AgentID, UserID: c.UserID}
}

// HTTP returns the request/response transport configuration.
func (c Config) HTTP() httptransport.Config {
	return httptransport.Config{
		BaseURL:            c.BaseURL,
		APIKey:             c.APIKey,
		Defaults:           c.Scope(),
		Timeout:            c.Timeout,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
}

// WS returns the channel transport configuration.
func (c Config) WS() ws.Config {
	return ws.Config{
		BaseURL:            c.BaseURL,
		APIKey:             c.APIKey,
		Defaults:           c.Scope(),
		HandshakeTimeout:   c.HandshakeTimeout,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
}
