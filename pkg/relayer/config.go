package relayer

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/R3E-Network/relayer_sdk/pkg/logger"
)

// DefaultTimeout is the global deadline of a request when none is configured.
const DefaultTimeout = 60 * time.Second

// Config configures a Client.
type Config struct {
	// BaseURL is the relayer root, e.g. "https://relayer.example.org".
	BaseURL string
	// HTTPClient defaults to an *http.Client without its own timeout; the request
	// deadline governs instead.
	HTTPClient Doer
	Auth       Auth
	// Timeout is the default global deadline per request.
	Timeout time.Duration
	// ThrowErrorIfNoRetryAfter makes a missing or unparsable Retry-After header an error
	// instead of falling back to DefaultRetryAfter.
	ThrowErrorIfNoRetryAfter bool
	RateLimit                RateLimit
	Logger                   *logger.Logger
	UserAgent                string
	// Verification enables signer checks on results. Nil disables them.
	Verification *Verification
}

// RateLimit paces outbound calls. A zero RequestsPerSecond disables pacing.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("relayer: base url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("relayer: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("relayer: base url scheme must be http or https, got %q", u.Scheme)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("relayer: timeout must not be negative, got %s", c.Timeout)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("relayer: rate limit must not be negative, got %v", c.RateLimit.RequestsPerSecond)
	}
	if c.Verification != nil {
		if err := c.Verification.Validate(); err != nil {
			return fmt.Errorf("relayer: %w", err)
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = logger.NewDefault("relayer")
	}
	if c.UserAgent == "" {
		c.UserAgent = "relayer-sdk-go"
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 1
	}
	return c
}

type requestOptions struct {
	timeout             time.Duration
	throwIfNoRetryAfter bool
	progress            ProgressFunc
	auth                Auth
}

// RequestOption overrides client defaults for a single request.
type RequestOption func(*requestOptions)

// WithTimeout sets the global deadline of the request. Non-positive values are ignored.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTimeoutSeconds is WithTimeout in whole seconds.
func WithTimeoutSeconds(secs int) RequestOption {
	return WithTimeout(time.Duration(secs) * time.Second)
}

// WithThrowErrorIfNoRetryAfter sets strict Retry-After handling for the request.
func WithThrowErrorIfNoRetryAfter(strict bool) RequestOption {
	return func(o *requestOptions) {
		o.throwIfNoRetryAfter = strict
	}
}

// WithProgress registers a progress callback for the request.
func WithProgress(fn ProgressFunc) RequestOption {
	return func(o *requestOptions) {
		o.progress = fn
	}
}

// WithAuth overrides the client's credentials for the request.
func WithAuth(a Auth) RequestOption {
	return func(o *requestOptions) {
		o.auth = a
	}
}
