package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	version "github.com/hashicorp/go-version"
)

const (
	DefaultEndpointUrl    = "https://api.airtable.com"
	DefaultApiVersion     = "0.1.0"
	DefaultRequestTimeout = 5 * time.Minute
)

// Doer is the transport capability the executor depends on.
// *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config represents the configuration required to create a Session.
// Run Validate once; the session treats the result as read-only.
type Config struct {
	ApiKey               string         // Personal access token or API key. Required.
	EndpointUrl          string         // Base URL of the API, without version segment.
	ApiVersion           string         // Full API version; only the major part appears in URLs.
	RequestTimeout       *time.Duration // Per-attempt timeout. If nil, a default is applied by validators.
	NoRetryIfRateLimited bool           // Surface 429 responses instead of backing off and retrying.
	MaxRateLimitRetries  int            // Upper bound of 429 retries per call. Zero means unbounded.
	RequestsPerSecond    float64        // Client-side pacing of attempts. Zero disables pacing.
	UserAgent            string         // Optional custom User-Agent header.

	// HTTPClient sends the requests. Defaults to a plain *http.Client; the
	// per-attempt timeout is enforced through the request context instead of
	// http.Client.Timeout.
	HTTPClient Doer

	Logger       *slog.Logger
	Metrics      *Metrics
	Backoff      *BackoffPolicy
	Sleep        SleepFunc
	Deprecations *DeprecationRegistry

	// BeforeRequestFn is an optional hook executed before every attempt is sent.
	// Returning an error aborts the call with that error.
	BeforeRequestFn func(ctx context.Context, r *http.Request) error

	// AfterRequestFn is an optional hook executed after a successful response
	// was classified. It may replace the envelope.
	AfterRequestFn func(ctx context.Context, response *Response) (*Response, error)
}

// ConfigFunc defines a function that can modify or validate a Config.
type ConfigFunc func(*Config) error

// Validate applies the given validators in order and stops at the first error.
func (config *Config) Validate(validators ...ConfigFunc) error {
	for _, fn := range validators {
		if err := fn(config); err != nil {
			return err
		}
	}
	return nil
}

// MajorVersion returns the first segment of ApiVersion ("0.1.0" -> "0").
func (config *Config) MajorVersion() string {
	v, err := version.NewVersion(config.ApiVersion)
	if err == nil {
		return fmt.Sprintf("%d", v.Segments()[0])
	}
	major, _, _ := strings.Cut(config.ApiVersion, ".")
	return major
}

// Timeout returns the effective per-attempt timeout.
func (config *Config) Timeout() time.Duration {
	if config.RequestTimeout == nil || *config.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return *config.RequestTimeout
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// WithApiKey resolves the API key: explicit value, then the given fallbacks
// (process-wide defaults), then the AIRTABLE_API_KEY environment variable.
// Returns ErrMissingApiKey if all of them are empty.
func WithApiKey(fallbacks ...string) ConfigFunc {
	return func(config *Config) error {
		candidates := append([]string{config.ApiKey}, fallbacks...)
		candidates = append(candidates, os.Getenv(EnvApiKey))
		config.ApiKey = firstNonEmpty(candidates...)
		if config.ApiKey == "" {
			return ErrMissingApiKey
		}
		return nil
	}
}

// WithEndpointUrl resolves the endpoint the same way as WithApiKey and falls
// back to DefaultEndpointUrl. A trailing slash is trimmed.
func WithEndpointUrl(fallbacks ...string) ConfigFunc {
	return func(config *Config) error {
		candidates := append([]string{config.EndpointUrl}, fallbacks...)
		candidates = append(candidates, os.Getenv(EnvEndpointUrl), DefaultEndpointUrl)
		config.EndpointUrl = strings.TrimRight(firstNonEmpty(candidates...), "/")
		return nil
	}
}

// WithApiVersion sets the API version if none is provided.
func WithApiVersion(fallbacks ...string) ConfigFunc {
	return func(config *Config) error {
		candidates := append([]string{config.ApiVersion}, fallbacks...)
		config.ApiVersion = firstNonEmpty(append(candidates, DefaultApiVersion)...)
		if config.MajorVersion() == "" {
			return fmt.Errorf("invalid api version %q", config.ApiVersion)
		}
		return nil
	}
}

// WithRequestTimeout returns a ConfigFunc that sets a default timeout if none is provided.
func WithRequestTimeout(timeout time.Duration) ConfigFunc {
	return func(config *Config) error {
		if config.RequestTimeout == nil {
			config.RequestTimeout = &timeout
		}
		if *config.RequestTimeout <= 0 {
			return errors.New("request timeout must be positive")
		}
		return nil
	}
}

// WithNoRetryIfRateLimited turns the retry opt-out on when any fallback asks for it.
func WithNoRetryIfRateLimited(fallbacks ...bool) ConfigFunc {
	return func(config *Config) error {
		for _, v := range fallbacks {
			config.NoRetryIfRateLimited = config.NoRetryIfRateLimited || v
		}
		if config.MaxRateLimitRetries < 0 {
			return errors.New("max rate limit retries cannot be negative")
		}
		return nil
	}
}

// WithUserAgent sets a default User-Agent header if none is provided in the config.
func WithUserAgent(config *Config) error {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent()
	}
	return nil
}

// WithHTTPClient installs a default transport if none is provided.
func WithHTTPClient(config *Config) error {
	if config.HTTPClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		config.HTTPClient = &http.Client{Transport: transport}
	}
	return nil
}

// WithLogger installs a logger derived from AIRTABLE_LOG if none is provided.
func WithLogger(config *Config) error {
	if config.Logger == nil {
		config.Logger = NewLogger(os.Getenv(EnvLogLevel), os.Stderr)
	}
	return nil
}

// WithBackoff installs DefaultBackoffPolicy if none is provided.
func WithBackoff(config *Config) error {
	if config.Backoff == nil {
		config.Backoff = DefaultBackoffPolicy()
	}
	return nil
}

// WithSleep installs TimerSleep if no sleep function is provided.
func WithSleep(config *Config) error {
	if config.Sleep == nil {
		config.Sleep = TimerSleep
	}
	return nil
}

// WithDeprecations gives the config its own warn-once registry if none is shared.
func WithDeprecations(config *Config) error {
	if config.Deprecations == nil {
		config.Deprecations = NewDeprecationRegistry(config.Logger)
	}
	return nil
}

// DefaultValidators returns the full validator chain in dependency order.
// Fallback values (process-wide defaults) are passed through by the caller.
func DefaultValidators(defaults Defaults) []ConfigFunc {
	return []ConfigFunc{
		WithApiKey(defaults.ApiKey),
		WithEndpointUrl(defaults.EndpointUrl),
		WithApiVersion(defaults.ApiVersion),
		WithRequestTimeout(DefaultRequestTimeout),
		WithNoRetryIfRateLimited(defaults.NoRetryIfRateLimited),
		WithUserAgent,
		WithHTTPClient,
		WithLogger,
		WithBackoff,
		WithSleep,
		WithDeprecations,
	}
}

// Defaults holds the process-wide fallback values consulted after explicit config fields.
type Defaults struct {
	ApiKey               string
	EndpointUrl          string
	ApiVersion           string
	NoRetryIfRateLimited bool
}
