// Package kbase is a client for the KBase SDK callback server, which fronts
// the reads, assembly, alignment, file and report services over JSON-RPC 1.1.
package kbase

import "time"

// Default client settings. Uploads of large reads files are slow, so the
// per-request timeout is generous.
const (
	DefaultTimeout    = 30 * time.Minute
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
)

// Config holds the client configuration.
type Config struct {
	// CallbackURL is the SDK callback server every service call is sent to.
	CallbackURL string

	// Token is the authentication token.
	Token string

	// Timeout is the HTTP client timeout for each request.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for failed requests.
	MaxRetries int

	// RetryDelay is the initial delay between retries (exponential backoff applied).
	RetryDelay time.Duration
}

// DefaultConfig returns a Config for the given callback URL with default
// settings.
func DefaultConfig(callbackURL string) Config {
	return Config{
		CallbackURL: callbackURL,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
	}
}

// WithToken returns a copy of the config with the specified token.
func (c Config) WithToken(token string) Config {
	c.Token = token
	return c
}

// WithRetries returns a copy of the config with the specified retry settings.
func (c Config) WithRetries(maxRetries int, retryDelay time.Duration) Config {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
	return c
}
