package infer

import (
	"fmt"
	"net/http"
	"time"
)

// NetworkErrorClass is one of the retriable network-failure categories a
// RetryPolicy can opt into.
type NetworkErrorClass string

const (
	NetworkTimeout      NetworkErrorClass = "timeout"
	NetworkConnect      NetworkErrorClass = "connect"
	NetworkRequestBuild NetworkErrorClass = "request-build"
)

// maxRetriesCeiling bounds max_retries regardless of what a caller
// requests, to cap worst-case total waiting.
const maxRetriesCeiling = 10

// RetryPolicy governs the shared HTTP transport's retry/backoff behavior
// (§4.C). The zero value is not meant to be used directly; start from
// DefaultRetryPolicy and override fields.
type RetryPolicy struct {
	MaxRetries             int
	BaseDelay              time.Duration
	MaxDelay               time.Duration
	Jitter                 time.Duration
	RetryableStatuses      []int
	RetryableAny5xx        bool
	RetryableNetworkErrors []NetworkErrorClass
}

// DefaultRetryPolicy matches §4.C's stated defaults: two retries, 408/429
// and any 5xx retriable, and all three network-error classes retriable.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		Jitter:            250 * time.Millisecond,
		RetryableStatuses: []int{408, 429},
		RetryableAny5xx:   true,
		RetryableNetworkErrors: []NetworkErrorClass{
			NetworkTimeout, NetworkConnect, NetworkRequestBuild,
		},
	}
}

// clampedMaxRetries returns MaxRetries clamped to the absolute ceiling.
func (p RetryPolicy) clampedMaxRetries() int {
	if p.MaxRetries > maxRetriesCeiling {
		return maxRetriesCeiling
	}
	if p.MaxRetries < 0 {
		return 0
	}
	return p.MaxRetries
}

// isRetriableStatus reports whether status is one this policy retries on.
func (p RetryPolicy) isRetriableStatus(status int) bool {
	if p.RetryableAny5xx && status >= 500 && status < 600 {
		return true
	}
	for _, s := range p.RetryableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// isRetriableNetworkClass reports whether class is one this policy retries on.
func (p RetryPolicy) isRetriableNetworkClass(class NetworkErrorClass) bool {
	for _, c := range p.RetryableNetworkErrors {
		if c == class {
			return true
		}
	}
	return false
}

// TimeoutPolicy bounds one HTTP attempt (Request) and/or the sum of all
// attempts plus backoff waits (TotalDeadline). Either field may be zero,
// meaning unbounded.
type TimeoutPolicy struct {
	Request       time.Duration
	TotalDeadline time.Duration
}

// redactedCredential is what Debug formatting substitutes for any
// credential value, so it never leaks into logs or error text.
const redactedCredential = "[REDACTED]"

// ClientConfig is the per-client configuration shared by reference across
// every call a Provider makes. It is immutable after construction.
type ClientConfig struct {
	BaseURL       string
	APIKey        string
	Headers       http.Header
	RetryPolicy   RetryPolicy
	TimeoutPolicy TimeoutPolicy

	// DisableAutoBeta suppresses a Messages-style driver's automatic
	// injection of its thinking-beta header when ThinkingBudget is set.
	DisableAutoBeta bool

	// HTTPClient is the client every request is issued through. A nil
	// value means http.DefaultClient.
	HTTPClient *http.Client
}

// Debug returns a human-readable summary of cfg with APIKey redacted. It
// never contains the credential substring, satisfying invariant 8.
func (cfg ClientConfig) Debug() string {
	key := redactedCredential
	if cfg.APIKey == "" {
		key = "(empty)"
	}
	return fmt.Sprintf(
		"ClientConfig{BaseURL:%q APIKey:%s Headers:%d MaxRetries:%d RequestTimeout:%s TotalDeadline:%s}",
		cfg.BaseURL, key, len(cfg.Headers), cfg.RetryPolicy.clampedMaxRetries(),
		cfg.TimeoutPolicy.Request, cfg.TimeoutPolicy.TotalDeadline,
	)
}

// String satisfies fmt.Stringer using the redacted Debug representation,
// so an accidental %v or %s in logs can never leak a credential.
func (cfg ClientConfig) String() string { return cfg.Debug() }

// RequestOptions are per-call overrides layered on top of a ClientConfig.
// The zero value applies no overrides.
type RequestOptions struct {
	ExtraHeaders http.Header

	// Timeout overrides TimeoutPolicy.Request for this call only.
	Timeout time.Duration

	// TotalDeadline overrides TimeoutPolicy.TotalDeadline for this call only.
	TotalDeadline time.Duration

	// RetryPolicy, if non-nil, overrides the client's default entirely
	// for this call.
	RetryPolicy *RetryPolicy

	// Beta is a convenience that, for a Messages-style driver, inserts
	// the provider's beta header with this value regardless of whether
	// a thinking budget was set.
	Beta string
}

// Validate checks that ExtraHeaders contains only HTTP-valid header
// names/values, surfacing a ConfigError otherwise.
func (o RequestOptions) Validate() error {
	for name, values := range o.ExtraHeaders {
		if !httpTokenValid(name) {
			return &ConfigError{Message: fmt.Sprintf("invalid header name %q", name)}
		}
		for _, v := range values {
			if !httpFieldValueValid(v) {
				return &ConfigError{Message: fmt.Sprintf("invalid header value for %q", name)}
			}
		}
	}
	return nil
}

// httpTokenValid reports whether s is a valid HTTP header field name
// (RFC 7230 token characters).
func httpTokenValid(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isTokenChar(r) {
			return false
		}
	}
	return true
}

func isTokenChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

// httpFieldValueValid rejects control characters other than horizontal
// tab, which would otherwise corrupt request framing.
func httpFieldValueValid(s string) bool {
	for _, r := range s {
		if r == '\t' {
			continue
		}
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}
