package infer

import (
	"errors"
	"fmt"
)

// InvariantKind enumerates the ways a neutral event sequence can violate the
// ordering rules enforced by the stream-contract validator.
type InvariantKind string

const (
	MessageNotStarted        InvariantKind = "message_not_started"
	DuplicateMessageStart    InvariantKind = "duplicate_message_start"
	ToolCallDeltaBeforeStart InvariantKind = "tool_call_delta_before_start"
	MessageEndBeforeStart    InvariantKind = "message_end_before_start"
	EventAfterMessageEnd     InvariantKind = "event_after_message_end"
	MissingMessageEnd        InvariantKind = "missing_message_end"
	MissingMessageStart      InvariantKind = "missing_message_start"
	ToolCallMissingId        InvariantKind = "tool_call_missing_id"
	ToolCallMissingName      InvariantKind = "tool_call_missing_name"
)

// ConfigError reports an invalid header value, malformed credential, or
// builder failure detected before any request is sent.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("infer: config error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("infer: config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// NetworkError reports a transport-level failure: DNS, connect, or read.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("infer: network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// ApiError reports a non-retriable or retry-exhausted HTTP response.
type ApiError struct {
	Status int
	Body   string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("infer: api error: status %d: %s", e.Status, e.Body)
}

// SerializationError reports a request/response JSON encode or decode
// failure, including a bad tool-argument fragment assembled from deltas.
type SerializationError struct {
	Message   string
	Fragment  string
	Cause     error
}

func (e *SerializationError) Error() string {
	if e.Fragment != "" {
		return fmt.Sprintf("infer: serialization error: %s: %q: %v", e.Message, e.Fragment, e.Cause)
	}
	return fmt.Sprintf("infer: serialization error: %s: %v", e.Message, e.Cause)
}

func (e *SerializationError) Unwrap() error { return e.Cause }

// StreamError reports an SSE framing failure mid-stream.
type StreamError struct {
	Cause error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("infer: stream error: %v", e.Cause)
}

func (e *StreamError) Unwrap() error { return e.Cause }

// ProviderError reports a logical error event emitted by the provider
// mid-stream (e.g. the Messages-style `error` SSE event).
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("infer: provider error: %s", e.Message)
}

// StreamInvariantError reports a violation of the ordering rules in the
// stream-contract validator. It is always surfaced, never repaired.
type StreamInvariantError struct {
	Kind InvariantKind
}

func (e *StreamInvariantError) Error() string {
	return fmt.Sprintf("infer: stream invariant violated: %s", e.Kind)
}

// UnknownDriverError reports a registry lookup for a driver id that was
// never registered.
type UnknownDriverError struct {
	Driver    string
	Available []string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("infer: unknown driver %q (available: %v)", e.Driver, e.Available)
}

// DriverInitError wraps a factory failure from the registry, carrying the
// underlying config or validation error that caused it.
type DriverInitError struct {
	Driver string
	Source error
}

func (e *DriverInitError) Error() string {
	return fmt.Sprintf("infer: failed to initialize driver %q: %v", e.Driver, e.Source)
}

func (e *DriverInitError) Unwrap() error { return e.Source }

// DeadlineExceededError reports that honoring a computed backoff wait would
// exceed the caller's total-deadline policy.
type DeadlineExceededError struct {
	Elapsed   string
	Remaining string
}

func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("infer: total deadline exceeded (elapsed %s)", e.Elapsed)
}

// invariantError is a small constructor helper used throughout validator.go
// and assembler.go.
func invariantError(kind InvariantKind) error {
	return &StreamInvariantError{Kind: kind}
}

// IsInvariant reports whether err is a StreamInvariantError of the given
// kind, unwrapping as errors.As would.
func IsInvariant(err error, kind InvariantKind) bool {
	var inv *StreamInvariantError
	if errors.As(err, &inv) {
		return inv.Kind == kind
	}
	return false
}
