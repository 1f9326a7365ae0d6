package infer

import "context"

// Provider is the interface every driver implements: complete collects a
// full InferenceResult, stream yields normalized events as they arrive.
// Both accept optional per-call RequestOptions; a nil or zero-value
// RequestOptions applies the client's defaults.
type Provider interface {
	// Complete issues request and returns a terminal InferenceResult. The
	// included drivers send a non-streaming request and decode the JSON
	// response body directly; they do not go through InferenceStream.
	Complete(ctx context.Context, request *InferenceRequest, opts *RequestOptions) (*InferenceResult, error)

	// Stream issues request and returns a live InferenceStream. The
	// caller must consume it (see InferenceStream's doc comment) to
	// avoid leaking the underlying response body.
	Stream(ctx context.Context, request *InferenceRequest, opts *RequestOptions) (*InferenceStream, error)
}
