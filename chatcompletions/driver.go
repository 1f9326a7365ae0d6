package chatcompletions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/quillhatch/infer"
	"github.com/quillhatch/infer/internal/transport"
)

// DefaultBaseURL is the Chat-Completions-style driver's default endpoint
// root.
const DefaultBaseURL = "https://api.openai.com/v1"

// Driver is the Chat-Completions-style ("OpenAI") provider. Construct one
// with New or NewFromConfig; it implements infer.Provider and, via Embed,
// the Embedder capability.
type Driver struct {
	cfg infer.ClientConfig
}

// New builds a Driver reading its API key from the OPENAI_API_KEY
// environment variable and using DefaultBaseURL.
func New() (*Driver, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, &infer.ConfigError{Message: "OPENAI_API_KEY is not set"}
	}
	return NewFromConfig(infer.ClientConfig{BaseURL: DefaultBaseURL, APIKey: key})
}

// NewFromConfig builds a Driver from an explicit ClientConfig. BaseURL
// defaults to DefaultBaseURL when empty.
func NewFromConfig(cfg infer.ClientConfig) (*Driver, error) {
	if cfg.APIKey == "" {
		return nil, &infer.ConfigError{Message: "API key is required"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Driver{cfg: cfg}, nil
}

// Register adds this driver's factory to reg under "chat-completions" and
// "openai", both case-insensitive.
func Register(reg *infer.Registry) {
	factory := func(cfg infer.ClientConfig) (infer.Provider, error) { return NewFromConfig(cfg) }
	reg.Register("chat-completions", factory)
	reg.Register("openai", factory)
}

func (d *Driver) buildHeaders(opts *infer.RequestOptions) (http.Header, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+d.cfg.APIKey)

	for k, v := range d.cfg.Headers {
		h[k] = v
	}

	if opts != nil {
		if err := opts.Validate(); err != nil {
			return nil, err
		}
		for k, v := range opts.ExtraHeaders {
			h[k] = v
		}
	}

	if h.Get("X-Request-Id") == "" {
		h.Set("X-Request-Id", uuid.NewString())
	}

	return h, nil
}

func (d *Driver) retryAndTimeout(opts *infer.RequestOptions) (infer.RetryPolicy, infer.TimeoutPolicy) {
	retry := d.cfg.RetryPolicy
	timeouts := d.cfg.TimeoutPolicy
	if opts == nil {
		return retry, timeouts
	}
	if opts.RetryPolicy != nil {
		retry = *opts.RetryPolicy
	}
	if opts.Timeout > 0 {
		timeouts.Request = opts.Timeout
	}
	if opts.TotalDeadline > 0 {
		timeouts.TotalDeadline = opts.TotalDeadline
	}
	return retry, timeouts
}

func (d *Driver) postJSON(ctx context.Context, path string, body []byte, opts *infer.RequestOptions) (*http.Response, error) {
	headers, err := d.buildHeaders(opts)
	if err != nil {
		return nil, err
	}

	retry, timeouts := d.retryAndTimeout(opts)
	url := d.cfg.BaseURL + path

	return transport.Do(ctx, d.cfg.HTTPClient, retry, timeouts, func(attemptCtx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header = headers.Clone()
		return r, nil
	})
}

func (d *Driver) send(ctx context.Context, req *infer.InferenceRequest, opts *infer.RequestOptions, stream bool) (*http.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	wire, err := requestToWire(req, stream)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, &infer.SerializationError{Message: "request body", Cause: err}
	}

	slog.Debug("infer/chatcompletions: sending request", "model", req.Model, "messages", len(req.Messages), "tools", len(req.Tools), "stream", stream)

	return d.postJSON(ctx, "/chat/completions", body, opts)
}

// Complete issues a non-streaming request and decodes the JSON body
// directly into an InferenceResult.
func (d *Driver) Complete(ctx context.Context, req *infer.InferenceRequest, opts *infer.RequestOptions) (*infer.InferenceResult, error) {
	resp, err := d.send(ctx, req, opts, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &infer.SerializationError{Message: "response body", Cause: err}
	}

	return wireResponseToResult(&wire)
}

// Stream issues a streaming request and returns a live InferenceStream
// backed by the SSE response body. The [DONE] sentinel ends the stream
// without producing a neutral event; the preceding usage chunk is what
// carries MessageEnd.
func (d *Driver) Stream(ctx context.Context, req *infer.InferenceRequest, opts *infer.RequestOptions) (*infer.InferenceStream, error) {
	resp, err := d.send(ctx, req, opts, true)
	if err != nil {
		return nil, err
	}

	scanner := transport.NewSSEScanner(resp.Body)
	adapter := newStreamAdapter()

	iterator := func(yield func(infer.InferenceEvent, error) bool) {
		defer resp.Body.Close()

		for {
			payload, err := scanner.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(nil, &infer.StreamError{Cause: err})
				return
			}

			events, decodeErr := adapter.decode([]byte(payload))
			if decodeErr != nil {
				yield(nil, decodeErr)
				return
			}
			for _, e := range events {
				if !yield(e, nil) {
					return
				}
			}
		}
	}

	return infer.NewInferenceStream(iterator), nil
}

var _ infer.Provider = (*Driver)(nil)

// Embedder is a capability some Chat-Completions-style providers expose
// beyond the shared infer.Provider interface. It is reachable via a type
// assertion (embedder, ok := provider.(chatcompletions.Embedder)) rather
// than widening infer.Provider, since embeddings are peripheral to the
// core inference contract (spec.md §6).
type Embedder interface {
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResult, error)
}

// EmbedRequest is the input to the embeddings peripheral endpoint.
type EmbedRequest struct {
	Model      string
	Input      []string
	Dimensions *int
}

// EmbedResult is one embedding vector per input string, in request order.
type EmbedResult struct {
	Model      string
	Embeddings [][]float64
	Usage      infer.Usage
}

// Embed issues a POST {base_url}/embeddings request. It is not part of
// infer.Provider; callers reach it through the Embedder type assertion.
func (d *Driver) Embed(ctx context.Context, req EmbedRequest) (*EmbedResult, error) {
	wire := wireEmbedRequest{Model: req.Model, Input: req.Input, Dimensions: req.Dimensions}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, &infer.SerializationError{Message: "embed request body", Cause: err}
	}

	resp, err := d.postJSON(ctx, "/embeddings", body, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out wireEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &infer.SerializationError{Message: "embed response body", Cause: err}
	}

	vectors := make([][]float64, len(out.Data))
	for _, v := range out.Data {
		if v.Index >= 0 && v.Index < len(vectors) {
			vectors[v.Index] = v.Embedding
		}
	}

	return &EmbedResult{
		Model:      out.Model,
		Embeddings: vectors,
		Usage:      infer.Usage{InputTokens: out.Usage.PromptTokens, OutputTokens: out.Usage.CompletionTokens},
	}, nil
}

var _ Embedder = (*Driver)(nil)
