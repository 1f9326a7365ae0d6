package messages

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

// DefaultBaseURL is the Messages-style driver's default endpoint root.
const DefaultBaseURL = "https://api.anthropic.com/v1"

// anthropicVersion is the required protocol-version header value.
const anthropicVersion = "2023-06-01"

// defaultThinkingBeta is the beta header token injected automatically
// when a request sets ThinkingBudget, unless disabled via ClientConfig.
const defaultThinkingBeta = "extended-thinking-2024-06-01"

// Driver is the Messages-style ("Anthropic") provider. Construct one with
// New or NewFromConfig; it implements infer.Provider.
type Driver struct {
	cfg infer.ClientConfig
}

// New builds a Driver reading its API key from the ANTHROPIC_API_KEY
// environment variable and using DefaultBaseURL.
func New() (*Driver, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, &infer.ConfigError{Message: "ANTHROPIC_API_KEY is not set"}
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

// Register adds this driver's factory to reg under "messages" and
// "anthropic", both case-insensitive.
func Register(reg *infer.Registry) {
	factory := func(cfg infer.ClientConfig) (infer.Provider, error) { return NewFromConfig(cfg) }
	reg.Register("messages", factory)
	reg.Register("anthropic", factory)
}

func (d *Driver) buildHeaders(opts *infer.RequestOptions, req *infer.InferenceRequest) (http.Header, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("x-api-key", d.cfg.APIKey)
	h.Set("anthropic-version", anthropicVersion)

	for k, v := range d.cfg.Headers {
		h[k] = v
	}

	beta := ""
	if req.ThinkingBudget != nil && !d.cfg.DisableAutoBeta {
		beta = defaultThinkingBeta
	}
	if opts != nil && opts.Beta != "" {
		beta = opts.Beta
	}
	if beta != "" {
		h.Set("anthropic-beta", beta)
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

	headers, err := d.buildHeaders(opts, req)
	if err != nil {
		return nil, err
	}

	url := d.cfg.BaseURL + "/messages"
	slog.Debug("infer/messages: sending request", "model", req.Model, "messages", len(req.Messages), "tools", len(req.Tools), "stream", stream)

	retry, timeouts := d.retryAndTimeout(opts)

	return transport.Do(ctx, d.cfg.HTTPClient, retry, timeouts, func(attemptCtx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header = headers.Clone()
		return r, nil
	})
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
// backed by the SSE response body.
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
