// Package transport implements the one shared POST+JSON routine every
// driver uses identically: retry classification, backoff with jitter,
// Retry-After overrides, and per-attempt/total-deadline timeouts.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/quillhatch/infer"
)

// maxErrorBodyBytes caps how much of a non-2xx response body is read into
// an ApiError, preventing unbounded memory use from a rogue server.
const maxErrorBodyBytes = 10 * 1024 * 1024

// RequestBuilder constructs a fresh *http.Request for one attempt. It is
// called once per attempt because a request's body reader is single-use;
// rebuilding is assumed to be cheap and deterministic.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// Do sends the request built by build, retrying per policy on classified
// transient failures and respecting timeouts. On success the returned
// *http.Response has its body left open for the caller to decode (JSON)
// or wrap (SSE); the caller is responsible for closing it. On failure it
// returns *infer.ApiError, *infer.NetworkError, or
// *infer.DeadlineExceededError.
func Do(ctx context.Context, client *http.Client, policy infer.RetryPolicy, timeouts infer.TimeoutPolicy, build RequestBuilder) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	maxRetries := policy.clampedMaxRetries()

	var lastErr error

	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if timeouts.Request > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeouts.Request)
		}

		req, buildErr := build(attemptCtx)
		if buildErr != nil {
			if cancel != nil {
				cancel()
			}
			class := classifyNetworkError(buildErr, true)
			if attempt <= maxRetries && policy.isRetriableNetworkClass(class) {
				lastErr = &infer.NetworkError{Cause: buildErr}
				if !waitForRetry(ctx, policy, attempt, 0, false, "network: "+string(class), start, timeouts) {
					return nil, deadlineErr(start)
				}
				continue
			}
			return nil, &infer.NetworkError{Cause: buildErr}
		}

		resp, sendErr := client.Do(req)

		if sendErr != nil {
			if cancel != nil {
				cancel()
			}
			class := classifyNetworkError(sendErr, false)
			lastErr = &infer.NetworkError{Cause: sendErr}
			if attempt <= maxRetries && policy.isRetriableNetworkClass(class) && !errors.Is(ctx.Err(), context.Canceled) {
				if !waitForRetry(ctx, policy, attempt, 0, false, "network: "+string(class), start, timeouts) {
					return nil, deadlineErr(start)
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if cancel != nil {
				// The per-attempt timeout must not expire while the caller
				// is still reading the body (a streamed SSE response can
				// run long after headers arrive), so release it on Close
				// instead of here.
				resp.Body = &cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel}
			}
			return resp, nil
		}

		body, retryAfterSeconds, hasRetryAfter := readErrorBody(resp)
		if cancel != nil {
			cancel()
		}

		if attempt <= maxRetries && policy.isRetriableStatus(resp.StatusCode) {
			lastErr = &infer.ApiError{Status: resp.StatusCode, Body: body}
			if !waitForRetry(ctx, policy, attempt, retryAfterSeconds, hasRetryAfter, fmt.Sprintf("status %d", resp.StatusCode), start, timeouts) {
				return nil, deadlineErr(start)
			}
			continue
		}

		return nil, &infer.ApiError{Status: resp.StatusCode, Body: body}
	}

	return nil, lastErr
}

// waitForRetry sleeps the computed (or Retry-After-overridden) backoff,
// first checking the wait would not exceed the total deadline. It returns
// false if the deadline would be exceeded or ctx was cancelled, meaning
// the caller must abort instead of retrying.
func waitForRetry(ctx context.Context, policy infer.RetryPolicy, attempt, retryAfterSeconds int, hasRetryAfter bool, reason string, start time.Time, timeouts infer.TimeoutPolicy) bool {
	wait := computeBackoff(policy, attempt)
	wait = applyRetryAfter(policy, wait, retryAfterSeconds, hasRetryAfter)

	if timeouts.TotalDeadline > 0 {
		elapsed := time.Since(start)
		if elapsed+wait > timeouts.TotalDeadline {
			return false
		}
	}

	slog.Warn("infer: retrying request",
		"attempt", attempt,
		"wait", wait,
		"reason", reason,
		"retry_after", hasRetryAfter,
	)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func deadlineErr(start time.Time) error {
	return &infer.DeadlineExceededError{Elapsed: time.Since(start).String()}
}

// readErrorBody reads (and caps) a non-2xx response body and extracts a
// Retry-After header expressed in seconds, if present. The response body
// is always closed before returning.
func readErrorBody(resp *http.Response) (body string, retryAfterSeconds int, hasRetryAfter bool) {
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	body = string(data)

	if v := resp.Header.Get("Retry-After"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return body, n, true
		}
	}
	return body, 0, false
}

// cancelOnCloseBody releases a per-attempt timeout context once the
// caller is done reading the response body, rather than the moment the
// response headers arrive.
type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnCloseBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}

// truncate returns s capped at n runes, appending an ellipsis marker when
// truncated. Nothing in this package calls it; error bodies are capped
// by maxErrorBodyBytes instead.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
