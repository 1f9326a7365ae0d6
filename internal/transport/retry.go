package transport

import (
	"math/rand"
	"net"
	"time"

	"github.com/quillhatch/infer"
)

// computeBackoff returns the wait before the given attempt (1-indexed),
// per §4.C: base_delay * 2^(attempt-1), capped at max_delay, plus uniform
// jitter in [0, jitter). A server Retry-After value, when present, is
// applied by the caller instead of this result (see applyRetryAfter).
func computeBackoff(policy infer.RetryPolicy, attempt int) time.Duration {
	base := policy.BaseDelay
	for i := 1; i < attempt; i++ {
		base *= 2
		if policy.MaxDelay > 0 && base > policy.MaxDelay {
			base = policy.MaxDelay
			break
		}
	}
	if policy.MaxDelay > 0 && base > policy.MaxDelay {
		base = policy.MaxDelay
	}
	if policy.Jitter > 0 {
		base += time.Duration(rand.Int63n(int64(policy.Jitter)))
	}
	return base
}

// applyRetryAfter replaces a computed wait with the server's Retry-After
// hint (seconds), capped at max_delay, when the header is present and
// parses as a non-negative integer.
func applyRetryAfter(policy infer.RetryPolicy, computed time.Duration, retryAfterSeconds int, hasRetryAfter bool) time.Duration {
	if !hasRetryAfter {
		return computed
	}
	wait := time.Duration(retryAfterSeconds) * time.Second
	if policy.MaxDelay > 0 && wait > policy.MaxDelay {
		wait = policy.MaxDelay
	}
	return wait
}

// classifyNetworkError maps a transport-level error to the retriable
// network-error class it belongs to. Request construction failures are
// classified by the caller (isBuildError); everything else is either a
// timeout (context deadline, or a net.Error reporting Timeout()) or
// folded into "connect", which covers DNS failures, refused connections,
// and aborted reads alike — the wire distinguishes them no more finely
// than that.
func classifyNetworkError(err error, isBuildError bool) infer.NetworkErrorClass {
	if isBuildError {
		return infer.NetworkRequestBuild
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return infer.NetworkTimeout
	}
	return infer.NetworkConnect
}
