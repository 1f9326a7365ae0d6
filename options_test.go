package infer

import "testing"

func TestClientConfig_Debug_RedactsCredential(t *testing.T) {
	cfg := ClientConfig{
		BaseURL: "https://api.example.com",
		APIKey:  "sk-super-secret-value",
	}
	debug := cfg.Debug()

	if contains(debug, cfg.APIKey) {
		t.Fatalf("debug output leaked credential: %s", debug)
	}
	if !contains(debug, redactedCredential) {
		t.Fatalf("debug output missing redaction marker: %s", debug)
	}
}

func TestClientConfig_String_MatchesDebug(t *testing.T) {
	cfg := ClientConfig{APIKey: "x"}
	if cfg.String() != cfg.Debug() {
		t.Fatalf("String() and Debug() diverge")
	}
}

func TestRetryPolicy_ClampsMaxRetries(t *testing.T) {
	p := RetryPolicy{MaxRetries: 1000}
	if got := p.clampedMaxRetries(); got != maxRetriesCeiling {
		t.Fatalf("expected clamp to %d, got %d", maxRetriesCeiling, got)
	}
}

func TestRequestOptions_Validate_RejectsInvalidHeaderName(t *testing.T) {
	opts := RequestOptions{ExtraHeaders: map[string][]string{"bad header\n": {"v"}}}
	if err := opts.Validate(); err == nil {
		t.Fatal("expected validation error for header name containing a space/newline")
	}
}

func TestRequestOptions_Validate_RejectsControlCharInValue(t *testing.T) {
	opts := RequestOptions{ExtraHeaders: map[string][]string{"X-Test": {"bad\x00value"}}}
	if err := opts.Validate(); err == nil {
		t.Fatal("expected validation error for control character in header value")
	}
}

func TestRequestOptions_Validate_AcceptsWellFormedHeaders(t *testing.T) {
	opts := RequestOptions{ExtraHeaders: map[string][]string{"X-Request-Id": {"abc-123"}}}
	if err := opts.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
