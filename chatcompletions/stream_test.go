package chatcompletions

import (
	"testing"

	"github.com/quillhatch/infer"
)

// TestStreamAdapter_ToolStream exercises scenario S5: a role-bearing first
// chunk, three tool_calls deltas (the first carrying id+name with empty
// arguments, the next two carrying only argument fragments), a
// finish_reason chunk, and a trailing usage-only chunk.
func TestStreamAdapter_ToolStream(t *testing.T) {
	a := newStreamAdapter()

	frames := []string{
		`{"model":"gpt-x","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":""}]}`,
		`{"model":"gpt-x","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"weather","arguments":""}}]},"finish_reason":""}]}`,
		`{"model":"gpt-x","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"city\":\"S"}}]},"finish_reason":""}]}`,
		`{"model":"gpt-x","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"F\"}"}}]},"finish_reason":""}]}`,
		`{"model":"gpt-x","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		`{"model":"gpt-x","choices":[],"usage":{"prompt_tokens":13,"completion_tokens":21}}`,
	}

	var got []infer.InferenceEvent
	for _, f := range frames {
		events, err := a.decode([]byte(f))
		if err != nil {
			t.Fatalf("decode %s: %v", f, err)
		}
		got = append(got, events...)
	}

	want := []infer.InferenceEvent{
		infer.MessageStart{Role: infer.RoleAssistant, Model: "gpt-x", ProviderID: "chat-completions-like"},
		infer.ToolCallStart{ID: "call_1", Name: "weather"},
		infer.ToolCallDelta{Delta: `{"city":"S`},
		infer.ToolCallDelta{Delta: `F"}`},
		infer.MessageEnd{InputTokens: 13, OutputTokens: 21, StopReason: infer.StopToolUse},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d: %#v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %#v, want %#v", i, got[i], want[i])
		}
	}

	stream := infer.NewInferenceStream(func(yield func(infer.InferenceEvent, error) bool) {
		for _, e := range got {
			if !yield(e, nil) {
				return
			}
		}
	})
	result, err := stream.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content part, got %d", len(result.Content))
	}
	tu, ok := result.Content[0].(infer.ToolUsePart)
	if !ok {
		t.Fatalf("expected ToolUsePart, got %T", result.Content[0])
	}
	if tu.Input["city"] != "SF" {
		t.Fatalf("expected city=SF, got %+v", tu.Input)
	}
}

func TestStreamAdapter_TextStream(t *testing.T) {
	a := newStreamAdapter()

	frames := []string{
		`{"model":"gpt-x","choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":""}]}`,
		`{"model":"gpt-x","choices":[{"index":0,"delta":{"content":"Hel"},"finish_reason":""}]}`,
		`{"model":"gpt-x","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":""}]}`,
		`{"model":"gpt-x","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`{"model":"gpt-x","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2}}`,
	}

	var got []infer.InferenceEvent
	for _, f := range frames {
		events, err := a.decode([]byte(f))
		if err != nil {
			t.Fatalf("decode %s: %v", f, err)
		}
		got = append(got, events...)
	}

	if len(got) == 0 {
		t.Fatal("expected events")
	}
	if _, ok := got[0].(infer.MessageStart); !ok {
		t.Fatalf("expected first event to be MessageStart, got %#v", got[0])
	}
	last := got[len(got)-1]
	end, ok := last.(infer.MessageEnd)
	if !ok {
		t.Fatalf("expected last event to be MessageEnd, got %#v", last)
	}
	if end.StopReason != infer.StopEndTurn {
		t.Fatalf("expected StopEndTurn, got %v", end.StopReason)
	}
}

// TestStreamAdapter_UsageOnFinalNonEmptyChoice covers the tolerant branch
// where a compatible server attaches usage directly to the chunk carrying
// finish_reason, instead of a trailing choices-empty chunk.
func TestStreamAdapter_UsageOnFinalNonEmptyChoice(t *testing.T) {
	a := newStreamAdapter()

	frames := []string{
		`{"model":"gpt-x","choices":[{"index":0,"delta":{"role":"assistant","content":"hi"},"finish_reason":""}]}`,
		`{"model":"gpt-x","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":1}}`,
	}

	var got []infer.InferenceEvent
	for _, f := range frames {
		events, err := a.decode([]byte(f))
		if err != nil {
			t.Fatalf("decode %s: %v", f, err)
		}
		got = append(got, events...)
	}

	last := got[len(got)-1]
	end, ok := last.(infer.MessageEnd)
	if !ok {
		t.Fatalf("expected last event to be MessageEnd, got %#v", last)
	}
	if end.InputTokens != 3 || end.OutputTokens != 1 || end.StopReason != infer.StopEndTurn {
		t.Fatalf("unexpected MessageEnd: %+v", end)
	}
}

func TestStreamAdapter_StopReasonCapturedOnce(t *testing.T) {
	a := newStreamAdapter()
	a.captureStopReason(infer.StopToolUse)
	a.captureStopReason(infer.StopEndTurn)

	end := a.messageEnd(wireUsage{PromptTokens: 1, CompletionTokens: 1})
	msgEnd, ok := end.(infer.MessageEnd)
	if !ok {
		t.Fatalf("expected MessageEnd, got %#v", end)
	}
	if msgEnd.StopReason != infer.StopToolUse {
		t.Fatalf("expected first-captured reason to win, got %v", msgEnd.StopReason)
	}
}
