package infer

import (
	"reflect"
	"testing"
)

// TestAssembler_ToolArgumentReassembly_Property exercises property 3: for
// any JSON object and any partition of its bytes into chunks, feeding
// ToolCallStart, ToolCallDelta(c1..ck), MessageEnd produces exactly one
// ToolUse whose Input equals the original object.
func TestAssembler_ToolArgumentReassembly_Property(t *testing.T) {
	payload := map[string]any{"city": "San Francisco", "unit": "celsius", "days": float64(3)}

	for _, n := range []int{1, 2, 3, 5, 11} {
		chunks := marshalChunks(t, payload, n)

		a := newAssembler()
		must(t, a.feed(MessageStart{Model: "m"}))
		must(t, a.feed(ToolCallStart{ID: "call_1", Name: "weather"}))
		for _, c := range chunks {
			must(t, a.feed(ToolCallDelta{Delta: c}))
		}
		must(t, a.feed(MessageEnd{InputTokens: 1, OutputTokens: 1, StopReason: StopToolUse}))

		result, err := a.finish()
		if err != nil {
			t.Fatalf("n=%d: finish: %v", n, err)
		}
		if len(result.Content) != 1 {
			t.Fatalf("n=%d: expected 1 content part, got %d", n, len(result.Content))
		}
		tu, ok := result.Content[0].(ToolUsePart)
		if !ok {
			t.Fatalf("n=%d: expected ToolUsePart, got %T", n, result.Content[0])
		}
		if tu.ID != "call_1" || tu.Name != "weather" {
			t.Fatalf("n=%d: wrong id/name: %+v", n, tu)
		}
		if !reflect.DeepEqual(tu.Input, payload) {
			t.Fatalf("n=%d: input mismatch: got %#v want %#v", n, tu.Input, payload)
		}
	}
}

// TestAssembler_TextReassembly_Property exercises property 4: for any text
// split into arbitrary chunks, the assembler produces exactly one Text
// part whose contents equal the original.
func TestAssembler_TextReassembly_Property(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog. 🦊"
	runes := []rune(text)

	for _, n := range []int{1, 2, 3, 7} {
		a := newAssembler()
		must(t, a.feed(MessageStart{Model: "m"}))

		chunkLen := len(runes) / n
		if chunkLen == 0 {
			chunkLen = 1
		}
		pos := 0
		for pos < len(runes) {
			end := pos + chunkLen
			if end > len(runes) {
				end = len(runes)
			}
			must(t, a.feed(MessageDelta{Content: string(runes[pos:end])}))
			pos = end
		}
		must(t, a.feed(MessageEnd{StopReason: StopEndTurn}))

		result, err := a.finish()
		if err != nil {
			t.Fatalf("n=%d: finish: %v", n, err)
		}
		if len(result.Content) != 1 {
			t.Fatalf("n=%d: expected 1 content part, got %d", n, len(result.Content))
		}
		textPart, ok := result.Content[0].(TextPart)
		if !ok {
			t.Fatalf("n=%d: expected TextPart, got %T", n, result.Content[0])
		}
		if textPart.Text != text {
			t.Fatalf("n=%d: got %q want %q", n, textPart.Text, text)
		}
	}
}

func TestAssembler_ToolCallDeltaBeforeStart(t *testing.T) {
	a := newAssembler()
	must(t, a.feed(MessageStart{}))
	err := a.feed(ToolCallDelta{Delta: "{}"})
	if !IsInvariant(err, ToolCallDeltaBeforeStart) {
		t.Fatalf("expected ToolCallDeltaBeforeStart, got %v", err)
	}
}

func TestAssembler_EmptyToolCallBufferParsesAsEmptyObject(t *testing.T) {
	a := newAssembler()
	must(t, a.feed(MessageStart{}))
	must(t, a.feed(ToolCallStart{ID: "1", Name: "f"}))
	must(t, a.feed(MessageEnd{}))

	result, err := a.finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	tu := result.Content[0].(ToolUsePart)
	if len(tu.Input) != 0 {
		t.Fatalf("expected empty input map, got %#v", tu.Input)
	}
}

func TestAssembler_MalformedToolArgumentsSurfacesSerializationError(t *testing.T) {
	a := newAssembler()
	must(t, a.feed(MessageStart{}))
	must(t, a.feed(ToolCallStart{ID: "1", Name: "f"}))
	must(t, a.feed(ToolCallDelta{Delta: "{not json"}))

	err := a.feed(MessageEnd{})
	var serErr *SerializationError
	if err == nil {
		t.Fatal("expected error")
	}
	if !asSerializationError(err, &serErr) {
		t.Fatalf("expected SerializationError, got %T: %v", err, err)
	}
	if serErr.Fragment != "{not json" {
		t.Fatalf("expected fragment to carry bad JSON, got %q", serErr.Fragment)
	}
}

func TestAssembler_ToolCallMissingNameOrId(t *testing.T) {
	a := newAssembler()
	must(t, a.feed(MessageStart{}))
	must(t, a.feed(ToolCallStart{ID: "", Name: "f"}))
	err := a.feed(MessageEnd{})
	if !IsInvariant(err, ToolCallMissingId) {
		t.Fatalf("expected ToolCallMissingId, got %v", err)
	}

	a = newAssembler()
	must(t, a.feed(MessageStart{}))
	must(t, a.feed(ToolCallStart{ID: "1", Name: ""}))
	err = a.feed(MessageEnd{})
	if !IsInvariant(err, ToolCallMissingName) {
		t.Fatalf("expected ToolCallMissingName, got %v", err)
	}
}

func TestAssembler_SecondToolCallStartFinalizesFirst(t *testing.T) {
	a := newAssembler()
	must(t, a.feed(MessageStart{}))
	must(t, a.feed(ToolCallStart{ID: "1", Name: "f"}))
	must(t, a.feed(ToolCallDelta{Delta: `{"a":1}`}))
	must(t, a.feed(ToolCallStart{ID: "2", Name: "g"}))
	must(t, a.feed(ToolCallDelta{Delta: `{"b":2}`}))
	must(t, a.feed(MessageEnd{}))

	result, err := a.finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(result.Content) != 2 {
		t.Fatalf("expected 2 tool uses, got %d", len(result.Content))
	}
	first := result.Content[0].(ToolUsePart)
	second := result.Content[1].(ToolUsePart)
	if first.ID != "1" || second.ID != "2" {
		t.Fatalf("wrong emission order: %+v, %+v", first, second)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func asSerializationError(err error, target **SerializationError) bool {
	se, ok := err.(*SerializationError)
	if !ok {
		return false
	}
	*target = se
	return true
}
