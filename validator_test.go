package infer

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"testing"
)

func TestValidateSequence_Accepts(t *testing.T) {
	cases := [][]InferenceEvent{
		{MessageStart{}, MessageEnd{}},
		{MessageStart{}, MessageDelta{Content: "hi"}, MessageEnd{}},
		{MessageStart{}, ThinkingDelta{Content: "..."}, MessageEnd{}},
		{
			MessageStart{},
			ToolCallStart{ID: "1", Name: "f"},
			ToolCallDelta{Delta: "{}"},
			MessageEnd{},
		},
		{
			MessageStart{},
			MessageDelta{Content: "a"},
			ToolCallStart{ID: "1", Name: "f"},
			ToolCallDelta{Delta: "{"},
			ToolCallDelta{Delta: "}"},
			MessageEnd{},
		},
	}

	for i, events := range cases {
		if err := validateSequence(events); err != nil {
			t.Errorf("case %d: expected accept, got %v", i, err)
		}
	}
}

func TestValidateSequence_ToolCallDeltaBeforeStart(t *testing.T) {
	events := []InferenceEvent{MessageStart{}, ToolCallDelta{Delta: "{}"}, MessageEnd{}}
	err := validateSequence(events)
	if !IsInvariant(err, ToolCallDeltaBeforeStart) {
		t.Fatalf("expected ToolCallDeltaBeforeStart, got %v", err)
	}
}

func TestValidateSequence_DuplicateMessageStart(t *testing.T) {
	err := validateSequence([]InferenceEvent{MessageStart{}, MessageStart{}, MessageEnd{}})
	if !IsInvariant(err, DuplicateMessageStart) {
		t.Fatalf("expected DuplicateMessageStart, got %v", err)
	}
}

func TestValidateSequence_EventAfterMessageEnd(t *testing.T) {
	err := validateSequence([]InferenceEvent{MessageStart{}, MessageEnd{}, MessageDelta{Content: "x"}})
	if !IsInvariant(err, EventAfterMessageEnd) {
		t.Fatalf("expected EventAfterMessageEnd, got %v", err)
	}
}

func TestValidateSequence_MessageNotStarted(t *testing.T) {
	err := validateSequence([]InferenceEvent{MessageDelta{Content: "x"}})
	if !IsInvariant(err, MessageNotStarted) {
		t.Fatalf("expected MessageNotStarted, got %v", err)
	}
}

func TestValidateSequence_MessageEndBeforeStart(t *testing.T) {
	err := validateSequence([]InferenceEvent{MessageEnd{}})
	if !IsInvariant(err, MessageEndBeforeStart) {
		t.Fatalf("expected MessageEndBeforeStart, got %v", err)
	}
}

func TestValidateSequence_MissingMessageEnd(t *testing.T) {
	err := validateSequence([]InferenceEvent{MessageStart{}})
	if !IsInvariant(err, MissingMessageEnd) {
		t.Fatalf("expected MissingMessageEnd, got %v", err)
	}
}

func TestValidateSequence_MissingMessageStart(t *testing.T) {
	err := validateSequence(nil)
	if !IsInvariant(err, MissingMessageStart) {
		t.Fatalf("expected MissingMessageStart, got %v", err)
	}
}

// TestValidateSequence_RandomValidPermutations exercises property 1: for
// arbitrary valid sequences (random interleavings of deltas and tool call
// rounds between a start and an end), the validator accepts.
func TestValidateSequence_RandomValidPermutations(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 50; trial++ {
		events := []InferenceEvent{MessageStart{}}
		toolOpen := false

		steps := rng.Intn(8)
		for i := 0; i < steps; i++ {
			switch rng.Intn(4) {
			case 0:
				events = append(events, MessageDelta{Content: "x"})
			case 1:
				events = append(events, ThinkingDelta{Content: "y"})
			case 2:
				events = append(events, ToolCallStart{ID: "t", Name: "f"})
				toolOpen = true
			case 3:
				if toolOpen {
					events = append(events, ToolCallDelta{Delta: "z"})
				}
			}
		}
		events = append(events, MessageEnd{})

		if err := validateSequence(events); err != nil {
			t.Fatalf("trial %d: expected accept for %#v, got %v", trial, events, err)
		}
	}
}

// TestValidateSequence_ToolCallDeltaBeforeStart_Property exercises property
// 2: any sequence that inserts a ToolCallDelta before any ToolCallStart is
// rejected with ToolCallDeltaBeforeStart.
func TestValidateSequence_ToolCallDeltaBeforeStart_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for trial := 0; trial < 20; trial++ {
		n := 1 + rng.Intn(4)
		events := []InferenceEvent{MessageStart{}}
		for i := 0; i < n; i++ {
			events = append(events, MessageDelta{Content: "x"})
		}
		events = append(events, ToolCallDelta{Delta: "{}"})

		err := validateSequence(events)
		if !IsInvariant(err, ToolCallDeltaBeforeStart) {
			t.Fatalf("trial %d: expected ToolCallDeltaBeforeStart, got %v", trial, err)
		}
	}
}

// marshalChunks splits the JSON encoding of v into n byte chunks, used to
// exercise property 3 (arbitrary tool-argument partitions) via the
// assembler tests.
func marshalChunks(t *testing.T, v any, n int) []string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if n <= 0 || n > len(data) {
		n = len(data)
	}
	if n == 0 {
		return []string{""}
	}

	chunkSize := len(data) / n
	if chunkSize == 0 {
		chunkSize = 1
	}

	var chunks []string
	var buf bytes.Buffer
	for i, b := range data {
		buf.WriteByte(b)
		if (i+1)%chunkSize == 0 && len(chunks) < n-1 {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
	}
	chunks = append(chunks, buf.String())
	return chunks
}
