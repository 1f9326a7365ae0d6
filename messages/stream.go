package messages

import (
	"encoding/json"
	"fmt"

	"github.com/quillhatch/infer"
)

// wireEnvelope is decoded first from every SSE data payload to discover
// which event this frame carries; the Anthropic wire repeats the event
// name inside the JSON body itself; the SSE "event:" line is redundant
// with it and is not retained by the scanner.
type wireEnvelope struct {
	Type string `json:"type"`
}

// streamAdapter is the stateful delta→event translator for one Messages-
// style stream. It is a single-owner object consumed by exactly one
// caller; state is closed over rather than shared.
type streamAdapter struct {
	inputTokens int
}

func newStreamAdapter() *streamAdapter {
	return &streamAdapter{}
}

// decode turns one SSE data payload into zero or more neutral events. A
// provider `error` frame returns a *infer.ProviderError instead of events.
func (a *streamAdapter) decode(data []byte) ([]infer.InferenceEvent, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &infer.StreamError{Cause: err}
	}

	switch env.Type {
	case "message_start":
		var frame wireMessageStart
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, &infer.StreamError{Cause: err}
		}
		a.inputTokens = frame.Message.Usage.InputTokens
		return []infer.InferenceEvent{
			infer.MessageStart{Role: infer.RoleAssistant, Model: frame.Message.Model, ProviderID: "messages-like"},
		}, nil

	case "content_block_start":
		var frame wireContentBlockStart
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, &infer.StreamError{Cause: err}
		}
		if frame.ContentBlock.Type == "tool_use" {
			// The initial inline `input` object, if the server sent one
			// non-empty, is dropped rather than synthesized into a
			// ToolCallDelta: subsequent input_json_delta frames are
			// expected to carry the arguments. This is a known,
			// deliberate divergence from servers that inline the whole
			// object here instead of streaming it.
			return []infer.InferenceEvent{
				infer.ToolCallStart{ID: frame.ContentBlock.ID, Name: frame.ContentBlock.Name},
			}, nil
		}
		return nil, nil

	case "content_block_delta":
		var frame wireContentBlockDelta
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, &infer.StreamError{Cause: err}
		}
		switch frame.Delta.Type {
		case "text_delta":
			return []infer.InferenceEvent{infer.MessageDelta{Content: frame.Delta.Text}}, nil
		case "thinking_delta":
			return []infer.InferenceEvent{infer.ThinkingDelta{Content: frame.Delta.Thinking}}, nil
		case "input_json_delta":
			return []infer.InferenceEvent{infer.ToolCallDelta{Delta: frame.Delta.PartialJSON}}, nil
		case "signature_delta":
			return nil, nil
		default:
			return nil, nil
		}

	case "content_block_stop":
		return nil, nil

	case "message_delta":
		var frame wireMessageDelta
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, &infer.StreamError{Cause: err}
		}
		return []infer.InferenceEvent{
			infer.MessageEnd{
				InputTokens:  a.inputTokens,
				OutputTokens: frame.Usage.OutputTokens,
				StopReason:   mapStopReason(frame.Delta.StopReason),
			},
		}, nil

	case "message_stop":
		return nil, nil

	case "ping":
		return nil, nil

	case "error":
		var frame wireErrorEvent
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, &infer.StreamError{Cause: err}
		}
		return nil, &infer.ProviderError{Message: frame.Error.Message}

	default:
		return nil, &infer.StreamError{Cause: fmt.Errorf("unrecognized event type %q", env.Type)}
	}
}
