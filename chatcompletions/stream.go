package chatcompletions

import (
	"encoding/json"

	"github.com/quillhatch/infer"
)

// streamAdapter is the stateful delta→event translator for one Chat-
// Completions-style stream. stopReason is set at most once: per the
// earlier-finish_reason-wins rule, a trailing usage-only chunk only
// carries the previously captured reason through, never overwriting it.
type streamAdapter struct {
	messageStarted bool
	stopReason     *infer.StopReason
}

func newStreamAdapter() *streamAdapter {
	return &streamAdapter{}
}

// decode turns one SSE data payload (already stripped of the [DONE]
// sentinel by the caller) into zero or more neutral events.
func (a *streamAdapter) decode(data []byte) ([]infer.InferenceEvent, error) {
	var chunk wireChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, &infer.StreamError{Cause: err}
	}

	if len(chunk.Choices) == 0 {
		if chunk.Usage != nil {
			return []infer.InferenceEvent{a.messageEnd(*chunk.Usage)}, nil
		}
		return nil, nil
	}

	choice := chunk.Choices[0]
	var events []infer.InferenceEvent

	if choice.Delta.Role == "assistant" && !a.messageStarted {
		a.messageStarted = true
		events = append(events, infer.MessageStart{Role: infer.RoleAssistant, Model: chunk.Model, ProviderID: "chat-completions-like"})
	}

	if choice.Delta.Content != "" {
		events = append(events, infer.MessageDelta{Content: choice.Delta.Content})
	}

	for _, tc := range choice.Delta.ToolCalls {
		if tc.ID != "" && tc.Function.Name != "" {
			events = append(events, infer.ToolCallStart{ID: tc.ID, Name: tc.Function.Name})
		}
		if tc.Function.Arguments != "" {
			events = append(events, infer.ToolCallDelta{Delta: tc.Function.Arguments})
		}
	}

	if choice.FinishReason != "" {
		a.captureStopReason(mapFinishReason(choice.FinishReason))
	}

	// Some compatible servers attach usage to a non-empty final choice
	// chunk carrying an empty delta and no tool calls, instead of a
	// trailing choices-empty chunk. Tolerate both shapes.
	if chunk.Usage != nil && choice.Delta.Content == "" && len(choice.Delta.ToolCalls) == 0 {
		events = append(events, a.messageEnd(*chunk.Usage))
	}

	return events, nil
}

func (a *streamAdapter) captureStopReason(reason infer.StopReason) {
	if a.stopReason == nil {
		a.stopReason = &reason
	}
}

func (a *streamAdapter) messageEnd(usage wireUsage) infer.InferenceEvent {
	reason := infer.StopUnknown
	if a.stopReason != nil {
		reason = *a.stopReason
	}
	return infer.MessageEnd{
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
		StopReason:   reason,
	}
}
