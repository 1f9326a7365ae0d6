package messages

import (
	"encoding/json"
	"fmt"

	"github.com/quillhatch/infer"
)

// defaultMaxTokens is substituted when a request omits MaxTokens, since
// the wire requires the field.
const defaultMaxTokens = 8192

// requestToWire translates a neutral InferenceRequest into the Messages-
// style wire request. stream selects the streaming vs. non-streaming path.
func requestToWire(req *infer.InferenceRequest, stream bool) (*wireRequest, error) {
	wireMsgs, err := buildWireMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	out := &wireRequest{
		Model:     req.Model,
		Messages:  wireMsgs,
		System:    req.System,
		MaxTokens: maxTokens,
		Stream:    stream,
	}

	if req.Temperature != nil {
		out.Temperature = req.Temperature
	}

	if req.ThinkingBudget != nil {
		out.Thinking = &wireThinking{Type: "enabled", BudgetTokens: *req.ThinkingBudget}
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, wireTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	return out, nil
}

// buildWireMessages translates each neutral message. Tool-role messages
// are rewritten to user-role messages carrying tool_result blocks, since
// that is how the wire protocol mandates relaying tool output.
func buildWireMessages(msgs []infer.InferenceMessage) ([]wireMessage, error) {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case infer.RoleUser:
			out = append(out, wireMessage{Role: "user", Content: userBlocks(m.Content)})

		case infer.RoleAssistant:
			blocks, err := assistantBlocks(m.Content)
			if err != nil {
				return nil, err
			}
			out = append(out, wireMessage{Role: "assistant", Content: blocks})

		case infer.RoleTool:
			out = append(out, wireMessage{Role: "user", Content: toolResultBlocks(m.Content)})

		default:
			return nil, &infer.ConfigError{Message: fmt.Sprintf("unknown message role %q", m.Role)}
		}
	}
	return out, nil
}

// userBlocks keeps only text parts, one wire text block per part.
func userBlocks(parts []infer.ContentPart) []wireBlock {
	var blocks []wireBlock
	for _, p := range parts {
		if t, ok := p.(infer.TextPart); ok {
			blocks = append(blocks, wireBlock{Type: "text", Text: t.Text})
		}
	}
	return blocks
}

// assistantBlocks preserves text, tool_use, and thinking blocks, dropping
// anything else. The wire requires a thinking block (when present) to
// precede any tool_use block in the same turn, so blocks are regrouped by
// kind — thinking first, then tool uses, then text — rather than emitted
// in their original interleaved order.
func assistantBlocks(parts []infer.ContentPart) ([]wireBlock, error) {
	var thinking, toolUses, text []wireBlock

	for _, p := range parts {
		switch part := p.(type) {
		case infer.ThinkingPart:
			thinking = append(thinking, wireBlock{Type: "thinking", Thinking: part.Content})

		case infer.ToolUsePart:
			input, err := json.Marshal(part.Input)
			if err != nil {
				return nil, &infer.SerializationError{Message: "tool_use input", Cause: err}
			}
			toolUses = append(toolUses, wireBlock{Type: "tool_use", ID: part.ID, Name: part.Name, Input: input})

		case infer.TextPart:
			text = append(text, wireBlock{Type: "text", Text: part.Text})
		}
	}

	blocks := make([]wireBlock, 0, len(thinking)+len(toolUses)+len(text))
	blocks = append(blocks, thinking...)
	blocks = append(blocks, toolUses...)
	blocks = append(blocks, text...)
	return blocks, nil
}

// toolResultBlocks maps each ToolResultPart to a tool_result block. A
// false IsError is never serialized: the wireBlock field's omitempty tag
// omits it whenever it is the zero value, matching the protocol's
// requirement that "is_error: false" never appear on the wire.
func toolResultBlocks(parts []infer.ContentPart) []wireBlock {
	var blocks []wireBlock
	for _, p := range parts {
		if r, ok := p.(infer.ToolResultPart); ok {
			blocks = append(blocks, wireBlock{
				Type:      "tool_result",
				ToolUseID: r.ToolUseID,
				Content:   r.Content,
				IsError:   r.IsError,
			})
		}
	}
	return blocks
}

// mapStopReason maps a wire stop_reason string to the neutral StopReason
// closed set, per §4.D.
func mapStopReason(reason string) infer.StopReason {
	switch reason {
	case "end_turn":
		return infer.StopEndTurn
	case "max_tokens":
		return infer.StopMaxTokens
	case "tool_use":
		return infer.StopToolUse
	case "stop_sequence":
		return infer.StopStopSequence
	default:
		return infer.StopUnknown
	}
}

// wireResponseToResult converts a non-streaming wireResponse directly into
// an InferenceResult, used by the non-streaming path.
func wireResponseToResult(resp *wireResponse) (*infer.InferenceResult, error) {
	var content []infer.ContentPart
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			content = append(content, infer.TextPart{Text: b.Text})
		case "thinking":
			content = append(content, infer.ThinkingPart{Content: b.Thinking})
		case "tool_use":
			var input map[string]any
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &input); err != nil {
					return nil, &infer.SerializationError{Message: "tool_use input", Fragment: string(b.Input), Cause: err}
				}
			} else {
				input = map[string]any{}
			}
			content = append(content, infer.ToolUsePart{ID: b.ID, Name: b.Name, Input: input})
		}
	}

	return &infer.InferenceResult{
		Content:    content,
		Model:      resp.Model,
		StopReason: mapStopReason(resp.StopReason),
		Usage:      infer.Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens},
	}, nil
}
