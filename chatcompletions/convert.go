package chatcompletions

import (
	"encoding/json"
	"strings"

	"github.com/quillhatch/infer"
)

// requestToWire translates a neutral InferenceRequest into the Chat-
// Completions-style wire request.
func requestToWire(req *infer.InferenceRequest, stream bool) (*wireRequest, error) {
	wireMsgs, err := buildWireMessages(req)
	if err != nil {
		return nil, err
	}

	out := &wireRequest{
		Model:    req.Model,
		Messages: wireMsgs,
		Stream:   stream,
	}

	if stream {
		out.StreamOptions = &wireStreamOpts{IncludeUsage: true}
	}

	if req.Temperature != nil {
		out.Temperature = req.Temperature
	}
	if req.MaxTokens != nil {
		out.MaxTokens = req.MaxTokens
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	if len(out.Tools) > 0 {
		out.ToolChoice = "auto"
	}

	return out, nil
}

// buildWireMessages prepends a system message (if present) and translates
// each neutral message per role.
func buildWireMessages(req *infer.InferenceRequest) ([]wireMessage, error) {
	out := make([]wireMessage, 0, len(req.Messages)+1)

	if req.System != "" {
		out = append(out, wireMessage{Role: "system", Content: req.System})
	}

	for _, m := range req.Messages {
		switch m.Role {
		case infer.RoleUser:
			out = append(out, wireMessage{Role: "user", Content: joinText(m.Content)})

		case infer.RoleAssistant:
			msg, err := assistantMessage(m.Content)
			if err != nil {
				return nil, err
			}
			out = append(out, msg)

		case infer.RoleTool:
			out = append(out, toolMessages(m.Content)...)

		default:
			return nil, &infer.ConfigError{Message: "unknown message role: " + string(m.Role)}
		}
	}

	return out, nil
}

// joinText concatenates text parts with newline separators, dropping any
// non-text content part.
func joinText(parts []infer.ContentPart) string {
	var texts []string
	for _, p := range parts {
		if t, ok := p.(infer.TextPart); ok {
			texts = append(texts, t.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// assistantMessage splits an assistant message's content into a text body
// and tool_calls[] entries. If only tool calls are present, Content is
// left empty so it is omitted from the wire.
func assistantMessage(parts []infer.ContentPart) (wireMessage, error) {
	msg := wireMessage{Role: "assistant"}
	msg.Content = joinText(parts)

	for _, p := range parts {
		tu, ok := p.(infer.ToolUsePart)
		if !ok {
			continue
		}
		args, err := json.Marshal(tu.Input)
		if err != nil {
			return wireMessage{}, &infer.SerializationError{Message: "tool_use input", Cause: err}
		}
		msg.ToolCalls = append(msg.ToolCalls, wireToolCall{
			ID:   tu.ID,
			Type: "function",
			Function: wireToolCallFunc{
				Name:      tu.Name,
				Arguments: string(args),
			},
		})
	}

	return msg, nil
}

// toolMessages emits one wire tool-role message per ToolResultPart.
func toolMessages(parts []infer.ContentPart) []wireMessage {
	var out []wireMessage
	for _, p := range parts {
		if r, ok := p.(infer.ToolResultPart); ok {
			out = append(out, wireMessage{
				Role:       "tool",
				Content:    r.Content,
				ToolCallID: r.ToolUseID,
			})
		}
	}
	return out
}

// mapFinishReason maps a wire finish_reason string to the neutral
// StopReason closed set, per §4.E.
func mapFinishReason(reason string) infer.StopReason {
	switch reason {
	case "stop":
		return infer.StopEndTurn
	case "length":
		return infer.StopMaxTokens
	case "tool_calls":
		return infer.StopToolUse
	case "content_filter":
		return infer.StopUnknown
	default:
		return infer.StopUnknown
	}
}

// wireResponseToResult converts a non-streaming wireResponse directly into
// an InferenceResult.
func wireResponseToResult(resp *wireResponse) (*infer.InferenceResult, error) {
	var content []infer.ContentPart

	if len(resp.Choices) == 0 {
		return &infer.InferenceResult{Model: resp.Model}, nil
	}
	choice := resp.Choices[0]

	if choice.Message.Content != "" {
		content = append(content, infer.TextPart{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		var input map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
				return nil, &infer.SerializationError{Message: "tool call arguments", Fragment: tc.Function.Arguments, Cause: err}
			}
		} else {
			input = map[string]any{}
		}
		content = append(content, infer.ToolUsePart{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}

	result := &infer.InferenceResult{
		Content:    content,
		Model:      resp.Model,
		StopReason: mapFinishReason(choice.FinishReason),
	}
	if resp.Usage != nil {
		result.Usage = infer.Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens}
	}
	return result, nil
}
