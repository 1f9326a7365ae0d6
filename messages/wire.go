// Package messages implements the Anthropic-style "Messages" wire
// protocol driver: request translation, SSE event decoding, and a
// stateful delta→event adapter, on top of the shared infer data model.
package messages

import "encoding/json"

// wireRequest is the JSON shape POSTed to {base_url}/messages.
type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Stream      bool          `json:"stream"`
	Thinking    *wireThinking `json:"thinking,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type wireThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type wireMessage struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
}

// wireBlock is a tagged content block. Only the fields relevant to its
// Type are populated; json.Marshal omits the rest via omitempty.
type wireBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	// thinking
	Thinking string `json:"thinking,omitempty"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// wireResponse is the non-streaming JSON response body.
type wireResponse struct {
	ID         string      `json:"id"`
	Model      string      `json:"model"`
	Role       string      `json:"role"`
	Content    []wireBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
	Usage      wireUsage   `json:"usage"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// SSE event payload shapes, one per `event:` name in §4.D.

type wireMessageStart struct {
	Message struct {
		ID    string    `json:"id"`
		Model string    `json:"model"`
		Role  string    `json:"role"`
		Usage wireUsage `json:"usage"`
	} `json:"message"`
}

type wireContentBlockStart struct {
	Index        int       `json:"index"`
	ContentBlock wireBlock `json:"content_block"`
}

type wireContentBlockDelta struct {
	Index int            `json:"index"`
	Delta wireBlockDelta `json:"delta"`
}

type wireBlockDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	Signature   string `json:"signature,omitempty"`
}

type wireMessageDelta struct {
	Delta struct {
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage wireUsage `json:"usage"`
}

type wireErrorEvent struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
