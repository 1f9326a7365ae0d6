// Package infer is a multi-provider client library for large-language-model
// inference APIs. Callers build one neutral InferenceRequest and consume
// either a collected InferenceResult or a stream of normalized events;
// concrete drivers under infer/messages and infer/chatcompletions translate
// to and from each vendor's wire shape.
package infer

import "fmt"

// MessageRole is the role of a single InferenceMessage in a conversation.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ContentPart is a tagged variant of message content. The concrete type
// implementing it determines which role it is valid in; see the comments on
// each implementation.
type ContentPart interface {
	isContentPart()
}

// TextPart is plain text content, valid in any role's history.
type TextPart struct {
	Text string
}

func (TextPart) isContentPart() {}

// ToolUsePart records an assistant-issued tool invocation. Only valid in
// Assistant-role message history.
type ToolUsePart struct {
	ID    string
	Name  string
	Input map[string]any
}

func (ToolUsePart) isContentPart() {}

// ToolResultPart carries the outcome of a tool invocation back to the
// model. Only valid in Tool-role messages.
type ToolResultPart struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func (ToolResultPart) isContentPart() {}

// ThinkingPart round-trips a reasoning model's chain-of-thought. Only valid
// in Assistant-role message history.
type ThinkingPart struct {
	Content string
}

func (ThinkingPart) isContentPart() {}

// InferenceMessage is one turn in a conversation.
type InferenceMessage struct {
	Role    MessageRole
	Content []ContentPart

	// ToolCallID links a Tool-role message back to the ToolUse it answers.
	ToolCallID string
}

// Tool describes a function the model may call. InputSchema is an
// arbitrary JSON Schema document describing the call's arguments.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// NewTool builds a Tool and structurally validates inputSchema as a JSON
// Schema document, the one place a tool schema is checked before it ever
// reaches a wire driver. A malformed schema surfaces a ConfigError rather
// than failing later inside a driver's request translation.
func NewTool(name, description string, inputSchema map[string]any) (Tool, error) {
	if err := validateSchemaDocument(inputSchema); err != nil {
		return Tool{}, &ConfigError{Message: fmt.Sprintf("tool %q: invalid input_schema", name), Cause: err}
	}
	return Tool{Name: name, Description: description, InputSchema: inputSchema}, nil
}

// InferenceRequest is the neutral, provider-agnostic request shape. Build
// one with NewInferenceRequest and the With* methods; once built it is
// never mutated by a driver call.
type InferenceRequest struct {
	Model          string
	Messages       []InferenceMessage
	System         string
	Tools          []Tool
	Temperature    *float64
	MaxTokens      *int
	ThinkingBudget *int
}

// NewInferenceRequest builds a request with the two always-required
// fields. Use the With* methods to attach optional fields.
func NewInferenceRequest(model string, messages []InferenceMessage) *InferenceRequest {
	return &InferenceRequest{
		Model:    model,
		Messages: messages,
	}
}

func (r *InferenceRequest) WithSystem(system string) *InferenceRequest {
	r.System = system
	return r
}

func (r *InferenceRequest) WithTools(tools ...Tool) *InferenceRequest {
	r.Tools = append(r.Tools, tools...)
	return r
}

func (r *InferenceRequest) WithTemperature(t float64) *InferenceRequest {
	r.Temperature = &t
	return r
}

func (r *InferenceRequest) WithMaxTokens(n int) *InferenceRequest {
	r.MaxTokens = &n
	return r
}

func (r *InferenceRequest) WithThinkingBudget(n int) *InferenceRequest {
	r.ThinkingBudget = &n
	return r
}

// Validate checks invariants the library itself enforces before a request
// reaches a driver: unique tool names. It does NOT enforce the
// ToolUse/ToolResult interleaving invariant (spec invariant 1 on messages);
// drivers translate message history faithfully regardless of whether a
// tool round-trip is complete.
func (r *InferenceRequest) Validate() error {
	seen := make(map[string]bool, len(r.Tools))
	for _, t := range r.Tools {
		if seen[t.Name] {
			return &ConfigError{Message: fmt.Sprintf("duplicate tool name %q", t.Name)}
		}
		seen[t.Name] = true
	}
	return nil
}

// StopReason is the closed set of reasons a model stopped generating.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopToolUse      StopReason = "tool_use"
	StopStopSequence StopReason = "stop_sequence"
	StopUnknown      StopReason = "unknown"
)

// Usage is token accounting for one call. Both fields are non-negative.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// InferenceResult is the terminal, assembled outcome of a stream: ordered
// content parts (Text, Thinking, ToolUse — never ToolResult, which only
// ever appears in outgoing Tool-role messages), the model that answered,
// the reason it stopped, and token usage.
type InferenceResult struct {
	Content    []ContentPart
	Model      string
	StopReason StopReason
	Usage      Usage
}
