package infer

import "encoding/json"

// pendingToolCall accumulates the id, name, and JSON argument fragments of
// a tool call that is currently open (ToolCallStart seen, MessageEnd or the
// next ToolCallStart not yet seen).
type pendingToolCall struct {
	id       string
	name     string
	hasID    bool
	hasName  bool
	jsonBuf  []byte
}

// assembler consumes a validated InferenceEvent sequence and produces a
// terminal InferenceResult. It owns an incremental streamValidator so that
// ordering violations are caught the moment they occur rather than only at
// the end.
type assembler struct {
	validator *streamValidator

	content []ContentPart
	model   string
	usage   Usage
	stop    StopReason

	pending *pendingToolCall
}

func newAssembler() *assembler {
	return &assembler{validator: newStreamValidator()}
}

// feed applies one event to the assembler, first checking it against the
// ordering invariants, then folding it into the accumulated result.
func (a *assembler) feed(event InferenceEvent) error {
	if err := a.validator.feed(event); err != nil {
		return err
	}

	switch e := event.(type) {
	case MessageStart:
		a.model = e.Model

	case MessageDelta:
		a.appendText(e.Content)

	case ThinkingDelta:
		a.appendThinking(e.Content)

	case ToolCallStart:
		if err := a.finalizePending(); err != nil {
			return err
		}
		a.pending = &pendingToolCall{id: e.ID, name: e.Name, hasID: e.ID != "", hasName: e.Name != ""}

	case ToolCallDelta:
		if a.pending == nil {
			return invariantError(ToolCallDeltaBeforeStart)
		}
		a.pending.jsonBuf = append(a.pending.jsonBuf, e.Delta...)

	case MessageEnd:
		if err := a.finalizePending(); err != nil {
			return err
		}
		a.usage = Usage{InputTokens: e.InputTokens, OutputTokens: e.OutputTokens}
		a.stop = e.StopReason
	}

	return nil
}

// appendText collapses consecutive MessageDelta events into a single
// trailing Text content part (invariant 4).
func (a *assembler) appendText(text string) {
	if n := len(a.content); n > 0 {
		if last, ok := a.content[n-1].(TextPart); ok {
			last.Text += text
			a.content[n-1] = last
			return
		}
	}
	a.content = append(a.content, TextPart{Text: text})
}

// appendThinking collapses consecutive ThinkingDelta events into a single
// trailing Thinking content part (invariant 4).
func (a *assembler) appendThinking(text string) {
	if n := len(a.content); n > 0 {
		if last, ok := a.content[n-1].(ThinkingPart); ok {
			last.Content += text
			a.content[n-1] = last
			return
		}
	}
	a.content = append(a.content, ThinkingPart{Content: text})
}

// finalizePending parses the currently open tool call's accumulated JSON
// buffer into a ToolUse content part and clears the pending state. An
// empty buffer parses as an empty object. A malformed buffer surfaces a
// SerializationError carrying the bad fragment; a tool call that never saw
// an id or a name surfaces the corresponding invariant violation.
func (a *assembler) finalizePending() error {
	if a.pending == nil {
		return nil
	}
	p := a.pending
	a.pending = nil

	if !p.hasID {
		return invariantError(ToolCallMissingId)
	}
	if !p.hasName {
		return invariantError(ToolCallMissingName)
	}

	buf := p.jsonBuf
	if len(buf) == 0 {
		buf = []byte("{}")
	}

	var input map[string]any
	if err := json.Unmarshal(buf, &input); err != nil {
		return &SerializationError{
			Message:  "invalid tool call argument JSON",
			Fragment: string(buf),
			Cause:    err,
		}
	}

	a.content = append(a.content, ToolUsePart{ID: p.id, Name: p.name, Input: input})
	return nil
}

// finish runs the validator's end-of-stream check and returns the
// assembled InferenceResult.
func (a *assembler) finish() (*InferenceResult, error) {
	if err := a.validator.finish(); err != nil {
		return nil, err
	}
	return &InferenceResult{
		Content:    a.content,
		Model:      a.model,
		StopReason: a.stop,
		Usage:      a.usage,
	}, nil
}
