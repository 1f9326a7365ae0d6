package infer

// streamValidator enforces the ordering invariants on a neutral event
// sequence: a message must start before any delta or tool call activity,
// a tool-call delta may only arrive while a tool call is open, and no
// event may follow MessageEnd. It is used two ways: fed one event at a
// time by the assembler as a stream is consumed, and as a whole-sequence
// predicate in tests via validateSequence.
type streamValidator struct {
	started      bool
	ended        bool
	toolCallOpen bool
}

func newStreamValidator() *streamValidator {
	return &streamValidator{}
}

// feed advances the validator by one event, returning a StreamInvariantError
// if the event violates the state machine.
func (v *streamValidator) feed(event InferenceEvent) error {
	if v.ended {
		return invariantError(EventAfterMessageEnd)
	}

	switch event.(type) {
	case MessageStart:
		if v.started {
			return invariantError(DuplicateMessageStart)
		}
		v.started = true

	case MessageDelta, ThinkingDelta:
		if !v.started {
			return invariantError(MessageNotStarted)
		}

	case ToolCallStart:
		if !v.started {
			return invariantError(MessageNotStarted)
		}
		v.toolCallOpen = true

	case ToolCallDelta:
		if !v.started {
			return invariantError(MessageNotStarted)
		}
		if !v.toolCallOpen {
			return invariantError(ToolCallDeltaBeforeStart)
		}

	case MessageEnd:
		if !v.started {
			return invariantError(MessageEndBeforeStart)
		}
		v.ended = true
		v.toolCallOpen = false
	}

	return nil
}

// finish checks end-of-stream conditions: the sequence must have started
// and ended exactly once.
func (v *streamValidator) finish() error {
	if !v.started {
		return invariantError(MissingMessageStart)
	}
	if !v.ended {
		return invariantError(MissingMessageEnd)
	}
	return nil
}

// validateSequence checks an entire event sequence at once, useful for
// tests that construct a fixed slice of events rather than consuming a
// live stream.
func validateSequence(events []InferenceEvent) error {
	v := newStreamValidator()
	for _, e := range events {
		if err := v.feed(e); err != nil {
			return err
		}
	}
	return v.finish()
}
