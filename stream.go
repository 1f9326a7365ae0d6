package infer

import "iter"

// InferenceStream wraps a driver's stateful delta→event adapter as a single-
// pass iterator. Streams are not restartable; cancelling a stream (breaking
// out of the range loop early) drops in-flight driver state without partial
// result emission — the underlying HTTP response body is closed by the
// driver when the loop breaks, same as abandoning a range-over-func loop
// anywhere else in this codebase.
//
// Callers must consume the stream, either by ranging over Iter() to
// completion (or an early break) or by calling Collect(). A constructed
// InferenceStream that is never iterated leaks the underlying response
// body.
type InferenceStream struct {
	iterator iter.Seq2[InferenceEvent, error]
}

// NewInferenceStream wraps a raw driver iterator. The iterator yields
// InferenceEvent values with a nil error for normal progress, or a non-nil
// error to signal a mid-stream failure (framing, provider error event,
// etc); no further values are yielded once an error is produced.
func NewInferenceStream(iterator iter.Seq2[InferenceEvent, error]) *InferenceStream {
	return &InferenceStream{iterator: iterator}
}

// Iter returns the underlying iterator for range-over-func consumption.
func (s *InferenceStream) Iter() iter.Seq2[InferenceEvent, error] {
	return s.iterator
}

// Collect consumes the entire stream through the result assembler (§4.F)
// and returns the terminal InferenceResult. It is the streaming
// counterpart of Provider.Complete, which the included drivers implement
// with a non-streaming request instead.
func (s *InferenceStream) Collect() (*InferenceResult, error) {
	asm := newAssembler()
	for event, err := range s.iterator {
		if err != nil {
			return nil, err
		}
		if err := asm.feed(event); err != nil {
			return nil, err
		}
	}
	return asm.finish()
}
