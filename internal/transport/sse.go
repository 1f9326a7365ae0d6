package transport

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxSSELineSize bounds a single buffered SSE line. The stdlib scanner
// default of 64 KiB is too small for a long tool-call-argument or
// completion delta packed into one data line.
const maxSSELineSize = 1 * 1024 * 1024

// DoneSentinel is the OpenAI-style end-of-stream marker: a `data: [DONE]`
// line that terminates the stream without carrying an event payload.
const DoneSentinel = "[DONE]"

// SSEScanner reads Server-Sent Events from a response body, joining
// multi-line `data:` fields and skipping comments and unrecognized
// fields (`event:`, `id:`, `retry:`).
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner wraps r as an SSE source. The caller remains responsible
// for closing the underlying response body once done.
func NewSSEScanner(r io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next event's joined data payload. It returns io.EOF
// when the stream ends normally or the [DONE] sentinel is seen; any other
// read failure is returned as a plain error, which the drivers wrap in
// *infer.StreamError. Next itself stays a plain (string, error) so it
// composes with any caller.
func (s *SSEScanner) Next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == DoneSentinel {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
			continue
		}

		// event:, id:, retry: and any other field are not needed by
		// either driver's adapter.
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("sse scanner: %w", err)
	}

	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}

	return "", io.EOF
}
