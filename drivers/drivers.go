// Package drivers is the built-in constructor that pre-registers the two
// included provider drivers. It is a separate package from infer itself
// so that infer need not import the driver packages (which import infer).
package drivers

import (
	"github.com/quillhatch/infer"
	"github.com/quillhatch/infer/chatcompletions"
	"github.com/quillhatch/infer/messages"
)

// NewDefaultRegistry returns a Registry with the Messages-style driver
// registered under "messages"/"anthropic" and the Chat-Completions-style
// driver registered under "chat-completions"/"openai".
func NewDefaultRegistry() *infer.Registry {
	reg := infer.NewRegistry()
	messages.Register(reg)
	chatcompletions.Register(reg)
	return reg
}
