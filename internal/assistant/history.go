package assistant

import (
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
)

// History is the ordered message list of one chat session. Messages are only
// ever appended, in the order they were produced, until Reset.
type History struct {
	mu       sync.Mutex
	messages []anthropic.MessageParam
}

// Messages returns a copy of the conversation so far.
func (h *History) Messages() []anthropic.MessageParam {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]anthropic.MessageParam, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Reset drops all messages.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

func (h *History) append(msgs ...anthropic.MessageParam) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msgs...)
}
