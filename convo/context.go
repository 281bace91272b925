// Package convo provides the per-session conversation context: an ordered,
// append-only log of role-tagged messages that seeds and accumulates the
// dialogue replayed to the language model on every turn.
package convo

import (
	"github.com/BaSui01/voiceloop/types"
)

// Context is an append-only ordered sequence of conversation messages.
// A Context is owned by exactly one session and must not be shared across
// goroutines; the owning session appends strictly in turn order.
type Context struct {
	messages []types.Message
}

// NewContext creates an empty conversation context.
func NewContext() *Context {
	return &Context{}
}

// Append adds a message to the end of the context.
func (c *Context) Append(msg types.Message) {
	c.messages = append(c.messages, msg)
}

// AppendUser appends a user message with the given content.
func (c *Context) AppendUser(content string) {
	c.Append(types.NewUserMessage(content))
}

// AppendAssistant appends an assistant message with the given content.
func (c *Context) AppendAssistant(content string) {
	c.Append(types.NewAssistantMessage(content))
}

// Messages returns a copy of the message log in insertion order.
func (c *Context) Messages() []types.Message {
	out := make([]types.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the context.
func (c *Context) Len() int {
	return len(c.messages)
}

// First returns the first message and true, or a zero message and false
// when the context is empty.
func (c *Context) First() (types.Message, bool) {
	if len(c.messages) == 0 {
		return types.Message{}, false
	}
	return c.messages[0], true
}

// Last returns the most recent message and true, or a zero message and
// false when the context is empty.
func (c *Context) Last() (types.Message, bool) {
	if len(c.messages) == 0 {
		return types.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}
