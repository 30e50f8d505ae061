package agent

import (
	"time"

	"github.com/sashabaranov/go-openai"
)

// Conversation is the append-only history owned by one agent instance.
// Exactly one user turn is appended per processing cycle, and one
// assistant turn on success. The core never truncates it.
type Conversation struct {
	turns           []openai.ChatCompletionMessage
	lastProcessedAt time.Time
}

// NewConversation creates an empty conversation
func NewConversation() *Conversation {
	return &Conversation{}
}

// AppendUser appends a user turn and stamps the processing time
func (c *Conversation) AppendUser(msg openai.ChatCompletionMessage) {
	msg.Role = openai.ChatMessageRoleUser
	c.turns = append(c.turns, msg)
	c.lastProcessedAt = time.Now().UTC()
}

// AppendAssistant appends an assistant text turn
func (c *Conversation) AppendAssistant(text string) {
	c.turns = append(c.turns, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: text,
	})
}

// Turns returns the history in order. Callers must not mutate it.
func (c *Conversation) Turns() []openai.ChatCompletionMessage {
	return c.turns
}

// Len returns the number of turns
func (c *Conversation) Len() int {
	return len(c.turns)
}

// LastProcessedAt returns when the conversation last received a user turn
func (c *Conversation) LastProcessedAt() time.Time {
	return c.lastProcessedAt
}
