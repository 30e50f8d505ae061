package email

import (
	"time"
)

// Address is a sender or recipient with an optional display name
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Attachment describes one email attachment. URL, when present, allows
// the content to be fetched for agents that accept structured input.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	URL         string `json:"url,omitempty"`
}

// ParsedEmail is the normalized internal representation of an inbound email.
// To always contains exactly one local@domain address used for routing.
type ParsedEmail struct {
	ID          string       `json:"id"`
	From        Address      `json:"from"`
	To          string       `json:"to"`
	CC          []string     `json:"cc"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	HTML        string       `json:"html,omitempty"`
	ThreadID    string       `json:"threadId,omitempty"`
	MessageID   string       `json:"messageId"`
	InReplyTo   string       `json:"inReplyTo,omitempty"`
	References  []string     `json:"references"`
	Attachments []Attachment `json:"attachments"`
	ReceivedAt  time.Time    `json:"receivedAt"`
}

// Reply is the outbound email constructed by an agent
type Reply struct {
	To         string   `json:"to"`
	From       string   `json:"from"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	HTML       string   `json:"html,omitempty"`
	InReplyTo  string   `json:"inReplyTo,omitempty"`
	References []string `json:"references,omitempty"`
}

// QueueMessage wraps an email for async processing
type QueueMessage struct {
	Email    *ParsedEmail `json:"email"`
	QueuedAt time.Time    `json:"queuedAt"`
}

// AgentResult is the outcome of routing an email to an agent
type AgentResult struct {
	Success bool   `json:"success"`
	Reply   *Reply `json:"reply,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReplySubject prefixes "Re:" unless the subject already has it
func ReplySubject(subject string) string {
	if len(subject) >= 3 && (subject[:3] == "Re:" || subject[:3] == "RE:") {
		return subject
	}
	return "Re: " + subject
}
