package agent

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/agentmail-dev/agentmail/email"
)

// EchoAgent acknowledges and echoes back received emails. Useful for
// testing the pipeline end to end.
type EchoAgent struct {
	llm ChatClient
}

func NewEchoAgent(llm ChatClient) *EchoAgent {
	return &EchoAgent{llm: llm}
}

func (a *EchoAgent) Kind() Kind { return KindEcho }

func (a *EchoAgent) SystemPrompt() string {
	return `You are the Echo Agent, a simple test agent for the Email Agent Service.

Your role is to acknowledge receipt of emails and echo back the content you received.

Format your response as:
1. A friendly acknowledgment that you received the email
2. Echo back the key details:
   - Subject
   - Sender
   - Message content (summarized if very long)
3. Confirm that the email pipeline is working correctly

Keep your response concise and helpful. Sign off as "Echo Agent".`
}

func (a *EchoAgent) Address() string { return "echo@DOMAIN" }

func (a *EchoAgent) Name() string { return "Echo Agent" }

func (a *EchoAgent) Tools() []openai.Tool { return nil }

func (a *EchoAgent) Process(ctx context.Context, conv *Conversation, em *email.ParsedEmail) (string, error) {
	text, _, err := runTurn(ctx, a.llm, conv, em, turnOptions{
		system: a.SystemPrompt(),
	})
	return text, err
}
