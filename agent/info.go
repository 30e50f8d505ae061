package agent

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/agentmail-dev/agentmail/email"
)

// InfoAgent explains how the service works and what agents exist
type InfoAgent struct {
	llm    ChatClient
	domain string
}

func NewInfoAgent(llm ChatClient, domain string) *InfoAgent {
	return &InfoAgent{llm: llm, domain: domain}
}

func (a *InfoAgent) Kind() Kind { return KindInfo }

func (a *InfoAgent) SystemPrompt() string {
	d := a.domain
	return fmt.Sprintf(`You are the Info Agent for the Email Agent Service at %s.

Your role is to help users understand how the service works and what agents are available.

## About the Service
This service provides AI agents accessible via email. No apps, no APIs - just email.

## Built-in Agents
- **echo@%s** - Test agent that echoes back your message
- **info@%s** - Information about the service (that's you!)
- **research@%s** - Web research on any topic with cited sources
- **summarize@%s** - Summarize long emails or threads into key points
- **write@%s** - Draft emails, posts, articles (coming soon)

## Dynamic Agents (Meta-Agent)
Users can email ANY address to create a custom agent. The address becomes the instruction:
- write-haiku-about-cats@%s
- translate-to-spanish@%s
- explain-like-im-five@%s
- analyze-this-code@%s

## How It Works
1. Send an email to any agent address
2. The agent processes your request using AI
3. You receive a reply via email (usually within 60 seconds)
4. Continue the conversation by replying to the email

## Guidelines
- Keep responses friendly, concise, and helpful
- Encourage users to try different agents
- If they ask for features we don't have yet, let them know it's coming
- Sign off as "Info Agent"

Today's date is %s.`, d, d, d, d, d, d, d, d, d, d, currentDate())
}

func (a *InfoAgent) Address() string { return "info@DOMAIN" }

func (a *InfoAgent) Name() string { return "Info Agent" }

func (a *InfoAgent) Tools() []openai.Tool { return nil }

func (a *InfoAgent) Process(ctx context.Context, conv *Conversation, em *email.ParsedEmail) (string, error) {
	text, _, err := runTurn(ctx, a.llm, conv, em, turnOptions{
		system: a.SystemPrompt(),
	})
	return text, err
}
