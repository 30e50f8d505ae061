// Package agent contains the conversational agents behind each email
// address: four fixed personas (echo, info, research, summarize) and the
// dynamic agent that synthesizes a persona from the address itself. All
// variants share one turn-processing routine and differ only in policy:
// prompt source, tool set and pre/post hooks.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/agentmail-dev/agentmail/email"
	"github.com/agentmail-dev/agentmail/vendors"
)

// Kind identifies an agent variant
type Kind string

const (
	KindEcho      Kind = "echo"
	KindInfo      Kind = "info"
	KindResearch  Kind = "research"
	KindSummarize Kind = "summarize"
	KindDynamic   Kind = "dynamic"
)

// builtinKinds maps a local-part to its fixed agent kind
var builtinKinds = map[string]Kind{
	"echo":      KindEcho,
	"info":      KindInfo,
	"research":  KindResearch,
	"summarize": KindSummarize,
}

// KindFor resolves the agent kind for a recipient address. Unknown
// local-parts select the dynamic agent.
func KindFor(toAddress string) Kind {
	if kind, ok := builtinKinds[email.LocalPart(toAddress)]; ok {
		return kind
	}
	return KindDynamic
}

// IsBuiltin reports whether a local-part names a fixed agent
func IsBuiltin(localPart string) bool {
	_, ok := builtinKinds[localPart]
	return ok
}

// ChatClient is the LLM surface agents need. *vendors.OpenAIClient
// implements it; tests substitute fakes.
type ChatClient interface {
	Chat(ctx context.Context, opts vendors.ChatOptions) (*vendors.ChatResponse, error)
	GenerateAgentPrompt(ctx context.Context, instruction string) (string, error)
}

// Agent is the uniform contract shared by fixed and dynamic variants
type Agent interface {
	Kind() Kind
	SystemPrompt() string
	// Address is the agent's mailbox for the reply From header. Fixed
	// agents use the DOMAIN placeholder; the dynamic agent returns the
	// exact recipient address that triggered it.
	Address() string
	Name() string
	Tools() []openai.Tool
	Process(ctx context.Context, conv *Conversation, em *email.ParsedEmail) (string, error)
}

const fallbackResponse = "Sorry, I could not generate a response."

// turnOptions parameterizes the shared turn processor per agent kind
type turnOptions struct {
	system       string
	tools        []openai.Tool
	toolHandler  vendors.ToolHandler
	maxToolCalls int
	// attachments enables fetching attachment content into structured
	// message parts
	attachments bool
}

// runTurn appends the user turn, invokes the LLM with the full history and
// the agent's tool set, and appends the assistant turn. On LLM failure the
// user turn stays appended so a retry still has context, but no assistant
// turn is written.
func runTurn(ctx context.Context, llm ChatClient, conv *Conversation, em *email.ParsedEmail, opts turnOptions) (string, int, error) {
	conv.AppendUser(buildUserMessage(ctx, em, opts.attachments))

	resp, err := llm.Chat(ctx, vendors.ChatOptions{
		System:       opts.system,
		Messages:     conv.Turns(),
		Tools:        opts.tools,
		ToolHandler:  opts.toolHandler,
		MaxToolCalls: opts.maxToolCalls,
	})
	if err != nil {
		return "", 0, err
	}

	text := resp.Content
	if text == "" {
		text = fallbackResponse
	}

	conv.AppendAssistant(text)

	return text, resp.ToolCalls, nil
}

// buildUserMessage renders the email as one user turn. With attachments
// enabled, retrievable attachments become image or file parts alongside
// the text.
func buildUserMessage(ctx context.Context, em *email.ParsedEmail, withAttachments bool) openai.ChatCompletionMessage {
	sender := em.From.Name
	if sender == "" {
		sender = em.From.Email
	}

	text := fmt.Sprintf("Subject: %s\n\nFrom: %s <%s>\n\nMessage:\n%s", em.Subject, sender, em.From.Email, em.Body)

	if !withAttachments || len(em.Attachments) == 0 {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: text,
		}
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: text},
	}
	parts = append(parts, fetchAttachmentParts(ctx, em)...)

	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	}
}

// nowUTC is overridable in tests that pin the clock
var nowUTC = func() time.Time { return time.Now().UTC() }

// currentDate is interpolated into fixed agent prompts
func currentDate() string {
	return nowUTC().Format("January 2, 2006")
}
