package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/agentmail-dev/agentmail/email"
	"github.com/agentmail-dev/agentmail/log"
)

// SummarizeAgent condenses long emails and documents into key points
type SummarizeAgent struct {
	llm    ChatClient
	domain string
}

func NewSummarizeAgent(llm ChatClient, domain string) *SummarizeAgent {
	return &SummarizeAgent{llm: llm, domain: domain}
}

func (a *SummarizeAgent) Kind() Kind { return KindSummarize }

func (a *SummarizeAgent) SystemPrompt() string {
	return fmt.Sprintf(`You are the Summarize Agent for the Email Agent Service at %s.

Your role is to help users quickly understand long emails, documents, and threads by extracting key information.

## Guidelines

1. **Identify Core Message**: What is the main point or purpose of the content?

2. **Extract Key Points**: Pull out the most important details, facts, and arguments.

3. **Find Action Items**: Explicitly list any tasks, requests, or next steps mentioned.

4. **Be Concise**: Aim for 20-30%% of the original length while preserving meaning.

5. **Maintain Accuracy**: Never add information that wasn't in the original content.

6. **Adapt to Content Type**:
   - Emails: Focus on requests, decisions, and action items
   - Articles: Focus on main thesis and supporting points
   - Threads: Track the conversation flow and resolution
   - Documents: Focus on structure and key sections

## Response Format

**Summary:** [1-3 sentence overview of the content]

**Key Points:**
- [Important point 1]
- [Important point 2]
- [Important point 3]

**Action Items:** (if applicable)
- [ ] [Task 1]
- [ ] [Task 2]

**Additional Details:** (if relevant)
[Any important context, deadlines, or nuances]

Sign off as "Summarize Agent"

Today's date is %s.`, a.domain, currentDate())
}

func (a *SummarizeAgent) Address() string { return "summarize@DOMAIN" }

func (a *SummarizeAgent) Name() string { return "Summarize Agent" }

func (a *SummarizeAgent) Tools() []openai.Tool { return nil }

func (a *SummarizeAgent) Process(ctx context.Context, conv *Conversation, em *email.ParsedEmail) (string, error) {
	start := time.Now()

	// Attachments matter here: the thing to summarize is often a document
	text, _, err := runTurn(ctx, a.llm, conv, em, turnOptions{
		system:      a.SystemPrompt(),
		attachments: true,
	})
	if err != nil {
		return "", err
	}

	log.Info().
		Str("agent", string(KindSummarize)).
		Str("emailId", em.ID).
		Str("from", em.From.Email).
		Dur("responseTime", time.Since(start)).
		Msg("email processed")

	return text, nil
}
