package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/agentmail-dev/agentmail/email"
	"github.com/agentmail-dev/agentmail/log"
)

// maxSearchesPerTurn bounds web-search invocations for one email
const maxSearchesPerTurn = 5

// ResearchAgent answers with web research and cited sources
type ResearchAgent struct {
	llm    ChatClient
	search SearchClient
	domain string
	// postFilter mechanically strips search narration from replies when
	// prompt adherence alone is not trusted
	postFilter bool
}

func NewResearchAgent(llm ChatClient, search SearchClient, domain string, postFilter bool) *ResearchAgent {
	return &ResearchAgent{llm: llm, search: search, domain: domain, postFilter: postFilter}
}

func (a *ResearchAgent) Kind() Kind { return KindResearch }

func (a *ResearchAgent) SystemPrompt() string {
	return fmt.Sprintf(`You are the Research Agent for the Email Agent Service at %s.

Your role is to help users find accurate, up-to-date information on any topic using web search.

## Guidelines

1. **Proactive Search**: Use web search liberally for any factual, current, or verifiable information. When in doubt, search.

2. **Source Citations**: Always cite your sources using markdown links. Format: [Source Name](URL)

3. **Synthesis Over Listing**: Don't just list search results. Synthesize information into a coherent, helpful response.

4. **Current Information**: Prioritize recent sources for time-sensitive topics (news, prices, events).

5. **Accuracy**: If search results are conflicting or unclear, acknowledge this and present multiple perspectives.

6. **Limitations**: If you cannot find reliable information, say so rather than guessing.

## Response Format

CRITICAL: Your response must contain ONLY the final research report. Do NOT include:
- Your internal thoughts or reasoning process
- Phrases like "I found...", "Let me search...", "I'll look for..."
- Meta-commentary about what you're doing or planning to do

Structure your responses clearly:
- Start with a direct answer when possible
- Provide supporting details and context
- Include source citations inline or at the end
- Note any caveats or limitations

Sign off as "Research Agent"

Today's date is %s.`, a.domain, currentDate())
}

func (a *ResearchAgent) Address() string { return "research@DOMAIN" }

func (a *ResearchAgent) Name() string { return "Research Agent" }

func (a *ResearchAgent) Tools() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "web_search",
				Description: "Search the web for current information on a topic",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"query": {
							"type": "string",
							"description": "The search query"
						}
					},
					"required": ["query"]
				}`),
			},
		},
	}
}

func (a *ResearchAgent) Process(ctx context.Context, conv *Conversation, em *email.ParsedEmail) (string, error) {
	start := time.Now()

	text, searchCount, err := runTurn(ctx, a.llm, conv, em, turnOptions{
		system:       a.SystemPrompt(),
		tools:        a.Tools(),
		toolHandler:  a.handleToolCall,
		maxToolCalls: maxSearchesPerTurn,
		attachments:  true,
	})
	if err != nil {
		return "", err
	}

	if a.postFilter {
		text = stripSearchNarration(text)
	}

	log.Info().
		Str("agent", string(KindResearch)).
		Str("emailId", em.ID).
		Str("from", em.From.Email).
		Int("searchCount", searchCount).
		Dur("responseTime", time.Since(start)).
		Msg("email processed")

	return text, nil
}

func (a *ResearchAgent) handleToolCall(ctx context.Context, name, argsJSON string) (string, error) {
	if name != "web_search" {
		return "", fmt.Errorf("unknown tool %q", name)
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("invalid web_search arguments: %w", err)
	}

	log.Debug().Str("query", args.Query).Msg("web search")
	return a.search.Search(ctx, args.Query)
}

// narrationLine matches the lead-ins the system prompt forbids. Models do
// not reliably honor the constraint, so a best-effort filter can remove
// whole lines that are clearly narration.
var narrationLine = regexp.MustCompile(`(?i)^(let me (search|look)|i'll (search|look)|i will (search|look)|searching for|looking up|i found that|i am searching)`)

func stripSearchNarration(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if narrationLine.MatchString(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
