package agent

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/agentmail-dev/agentmail/email"
	"github.com/agentmail-dev/agentmail/log"
	"github.com/agentmail-dev/agentmail/safety"
)

// MetaAgent synthesizes its persona from the recipient address. The
// address "write-haiku-about-cats@domain" becomes the instruction "write
// haiku about cats", which a prompt-engineer LLM call turns into a system
// prompt. One prompt is synthesized per distinct address, not per email:
// the in-memory copy covers this instance and the external cache covers
// other instances and restarts.
type MetaAgent struct {
	llm     ChatClient
	prompts *PromptCache
	domain  string

	// per-instance memory tier of the prompt cache
	cachedInstruction string
	cachedPrompt      string

	// the recipient address that triggered this instance
	currentAddress string
}

func NewMetaAgent(llm ChatClient, prompts *PromptCache, domain string) *MetaAgent {
	return &MetaAgent{llm: llm, prompts: prompts, domain: domain}
}

func (a *MetaAgent) Kind() Kind { return KindDynamic }

// SystemPrompt returns the cached prompt, or a generic fallback before the
// first Process call resolves one.
func (a *MetaAgent) SystemPrompt() string {
	if a.cachedPrompt != "" {
		return a.cachedPrompt
	}
	return "You are a helpful AI assistant. Respond to emails professionally and helpfully."
}

// Address is the exact recipient address that triggered this agent, not a
// fixed mailbox.
func (a *MetaAgent) Address() string {
	if a.currentAddress != "" {
		return a.currentAddress
	}
	return "agent@" + a.domain
}

func (a *MetaAgent) Name() string {
	return InstructionDisplayName(a.cachedInstruction)
}

func (a *MetaAgent) Tools() []openai.Tool { return nil }

func (a *MetaAgent) Process(ctx context.Context, conv *Conversation, em *email.ParsedEmail) (string, error) {
	start := time.Now()
	a.currentAddress = em.To

	// The address is attacker-controlled instruction text, so the safety
	// gate runs before any LLM call
	if result := safety.ValidateRequest(em.To, em.Body); !result.Safe {
		log.Warn().
			Str("agent", string(KindDynamic)).
			Bool("blocked", true).
			Str("reason", result.Reason).
			Str("emailId", em.ID).
			Str("from", em.From.Email).
			Msg("request blocked by safety filter")
		return safety.BlockedResponseMessage(result.Reason), nil
	}

	instruction := ParseInstruction(em.To)

	prompt, cacheSource, err := a.resolvePrompt(ctx, instruction, em.To)
	if err != nil {
		return "", err
	}

	text, _, err := runTurn(ctx, a.llm, conv, em, turnOptions{
		system: prompt,
	})
	if err != nil {
		return "", err
	}

	log.Info().
		Str("agent", string(KindDynamic)).
		Str("instruction", instruction).
		Str("emailId", em.ID).
		Str("from", em.From.Email).
		Str("cacheSource", cacheSource).
		Dur("responseTime", time.Since(start)).
		Msg("email processed")

	return text, nil
}

// resolvePrompt is the cache-aside chain: instance memory, then the
// external store, then synthesis. Whichever path produces the prompt, both
// tiers end up populated.
func (a *MetaAgent) resolvePrompt(ctx context.Context, instruction, address string) (string, string, error) {
	if a.cachedInstruction == instruction && a.cachedPrompt != "" {
		return a.cachedPrompt, "memory", nil
	}

	if prompt, ok := a.prompts.Get(address); ok {
		a.cachedInstruction = instruction
		a.cachedPrompt = prompt
		log.Debug().Str("instruction", instruction).Msg("prompt loaded from external cache")
		return prompt, "external", nil
	}

	log.Info().Str("instruction", instruction).Msg("generating system prompt")

	prompt, err := a.llm.GenerateAgentPrompt(ctx, instruction)
	if err != nil {
		return "", "", err
	}

	a.cachedInstruction = instruction
	a.cachedPrompt = prompt
	a.prompts.Put(address, prompt)

	return prompt, "generated", nil
}
