package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agentmail-dev/agentmail/email"
	"github.com/agentmail-dev/agentmail/log"
	"github.com/agentmail-dev/agentmail/render"
)

// Options configures a Router
type Options struct {
	Domain             string
	Search             SearchClient
	Renderer           render.Renderer
	ResearchPostFilter bool
}

// Router maps inbound emails to agent instances. The instance key is the
// thread id, falling back to the sender address, so every reply in one
// thread reaches the same stateful instance. Requests for one instance are
// serialized by its mutex; different instances run fully in parallel.
type Router struct {
	llm     ChatClient
	prompts *PromptCache
	opts    Options

	mu        sync.Mutex
	instances map[instanceID]*instance
}

type instanceID struct {
	kind Kind
	key  string
}

type instance struct {
	mu       sync.Mutex
	agent    Agent
	conv     *Conversation
	lastUsed time.Time
}

// NewRouter creates a router with its instance registry
func NewRouter(llm ChatClient, prompts *PromptCache, opts Options) *Router {
	if opts.Renderer == nil {
		opts.Renderer = render.NewGoldmarkRenderer()
	}
	return &Router{
		llm:       llm,
		prompts:   prompts,
		opts:      opts,
		instances: make(map[instanceID]*instance),
	}
}

// InstanceKey computes the conversation-continuity key for an email
func InstanceKey(em *email.ParsedEmail) string {
	if em.ThreadID != "" {
		return em.ThreadID
	}
	return em.From.Email
}

// Route dispatches an email to its agent instance and returns the result
func (r *Router) Route(ctx context.Context, em *email.ParsedEmail) *email.AgentResult {
	kind := KindFor(em.To)
	key := InstanceKey(em)

	log.Debug().
		Str("kind", string(kind)).
		Str("instanceKey", key).
		Str("to", em.To).
		Msg("routing email")

	inst := r.instanceFor(kind, key)

	// Single writer per conversation
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.lastUsed = time.Now()

	text, err := inst.agent.Process(ctx, inst.conv, em)
	if err != nil {
		log.Error().
			Err(err).
			Str("kind", string(kind)).
			Str("emailId", em.ID).
			Str("from", em.From.Email).
			Msg("agent failed")
		return &email.AgentResult{Success: false, Error: err.Error()}
	}

	return &email.AgentResult{
		Success: true,
		Reply:   r.buildReply(inst.agent, em, text),
	}
}

// instanceFor returns the stateful instance for (kind, key), creating it
// on first use. Instances for different keys never share conversations.
func (r *Router) instanceFor(kind Kind, key string) *instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := instanceID{kind: kind, key: key}
	if inst, ok := r.instances[id]; ok {
		return inst
	}

	inst := &instance{
		agent:    r.newAgent(kind),
		conv:     NewConversation(),
		lastUsed: time.Now(),
	}
	r.instances[id] = inst
	return inst
}

func (r *Router) newAgent(kind Kind) Agent {
	switch kind {
	case KindEcho:
		return NewEchoAgent(r.llm)
	case KindInfo:
		return NewInfoAgent(r.llm, r.opts.Domain)
	case KindResearch:
		return NewResearchAgent(r.llm, r.opts.Search, r.opts.Domain, r.opts.ResearchPostFilter)
	case KindSummarize:
		return NewSummarizeAgent(r.llm, r.opts.Domain)
	default:
		return NewMetaAgent(r.llm, r.prompts, r.opts.Domain)
	}
}

// buildReply packages the agent's text into the outbound email
func (r *Router) buildReply(a Agent, em *email.ParsedEmail, text string) *email.Reply {
	address := strings.ReplaceAll(a.Address(), "DOMAIN", r.opts.Domain)

	return &email.Reply{
		To:         em.From.Email,
		From:       fmt.Sprintf("%s <%s>", a.Name(), address),
		Subject:    email.ReplySubject(em.Subject),
		Body:       text,
		HTML:       render.Document(r.opts.Renderer, text),
		InReplyTo:  em.MessageID,
		References: append(append([]string{}, em.References...), em.MessageID),
	}
}

// EvictIdle drops instances unused for longer than maxIdle and returns how
// many were removed. Conversation state for an evicted instance is gone;
// the next email on that key starts a fresh conversation.
func (r *Router) EvictIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	evicted := 0
	for id, inst := range r.instances {
		if inst.lastUsed.Before(cutoff) {
			delete(r.instances, id)
			evicted++
		}
	}

	if evicted > 0 {
		log.Info().Int("evicted", evicted).Msg("idle agent instances evicted")
	}
	return evicted
}

// InstanceCount returns how many live instances the router holds
func (r *Router) InstanceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}
