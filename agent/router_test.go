package agent

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestRouter(llm *fakeLLM) *Router {
	return NewRouter(llm, NewPromptCache(newMapPromptStore()), Options{
		Domain: "mail-to-ai.com",
	})
}

func TestRouter_ConversationAccumulatesAcrossThread(t *testing.T) {
	llm := &fakeLLM{reply: "reply"}
	r := newTestRouter(llm)

	em1 := testEmail("em1", "jane@example.com", "echo@mail-to-ai.com", "first")
	em1.ThreadID = "thread-1"
	em2 := testEmail("em2", "jane@example.com", "echo@mail-to-ai.com", "second")
	em2.ThreadID = "thread-1"

	if res := r.Route(context.Background(), em1); !res.Success {
		t.Fatalf("route failed: %s", res.Error)
	}

	inst := r.instanceFor(KindEcho, "thread-1")
	if inst.conv.Len() != 2 {
		t.Fatalf("after first email: %d turns, want 2", inst.conv.Len())
	}

	if res := r.Route(context.Background(), em2); !res.Success {
		t.Fatalf("route failed: %s", res.Error)
	}
	if inst.conv.Len() != 4 {
		t.Fatalf("after second email: %d turns, want 4", inst.conv.Len())
	}

	// The second call carried the full history
	if len(llm.lastMessages) != 3 {
		t.Errorf("second chat saw %d messages, want 3 (user, assistant, user)", len(llm.lastMessages))
	}
}

func TestRouter_InstancesIsolatedByKey(t *testing.T) {
	llm := &fakeLLM{reply: "reply"}
	r := newTestRouter(llm)

	em1 := testEmail("em1", "jane@example.com", "echo@mail-to-ai.com", "from jane")
	em2 := testEmail("em2", "bob@example.com", "echo@mail-to-ai.com", "from bob")

	r.Route(context.Background(), em1)
	r.Route(context.Background(), em2)

	if r.InstanceCount() != 2 {
		t.Fatalf("instance count = %d, want 2", r.InstanceCount())
	}

	// No thread id: the sender address is the key
	jane := r.instanceFor(KindEcho, "jane@example.com")
	bob := r.instanceFor(KindEcho, "bob@example.com")
	if jane.conv.Len() != 2 || bob.conv.Len() != 2 {
		t.Errorf("conversations leaked across instances: jane=%d bob=%d", jane.conv.Len(), bob.conv.Len())
	}
}

func TestRouter_SameKeyDifferentKindsSeparateInstances(t *testing.T) {
	llm := &fakeLLM{reply: "reply"}
	r := newTestRouter(llm)

	em1 := testEmail("em1", "jane@example.com", "echo@mail-to-ai.com", "hi")
	em2 := testEmail("em2", "jane@example.com", "info@mail-to-ai.com", "hi")

	r.Route(context.Background(), em1)
	r.Route(context.Background(), em2)

	if r.InstanceCount() != 2 {
		t.Errorf("instance count = %d, want 2", r.InstanceCount())
	}
}

func TestRouter_ReplyAssembly(t *testing.T) {
	llm := &fakeLLM{reply: "Here is your answer."}
	r := newTestRouter(llm)

	em := testEmail("em1", "jane@example.com", "echo@mail-to-ai.com", "hello")
	em.Subject = "A question"
	em.References = []string{"<earlier@example.com>"}

	res := r.Route(context.Background(), em)
	if !res.Success {
		t.Fatalf("route failed: %s", res.Error)
	}
	reply := res.Reply

	if reply.To != "jane@example.com" {
		t.Errorf("to = %q", reply.To)
	}
	if reply.From != "Echo Agent <echo@mail-to-ai.com>" {
		t.Errorf("from = %q", reply.From)
	}
	if reply.Subject != "Re: A question" {
		t.Errorf("subject = %q", reply.Subject)
	}
	if reply.InReplyTo != em.MessageID {
		t.Errorf("in-reply-to = %q", reply.InReplyTo)
	}
	wantRefs := []string{"<earlier@example.com>", em.MessageID}
	if len(reply.References) != 2 || reply.References[0] != wantRefs[0] || reply.References[1] != wantRefs[1] {
		t.Errorf("references = %v, want %v", reply.References, wantRefs)
	}
	if !strings.Contains(reply.HTML, "Here is your answer.") {
		t.Errorf("html body missing reply text:\n%s", reply.HTML)
	}
}

func TestRouter_ResearchQuestionEndToEnd(t *testing.T) {
	llm := &fakeLLM{reply: "The capital of France is Paris."}
	r := NewRouter(llm, NewPromptCache(newMapPromptStore()), Options{
		Domain: "mail-to-ai.com",
		Search: &fakeSearch{result: "Paris"},
	})

	em := testEmail("em1", "jane@example.com", "research@mail-to-ai.com", "What is the capital of France?")
	em.Subject = "Geography question"

	res := r.Route(context.Background(), em)
	if !res.Success {
		t.Fatalf("route failed: %s", res.Error)
	}
	if res.Reply.Subject != "Re: Geography question" {
		t.Errorf("subject = %q", res.Reply.Subject)
	}
	if res.Reply.To != "jane@example.com" {
		t.Errorf("to = %q", res.Reply.To)
	}
	found := false
	for _, ref := range res.Reply.References {
		if ref == em.MessageID {
			found = true
		}
	}
	if !found {
		t.Errorf("references %v missing %q", res.Reply.References, em.MessageID)
	}
	if !strings.HasPrefix(res.Reply.From, "Research Agent <research@mail-to-ai.com>") {
		t.Errorf("from = %q", res.Reply.From)
	}
}

func TestRouter_ReplySubjectNotDoubledOnFollowup(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	r := newTestRouter(llm)

	em := testEmail("em1", "jane@example.com", "echo@mail-to-ai.com", "hello")
	em.Subject = "Re: A question"

	res := r.Route(context.Background(), em)
	if res.Reply.Subject != "Re: A question" {
		t.Errorf("subject = %q", res.Reply.Subject)
	}
}

func TestRouter_DynamicAgentRepliesFromTriggeringAddress(t *testing.T) {
	llm := &fakeLLM{reply: "a haiku"}
	r := newTestRouter(llm)

	em := testEmail("em1", "jane@example.com", "write-haiku-about-cats@mail-to-ai.com", "cats")

	res := r.Route(context.Background(), em)
	if !res.Success {
		t.Fatalf("route failed: %s", res.Error)
	}
	if res.Reply.From != "Write Haiku About Cats Agent <write-haiku-about-cats@mail-to-ai.com>" {
		t.Errorf("from = %q", res.Reply.From)
	}
}

func TestRouter_AgentErrorReturnsFailure(t *testing.T) {
	llm := &fakeLLM{chatErr: context.DeadlineExceeded}
	r := newTestRouter(llm)

	em := testEmail("em1", "jane@example.com", "echo@mail-to-ai.com", "hello")

	res := r.Route(context.Background(), em)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error == "" {
		t.Error("expected error text")
	}
	if res.Reply != nil {
		t.Error("no reply expected on failure")
	}
}

func TestRouter_EvictIdle(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	r := newTestRouter(llm)

	r.Route(context.Background(), testEmail("em1", "jane@example.com", "echo@mail-to-ai.com", "hi"))
	r.Route(context.Background(), testEmail("em2", "bob@example.com", "echo@mail-to-ai.com", "hi"))

	// Backdate one instance past the cutoff
	inst := r.instanceFor(KindEcho, "jane@example.com")
	inst.lastUsed = time.Now().Add(-2 * time.Hour)

	if evicted := r.EvictIdle(time.Hour); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	if r.InstanceCount() != 1 {
		t.Errorf("instance count = %d, want 1", r.InstanceCount())
	}
}
