package mailq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agentmail-dev/agentmail/db"
	"github.com/agentmail-dev/agentmail/email"
	"github.com/agentmail-dev/agentmail/ratelimit"
)

type fakeRouter struct {
	mu     sync.Mutex
	result *email.AgentResult
	calls  int
}

func (f *fakeRouter) Route(_ context.Context, em *email.ParsedEmail) *email.AgentResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.result != nil {
		return f.result
	}
	return &email.AgentResult{
		Success: true,
		Reply:   &email.Reply{To: em.From.Email, Subject: "Re: " + em.Subject, Body: "ok"},
	}
}

func (f *fakeRouter) EvictIdle(time.Duration) int { return 0 }

func (f *fakeRouter) routeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLimiter struct {
	result ratelimit.Result
	err    error
}

func (f *fakeLimiter) Check(string) (ratelimit.Result, error) {
	return f.result, f.err
}

func allowAll() *fakeLimiter {
	return &fakeLimiter{result: ratelimit.Result{Allowed: true}}
}

type fakeMailer struct {
	mu sync.Mutex

	sendErr error

	sent          []*email.Reply
	rateNotices   int
	errorNotices  int
	lastErrorText string

	sentCh chan struct{}
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sentCh: make(chan struct{}, 16)}
}

func (f *fakeMailer) Send(_ context.Context, reply *email.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, reply)
	select {
	case f.sentCh <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeMailer) SendRateLimitNotice(_ context.Context, _, _, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateNotices++
	return nil
}

func (f *fakeMailer) SendErrorNotice(_ context.Context, _, _, _, errText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorNotices++
	f.lastErrorText = errText
	return nil
}

func (f *fakeMailer) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testMessage(id string) *Message {
	return &Message{
		Email: &email.ParsedEmail{
			ID:        id,
			From:      email.Address{Email: "jane@example.com"},
			To:        "echo@mail-to-ai.com",
			Subject:   "hello",
			MessageID: "<" + id + "@example.com>",
		},
		QueuedAt: time.Now().UTC(),
	}
}

// newTestWorker neutralizes the db-backed hooks so tests run without a
// database
func newTestWorker(cfg Config, router Router, limiter Limiter, mail Mailer) (*Worker, *statsRecorder) {
	w := NewWorker(cfg, router, limiter, mail)
	stats := &statsRecorder{}
	w.backoff = func(int) time.Duration { return 0 }
	w.sweep = func() (int64, error) { return 0, nil }
	w.recordDead = stats.record
	w.countEmail = stats.count
	w.trackUsage = stats.track
	return w, stats
}

type statsRecorder struct {
	mu     sync.Mutex
	dead   []*db.DeadLetter
	emails int
	usage  map[string]int
}

func (s *statsRecorder) record(d *db.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = append(s.dead, d)
	return nil
}

func (s *statsRecorder) count() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails++
	return int64(s.emails), nil
}

func (s *statsRecorder) track(kind string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usage == nil {
		s.usage = make(map[string]int)
	}
	s.usage[kind]++
	return nil
}

func TestProcess_SuccessDeliversReplyAndRecordsStats(t *testing.T) {
	router := &fakeRouter{}
	mail := newFakeMailer()
	w, stats := newTestWorker(Config{}, router, allowAll(), mail)

	w.process(testMessage("em1"))

	if router.routeCalls() != 1 {
		t.Errorf("route calls = %d", router.routeCalls())
	}
	if mail.sentCount() != 1 {
		t.Fatalf("sent = %d, want 1", mail.sentCount())
	}
	if stats.emails != 1 {
		t.Errorf("email count = %d", stats.emails)
	}
	if stats.usage["echo"] != 1 {
		t.Errorf("usage = %v", stats.usage)
	}
}

func TestProcess_RateLimitedSendsNoticeAndSkipsAgent(t *testing.T) {
	router := &fakeRouter{}
	mail := newFakeMailer()
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: false, ResetAt: time.Now().Add(time.Hour)}}
	w, stats := newTestWorker(Config{}, router, limiter, mail)

	w.process(testMessage("em1"))

	if router.routeCalls() != 0 {
		t.Errorf("agent must not run for rate-limited sender")
	}
	if mail.rateNotices != 1 {
		t.Errorf("rate notices = %d", mail.rateNotices)
	}
	if mail.sentCount() != 0 || stats.emails != 0 {
		t.Error("no reply or stats expected")
	}
}

func TestProcess_LimiterErrorFailsOpen(t *testing.T) {
	router := &fakeRouter{}
	mail := newFakeMailer()
	limiter := &fakeLimiter{err: errors.New("kv down")}
	w, _ := newTestWorker(Config{}, router, limiter, mail)

	w.process(testMessage("em1"))

	if router.routeCalls() != 1 {
		t.Error("limiter failure should not block processing")
	}
	if mail.sentCount() != 1 {
		t.Errorf("sent = %d", mail.sentCount())
	}
}

func TestProcess_FailureRequeuesUntilMaxAttempts(t *testing.T) {
	router := &fakeRouter{result: &email.AgentResult{Success: false, Error: "llm unavailable"}}
	mail := newFakeMailer()
	w, stats := newTestWorker(Config{MaxAttempts: 3}, router, allowAll(), mail)

	w.process(testMessage("em1"))

	// Attempt 1 failed below the cap: the message comes back on the queue
	select {
	case msg := <-w.queue:
		if msg.Attempt != 1 {
			t.Errorf("attempt = %d, want 1", msg.Attempt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected requeued message")
	}
	if len(stats.dead) != 0 || mail.errorNotices != 0 {
		t.Error("no terminal handling expected before max attempts")
	}
}

func TestProcess_ExhaustedMessageIsDeadLettered(t *testing.T) {
	router := &fakeRouter{result: &email.AgentResult{Success: false, Error: "llm unavailable"}}
	mail := newFakeMailer()
	w, stats := newTestWorker(Config{MaxAttempts: 2}, router, allowAll(), mail)

	msg := testMessage("em1")
	msg.Attempt = 1 // this process call is the final attempt
	w.process(msg)

	if mail.errorNotices != 1 {
		t.Fatalf("error notices = %d, want 1", mail.errorNotices)
	}
	if len(stats.dead) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(stats.dead))
	}
	d := stats.dead[0]
	if d.EmailID != "em1" || d.Attempts != 2 || d.Error != "llm unavailable" {
		t.Errorf("dead letter = %+v", d)
	}
	if d.Payload == "" {
		t.Error("payload should carry the original message")
	}
}

func TestProcess_DeliveryFailureAlsoRetries(t *testing.T) {
	router := &fakeRouter{}
	mail := newFakeMailer()
	mail.sendErr = errors.New("transport 502")
	w, _ := newTestWorker(Config{MaxAttempts: 3}, router, allowAll(), mail)

	w.process(testMessage("em1"))

	select {
	case msg := <-w.queue:
		if msg.Attempt != 1 {
			t.Errorf("attempt = %d", msg.Attempt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected requeue after delivery failure")
	}
}

func TestEnqueue_RejectsWhenFull(t *testing.T) {
	w, _ := newTestWorker(Config{QueueSize: 1}, &fakeRouter{}, allowAll(), newFakeMailer())

	if !w.Enqueue(testMessage("em1").Email) {
		t.Fatal("first enqueue should succeed")
	}
	if w.Enqueue(testMessage("em2").Email) {
		t.Fatal("second enqueue should be rejected, queue is full")
	}
	if w.QueueDepth() != 1 {
		t.Errorf("depth = %d", w.QueueDepth())
	}
}

func TestWorker_EndToEnd(t *testing.T) {
	router := &fakeRouter{}
	mail := newFakeMailer()
	w, _ := newTestWorker(Config{Workers: 2}, router, allowAll(), mail)

	w.Start()
	defer w.Stop()

	if !w.Enqueue(testMessage("em1").Email) {
		t.Fatal("enqueue failed")
	}

	select {
	case <-mail.sentCh:
	case <-time.After(5 * time.Second):
		t.Fatal("reply was never sent")
	}
}
