// Package mailq is the in-process queue between webhook ingestion and
// agent processing. The webhook handler enqueues and returns immediately;
// a pool of workers drains the queue, routes each email to its agent, and
// delivers the reply.
package mailq

import (
	"context"
	"sync"
	"time"

	"github.com/agentmail-dev/agentmail/db"
	"github.com/agentmail-dev/agentmail/email"
	"github.com/agentmail-dev/agentmail/log"
	"github.com/agentmail-dev/agentmail/ratelimit"
)

// Router dispatches an email to its agent instance
type Router interface {
	Route(ctx context.Context, em *email.ParsedEmail) *email.AgentResult
	EvictIdle(maxIdle time.Duration) int
}

// Limiter enforces the per-sender rate limit
type Limiter interface {
	Check(senderEmail string) (ratelimit.Result, error)
}

// Mailer delivers outbound email
type Mailer interface {
	Send(ctx context.Context, reply *email.Reply) error
	SendRateLimitNotice(ctx context.Context, to, subject, originalMessageID string, resetAt time.Time) error
	SendErrorNotice(ctx context.Context, to, subject, originalMessageID, errorMessage string) error
}

// Message is one queued email plus its delivery state
type Message struct {
	Email    *email.ParsedEmail
	QueuedAt time.Time
	Attempt  int
}

// Config controls queue capacity, parallelism, and retry policy
type Config struct {
	QueueSize   int
	Workers     int
	MaxAttempts int
}

const (
	// how long a conversation may sit idle before its instance is evicted
	instanceIdleTTL = time.Hour

	supervisorInterval = 5 * time.Minute
)

// Worker manages email processing
type Worker struct {
	cfg     Config
	router  Router
	limiter Limiter
	mail    Mailer

	stopChan chan struct{}
	wg       sync.WaitGroup
	queue    chan *Message

	// overridable in tests
	backoff    func(attempt int) time.Duration
	sweep      func() (int64, error)
	recordDead func(d *db.DeadLetter) error
	countEmail func() (int64, error)
	trackUsage func(agentKind string, elapsed time.Duration) error
}

// NewWorker creates a queue worker with dependencies
func NewWorker(cfg Config, router Router, limiter Limiter, mail Mailer) *Worker {
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers == 0 {
		cfg.Workers = 3
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}

	return &Worker{
		cfg:        cfg,
		router:     router,
		limiter:    limiter,
		mail:       mail,
		stopChan:   make(chan struct{}),
		queue:      make(chan *Message, cfg.QueueSize),
		backoff:    defaultBackoff,
		sweep:      db.SweepExpired,
		recordDead: db.RecordDeadLetter,
		countEmail: db.IncrementEmailCount,
		trackUsage: db.TrackAgentUsage,
	}
}

// defaultBackoff doubles per attempt: 30s, 60s, 120s, ...
func defaultBackoff(attempt int) time.Duration {
	return 30 * time.Second << (attempt - 1)
}

// Start begins processing queued emails
func (w *Worker) Start() {
	log.Info().Int("workers", w.cfg.Workers).Int("queueSize", w.cfg.QueueSize).Msg("starting mail queue worker")

	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go w.processLoop(i)
	}

	w.wg.Add(1)
	go w.supervisorLoop()
}

// Stop stops the worker and waits for in-flight messages to finish
func (w *Worker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
	log.Info().Msg("mail queue worker stopped")
}

// Enqueue adds an email to the queue. It never blocks: a full queue
// rejects the message so the webhook can report backpressure upstream.
func (w *Worker) Enqueue(em *email.ParsedEmail) bool {
	msg := &Message{Email: em, QueuedAt: time.Now().UTC(), Attempt: 0}

	select {
	case w.queue <- msg:
		log.Debug().
			Str("emailId", em.ID).
			Str("to", em.To).
			Msg("email queued")
		return true
	default:
		log.Warn().Str("emailId", em.ID).Msg("mail queue full, rejecting email")
		return false
	}
}

// QueueDepth returns how many messages are waiting
func (w *Worker) QueueDepth() int {
	return len(w.queue)
}

// processLoop drains the queue until stopped
func (w *Worker) processLoop(id int) {
	defer w.wg.Done()

	for {
		select {
		case msg := <-w.queue:
			w.process(msg)
		case <-w.stopChan:
			return
		}
	}
}

// requeue schedules a retry after the backoff delay. Shutdown cancels
// pending retries; the message is then lost, which is acceptable for an
// in-process queue.
func (w *Worker) requeue(msg *Message) {
	delay := w.backoff(msg.Attempt)

	log.Info().
		Str("emailId", msg.Email.ID).
		Int("attempt", msg.Attempt).
		Dur("delay", delay).
		Msg("scheduling retry")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		select {
		case <-time.After(delay):
		case <-w.stopChan:
			return
		}

		select {
		case w.queue <- msg:
		case <-w.stopChan:
		}
	}()
}

// supervisorLoop runs periodic maintenance: expired KV rows are swept and
// idle agent instances evicted.
func (w *Worker) supervisorLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(supervisorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n, err := w.sweep(); err != nil {
				log.Error().Err(err).Msg("kv sweep failed")
			} else if n > 0 {
				log.Debug().Int64("removed", n).Msg("expired kv entries swept")
			}
			w.router.EvictIdle(instanceIdleTTL)
		case <-w.stopChan:
			return
		}
	}
}
