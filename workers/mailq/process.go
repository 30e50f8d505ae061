package mailq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/agentmail-dev/agentmail/agent"
	"github.com/agentmail-dev/agentmail/db"
	"github.com/agentmail-dev/agentmail/email"
	"github.com/agentmail-dev/agentmail/log"
)

// perMessageTimeout bounds one processing attempt, LLM and tool calls
// included
const perMessageTimeout = 2 * time.Minute

// process runs one attempt for a queued email. Rate-limited and safely
// rejected emails are terminal outcomes, not failures; only agent or
// delivery errors trigger the retry path.
func (w *Worker) process(msg *Message) {
	msg.Attempt++
	em := msg.Email
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), perMessageTimeout)
	defer cancel()

	// Rate limit before any agent work. A limiter error fails open: losing
	// a rate-limit window is better than dropping mail.
	result, err := w.limiter.Check(em.From.Email)
	if err != nil {
		log.Error().Err(err).Str("sender", em.From.Email).Msg("rate limit check failed, allowing")
	} else if !result.Allowed {
		log.Info().
			Str("sender", em.From.Email).
			Str("emailId", em.ID).
			Time("resetAt", result.ResetAt).
			Msg("sender rate limited")
		if err := w.mail.SendRateLimitNotice(ctx, em.From.Email, em.Subject, em.MessageID, result.ResetAt); err != nil {
			log.Error().Err(err).Str("emailId", em.ID).Msg("failed to send rate limit notice")
		}
		return
	}

	res := w.router.Route(ctx, em)
	if !res.Success {
		w.handleFailure(ctx, msg, res.Error)
		return
	}

	if err := w.mail.Send(ctx, res.Reply); err != nil {
		log.Error().Err(err).Str("emailId", em.ID).Msg("reply delivery failed")
		w.handleFailure(ctx, msg, err.Error())
		return
	}

	w.recordStats(em, time.Since(start))

	log.Info().
		Str("emailId", em.ID).
		Str("to", em.To).
		Int("attempt", msg.Attempt).
		Dur("elapsed", time.Since(start)).
		Msg("email processed and reply sent")
}

// handleFailure retries until MaxAttempts, then acknowledges the message:
// the sender gets an apology and the payload lands in the dead letter
// table for inspection.
func (w *Worker) handleFailure(ctx context.Context, msg *Message, errText string) {
	em := msg.Email

	if msg.Attempt < w.cfg.MaxAttempts {
		w.requeue(msg)
		return
	}

	log.Error().
		Str("emailId", em.ID).
		Int("attempts", msg.Attempt).
		Str("error", errText).
		Msg("email failed permanently")

	if err := w.mail.SendErrorNotice(ctx, em.From.Email, em.Subject, em.MessageID, errText); err != nil {
		log.Error().Err(err).Str("emailId", em.ID).Msg("failed to send error notice")
	}

	payload, _ := json.Marshal(msg)
	if err := w.recordDead(&db.DeadLetter{
		ID:        uuid.NewString(),
		EmailID:   em.ID,
		Sender:    em.From.Email,
		Recipient: em.To,
		Subject:   em.Subject,
		Attempts:  msg.Attempt,
		Error:     errText,
		Payload:   string(payload),
	}); err != nil {
		log.Error().Err(err).Str("emailId", em.ID).Msg("failed to record dead letter")
	}
}

func (w *Worker) recordStats(em *email.ParsedEmail, elapsed time.Duration) {
	if _, err := w.countEmail(); err != nil {
		log.Error().Err(err).Msg("failed to increment email count")
	}
	kind := agent.KindFor(em.To)
	if err := w.trackUsage(string(kind), elapsed); err != nil {
		log.Error().Err(err).Str("agent", string(kind)).Msg("failed to track agent usage")
	}
}
