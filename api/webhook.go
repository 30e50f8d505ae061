package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentmail-dev/agentmail/email"
	"github.com/agentmail-dev/agentmail/log"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw request body
const signatureHeader = "X-Webhook-Signature"

// HandleInboundWebhook handles POST /webhook/inbound. It verifies the
// provider signature, normalizes the payload, and enqueues the email.
// The provider retries on non-2xx and times out slow webhooks, so the
// handler must answer fast; all agent work happens in the queue worker.
func (h *Handlers) HandleInboundWebhook(c *gin.Context) {
	start := time.Now()

	body, err := c.GetRawData()
	if err != nil {
		RespondBadRequest(c, "failed to read request body")
		return
	}

	if !h.verifySignature(c.GetHeader(signatureHeader), body) {
		log.Error().Str("remote", c.ClientIP()).Msg("webhook signature verification failed")
		RespondUnauthorized(c, "Unauthorized")
		return
	}

	var payload email.InboundPayload
	if err := json.Unmarshal(body, &payload); err != nil || !isInboundPayload(&payload) {
		log.Error().Err(err).Msg("invalid webhook payload received")
		RespondBadRequest(c, "Invalid webhook payload")
		return
	}

	em := email.ParseInbound(&payload)

	log.Info().
		Str("emailId", em.ID).
		Str("from", em.From.Email).
		Str("to", em.To).
		Msg("received email")

	if !strings.EqualFold(email.Domain(em.To), h.domain) {
		log.Warn().Str("domain", email.Domain(em.To)).Msg("rejected email to unauthorized domain")
		RespondForbidden(c, "Unauthorized recipient domain")
		return
	}

	if !h.queue.Enqueue(em) {
		RespondServiceUnavailable(c, "Queue full, retry later")
		return
	}

	queuedAt := time.Now().UTC()
	log.Info().
		Str("emailId", em.ID).
		Dur("duration", time.Since(start)).
		Msg("email queued")

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"emailId":  em.ID,
		"queuedAt": queuedAt.Format(time.RFC3339),
	})
}

// verifySignature checks the HMAC-SHA256 hex signature of the body. An
// empty configured secret disables verification for local development.
func (h *Handlers) verifySignature(signature string, body []byte) bool {
	if h.webhookSecret == "" {
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	signature = strings.TrimPrefix(signature, "sha256=")
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// isInboundPayload rejects bodies that parse as JSON but do not carry an
// email object
func isInboundPayload(p *email.InboundPayload) bool {
	return p.Email.ID != "" && p.Email.Recipient != ""
}
