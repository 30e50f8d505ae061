package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentmail-dev/agentmail/db"
	"github.com/agentmail-dev/agentmail/email"
)

// Version is the service version reported by the health endpoints
const Version = "0.1.0"

// Queue accepts parsed emails for async processing
type Queue interface {
	Enqueue(em *email.ParsedEmail) bool
	QueueDepth() int
}

// Handlers holds references to server components
type Handlers struct {
	queue         Queue
	domain        string
	webhookSecret string

	// stats backends, overridable in tests
	totalEmails func() (int64, error)
	agentUsage  func(agentKind string, day time.Time) (db.AgentStats, error)
	deadLetters func() (int64, error)
}

// NewHandlers creates a Handlers instance wired to the queue
func NewHandlers(queue Queue, domain, webhookSecret string) *Handlers {
	return &Handlers{
		queue:         queue,
		domain:        domain,
		webhookSecret: webhookSecret,
		totalEmails:   db.TotalEmailCount,
		agentUsage:    db.AgentUsage,
		deadLetters:   db.DeadLetterCount,
	}
}

// GetRoot handles GET /
func (h *Handlers) GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   "mail-to-ai",
		"status":    "healthy",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetHealth handles GET /health
func (h *Handlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
