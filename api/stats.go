package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentmail-dev/agentmail/agent"
	"github.com/agentmail-dev/agentmail/log"
)

// GetStats handles GET /api/stats
func (h *Handlers) GetStats(c *gin.Context) {
	total, err := h.totalEmails()
	if err != nil {
		log.Error().Err(err).Msg("failed to get total email count")
		total = 0
	}

	dead, err := h.deadLetters()
	if err != nil {
		log.Error().Err(err).Msg("failed to get dead letter count")
		dead = 0
	}

	// Per-agent usage for the current day
	today := time.Now().UTC()
	agents := gin.H{}
	for _, kind := range []agent.Kind{
		agent.KindEcho,
		agent.KindInfo,
		agent.KindResearch,
		agent.KindSummarize,
		agent.KindDynamic,
	} {
		stats, err := h.agentUsage(string(kind), today)
		if err != nil {
			log.Error().Err(err).Str("agent", string(kind)).Msg("failed to get agent usage")
			continue
		}
		agents[string(kind)] = gin.H{
			"count":     stats.Count,
			"totalTime": stats.TotalTime,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"totalEmails": total,
		"deadLetters": dead,
		"queueDepth":  h.queue.QueueDepth(),
		"agents":      agents,
	})
}
