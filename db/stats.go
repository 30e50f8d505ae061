package db

import (
	"fmt"
	"strconv"
	"time"
)

const agentStatsTTL = 30 * 24 * time.Hour

// AgentStats tracks per-agent daily usage
type AgentStats struct {
	Count     int   `json:"count"`
	TotalTime int64 `json:"totalTime"` // milliseconds
}

// IncrementEmailCount bumps the total-emails counter and returns the new value
func IncrementEmailCount() (int64, error) {
	value, ok, err := Get("stats:total-emails")
	if err != nil {
		return 0, err
	}

	var count int64
	if ok {
		count, _ = strconv.ParseInt(value, 10, 64)
	}
	count++

	if err := Put("stats:total-emails", strconv.FormatInt(count, 10), 0); err != nil {
		return 0, err
	}
	return count, nil
}

// TotalEmailCount returns the total-emails counter
func TotalEmailCount() (int64, error) {
	value, ok, err := Get("stats:total-emails")
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

// TrackAgentUsage records one processed email for an agent kind on today's date
func TrackAgentUsage(agentKind string, elapsed time.Duration) error {
	key := agentStatsKey(agentKind, time.Now().UTC())

	var stats AgentStats
	if _, err := GetJSON(key, &stats); err != nil {
		return err
	}

	stats.Count++
	stats.TotalTime += elapsed.Milliseconds()

	return PutJSON(key, stats, agentStatsTTL)
}

// AgentUsage returns usage stats for an agent kind on a given day
func AgentUsage(agentKind string, day time.Time) (AgentStats, error) {
	var stats AgentStats
	_, err := GetJSON(agentStatsKey(agentKind, day), &stats)
	return stats, err
}

func agentStatsKey(agentKind string, day time.Time) string {
	return fmt.Sprintf("stats:agent:%s:%s", agentKind, day.Format("2006-01-02"))
}
