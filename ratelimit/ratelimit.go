// Package ratelimit implements the per-sender fixed-window limiter backed
// by the shared KV store. Concurrent writers racing on the same key may
// overwrite each other's count; both outcomes are acceptable, so no
// locking is done across instances.
package ratelimit

import (
	"time"
)

// Store is the KV surface the limiter needs
type Store interface {
	GetJSON(key string, out interface{}) (bool, error)
	PutJSON(key string, v interface{}, ttl time.Duration) error
}

// Result of a rate limit check
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type windowData struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"windowStart"` // unix millis
}

// Limiter counts requests per sender in a fixed window
type Limiter struct {
	store  Store
	limit  int
	window time.Duration

	now func() time.Time // overridable in tests
}

// New creates a limiter. Defaults: 10 requests per hour.
func New(store Store, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Hour
	}
	return &Limiter{store: store, limit: limit, window: window, now: time.Now}
}

// Check counts one request from senderEmail against the current window
func (l *Limiter) Check(senderEmail string) (Result, error) {
	key := "ratelimit:" + senderEmail
	now := l.now()

	var existing windowData
	found, err := l.store.GetJSON(key, &existing)
	if err != nil {
		return Result{}, err
	}

	var data windowData
	if found && now.UnixMilli()-existing.WindowStart < l.window.Milliseconds() {
		data = windowData{Count: existing.Count + 1, WindowStart: existing.WindowStart}
	} else {
		data = windowData{Count: 1, WindowStart: now.UnixMilli()}
	}

	if err := l.store.PutJSON(key, data, l.window); err != nil {
		return Result{}, err
	}

	remaining := l.limit - data.Count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   data.Count <= l.limit,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(data.WindowStart).Add(l.window),
	}, nil
}
