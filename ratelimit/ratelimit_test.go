package ratelimit

import (
	"encoding/json"
	"testing"
	"time"
)

// mapStore is an in-memory Store for tests
type mapStore struct {
	data map[string]string
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string]string)}
}

func (s *mapStore) GetJSON(key string, out interface{}) (bool, error) {
	value, ok := s.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal([]byte(value), out)
}

func (s *mapStore) PutJSON(key string, v interface{}, _ time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.data[key] = string(data)
	return nil
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	l := New(newMapStore(), 10, time.Hour)

	for i := 1; i <= 10; i++ {
		result, err := l.Check("sender@example.com")
		if err != nil {
			t.Fatal(err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if result.Remaining != 10-i {
			t.Errorf("request %d: remaining = %d, want %d", i, result.Remaining, 10-i)
		}
	}

	// 11th request in the same window is rejected
	result, err := l.Check("sender@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Error("11th request should be rejected")
	}
	if result.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", result.Remaining)
	}
}

func TestLimiter_SendersIndependent(t *testing.T) {
	l := New(newMapStore(), 1, time.Hour)

	if r, _ := l.Check("a@example.com"); !r.Allowed {
		t.Error("first request from a should pass")
	}
	if r, _ := l.Check("b@example.com"); !r.Allowed {
		t.Error("first request from b should pass")
	}
	if r, _ := l.Check("a@example.com"); r.Allowed {
		t.Error("second request from a should be rejected")
	}
}

func TestLimiter_WindowResets(t *testing.T) {
	l := New(newMapStore(), 2, time.Hour)

	current := time.Unix(1700000000, 0)
	l.now = func() time.Time { return current }

	l.Check("sender@example.com")
	l.Check("sender@example.com")
	if r, _ := l.Check("sender@example.com"); r.Allowed {
		t.Fatal("third request in window should be rejected")
	}

	// Window elapses; the counter resets
	current = current.Add(time.Hour + time.Minute)
	r, err := l.Check("sender@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Allowed {
		t.Error("request after window reset should be allowed")
	}
	if r.Remaining != 1 {
		t.Errorf("remaining = %d, want 1", r.Remaining)
	}
}

func TestLimiter_ResetAt(t *testing.T) {
	l := New(newMapStore(), 10, time.Hour)

	start := time.Unix(1700000000, 0)
	l.now = func() time.Time { return start }

	r, err := l.Check("sender@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !r.ResetAt.Equal(start.Add(time.Hour)) {
		t.Errorf("resetAt = %v, want %v", r.ResetAt, start.Add(time.Hour))
	}
}
