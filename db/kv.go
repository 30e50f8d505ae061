package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

// The kv table backs every cross-instance shared key: rate-limit windows,
// cached agent prompts, and usage stats. Values are strings or JSON;
// expired rows are skipped on read and removed by SweepExpired.

// Get retrieves a value by key. Returns false if the key is missing or expired.
func Get(key string) (string, bool, error) {
	var value string
	var expiresAt sql.NullInt64

	err := GetDB().QueryRow("SELECT value, expires_at FROM kv WHERE key = ?", key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if expiresAt.Valid && expiresAt.Int64 <= time.Now().UnixMilli() {
		// Lazy delete; the sweep catches anything read paths miss
		_, _ = GetDB().Exec("DELETE FROM kv WHERE key = ?", key)
		return "", false, nil
	}

	return value, true, nil
}

// Put stores a value with an optional TTL. A zero TTL means no expiry.
func Put(key, value string, ttl time.Duration) error {
	var expiresAt interface{}
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixMilli()
	}

	_, err := GetDB().Exec(`
		INSERT INTO kv (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, value, expiresAt)
	return err
}

// GetJSON retrieves a JSON value and unmarshals it into out.
func GetJSON(key string, out interface{}) (bool, error) {
	value, ok, err := Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, err
	}
	return true, nil
}

// PutJSON marshals v and stores it under key with an optional TTL.
func PutJSON(key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Put(key, string(data), ttl)
}

// Delete removes a key
func Delete(key string) error {
	_, err := GetDB().Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}

// SweepExpired removes all expired rows and returns how many were deleted
func SweepExpired() (int64, error) {
	res, err := GetDB().Exec("DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?", time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// KVStore adapts the package-level helpers to the narrow store interfaces
// declared by the ratelimit and agent packages.
type KVStore struct{}

func (KVStore) Get(key string) (string, bool, error) {
	return Get(key)
}

func (KVStore) Put(key, value string, ttl time.Duration) error {
	return Put(key, value, ttl)
}

func (KVStore) GetJSON(key string, out interface{}) (bool, error) {
	return GetJSON(key, out)
}

func (KVStore) PutJSON(key string, v interface{}, ttl time.Duration) error {
	return PutJSON(key, v, ttl)
}
