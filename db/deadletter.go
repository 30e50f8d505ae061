package db

import (
	"time"
)

// DeadLetter records a queue message that exhausted its retry budget
type DeadLetter struct {
	ID        string
	EmailID   string
	Sender    string
	Recipient string
	Subject   string
	Attempts  int
	Error     string
	Payload   string // original queue message as JSON
	CreatedAt int64
}

// RecordDeadLetter persists an exhausted queue message for audit
func RecordDeadLetter(d *DeadLetter) error {
	if d.CreatedAt == 0 {
		d.CreatedAt = time.Now().UnixMilli()
	}

	_, err := GetDB().Exec(`
		INSERT INTO dead_letters (id, email_id, sender, recipient, subject, attempts, error, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.EmailID, d.Sender, d.Recipient, d.Subject, d.Attempts, d.Error, d.Payload, d.CreatedAt)
	return err
}

// DeadLetterCount returns how many messages have been dead-lettered
func DeadLetterCount() (int64, error) {
	var count int64
	err := GetDB().QueryRow("SELECT COUNT(*) FROM dead_letters").Scan(&count)
	return count, err
}
