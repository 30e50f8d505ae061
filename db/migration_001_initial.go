package db

import (
	"database/sql"
)

func init() {
	RegisterMigration(Migration{
		Version:     1,
		Description: "Initial schema - kv store and dead letters",
		Up:          migration001Initial,
	})
}

func migration001Initial(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_kv_expires_at ON kv(expires_at);

		CREATE TABLE IF NOT EXISTS dead_letters (
			id TEXT PRIMARY KEY,
			email_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			recipient TEXT NOT NULL,
			subject TEXT,
			attempts INTEGER NOT NULL,
			error TEXT,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
	`)
	return err
}
