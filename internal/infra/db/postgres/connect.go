package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS resume_analyses (
  id          UUID         PRIMARY KEY,
  filename    VARCHAR(255) NOT NULL,
  model       VARCHAR(128) NOT NULL,
  prompt_hash CHAR(64)     NOT NULL,
  result      TEXT         NOT NULL,
  error_kind  VARCHAR(32)  NOT NULL DEFAULT '',
  created_at  TIMESTAMPTZ  NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resume_analyses_created ON resume_analyses (created_at DESC);`

// Migrate creates the resume_analyses table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
