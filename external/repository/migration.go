package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE interview_status AS ENUM ('active', 'completed', 'aborted'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS interview_sessions (
		id UUID PRIMARY KEY,
		interview_type TEXT NOT NULL,
		language TEXT NOT NULL,
		target_turns INTEGER NOT NULL,
		questions_asked INTEGER NOT NULL DEFAULT 0,
		status interview_status NOT NULL DEFAULT 'active',
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interview_sessions_status ON interview_sessions (status, started_at)`,
	`CREATE TABLE IF NOT EXISTS transcript_entries (
		session_id UUID NOT NULL REFERENCES interview_sessions(id) ON DELETE CASCADE,
		entry_index INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		skipped BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (session_id, entry_index)
	)`,
	`CREATE TABLE IF NOT EXISTS feedback_reports (
		session_id UUID PRIMARY KEY REFERENCES interview_sessions(id) ON DELETE CASCADE,
		overall_score INTEGER NOT NULL,
		content_score INTEGER NOT NULL,
		delivery_score INTEGER NOT NULL,
		visual_score INTEGER NOT NULL DEFAULT 0,
		report JSONB NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
