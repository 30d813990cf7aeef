package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements returns the DDL for every table, in dependency order.
// The embedding dimension is fixed at pool-setup time; changing it requires
// dropping argo_chunks.
func schemaStatements(embeddingDim int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS argo_sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS argo_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES argo_sessions(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_argo_messages_session
			ON argo_messages(session_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS argo_session_summaries (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE REFERENCES argo_sessions(id) ON DELETE CASCADE,
			summary_text TEXT NOT NULL,
			message_count_at_update INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS argo_summary_snapshots (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES argo_sessions(id) ON DELETE CASCADE,
			summary_text TEXT NOT NULL,
			message_count_at_update INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_argo_summary_snapshots_session
			ON argo_summary_snapshots(session_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS argo_profile_facts (
			id TEXT PRIMARY KEY,
			fact_type TEXT NOT NULL,
			text TEXT NOT NULL,
			source TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS argo_tool_runs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			input TEXT NOT NULL,
			output TEXT,
			metadata JSONB,
			status TEXT NOT NULL,
			error_type TEXT,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_argo_tool_runs_session
			ON argo_tool_runs(session_id, created_at)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS argo_chunks (
			id TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			text TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			url TEXT,
			source_type TEXT,
			fetched_at TIMESTAMPTZ,
			trust TEXT,
			title TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, embeddingDim),
		`CREATE INDEX IF NOT EXISTS idx_argo_chunks_namespace
			ON argo_chunks(namespace, created_at)`,
	}
}

// EnsureSchema creates every table and index if missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, embeddingDim int) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	for _, stmt := range schemaStatements(embeddingDim) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
