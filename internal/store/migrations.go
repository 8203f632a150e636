package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// schema is applied idempotently at startup. uuid ids come from
// gen_random_uuid (pgcrypto is built in since PostgreSQL 13).
const schema = `
CREATE TABLE IF NOT EXISTS customers (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS customer_identifiers (
	customer_id UUID NOT NULL REFERENCES customers(id),
	identifier_type TEXT NOT NULL,
	identifier_value TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (identifier_type, identifier_value)
);

CREATE TABLE IF NOT EXISTS conversations (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	customer_id UUID NOT NULL REFERENCES customers(id),
	initial_channel TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	sentiment_score DOUBLE PRECISION,
	started_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_conversations_active
	ON conversations (customer_id, started_at DESC) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id UUID NOT NULL REFERENCES conversations(id),
	channel TEXT NOT NULL,
	direction TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	channel_message_id TEXT NOT NULL DEFAULT '',
	latency_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages (conversation_id, created_at);

CREATE TABLE IF NOT EXISTS tickets (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	customer_id UUID NOT NULL REFERENCES customers(id),
	conversation_id UUID NOT NULL REFERENCES conversations(id),
	source_channel TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT 'P3',
	status TEXT NOT NULL DEFAULT 'open',
	resolution_notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	resolved_at TIMESTAMPTZ
);
`

// RunMigrations applies the schema to the database at databaseURL.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, schema)
	return err
}
