package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// schema is applied in order; every statement is idempotent.
// users, friendships and blocks are owned by the profile and social
// services; the core only creates them when running standalone.
var schema = []struct {
	name string
	ddl  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			display_name VARCHAR(128) NOT NULL DEFAULT '',
			avatar_url TEXT,
			score BIGINT NOT NULL DEFAULT 0 CHECK (score >= 0),
			token_balance BIGINT NOT NULL DEFAULT 0 CHECK (token_balance >= 0),
			compliments_sent BIGINT NOT NULL DEFAULT 0,
			compliments_received BIGINT NOT NULL DEFAULT 0,
			correct_guesses BIGINT NOT NULL DEFAULT 0,
			secret_admirers_sent BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"friendships", `
		CREATE TABLE IF NOT EXISTS friendships (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			friend_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, friend_id)
		)`},
	{"blocks", `
		CREATE TABLE IF NOT EXISTS blocks (
			blocker_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			blocked_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (blocker_id, blocked_id)
		)`},
	{"compliments", `
		CREATE TABLE IF NOT EXISTS compliments (
			id UUID PRIMARY KEY,
			sender_id UUID NOT NULL REFERENCES users(id),
			receiver_id UUID NOT NULL REFERENCES users(id),
			template_id VARCHAR(64),
			custom_text VARCHAR(280),
			emoji VARCHAR(16),
			category VARCHAR(64),
			origin VARCHAR(20) NOT NULL DEFAULT 'normal',
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			read_at TIMESTAMPTZ,
			is_revealed BOOLEAN NOT NULL DEFAULT FALSE,
			reveal_method VARCHAR(20),
			revealed_at TIMESTAMPTZ,
			guesses_remaining SMALLINT NOT NULL DEFAULT 3 CHECK (guesses_remaining BETWEEN 0 AND 3),
			hints_used SMALLINT NOT NULL DEFAULT 0 CHECK (hints_used BETWEEN 0 AND 3),
			version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK ((template_id IS NULL) <> (custom_text IS NULL)),
			CHECK (NOT is_revealed OR reveal_method IS NOT NULL)
		)`},
	{"compliments_receiver_idx", `
		CREATE INDEX IF NOT EXISTS idx_compliments_receiver
		ON compliments (receiver_id, created_at DESC)`},
	{"compliment_guesses", `
		CREATE TABLE IF NOT EXISTS compliment_guesses (
			id UUID PRIMARY KEY,
			compliment_id UUID NOT NULL REFERENCES compliments(id),
			guesser_id UUID NOT NULL REFERENCES users(id),
			guessed_user_id UUID NOT NULL,
			is_correct BOOLEAN NOT NULL,
			counted BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"compliment_guesses_idx", `
		CREATE INDEX IF NOT EXISTS idx_compliment_guesses_compliment
		ON compliment_guesses (compliment_id, created_at)`},
	{"compliment_hints", `
		CREATE TABLE IF NOT EXISTS compliment_hints (
			compliment_id UUID NOT NULL REFERENCES compliments(id),
			hint_number SMALLINT NOT NULL CHECK (hint_number BETWEEN 1 AND 3),
			hint_type VARCHAR(20) NOT NULL,
			hint_label VARCHAR(64) NOT NULL,
			hint_value VARCHAR(128) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (compliment_id, hint_number)
		)`},
	{"token_transactions", `
		CREATE TABLE IF NOT EXISTS token_transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL CHECK (amount <> 0),
			type VARCHAR(32) NOT NULL,
			reference_id VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"token_transactions_idx", `
		CREATE INDEX IF NOT EXISTS idx_token_transactions_user
		ON token_transactions (user_id, created_at DESC)`},
	{"exchanges", `
		CREATE TABLE IF NOT EXISTS exchanges (
			id UUID PRIMARY KEY,
			compliment_id UUID NOT NULL UNIQUE REFERENCES compliments(id),
			sender_id UUID NOT NULL REFERENCES users(id),
			receiver_id UUID NOT NULL REFERENCES users(id),
			exchange_count INTEGER NOT NULL DEFAULT 0 CHECK (exchange_count >= 0),
			is_revealed BOOLEAN NOT NULL DEFAULT FALSE,
			revealed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"exchange_messages", `
		CREATE TABLE IF NOT EXISTS exchange_messages (
			id BIGSERIAL PRIMARY KEY,
			exchange_id UUID NOT NULL REFERENCES exchanges(id),
			sender_id UUID NOT NULL REFERENCES users(id),
			body VARCHAR(280) NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"exchange_messages_idx", `
		CREATE INDEX IF NOT EXISTS idx_exchange_messages_exchange
		ON exchange_messages (exchange_id, created_at, id)`},
}

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, step := range schema {
		if _, err := pool.Exec(ctx, step.ddl); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", step.name, err)
		}
	}
	log.Info().Int("steps", len(schema)).Msg("Database schema applied")
	return nil
}
