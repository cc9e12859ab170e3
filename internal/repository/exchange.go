package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"oomf-core/internal/model"
)

const exchangeColumns = `
	id, compliment_id, sender_id, receiver_id, exchange_count, is_revealed, revealed_at, created_at`

// ExchangeRepository persists Secret Admirer threads and their messages.
type ExchangeRepository struct {
	db DBTX
}

// NewExchangeRepository creates a new ExchangeRepository instance.
func NewExchangeRepository(db DBTX) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

func scanExchange(row pgx.Row) (*model.Exchange, error) {
	var e model.Exchange
	err := row.Scan(
		&e.ID,
		&e.ComplimentID,
		&e.SenderID,
		&e.ReceiverID,
		&e.ExchangeCount,
		&e.IsRevealed,
		&e.RevealedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new exchange and fills in CreatedAt.
// Returns ErrDuplicate if the compliment already has an exchange.
func (r *ExchangeRepository) Create(ctx context.Context, e *model.Exchange) error {
	const query = `
		INSERT INTO exchanges (id, compliment_id, sender_id, receiver_id, exchange_count, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query, e.ID, e.ComplimentID, e.SenderID, e.ReceiverID, e.ExchangeCount).Scan(&e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create exchange: %w", err)
	}
	return nil
}

// GetByID retrieves an exchange without locking it.
func (r *ExchangeRepository) GetByID(ctx context.Context, id string) (*model.Exchange, error) {
	return r.get(ctx, `SELECT `+exchangeColumns+` FROM exchanges WHERE id = $1`, id)
}

// GetForUpdate retrieves an exchange and locks its row.
func (r *ExchangeRepository) GetForUpdate(ctx context.Context, id string) (*model.Exchange, error) {
	return r.get(ctx, `SELECT `+exchangeColumns+` FROM exchanges WHERE id = $1 FOR UPDATE`, id)
}

// GetByComplimentID retrieves the exchange opened by a compliment.
func (r *ExchangeRepository) GetByComplimentID(ctx context.Context, complimentID string) (*model.Exchange, error) {
	return r.get(ctx, `SELECT `+exchangeColumns+` FROM exchanges WHERE compliment_id = $1`, complimentID)
}

func (r *ExchangeRepository) get(ctx context.Context, query, arg string) (*model.Exchange, error) {
	e, err := scanExchange(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExchangeNotFound
		}
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}
	return e, nil
}

// UpdateProgress writes the count and reveal fields of e.
// The row must already be locked by GetForUpdate.
func (r *ExchangeRepository) UpdateProgress(ctx context.Context, e *model.Exchange) error {
	const query = `
		UPDATE exchanges
		SET exchange_count = $2, is_revealed = $3, revealed_at = $4
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, e.ID, e.ExchangeCount, e.IsRevealed, e.RevealedAt)
	if err != nil {
		return fmt.Errorf("failed to update exchange: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrExchangeNotFound
	}
	return nil
}

// InsertMessage appends a message and fills in ID and CreatedAt.
func (r *ExchangeRepository) InsertMessage(ctx context.Context, m *model.Message) error {
	const query = `
		INSERT INTO exchange_messages (exchange_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, is_read, created_at
	`

	if err := r.db.QueryRow(ctx, query, m.ExchangeID, m.SenderID, m.Body).Scan(&m.ID, &m.IsRead, &m.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessages returns a thread's messages in send order.
func (r *ExchangeRepository) ListMessages(ctx context.Context, exchangeID string) ([]*model.Message, error) {
	const query = `
		SELECT id, exchange_id, sender_id, body, is_read, created_at
		FROM exchange_messages
		WHERE exchange_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, exchangeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ExchangeID, &m.SenderID, &m.Body, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// MarkMessagesRead marks unread messages in the thread sent by anyone
// other than readerID, and returns how many changed.
func (r *ExchangeRepository) MarkMessagesRead(ctx context.Context, exchangeID, readerID string) (int64, error) {
	const query = `
		UPDATE exchange_messages
		SET is_read = TRUE
		WHERE exchange_id = $1 AND sender_id <> $2 AND is_read = FALSE
	`

	result, err := r.db.Exec(ctx, query, exchangeID, readerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return result.RowsAffected(), nil
}
