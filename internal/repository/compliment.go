package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"oomf-core/internal/model"
)

const complimentColumns = `
	id, sender_id, receiver_id, template_id, custom_text, emoji, category, origin,
	is_read, read_at, is_revealed, reveal_method, revealed_at,
	guesses_remaining, hints_used, version, created_at`

// ComplimentRepository persists compliments and their guess and hint records.
type ComplimentRepository struct {
	db DBTX
}

// NewComplimentRepository creates a new ComplimentRepository instance.
func NewComplimentRepository(db DBTX) *ComplimentRepository {
	return &ComplimentRepository{db: db}
}

func scanCompliment(row pgx.Row) (*model.Compliment, error) {
	var (
		c            model.Compliment
		origin       string
		revealMethod *string
	)
	err := row.Scan(
		&c.ID,
		&c.SenderID,
		&c.ReceiverID,
		&c.TemplateID,
		&c.CustomText,
		&c.Emoji,
		&c.Category,
		&origin,
		&c.IsRead,
		&c.ReadAt,
		&c.IsRevealed,
		&revealMethod,
		&c.RevealedAt,
		&c.GuessesRemaining,
		&c.HintsUsed,
		&c.Version,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Origin = model.Origin(origin)
	if revealMethod != nil {
		m := model.RevealMethod(*revealMethod)
		c.RevealMethod = &m
	}
	return &c, nil
}

func revealMethodArg(m *model.RevealMethod) *string {
	if m == nil {
		return nil
	}
	s := string(*m)
	return &s
}

// Create inserts a new compliment and fills in CreatedAt.
func (r *ComplimentRepository) Create(ctx context.Context, c *model.Compliment) error {
	const query = `
		INSERT INTO compliments (
			id, sender_id, receiver_id, template_id, custom_text, emoji, category, origin,
			guesses_remaining, hints_used, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING version, created_at
	`

	err := r.db.QueryRow(ctx, query,
		c.ID, c.SenderID, c.ReceiverID, c.TemplateID, c.CustomText, c.Emoji, c.Category,
		string(c.Origin), c.GuessesRemaining, c.HintsUsed,
	).Scan(&c.Version, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create compliment: %w", err)
	}
	return nil
}

// GetByID retrieves a compliment without locking it.
func (r *ComplimentRepository) GetByID(ctx context.Context, id string) (*model.Compliment, error) {
	return r.get(ctx, `SELECT `+complimentColumns+` FROM compliments WHERE id = $1`, id)
}

// GetForUpdate retrieves a compliment and locks its row until the
// surrounding transaction ends.
func (r *ComplimentRepository) GetForUpdate(ctx context.Context, id string) (*model.Compliment, error) {
	return r.get(ctx, `SELECT `+complimentColumns+` FROM compliments WHERE id = $1 FOR UPDATE`, id)
}

func (r *ComplimentRepository) get(ctx context.Context, query, id string) (*model.Compliment, error) {
	c, err := scanCompliment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrComplimentNotFound
		}
		return nil, fmt.Errorf("failed to get compliment: %w", err)
	}
	return c, nil
}

// UpdateDisclosure writes the read, reveal, guess and hint fields of c if
// the stored version still equals c.Version, then bumps c.Version.
// Returns ErrConcurrentUpdate when another writer got there first.
func (r *ComplimentRepository) UpdateDisclosure(ctx context.Context, c *model.Compliment) error {
	const query = `
		UPDATE compliments
		SET is_read = $3,
			read_at = $4,
			is_revealed = $5,
			reveal_method = $6,
			revealed_at = $7,
			guesses_remaining = $8,
			hints_used = $9,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version
	`

	err := r.db.QueryRow(ctx, query,
		c.ID, c.Version,
		c.IsRead, c.ReadAt,
		c.IsRevealed, revealMethodArg(c.RevealMethod), c.RevealedAt,
		c.GuessesRemaining, c.HintsUsed,
	).Scan(&c.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConcurrentUpdate
		}
		return fmt.Errorf("failed to update compliment: %w", err)
	}
	return nil
}

// ListByReceiver returns a receiver's inbox, newest first.
func (r *ComplimentRepository) ListByReceiver(ctx context.Context, receiverID string, limit int) ([]*model.Compliment, error) {
	query := `
		SELECT ` + complimentColumns + `
		FROM compliments
		WHERE receiver_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, receiverID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list compliments: %w", err)
	}
	defer rows.Close()

	var compliments []*model.Compliment
	for rows.Next() {
		c, err := scanCompliment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compliment: %w", err)
		}
		compliments = append(compliments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating compliments: %w", err)
	}

	return compliments, nil
}

// InsertGuess appends a guess audit row and fills in CreatedAt.
func (r *ComplimentRepository) InsertGuess(ctx context.Context, g *model.Guess) error {
	const query = `
		INSERT INTO compliment_guesses (id, compliment_id, guesser_id, guessed_user_id, is_correct, counted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query, g.ID, g.ComplimentID, g.GuesserID, g.GuessedUserID, g.IsCorrect, g.Counted).
		Scan(&g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert guess: %w", err)
	}
	return nil
}

// ListGuesses returns every guess recorded for a compliment, oldest first.
func (r *ComplimentRepository) ListGuesses(ctx context.Context, complimentID string) ([]*model.Guess, error) {
	const query = `
		SELECT id, compliment_id, guesser_id, guessed_user_id, is_correct, counted, created_at
		FROM compliment_guesses
		WHERE compliment_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, complimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses: %w", err)
	}
	defer rows.Close()

	var guesses []*model.Guess
	for rows.Next() {
		var g model.Guess
		if err := rows.Scan(&g.ID, &g.ComplimentID, &g.GuesserID, &g.GuessedUserID, &g.IsCorrect, &g.Counted, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guess: %w", err)
		}
		guesses = append(guesses, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guesses: %w", err)
	}

	return guesses, nil
}

// InsertHint stores an issued hint. Returns ErrDuplicate if that hint
// number was already issued for the compliment.
func (r *ComplimentRepository) InsertHint(ctx context.Context, h *model.Hint) error {
	const query = `
		INSERT INTO compliment_hints (compliment_id, hint_number, hint_type, hint_label, hint_value, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query, h.ComplimentID, h.Number, string(h.Type), h.Label, h.Value).Scan(&h.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert hint: %w", err)
	}
	return nil
}

// ListHints returns the issued hints for a compliment in hint order.
func (r *ComplimentRepository) ListHints(ctx context.Context, complimentID string) ([]*model.Hint, error) {
	const query = `
		SELECT compliment_id, hint_number, hint_type, hint_label, hint_value, created_at
		FROM compliment_hints
		WHERE compliment_id = $1
		ORDER BY hint_number
	`

	rows, err := r.db.Query(ctx, query, complimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hints: %w", err)
	}
	defer rows.Close()

	var hints []*model.Hint
	for rows.Next() {
		var (
			h        model.Hint
			hintType string
		)
		if err := rows.Scan(&h.ComplimentID, &h.Number, &hintType, &h.Label, &h.Value, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hint: %w", err)
		}
		h.Type = model.HintType(hintType)
		hints = append(hints, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hints: %w", err)
	}

	return hints, nil
}
