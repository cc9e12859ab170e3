package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"oomf-core/internal/model"
)

const userColumns = `
	id, username, display_name, avatar_url, score, token_balance,
	compliments_sent, compliments_received, correct_guesses, secret_admirers_sent,
	created_at, updated_at`

// UserRepository reads and writes the columns of the user record the
// compliment core owns: score, token balance and stats.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.AvatarURL,
		&user.Score,
		&user.TokenBalance,
		&user.ComplimentsSent,
		&user.ComplimentsReceived,
		&user.CorrectGuesses,
		&user.SecretAdmirersSent,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a user row. It is used when the core runs without the
// profile service and by tests. A zero CreatedAt defaults to now.
func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (id, username, display_name, avatar_url, token_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + userColumns

	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	user, err := scanUser(r.db.QueryRow(ctx, query, u.ID, u.Username, u.DisplayName, u.AvatarURL, u.TokenBalance, createdAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by id.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// LockForUpdate row-locks the given users in id order and returns them in
// that order. Transactions that update several users call it before any
// update. Returns ErrUserNotFound if any id does not exist.
func (r *UserRepository) LockForUpdate(ctx context.Context, ids ...string) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock users: %w", err)
	}

	if len(users) != len(uniqueIDs(ids)) {
		return nil, ErrUserNotFound
	}
	return users, nil
}

func uniqueIDs(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Exists checks if a user with the given id exists.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// AddScore adds delta points to the user's score and returns the new score.
func (r *UserRepository) AddScore(ctx context.Context, id string, delta int64) (int64, error) {
	const query = `
		UPDATE users
		SET score = score + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING score
	`

	var score int64
	if err := r.db.QueryRow(ctx, query, id, delta).Scan(&score); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to add score: %w", err)
	}
	return score, nil
}

// statColumns maps stats to their column. Only these names reach SQL.
var statColumns = map[model.Stat]string{
	model.StatComplimentsSent:     "compliments_sent",
	model.StatComplimentsReceived: "compliments_received",
	model.StatCorrectGuesses:      "correct_guesses",
	model.StatSecretAdmirersSent:  "secret_admirers_sent",
}

// IncrementStat adds one to the named stat counter.
func (r *UserRepository) IncrementStat(ctx context.Context, id string, stat model.Stat) error {
	column, ok := statColumns[stat]
	if !ok {
		return fmt.Errorf("unknown stat %q", stat)
	}

	query := fmt.Sprintf(`UPDATE users SET %[1]s = %[1]s + 1, updated_at = NOW() WHERE id = $1`, column)

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", stat, err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DebitTokens subtracts amount from the balance only if the balance covers
// it, and returns the new balance. Concurrent debits serialize on the row.
func (r *UserRepository) DebitTokens(ctx context.Context, id string, amount int64) (int64, error) {
	const query = `
		UPDATE users
		SET token_balance = token_balance - $2, updated_at = NOW()
		WHERE id = $1 AND token_balance >= $2
		RETURNING token_balance
	`

	var balance int64
	err := r.db.QueryRow(ctx, query, id, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if isCheckViolation(err) {
			return 0, ErrInsufficientTokens
		}
		return 0, fmt.Errorf("failed to debit tokens: %w", err)
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrUserNotFound
	}
	return 0, ErrInsufficientTokens
}

// CreditTokens adds amount to the balance and returns the new balance.
func (r *UserRepository) CreditTokens(ctx context.Context, id string, amount int64) (int64, error) {
	const query = `
		UPDATE users
		SET token_balance = token_balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING token_balance
	`

	var balance int64
	if err := r.db.QueryRow(ctx, query, id, amount).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to credit tokens: %w", err)
	}
	return balance, nil
}
