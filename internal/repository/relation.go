package repository

import (
	"context"
	"fmt"
)

// RelationRepository answers friendship and block queries against the
// social graph tables.
type RelationRepository struct {
	db DBTX
}

// NewRelationRepository creates a new RelationRepository instance.
func NewRelationRepository(db DBTX) *RelationRepository {
	return &RelationRepository{db: db}
}

// IsFriend reports whether a lists b as a friend.
func (r *RelationRepository) IsFriend(ctx context.Context, a, b string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`

	var ok bool
	if err := r.db.QueryRow(ctx, query, a, b).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return ok, nil
}

// IsBlocked reports whether either user has blocked the other.
func (r *RelationRepository) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)
	`

	var ok bool
	if err := r.db.QueryRow(ctx, query, a, b).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return ok, nil
}

// AddFriendship stores a mutual friendship as one row per direction.
func (r *RelationRepository) AddFriendship(ctx context.Context, a, b string) error {
	const query = `
		INSERT INTO friendships (user_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, a, b); err != nil {
		return fmt.Errorf("failed to add friendship: %w", err)
	}
	return nil
}

// Block records that blocker blocked blocked.
func (r *RelationRepository) Block(ctx context.Context, blocker, blocked string) error {
	const query = `
		INSERT INTO blocks (blocker_id, blocked_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, blocker, blocked); err != nil {
		return fmt.Errorf("failed to add block: %w", err)
	}
	return nil
}
