package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"oomf-core/internal/model"
)

// TransactionRepository is the append-only token ledger.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a ledger row. Amount is negative for debits.
func (r *TransactionRepository) Create(ctx context.Context, userID string, amount int64, txType string, referenceID *string) (*model.TokenTransaction, error) {
	const query = `
		INSERT INTO token_transactions (user_id, amount, type, reference_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, user_id, amount, type, reference_id, created_at
	`

	var tx model.TokenTransaction
	err := r.db.QueryRow(ctx, query, userID, amount, txType, referenceID).Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Type,
		&tx.ReferenceID,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token transaction: %w", err)
	}

	return &tx, nil
}

// GetByUserID retrieves a user's ledger, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]*model.TokenTransaction, error) {
	const query = `
		SELECT id, user_id, amount, type, reference_id, created_at
		FROM token_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get token transactions: %w", err)
	}
	return collectTransactions(rows)
}

// GetByReference retrieves the ledger rows written for one compliment or
// exchange, oldest first.
func (r *TransactionRepository) GetByReference(ctx context.Context, referenceID string) ([]*model.TokenTransaction, error) {
	const query = `
		SELECT id, user_id, amount, type, reference_id, created_at
		FROM token_transactions
		WHERE reference_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, referenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get token transactions: %w", err)
	}
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*model.TokenTransaction, error) {
	defer rows.Close()

	var transactions []*model.TokenTransaction
	for rows.Next() {
		var tx model.TokenTransaction
		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Amount,
			&tx.Type,
			&tx.ReferenceID,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating token transactions: %w", err)
	}

	return transactions, nil
}
