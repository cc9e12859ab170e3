package service

import (
	"time"

	"oomf-core/internal/model"
	"oomf-core/internal/scoring"
)

// ComplimentView is a compliment as shown to its sender or receiver.
// Sender is set only once the compliment is revealed.
type ComplimentView struct {
	ID               string                `json:"id"`
	ReceiverID       string                `json:"receiver_id"`
	Sender           *model.PublicIdentity `json:"sender,omitempty"`
	TemplateID       *string               `json:"template_id,omitempty"`
	CustomText       *string               `json:"custom_text,omitempty"`
	Emoji            *string               `json:"emoji,omitempty"`
	Category         *string               `json:"category,omitempty"`
	Origin           model.Origin          `json:"origin"`
	ExchangeID       string                `json:"exchange_id,omitempty"`
	IsRead           bool                  `json:"is_read"`
	ReadAt           *time.Time            `json:"read_at,omitempty"`
	IsRevealed       bool                  `json:"is_revealed"`
	RevealMethod     *model.RevealMethod   `json:"reveal_method,omitempty"`
	RevealedAt       *time.Time            `json:"revealed_at,omitempty"`
	GuessesRemaining int                   `json:"guesses_remaining"`
	HintsUsed        int                   `json:"hints_used"`
	CreatedAt        time.Time             `json:"created_at"`
}

func newComplimentView(c *model.Compliment) *ComplimentView {
	return &ComplimentView{
		ID:               c.ID,
		ReceiverID:       c.ReceiverID,
		TemplateID:       c.TemplateID,
		CustomText:       c.CustomText,
		Emoji:            c.Emoji,
		Category:         c.Category,
		Origin:           c.Origin,
		IsRead:           c.IsRead,
		ReadAt:           c.ReadAt,
		IsRevealed:       c.IsRevealed,
		RevealMethod:     c.RevealMethod,
		RevealedAt:       c.RevealedAt,
		GuessesRemaining: c.GuessesRemaining,
		HintsUsed:        c.HintsUsed,
		CreatedAt:        c.CreatedAt,
	}
}

// SendResult identifies what sendCompliment created.
type SendResult struct {
	ComplimentID string `json:"compliment_id"`
	ExchangeID   string `json:"exchange_id,omitempty"`
}

// GuessResult is the outcome of a counted guess.
type GuessResult struct {
	IsCorrect        bool                  `json:"is_correct"`
	GuessesRemaining int                   `json:"guesses_remaining"`
	Sender           *model.PublicIdentity `json:"sender,omitempty"`
}

// GuessView is one row of the guess audit log.
type GuessView struct {
	ID            string    `json:"id"`
	GuessedUserID string    `json:"guessed_user_id"`
	IsCorrect     bool      `json:"is_correct"`
	Counted       bool      `json:"counted"`
	CreatedAt     time.Time `json:"created_at"`
}

// Balance summarizes a user's wallet and progression.
type Balance struct {
	UserID       string         `json:"user_id"`
	TokenBalance int64          `json:"token_balance"`
	Score        int64          `json:"score"`
	Level        scoring.Level  `json:"level"`
	NextLevel    *scoring.Level `json:"next_level,omitempty"`
}

// ReplyResult is the outcome of sendReply.
type ReplyResult struct {
	Delivered           bool `json:"delivered"`
	IsRevealed          bool `json:"is_revealed"`
	MessagesUntilReveal int  `json:"messages_until_reveal"`
}

// MessageView is a thread message from the viewer's perspective; the
// author is given only as FromMe so the admirer stays anonymous.
type MessageView struct {
	ID        int64     `json:"id"`
	FromMe    bool      `json:"from_me"`
	Body      string    `json:"body"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadView is a Secret Admirer exchange as seen by one participant.
type ThreadView struct {
	ExchangeID          string                `json:"exchange_id"`
	ComplimentID        string                `json:"compliment_id"`
	ExchangeCount       int                   `json:"exchange_count"`
	IsRevealed          bool                  `json:"is_revealed"`
	MessagesUntilReveal int                   `json:"messages_until_reveal"`
	Counterpart         *model.PublicIdentity `json:"counterpart,omitempty"`
	Messages            []MessageView         `json:"messages"`
}
