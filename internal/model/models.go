// Package model defines the data models for the compliment service.
package model

import "time"

// User is the slice of the externally owned user record the core reads and writes.
type User struct {
	ID                  string    `db:"id"`
	Username            string    `db:"username"`
	DisplayName         string    `db:"display_name"`
	AvatarURL           *string   `db:"avatar_url"`
	Score               int64     `db:"score"`
	TokenBalance        int64     `db:"token_balance"`
	ComplimentsSent     int64     `db:"compliments_sent"`
	ComplimentsReceived int64     `db:"compliments_received"`
	CorrectGuesses      int64     `db:"correct_guesses"`
	SecretAdmirersSent  int64     `db:"secret_admirers_sent"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

// PublicIdentity is what a receiver learns about a sender on disclosure.
type PublicIdentity struct {
	ID          string  `json:"sender_id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	AvatarRef   *string `json:"avatar_ref,omitempty"`
}

// Identity returns the user's public identity fields.
func (u *User) Identity() PublicIdentity {
	return PublicIdentity{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarRef:   u.AvatarURL,
	}
}

// Origin distinguishes ordinary compliments from paid Secret Admirer ones.
type Origin string

const (
	OriginNormal        Origin = "normal"
	OriginSecretAdmirer Origin = "secret_admirer"
)

// RevealMethod records what caused a compliment's sender to be disclosed.
type RevealMethod string

const (
	RevealGuessed  RevealMethod = "guessed"
	RevealTokens   RevealMethod = "tokens"
	RevealExchange RevealMethod = "exchange"
)

// MaxGuesses is the number of guesses a fresh compliment allows.
const MaxGuesses = 3

// MaxHints is the number of purchasable hints per compliment.
const MaxHints = 3

// Compliment is one anonymous message from sender to receiver.
// Exactly one of TemplateID and CustomText is set.
type Compliment struct {
	ID               string        `db:"id"`
	SenderID         string        `db:"sender_id"`
	ReceiverID       string        `db:"receiver_id"`
	TemplateID       *string       `db:"template_id"`
	CustomText       *string       `db:"custom_text"`
	Emoji            *string       `db:"emoji"`
	Category         *string       `db:"category"`
	Origin           Origin        `db:"origin"`
	IsRead           bool          `db:"is_read"`
	ReadAt           *time.Time    `db:"read_at"`
	IsRevealed       bool          `db:"is_revealed"`
	RevealMethod     *RevealMethod `db:"reveal_method"`
	RevealedAt       *time.Time    `db:"revealed_at"`
	GuessesRemaining int           `db:"guesses_remaining"`
	HintsUsed        int           `db:"hints_used"`
	Version          int64         `db:"version"`
	CreatedAt        time.Time     `db:"created_at"`
}

// Guess is an append-only audit record of one guessing attempt.
// Counted is false for attempts rejected because the compliment had
// already left the guessable state; such rows never carry IsCorrect.
type Guess struct {
	ID            string    `db:"id"`
	ComplimentID  string    `db:"compliment_id"`
	GuesserID     string    `db:"guesser_id"`
	GuessedUserID string    `db:"guessed_user_id"`
	IsCorrect     bool      `db:"is_correct"`
	Counted       bool      `db:"counted"`
	CreatedAt     time.Time `db:"created_at"`
}

// HintType identifies which sender attribute a hint reveals.
type HintType string

const (
	HintInitial  HintType = "initial"
	HintJoinDate HintType = "join_date"
	HintLevel    HintType = "level"
)

// Hint is an issued clue, persisted so it can be re-fetched for free.
type Hint struct {
	ComplimentID string    `db:"compliment_id" json:"-"`
	Number       int       `db:"hint_number" json:"hint_number"`
	Type         HintType  `db:"hint_type" json:"hint_type"`
	Label        string    `db:"hint_label" json:"hint_label"`
	Value        string    `db:"hint_value" json:"hint_value"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TokenTransaction represents a token balance change record.
type TokenTransaction struct {
	ID          int64     `db:"id"`
	UserID      string    `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	ReferenceID *string   `db:"reference_id"`
	CreatedAt   time.Time `db:"created_at"`
}

// Token transaction types for categorizing balance changes.
const (
	TxTypeHint          = "hint"           // Hint unlock
	TxTypeReveal        = "reveal"         // Paid full reveal
	TxTypeSecretAdmirer = "secret_admirer" // Secret Admirer send
	TxTypeSendReward    = "send_reward"    // Earned by sending
	TxTypePurchase      = "purchase"       // In-app purchase credit
	TxTypeAdminCredit   = "admin_credit"   // Manual credit
)

// CreditTypes returns the transaction types accepted by the internal credit route.
func CreditTypes() []string {
	return []string{TxTypePurchase, TxTypeAdminCredit, TxTypeSendReward}
}

// Stat names a per-user counter maintained by the scoring sink.
type Stat string

const (
	StatComplimentsSent     Stat = "compliments_sent"
	StatComplimentsReceived Stat = "compliments_received"
	StatCorrectGuesses      Stat = "correct_guesses"
	StatSecretAdmirersSent  Stat = "secret_admirers_sent"
)

// Exchange is the anonymous thread opened by a Secret Admirer compliment.
type Exchange struct {
	ID            string     `db:"id"`
	ComplimentID  string     `db:"compliment_id"`
	SenderID      string     `db:"sender_id"`
	ReceiverID    string     `db:"receiver_id"`
	ExchangeCount int        `db:"exchange_count"`
	IsRevealed    bool       `db:"is_revealed"`
	RevealedAt    *time.Time `db:"revealed_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

// IsParty reports whether userID is one of the two participants.
func (e *Exchange) IsParty(userID string) bool {
	return userID == e.SenderID || userID == e.ReceiverID
}

// Counterpart returns the other participant.
func (e *Exchange) Counterpart(userID string) string {
	if userID == e.SenderID {
		return e.ReceiverID
	}
	return e.SenderID
}

// Message is one reply in an Exchange.
type Message struct {
	ID         int64     `db:"id"`
	ExchangeID string    `db:"exchange_id"`
	SenderID   string    `db:"sender_id"`
	Body       string    `db:"body"`
	IsRead     bool      `db:"is_read"`
	CreatedAt  time.Time `db:"created_at"`
}
