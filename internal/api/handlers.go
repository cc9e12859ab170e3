package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"oomf-core/internal/economy"
	"oomf-core/internal/model"
	"oomf-core/internal/service"
)

// Compliments is the compliment ledger as the transport needs it.
type Compliments interface {
	Send(ctx context.Context, senderID, receiverID string, content service.ComplimentContent) (*service.SendResult, error)
	MarkRead(ctx context.Context, complimentID, callerID string) error
	Get(ctx context.Context, complimentID, callerID string) (*service.ComplimentView, error)
	ListReceived(ctx context.Context, receiverID string, limit int) ([]*service.ComplimentView, error)
}

// Guesses is the guess engine as the transport needs it.
type Guesses interface {
	Guess(ctx context.Context, complimentID, guesserID, guessedUserID string) (*service.GuessResult, error)
	ListGuesses(ctx context.Context, complimentID, callerID string) ([]service.GuessView, error)
}

// Tokens is the token economy as the transport needs it.
type Tokens interface {
	GetHint(ctx context.Context, complimentID, receiverID string, hintNumber int) (*model.Hint, error)
	ListHints(ctx context.Context, complimentID, receiverID string) ([]*model.Hint, error)
	RevealWithTokens(ctx context.Context, complimentID, receiverID string) (*model.PublicIdentity, error)
	CreditTokens(ctx context.Context, userID string, amount int64, reason, reference string) (int64, error)
	GetBalance(ctx context.Context, userID string) (*service.Balance, error)
	Prices() []economy.ItemConfig
}

// Exchanges is the Secret Admirer thread service as the transport needs it.
type Exchanges interface {
	SendReply(ctx context.Context, exchangeID, senderID, body string) (*service.ReplyResult, error)
	MarkMessagesRead(ctx context.Context, exchangeID, readerID string) (int64, error)
	GetThread(ctx context.Context, exchangeID, viewerID string) (*service.ThreadView, error)
}

// ComplimentHandler serves the compliment ledger routes.
type ComplimentHandler struct {
	compliments Compliments
}

// NewComplimentHandler creates a new ComplimentHandler.
func NewComplimentHandler(compliments Compliments) *ComplimentHandler {
	return &ComplimentHandler{compliments: compliments}
}

// HandleSend handles POST /rpc/send_compliment.
func (h *ComplimentHandler) HandleSend(c *fiber.Ctx) error {
	var req sendComplimentRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	res, err := h.compliments.Send(c.UserContext(), callerID(c), req.ReceiverID, service.ComplimentContent{
		TemplateID: req.TemplateID,
		CustomText: req.CustomText,
		Emoji:      req.Emoji,
		Category:   req.Category,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// HandleMarkRead handles POST /rpc/mark_read.
func (h *ComplimentHandler) HandleMarkRead(c *fiber.Ctx) error {
	var req complimentRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.compliments.MarkRead(c.UserContext(), req.ComplimentID, callerID(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleGet handles POST /rpc/get_compliment.
func (h *ComplimentHandler) HandleGet(c *fiber.Ctx) error {
	var req complimentRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	view, err := h.compliments.Get(c.UserContext(), req.ComplimentID, callerID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}

// HandleListReceived handles POST /rpc/list_received.
func (h *ComplimentHandler) HandleListReceived(c *fiber.Ctx) error {
	var req listReceivedRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	views, err := h.compliments.ListReceived(c.UserContext(), callerID(c), req.Limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"compliments": views})
}

// GuessHandler serves the guessing routes.
type GuessHandler struct {
	guesses Guesses
}

// NewGuessHandler creates a new GuessHandler.
func NewGuessHandler(guesses Guesses) *GuessHandler {
	return &GuessHandler{guesses: guesses}
}

// HandleGuess handles POST /rpc/guess.
func (h *GuessHandler) HandleGuess(c *fiber.Ctx) error {
	var req guessRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	res, err := h.guesses.Guess(c.UserContext(), req.ComplimentID, callerID(c), req.GuessedUserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// HandleList handles POST /rpc/list_guesses.
func (h *GuessHandler) HandleList(c *fiber.Ctx) error {
	var req complimentRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	guesses, err := h.guesses.ListGuesses(c.UserContext(), req.ComplimentID, callerID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"guesses": guesses})
}

// TokenHandler serves hint, reveal, balance and price routes.
type TokenHandler struct {
	tokens Tokens
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(tokens Tokens) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// HandleGetHint handles POST /rpc/get_hint.
func (h *TokenHandler) HandleGetHint(c *fiber.Ctx) error {
	var req hintRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	hint, err := h.tokens.GetHint(c.UserContext(), req.ComplimentID, callerID(c), req.HintNumber)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(hint)
}

// HandleListHints handles POST /rpc/list_hints.
func (h *TokenHandler) HandleListHints(c *fiber.Ctx) error {
	var req complimentRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	hints, err := h.tokens.ListHints(c.UserContext(), req.ComplimentID, callerID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"hints": hints})
}

// HandleReveal handles POST /rpc/reveal_with_tokens.
func (h *TokenHandler) HandleReveal(c *fiber.Ctx) error {
	var req complimentRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	sender, err := h.tokens.RevealWithTokens(c.UserContext(), req.ComplimentID, callerID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"sender": sender})
}

// HandleBalance handles POST /rpc/get_balance.
func (h *TokenHandler) HandleBalance(c *fiber.Ctx) error {
	balance, err := h.tokens.GetBalance(c.UserContext(), callerID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(balance)
}

// HandlePrices handles POST /rpc/get_prices.
func (h *TokenHandler) HandlePrices(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"prices": h.tokens.Prices()})
}

// HandleCredit handles POST /internal/credit_tokens.
func (h *TokenHandler) HandleCredit(c *fiber.Ctx) error {
	var req creditTokensRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	balance, err := h.tokens.CreditTokens(c.UserContext(), req.UserID, req.Amount, req.Reason, req.Reference)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"user_id": req.UserID, "token_balance": balance})
}

// ExchangeHandler serves the Secret Admirer thread routes.
type ExchangeHandler struct {
	exchanges Exchanges
}

// NewExchangeHandler creates a new ExchangeHandler.
func NewExchangeHandler(exchanges Exchanges) *ExchangeHandler {
	return &ExchangeHandler{exchanges: exchanges}
}

// HandleSendReply handles POST /rpc/send_reply.
func (h *ExchangeHandler) HandleSendReply(c *fiber.Ctx) error {
	var req sendReplyRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	res, err := h.exchanges.SendReply(c.UserContext(), req.ExchangeID, callerID(c), req.Body)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// HandleMarkRead handles POST /rpc/mark_messages_read.
func (h *ExchangeHandler) HandleMarkRead(c *fiber.Ctx) error {
	var req exchangeRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	changed, err := h.exchanges.MarkMessagesRead(c.UserContext(), req.ExchangeID, callerID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"marked": changed})
}

// HandleThread handles POST /rpc/get_thread.
func (h *ExchangeHandler) HandleThread(c *fiber.Ctx) error {
	var req exchangeRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	thread, err := h.exchanges.GetThread(c.UserContext(), req.ExchangeID, callerID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(thread)
}
