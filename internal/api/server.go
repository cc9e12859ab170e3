// Package api exposes the compliment core as JSON RPC over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"oomf-core/internal/config"
)

// Services are the operations served over HTTP.
type Services struct {
	Compliments Compliments
	Guesses     Guesses
	Tokens      Tokens
	Exchanges   Exchanges
}

// HealthFunc reports whether the service's dependencies are reachable.
type HealthFunc func(ctx context.Context) error

// Server is the fiber application with all routes registered.
type Server struct {
	app    *fiber.App
	health HealthFunc
}

// NewServer builds the application and registers its routes.
func NewServer(cfg *config.Config, svc Services, health HealthFunc) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "oomf-core",
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		BodyLimit:             64 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{app: app, health: health}

	app.Use(RecoveryMiddleware())
	app.Use(LoggingMiddleware())

	app.Get("/healthz", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	compliments := NewComplimentHandler(svc.Compliments)
	guesses := NewGuessHandler(svc.Guesses)
	tokens := NewTokenHandler(svc.Tokens)
	exchanges := NewExchangeHandler(svc.Exchanges)

	rpc := app.Group("/rpc", UserContextMiddleware())
	rpc.Post("/send_compliment", compliments.HandleSend)
	rpc.Post("/mark_read", compliments.HandleMarkRead)
	rpc.Post("/get_compliment", compliments.HandleGet)
	rpc.Post("/list_received", compliments.HandleListReceived)
	rpc.Post("/guess", guesses.HandleGuess)
	rpc.Post("/list_guesses", guesses.HandleList)
	rpc.Post("/get_hint", tokens.HandleGetHint)
	rpc.Post("/list_hints", tokens.HandleListHints)
	rpc.Post("/reveal_with_tokens", tokens.HandleReveal)
	rpc.Post("/get_balance", tokens.HandleBalance)
	rpc.Post("/get_prices", tokens.HandlePrices)
	rpc.Post("/send_reply", exchanges.HandleSendReply)
	rpc.Post("/mark_messages_read", exchanges.HandleMarkRead)
	rpc.Post("/get_thread", exchanges.HandleThread)

	internal := app.Group("/internal", ServiceTokenMiddleware(cfg.Auth.ServiceToken))
	internal.Post("/credit_tokens", tokens.HandleCredit)

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	log.Info().Str("addr", addr).Msg("HTTP server listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if s.health != nil {
		if err := s.health(c.UserContext()); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
