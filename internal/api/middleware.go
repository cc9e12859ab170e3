package api

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"oomf-core/internal/service"
)

// Header names set by the gateway and by internal callers.
const (
	HeaderUserID       = "X-User-ID"
	HeaderServiceToken = "X-Service-Token"
)

const localUserID = "user_id"

// LoggingMiddleware logs every request once it has been handled.
func LoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		event := log.Debug()
		if status >= fiber.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("user_id", c.Get(HeaderUserID)).
			Msg("Handled request")

		return err
	}
}

// RecoveryMiddleware turns a panic in a handler into a 500 response.
func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Path()).
					Msg("Recovered from panic in handler")
				err = writeError(c, fmt.Errorf("panic: %v", r))
			}
		}()
		return c.Next()
	}
}

// UserContextMiddleware requires the gateway-set caller id and stores it in
// the request locals.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get(HeaderUserID)
		if _, err := uuid.Parse(userID); err != nil {
			log.Debug().Str("path", c.Path()).Msg("Missing or malformed caller id")
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Code:    "unauthenticated",
				Message: HeaderUserID + " header with a UUID is required",
			})
		}
		c.Locals(localUserID, userID)
		return c.Next()
	}
}

// ServiceTokenMiddleware guards internal routes with a shared secret. An
// empty expected token disables every guarded route.
func ServiceTokenMiddleware(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(HeaderServiceToken)
		if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			log.Warn().Str("path", c.Path()).Msg("Rejected internal call with invalid service token")
			return writeError(c, fmt.Errorf("%w: invalid service token", service.ErrForbidden))
		}
		return c.Next()
	}
}

// callerID returns the caller id stored by UserContextMiddleware.
func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}
