package api

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"oomf-core/internal/service"
)

// ErrorResponse is the body of every failed call.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var statusByCode = map[string]int{
	"forbidden":           fiber.StatusForbidden,
	"not_found":           fiber.StatusNotFound,
	"invalid_input":       fiber.StatusBadRequest,
	"rate_limited":        fiber.StatusTooManyRequests,
	"insufficient_tokens": fiber.StatusPaymentRequired,
	"already_revealed":    fiber.StatusConflict,
	"out_of_guesses":      fiber.StatusConflict,
	"out_of_sequence":     fiber.StatusConflict,
	"already_purchased":   fiber.StatusConflict,
	"conflict":            fiber.StatusConflict,
	"busy":                fiber.StatusServiceUnavailable,
}

// statusFor returns the HTTP status for a service error code.
func statusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// writeError renders err as an ErrorResponse. Internal errors are logged
// and their message is not sent to the caller.
func writeError(c *fiber.Ctx, err error) error {
	code := service.Code(err)
	status := statusFor(code)
	message := err.Error()

	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		message = "internal error"
	}

	var rl *service.RateLimitedError
	if errors.As(err, &rl) {
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
	}

	return c.Status(status).JSON(ErrorResponse{Code: code, Message: message})
}

// errorHandler handles errors that escape a handler, such as fiber routing
// errors and bodies the parser rejects.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "internal"
		switch fe.Code {
		case fiber.StatusNotFound:
			code = "not_found"
		case fiber.StatusMethodNotAllowed, fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
			code = "invalid_input"
		}
		return c.Status(fe.Code).JSON(ErrorResponse{Code: code, Message: fe.Message})
	}
	return writeError(c, err)
}
