package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"oomf-core/internal/service"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Request bodies. Field rules here check shape only; the services apply
// the content and ownership rules.

type sendComplimentRequest struct {
	ReceiverID string  `json:"receiver_id" validate:"required,uuid"`
	TemplateID *string `json:"template_id" validate:"omitempty,max=64"`
	CustomText *string `json:"custom_text"`
	Emoji      *string `json:"emoji" validate:"omitempty,max=16"`
	Category   *string `json:"category" validate:"omitempty,max=32"`
}

type complimentRequest struct {
	ComplimentID string `json:"compliment_id" validate:"required,uuid"`
}

type listReceivedRequest struct {
	Limit int `json:"limit" validate:"gte=0"`
}

type guessRequest struct {
	ComplimentID  string `json:"compliment_id" validate:"required,uuid"`
	GuessedUserID string `json:"guessed_user_id" validate:"required,uuid"`
}

type hintRequest struct {
	ComplimentID string `json:"compliment_id" validate:"required,uuid"`
	HintNumber   int    `json:"hint_number" validate:"required"`
}

type exchangeRequest struct {
	ExchangeID string `json:"exchange_id" validate:"required,uuid"`
}

type sendReplyRequest struct {
	ExchangeID string `json:"exchange_id" validate:"required,uuid"`
	Body       string `json:"body" validate:"required"`
}

type creditTokensRequest struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"required"`
	Reference string `json:"reference" validate:"omitempty,max=64"`
}

// bind parses the JSON body into req and validates it. An empty body is
// treated as an empty object.
func bind(c *fiber.Ctx, req any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return fmt.Errorf("%w: malformed request body", service.ErrInvalidInput)
		}
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", service.ErrInvalidInput, describe(err))
	}
	return nil
}

// describe turns validator errors into a short message naming the fields.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "uuid":
			parts = append(parts, field+" must be a UUID")
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
