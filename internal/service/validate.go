package service

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Content limits, counted in characters after trimming.
const (
	MinCustomTextLen = 5
	MaxCustomTextLen = 280
	MinReplyLen      = 1
	MaxReplyLen      = 280
)

// checkID rejects ids that are not UUIDs.
func checkID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return invalid("%s must be a UUID", field)
	}
	return nil
}

func checkIDs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := checkID(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// trimmedText trims s and checks its length is within [min, max].
func trimmedText(field, s string, min, max int) (string, error) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n < min || n > max {
		return "", invalid("%s must be %d-%d characters", field, min, max)
	}
	return s, nil
}

// ComplimentContent is the body of a new compliment: either a template
// reference or, for a Secret Admirer, custom text.
type ComplimentContent struct {
	TemplateID *string
	CustomText *string
	Emoji      *string
	Category   *string
}

// normalize checks that exactly one content kind is set and trims it.
func (c ComplimentContent) normalize() (ComplimentContent, error) {
	hasTemplate := c.TemplateID != nil && strings.TrimSpace(*c.TemplateID) != ""
	hasCustom := c.CustomText != nil

	switch {
	case hasTemplate == hasCustom:
		return c, invalid("exactly one of template_id and custom_text is required")
	case hasTemplate:
		id := strings.TrimSpace(*c.TemplateID)
		c.TemplateID = &id
		return c, nil
	default:
		if c.Category != nil {
			return c, invalid("category applies to template compliments only")
		}
		text, err := trimmedText("custom_text", *c.CustomText, MinCustomTextLen, MaxCustomTextLen)
		if err != nil {
			return c, err
		}
		c.CustomText = &text
		return c, nil
	}
}
