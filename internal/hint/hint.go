// Package hint derives the purchasable clues about a compliment's sender.
package hint

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"oomf-core/internal/model"
	"oomf-core/internal/scoring"
)

var upper = cases.Upper(language.Und)

// Labels shown next to each hint value.
const (
	LabelInitial  = "Username starts with"
	LabelJoinDate = "Joined"
	LabelLevel    = "Level"
)

// Compute returns hint number n (1..3) for sender. Values depend only on the
// sender's current record.
func Compute(sender *model.User, n int) (model.Hint, error) {
	switch n {
	case 1:
		return model.Hint{Number: 1, Type: model.HintInitial, Label: LabelInitial, Value: Initial(sender.Username)}, nil
	case 2:
		return model.Hint{Number: 2, Type: model.HintJoinDate, Label: LabelJoinDate, Value: sender.CreatedAt.UTC().Format("January 2006")}, nil
	case 3:
		return model.Hint{Number: 3, Type: model.HintLevel, Label: LabelLevel, Value: scoring.LevelFor(sender.Score).Name}, nil
	default:
		return model.Hint{}, fmt.Errorf("unknown hint number %d", n)
	}
}

// Initial returns the uppercased first letter of a username as a single
// rune, skipping a leading '@' or whitespace. Returns "?" for an empty
// username.
func Initial(username string) string {
	name := strings.TrimLeftFunc(username, func(r rune) bool {
		return r == '@' || unicode.IsSpace(r)
	})
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	// Full case mapping can expand a letter (ß to SS); fall back to the
	// single-rune mapping then.
	if cased := upper.String(string(r)); utf8.RuneCountInString(cased) == 1 {
		return cased
	}
	return string(unicode.ToUpper(r))
}
