package entity

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type CalorieSource string

const (
	SourceUSDA CalorieSource = "usda"
	SourceUser CalorieSource = "user"
	SourceSeed CalorieSource = "seed"
)

// CalorieEntry maps a normalized dish name to its energy density.
// The first writer of a name wins; entries are never updated.
type CalorieEntry struct {
	Name        string        `validate:"required,max=100"`
	KcalPer100g float64       `validate:"gt=0"`
	Source      CalorieSource `validate:"required,oneof=usda user seed"`
	CreatedAt   time.Time
}

// NormalizeDishName lowercases the tokens of name (split on whitespace and underscores),
// joins them with single spaces and capitalizes the first letter.
// "APPLE_pie " and "Apple  Pie" both become "Apple pie".
func NormalizeDishName(name string) string {
	tokens := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || unicode.IsSpace(r)
	})
	if len(tokens) == 0 {
		return ""
	}
	joined := strings.ToLower(strings.Join(tokens, " "))
	r, size := utf8.DecodeRuneInString(joined)
	return string(unicode.ToUpper(r)) + joined[size:]
}
