package application

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"resultlens/internal/domain"
)

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", fieldName),
		}
	}
	return nil
}

// ValidateQuery checks that a query can be handed to a match engine:
// a pattern is present, regular expressions compile and globs are well formed
func ValidateQuery(q domain.QueryParams) error {
	if err := ValidateRequired("pattern", q.Pattern); err != nil {
		return err
	}
	if q.IsRegex {
		if _, err := regexp.Compile(q.Pattern); err != nil {
			return &ValidationError{Field: "pattern", Message: err.Error()}
		}
	}
	for _, g := range append(append([]string{}, q.Include...), q.Exclude...) {
		if !doublestar.ValidatePattern(g) {
			return &ValidationError{Field: "glob", Message: fmt.Sprintf("malformed pattern %q", g)}
		}
	}
	return nil
}
