package validators

import (
	"fmt"
	"strings"

	"github.com/mselko/termhub/internal/suggest"
)

// FieldViolation names one invalid field in a request.
type FieldViolation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// ValidationError aggregates every violation found in a request so the
// client can surface them all at once.
type ValidationError struct {
	Violations []FieldViolation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Description)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func addViolation(violations *[]FieldViolation, field, desc string) {
	*violations = append(*violations, FieldViolation{Field: field, Description: desc})
}

func returnIfViolations(violations []FieldViolation) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// ValidateSuggestRequest checks cursor bounds against the input.
func ValidateSuggestRequest(req suggest.Request) error {
	var violations []FieldViolation

	if req.Input != "" {
		if req.CursorPos < 0 || req.CursorPos > len(req.Input) {
			addViolation(&violations, "cursor_pos", "cursor_pos exceeds input length")
		}
	} else if req.CursorPos != 0 {
		addViolation(&violations, "cursor_pos", "cursor_pos must be 0 for empty input")
	}

	return returnIfViolations(violations)
}

// ValidateSuggestion checks a suggestion before it is sent to a client.
func ValidateSuggestion(s suggest.Suggestion) error {
	var violations []FieldViolation

	if s.Text == "" {
		addViolation(&violations, "text", "suggestion text is required")
	}
	if s.Source == "" {
		addViolation(&violations, "source", "suggestion source is required")
	}
	if s.Score < 0.0 || s.Score > 1.0 {
		addViolation(&violations, "score", "score must be between 0.0 and 1.0")
	}

	return returnIfViolations(violations)
}
