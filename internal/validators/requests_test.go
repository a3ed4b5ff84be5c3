package validators

import (
	"strings"
	"testing"

	"github.com/mselko/termhub/internal/suggest"
)

func TestValidateSuggestRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     suggest.Request
		wantErr string
	}{
		{"valid", suggest.Request{Input: "git st", CursorPos: 6}, ""},
		{"empty input zero cursor", suggest.Request{}, ""},
		{"cursor past end", suggest.Request{Input: "ls", CursorPos: 3}, "cursor_pos"},
		{"negative cursor", suggest.Request{Input: "ls", CursorPos: -1}, "cursor_pos"},
		{"cursor without input", suggest.Request{CursorPos: 2}, "cursor_pos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSuggestRequest(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateSuggestRequest() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateSuggestRequest() error = nil, want violation")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSuggestionCollectsAllViolations(t *testing.T) {
	err := ValidateSuggestion(suggest.Suggestion{Score: 2})
	if err == nil {
		t.Fatal("ValidateSuggestion() error = nil, want violations")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if len(ve.Violations) != 3 {
		t.Errorf("got %d violations, want 3: %v", len(ve.Violations), ve.Violations)
	}
}
