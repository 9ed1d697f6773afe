package httpserver

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/prepforge/prepai/internal/domain"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

var validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID validates a session or question ID path parameter.
func ValidateID(field, id string) ValidationResult {
	if id == "" {
		return ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: field, Code: "REQUIRED", Message: field + " is required"}},
		}
	}
	if len(id) > 100 {
		return ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: field, Code: "TOO_LONG", Message: field + " is too long (max 100 characters)"}},
		}
	}
	if !validIDPattern.MatchString(id) {
		return ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: field, Code: "INVALID_FORMAT", Message: field + " contains invalid characters"}},
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateQuestionFilter validates the optional listing filters.
func ValidateQuestionFilter(f domain.QuestionFilter) ValidationResult {
	var errs []ValidationError

	if f.Type != "" && f.Type != domain.QuestionTechnical && f.Type != domain.QuestionBehavioral {
		errs = append(errs, ValidationError{
			Field:   "type",
			Code:    "INVALID_VALUE",
			Message: "type must be one of: technical, behavioral",
		})
	}
	switch f.Difficulty {
	case "", domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
	default:
		errs = append(errs, ValidationError{
			Field:   "difficulty",
			Code:    "INVALID_VALUE",
			Message: "difficulty must be one of: Easy, Medium, Hard",
		})
	}
	if len(f.Category) > 100 {
		errs = append(errs, ValidationError{
			Field:   "category",
			Code:    "TOO_LONG",
			Message: "category is too long (max 100 characters)",
		})
	}

	if len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs}
	}
	return ValidationResult{Valid: true}
}

// SanitizeString strips control bytes, trims whitespace, and bounds the
// length of free-form text input.
func SanitizeString(input string, maxLen int) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)
	if maxLen > 0 && len(input) > maxLen {
		input = input[:maxLen]
	}
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	return input
}
