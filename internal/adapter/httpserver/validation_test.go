package httpserver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepforge/prepai/internal/domain"
)

func TestValidateID(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidateID("id", "abc-123_XYZ").Valid)

	vr := ValidateID("id", "")
	assert.False(t, vr.Valid)
	assert.Equal(t, "REQUIRED", vr.Errors[0].Code)

	vr = ValidateID("id", strings.Repeat("a", 101))
	assert.False(t, vr.Valid)
	assert.Equal(t, "TOO_LONG", vr.Errors[0].Code)

	vr = ValidateID("id", "has space")
	assert.False(t, vr.Valid)
	assert.Equal(t, "INVALID_FORMAT", vr.Errors[0].Code)
}

func TestValidateQuestionFilter(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidateQuestionFilter(domain.QuestionFilter{}).Valid)
	assert.True(t, ValidateQuestionFilter(domain.QuestionFilter{
		Type:       domain.QuestionBehavioral,
		Difficulty: domain.DifficultyHard,
		Category:   "System Design",
	}).Valid)

	vr := ValidateQuestionFilter(domain.QuestionFilter{Type: "trivia"})
	assert.False(t, vr.Valid)
	assert.Equal(t, "type", vr.Errors[0].Field)

	vr = ValidateQuestionFilter(domain.QuestionFilter{Difficulty: "easy"})
	assert.False(t, vr.Valid)
	assert.Equal(t, "difficulty", vr.Errors[0].Field)

	vr = ValidateQuestionFilter(domain.QuestionFilter{Category: strings.Repeat("c", 101)})
	assert.False(t, vr.Valid)
	assert.Equal(t, "category", vr.Errors[0].Field)
}

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello", SanitizeString("  hello\x00  ", 100))
	assert.Equal(t, "abc", SanitizeString("abcdef", 3))
	assert.Equal(t, "ok", SanitizeString("ok\xff", 100))
}
