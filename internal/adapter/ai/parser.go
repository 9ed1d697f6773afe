package ai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/prepforge/prepai/internal/domain"
	"github.com/prepforge/prepai/internal/observability"
)

// ResponseParser extracts typed payloads from free-form model output.
// Each Parse method walks progressively more aggressive recovery tiers
// and only fails once every tier is exhausted.
type ResponseParser struct {
	sanitizer *JSONSanitizer
}

// NewResponseParser creates a parser with its own sanitizer.
func NewResponseParser() *ResponseParser {
	return &ResponseParser{sanitizer: NewJSONSanitizer()}
}

// minRecoveredQuestions is the tier-2 usefulness threshold: a partial
// batch smaller than this is not worth returning.
const minRecoveredQuestions = 10

var (
	fencedBlockRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	flatObjectRE  = regexp.MustCompile(`\{[^{}]*\}`)

	scoreRE          = regexp.MustCompile(`"score":\s*(\d+)`)
	strengthsRE      = regexp.MustCompile(`"strengths":\s*\[([^\]]*)\]`)
	improvementsRE   = regexp.MustCompile(`"improvements":\s*\[([^\]]*)\]`)
	improvedAnswerRE = regexp.MustCompile(`"improvedAnswer":\s*"([^"]*)"`)
)

// stripFence returns the contents of the first fenced code block if one
// is present, the input otherwise.
func stripFence(raw string) string {
	if m := fencedBlockRE.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// firstObjectSpan locates the first balanced {...} span, or "" if none.
func firstObjectSpan(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func validQuestion(q domain.InterviewQuestion) bool {
	return q.Question != "" && q.Type != "" && q.Difficulty != "" && q.Category != ""
}

func validCoding(q domain.CodingQuestion) bool {
	return q.Title != "" && q.Difficulty != "" && q.Category != "" && q.Description != ""
}

// ParseQuestionBatch extracts interview questions from raw model output.
// Tolerates partial batches: any non-empty set of valid items succeeds.
func (p *ResponseParser) ParseQuestionBatch(raw string) ([]domain.InterviewQuestion, error) {
	// Tier 1: fence strip + direct parse
	var batch []domain.InterviewQuestion
	if err := json.Unmarshal([]byte(stripFence(raw)), &batch); err == nil {
		if valid := filterQuestions(batch); len(valid) > 0 {
			observability.ParseRecoveriesTotal.WithLabelValues("questions", "1").Inc()
			return valid, nil
		}
	}

	// Tier 2: pull individual flat question objects out of the wreckage
	if recovered := p.recoverQuestionObjects(raw); len(recovered) > minRecoveredQuestions {
		slog.Warn("recovered questions from partial response", slog.Int("count", len(recovered)))
		observability.ParseRecoveriesTotal.WithLabelValues("questions", "2").Inc()
		return recovered, nil
	}

	// Tier 3: sanitize and reparse
	sanitized := p.sanitizer.Sanitize(stripFence(raw))
	if err := json.Unmarshal([]byte(sanitized), &batch); err == nil {
		if valid := filterQuestions(batch); len(valid) > 0 {
			observability.ParseRecoveriesTotal.WithLabelValues("questions", "3").Inc()
			return valid, nil
		}
	}
	if span := firstObjectSpan(sanitized); span != "" {
		var q domain.InterviewQuestion
		if err := json.Unmarshal([]byte(span), &q); err == nil && validQuestion(q) {
			observability.ParseRecoveriesTotal.WithLabelValues("questions", "3").Inc()
			return []domain.InterviewQuestion{q}, nil
		}
	}

	observability.ParseFailuresTotal.WithLabelValues("questions").Inc()
	slog.Error("question batch unparseable", slog.Int("raw_length", len(raw)))
	return nil, fmt.Errorf("op=parse.questions: %w: failed to generate questions, please try again", domain.ErrParse)
}

func filterQuestions(batch []domain.InterviewQuestion) []domain.InterviewQuestion {
	valid := batch[:0:0]
	for _, q := range batch {
		if validQuestion(q) {
			valid = append(valid, q)
		}
	}
	return valid
}

// recoverQuestionObjects scans for flat {...} spans that carry all four
// question keys (in any order) and parses each independently.
func (p *ResponseParser) recoverQuestionObjects(raw string) []domain.InterviewQuestion {
	var out []domain.InterviewQuestion
	for _, span := range flatObjectRE.FindAllString(raw, -1) {
		if !strings.Contains(span, `"question"`) || !strings.Contains(span, `"type"`) ||
			!strings.Contains(span, `"difficulty"`) || !strings.Contains(span, `"category"`) {
			continue
		}
		var q domain.InterviewQuestion
		if err := json.Unmarshal([]byte(span), &q); err == nil && validQuestion(q) {
			out = append(out, q)
		}
	}
	return out
}

// ParseCodingBatch extracts coding questions from raw model output.
func (p *ResponseParser) ParseCodingBatch(raw string) ([]domain.CodingQuestion, error) {
	// Tier 1: fence strip + direct parse
	var batch []domain.CodingQuestion
	if err := json.Unmarshal([]byte(stripFence(raw)), &batch); err == nil {
		if valid := filterCoding(batch); len(valid) > 0 {
			observability.ParseRecoveriesTotal.WithLabelValues("coding", "1").Inc()
			return valid, nil
		}
	}

	// Tier 2: individual flat objects carrying the coding keys
	if recovered := p.recoverCodingObjects(raw); len(recovered) > minRecoveredQuestions {
		slog.Warn("recovered coding questions from partial response", slog.Int("count", len(recovered)))
		observability.ParseRecoveriesTotal.WithLabelValues("coding", "2").Inc()
		return recovered, nil
	}

	// Tier 3: sanitize and reparse
	sanitized := p.sanitizer.Sanitize(stripFence(raw))
	if err := json.Unmarshal([]byte(sanitized), &batch); err == nil {
		if valid := filterCoding(batch); len(valid) > 0 {
			observability.ParseRecoveriesTotal.WithLabelValues("coding", "3").Inc()
			return valid, nil
		}
	}
	if span := firstObjectSpan(sanitized); span != "" {
		var q domain.CodingQuestion
		if err := json.Unmarshal([]byte(span), &q); err == nil && validCoding(q) {
			observability.ParseRecoveriesTotal.WithLabelValues("coding", "3").Inc()
			return []domain.CodingQuestion{q}, nil
		}
	}

	observability.ParseFailuresTotal.WithLabelValues("coding").Inc()
	slog.Error("coding batch unparseable", slog.Int("raw_length", len(raw)))
	return nil, fmt.Errorf("op=parse.coding: %w: failed to generate coding questions, please try again", domain.ErrParse)
}

func filterCoding(batch []domain.CodingQuestion) []domain.CodingQuestion {
	valid := batch[:0:0]
	for _, q := range batch {
		if validCoding(q) {
			valid = append(valid, q)
		}
	}
	return valid
}

func (p *ResponseParser) recoverCodingObjects(raw string) []domain.CodingQuestion {
	var out []domain.CodingQuestion
	for _, span := range flatObjectRE.FindAllString(raw, -1) {
		if !strings.Contains(span, `"title"`) || !strings.Contains(span, `"difficulty"`) ||
			!strings.Contains(span, `"category"`) || !strings.Contains(span, `"description"`) {
			continue
		}
		var q domain.CodingQuestion
		if err := json.Unmarshal([]byte(span), &q); err == nil && validCoding(q) {
			out = append(out, q)
		}
	}
	return out
}

func validFeedback(fb domain.Feedback) bool {
	return fb.Score >= 1 && fb.Score <= 10 &&
		len(fb.Strengths) > 0 && len(fb.Improvements) > 0 && fb.ImprovedAnswer != ""
}

// ParseFeedback extracts a single Feedback object. Its final tier
// synthesizes a Feedback from field-level regex fragments with default
// placeholders, so it only fails when even the score-less skeleton is
// useless — in practice, almost never.
func (p *ResponseParser) ParseFeedback(raw string) (domain.Feedback, error) {
	// Tier 1: fence strip + direct parse
	var fb domain.Feedback
	body := stripFence(raw)
	if err := json.Unmarshal([]byte(body), &fb); err == nil && validFeedback(fb) {
		observability.ParseRecoveriesTotal.WithLabelValues("feedback", "1").Inc()
		return fb, nil
	}

	// Tier 3: sanitize, reparse, then first-object span
	sanitized := p.sanitizer.Sanitize(body)
	if err := json.Unmarshal([]byte(sanitized), &fb); err == nil && validFeedback(fb) {
		observability.ParseRecoveriesTotal.WithLabelValues("feedback", "3").Inc()
		return fb, nil
	}
	if span := firstObjectSpan(sanitized); span != "" {
		if err := json.Unmarshal([]byte(span), &fb); err == nil && validFeedback(fb) {
			observability.ParseRecoveriesTotal.WithLabelValues("feedback", "3").Inc()
			return fb, nil
		}
	}

	// Tier 4: field-by-field extraction with defaults
	fb = p.feedbackFromFragments(sanitized)
	observability.ParseRecoveriesTotal.WithLabelValues("feedback", "4").Inc()
	slog.Warn("feedback synthesized from fragments", slog.Int("score", fb.Score))
	return fb, nil
}

func (p *ResponseParser) feedbackFromFragments(s string) domain.Feedback {
	fb := domain.Feedback{
		Score:          5,
		Strengths:      []string{"Good attempt", "Relevant experience"},
		Improvements:   []string{"Could be more structured", "Add more specific examples"},
		ImprovedAnswer: "The candidate could improve their answer by providing more specific examples and structuring their response more clearly.",
	}
	if m := scoreRE.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			// clamp to the feedback scale
			if n < 1 {
				n = 1
			}
			if n > 10 {
				n = 10
			}
			fb.Score = n
		}
	}
	if m := strengthsRE.FindStringSubmatch(s); m != nil {
		if items := splitQuoted(m[1]); len(items) > 0 {
			fb.Strengths = items
		}
	}
	if m := improvementsRE.FindStringSubmatch(s); m != nil {
		if items := splitQuoted(m[1]); len(items) > 0 {
			fb.Improvements = items
		}
	}
	if m := improvedAnswerRE.FindStringSubmatch(s); m != nil && m[1] != "" {
		fb.ImprovedAnswer = m[1]
	}
	return fb
}

// splitQuoted splits a bracket-interior fragment on commas, stripping
// quotes and whitespace, dropping empties.
func splitQuoted(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ReplaceAll(part, `"`, ""))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
