// Package stub provides a fast, deterministic AIClient for local
// development and tests.
package stub

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prepforge/prepai/internal/domain"
)

// Client fabricates plausible completions without any network calls.
// It inspects the system prompt to decide which payload shape the
// caller expects.
type Client struct{}

// New returns a stub client.
func New() *Client { return &Client{} }

// Chat returns a canned completion matching the conversation's intent.
func (c *Client) Chat(_ domain.Context, conv domain.Conversation) (string, error) {
	if len(conv) == 0 {
		return "", fmt.Errorf("%w: empty conversation", domain.ErrInvalidArgument)
	}
	system := conv[0].Content
	switch {
	case strings.Contains(system, "coding interviewer"):
		return codingBatch(30), nil
	case strings.Contains(system, "interview questions"):
		return questionBatch(85), nil
	case strings.Contains(system, "constructive feedback"):
		b, _ := json.Marshal(domain.Feedback{
			Score:          7,
			Strengths:      []string{"Clear structure", "Concrete example"},
			Improvements:   []string{"Quantify the impact", "Tighten the conclusion"},
			ImprovedAnswer: "I led the migration of our billing service to an event-driven design, cutting reconciliation errors by 40%.",
		})
		return string(b), nil
	default:
		return "Start with a one-line definition, give a short example, and close with the trade-off you would watch in production.", nil
	}
}

func questionBatch(n int) string {
	difficulties := []string{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard}
	qs := make([]domain.InterviewQuestion, n)
	for i := range qs {
		typ := domain.QuestionTechnical
		category := "DSA: Arrays"
		if i >= 60 {
			typ = domain.QuestionBehavioral
			category = "Teamwork"
		}
		qs[i] = domain.InterviewQuestion{
			Question:   fmt.Sprintf("Stub question %d", i+1),
			Type:       typ,
			Difficulty: difficulties[i%3],
			Category:   category,
		}
	}
	b, _ := json.Marshal(qs)
	return "```json\n" + string(b) + "\n```"
}

func codingBatch(n int) string {
	difficulties := []string{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard}
	qs := make([]domain.CodingQuestion, n)
	for i := range qs {
		qs[i] = domain.CodingQuestion{
			Title:       fmt.Sprintf("Stub Problem %d", i+1),
			Difficulty:  difficulties[i%3],
			Category:    "Array",
			Description: "Find two numbers that add up to target",
			Platform:    "leetcode",
			URL:         "https://leetcode.com/problems/two-sum/",
			Tags:        []string{"array", "hash-table"},
		}
	}
	b, _ := json.Marshal(qs)
	return "```json\n" + string(b) + "\n```"
}
