// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prepforge/prepai/internal/adapter/ai"
	"github.com/prepforge/prepai/internal/adapter/ai/prompt"
	"github.com/prepforge/prepai/internal/domain"
)

// GenerateService runs the four AI operations: interview batch, coding
// batch, model answer, and answer analysis. It composes prompt
// building, the AI transport, and response parsing; persistence is the
// caller's concern.
type GenerateService struct {
	AI      domain.AIClient
	Prompts *prompt.Builder
	Parser  *ai.ResponseParser

	AnalysisAttempts int
	AnalysisDelay    time.Duration
	// sleep is swappable in tests to avoid real waits.
	sleep func(ctx domain.Context, d time.Duration) error
}

// NewGenerateService constructs a GenerateService with its dependencies.
func NewGenerateService(aiClient domain.AIClient, b *prompt.Builder, p *ai.ResponseParser, analysisAttempts int, analysisDelay time.Duration) GenerateService {
	if analysisAttempts < 1 {
		analysisAttempts = 1
	}
	return GenerateService{
		AI:               aiClient,
		Prompts:          b,
		Parser:           p,
		AnalysisAttempts: analysisAttempts,
		AnalysisDelay:    analysisDelay,
		sleep:            sleepCtx,
	}
}

func sleepCtx(ctx domain.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// InterviewQuestions generates the interview batch for a session.
func (s GenerateService) InterviewQuestions(ctx domain.Context, sess domain.Session) ([]domain.InterviewQuestion, error) {
	conv := s.Prompts.QuestionGeneration(sess.JobTitle, sess.Company, sess.Description, sess.Requirements, sess.Resume)
	raw, err := s.AI.Chat(ctx, conv)
	if err != nil {
		return nil, err
	}
	qs, err := s.Parser.ParseQuestionBatch(raw)
	if err != nil {
		return nil, err
	}
	slog.Info("interview batch generated", slog.String("session_id", sess.ID), slog.Int("count", len(qs)))
	return qs, nil
}

// CodingQuestions generates the coding batch for a session.
func (s GenerateService) CodingQuestions(ctx domain.Context, sess domain.Session) ([]domain.CodingQuestion, error) {
	conv := s.Prompts.Coding(sess.JobTitle, sess.Company, sess.CompanyType)
	raw, err := s.AI.Chat(ctx, conv)
	if err != nil {
		return nil, err
	}
	qs, err := s.Parser.ParseCodingBatch(raw)
	if err != nil {
		return nil, err
	}
	slog.Info("coding batch generated", slog.String("session_id", sess.ID), slog.Int("count", len(qs)))
	return qs, nil
}

// ModelAnswer generates an ideal answer for one question. The output is
// prose, not JSON, so no parsing tier applies.
func (s GenerateService) ModelAnswer(ctx domain.Context, q domain.InterviewQuestion, sess domain.Session) (string, error) {
	if q.Question == "" {
		return "", fmt.Errorf("%w: question text required", domain.ErrInvalidArgument)
	}
	conv := s.Prompts.Answer(q.Question, sess.JobTitle, sess.Resume, q.Type)
	return s.AI.Chat(ctx, conv)
}

// Analyze scores a submitted answer, retrying transport failures with a
// linearly increasing delay on top of the transport's own backoff.
func (s GenerateService) Analyze(ctx domain.Context, question, answer, jobTitle string) (domain.Feedback, error) {
	if question == "" || answer == "" {
		return domain.Feedback{}, fmt.Errorf("%w: question and answer required", domain.ErrInvalidArgument)
	}
	conv := s.Prompts.Analysis(question, answer, jobTitle)

	var lastErr error
	for attempt := 1; attempt <= s.AnalysisAttempts; attempt++ {
		raw, err := s.AI.Chat(ctx, conv)
		if err == nil {
			return s.Parser.ParseFeedback(raw)
		}
		lastErr = err
		if attempt == s.AnalysisAttempts {
			break
		}
		slog.Warn("answer analysis attempt failed", slog.Int("attempt", attempt), slog.Any("error", err))
		if err := s.sleep(ctx, time.Duration(attempt)*s.AnalysisDelay); err != nil {
			return domain.Feedback{}, err
		}
	}
	return domain.Feedback{}, fmt.Errorf("op=generate.Analyze: %w", lastErr)
}
