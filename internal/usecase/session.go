package usecase

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/prepforge/prepai/internal/domain"
)

// SessionService orchestrates prep sessions: creation with async batch
// generation, question listings, answer submission with analysis, and
// model answers.
type SessionService struct {
	Sessions  domain.SessionRepository
	Questions domain.QuestionRepository
	Queue     domain.Queue
	Gen       GenerateService
}

// NewSessionService constructs a SessionService with its dependencies.
func NewSessionService(sr domain.SessionRepository, qr domain.QuestionRepository, q domain.Queue, g GenerateService) SessionService {
	return SessionService{Sessions: sr, Questions: qr, Queue: q, Gen: g}
}

// CreateSessionInput carries the user-submitted job details.
type CreateSessionInput struct {
	JobTitle     string
	Company      string
	Description  string
	Requirements string
	Resume       string
}

// Create stores a session and enqueues both generation batches. The
// session starts in generating status; workers flip it to ready once
// both batches land.
func (s SessionService) Create(ctx domain.Context, in CreateSessionInput) (domain.Session, error) {
	if in.JobTitle == "" || in.Company == "" {
		return domain.Session{}, fmt.Errorf("%w: job title and company required", domain.ErrInvalidArgument)
	}

	sess := domain.Session{
		JobTitle:     in.JobTitle,
		Company:      in.Company,
		Description:  in.Description,
		Requirements: in.Requirements,
		Resume:       in.Resume,
		CompanyType:  s.Gen.Prompts.ClassifyCompany(in.Company, in.Description),
		Status:       domain.SessionGenerating,
	}
	id, err := s.Sessions.Create(ctx, sess)
	if err != nil {
		return domain.Session{}, err
	}
	sess.ID = id

	for _, kind := range []string{domain.BatchInterview, domain.BatchCoding} {
		payload := domain.GenerateTaskPayload{TaskID: uuid.NewString(), SessionID: id, Kind: kind}
		if _, err := s.Queue.EnqueueGenerate(ctx, payload); err != nil {
			_ = s.Sessions.UpdateStatus(ctx, id, domain.SessionFailed, "enqueue failed")
			return domain.Session{}, fmt.Errorf("op=session.Create: %w", err)
		}
	}
	slog.Info("session created", slog.String("session_id", id), slog.String("company_type", sess.CompanyType))
	return s.Sessions.Get(ctx, id)
}

// Get fetches one session.
func (s SessionService) Get(ctx domain.Context, id string) (domain.Session, error) {
	if id == "" {
		return domain.Session{}, fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	return s.Sessions.Get(ctx, id)
}

// ListInterview returns a session's interview questions, optionally
// filtered by type, difficulty, and category.
func (s SessionService) ListInterview(ctx domain.Context, sessionID string, f domain.QuestionFilter) ([]domain.InterviewQuestion, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id required", domain.ErrInvalidArgument)
	}
	return s.Questions.ListInterview(ctx, sessionID, f)
}

// ListCoding returns a session's coding questions.
func (s SessionService) ListCoding(ctx domain.Context, sessionID string) ([]domain.CodingQuestion, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id required", domain.ErrInvalidArgument)
	}
	return s.Questions.ListCoding(ctx, sessionID)
}

// Progress returns the answered/total aggregate for a session.
func (s SessionService) Progress(ctx domain.Context, sessionID string) (domain.Progress, error) {
	if sessionID == "" {
		return domain.Progress{}, fmt.Errorf("%w: session id required", domain.ErrInvalidArgument)
	}
	return s.Questions.Progress(ctx, sessionID)
}

// SubmitAnswer stores the user's answer, analyzes it, and replaces any
// prior feedback for the question. Resubmission overwrites; no history
// is kept.
func (s SessionService) SubmitAnswer(ctx domain.Context, questionID, answer string) (domain.Feedback, error) {
	if questionID == "" || answer == "" {
		return domain.Feedback{}, fmt.Errorf("%w: question id and answer required", domain.ErrInvalidArgument)
	}
	q, err := s.Questions.GetInterview(ctx, questionID)
	if err != nil {
		return domain.Feedback{}, err
	}
	sess, err := s.Sessions.Get(ctx, q.SessionID)
	if err != nil {
		return domain.Feedback{}, err
	}
	if err := s.Questions.SaveAnswer(ctx, questionID, answer); err != nil {
		return domain.Feedback{}, err
	}

	fb, err := s.Gen.Analyze(ctx, q.Question, answer, sess.JobTitle)
	if err != nil {
		return domain.Feedback{}, err
	}
	if err := s.Questions.ReplaceFeedback(ctx, questionID, fb); err != nil {
		return domain.Feedback{}, err
	}
	return fb, nil
}

// Feedback returns the stored feedback for a question.
func (s SessionService) Feedback(ctx domain.Context, questionID string) (domain.Feedback, error) {
	if questionID == "" {
		return domain.Feedback{}, fmt.Errorf("%w: question id required", domain.ErrInvalidArgument)
	}
	return s.Questions.GetFeedback(ctx, questionID)
}

// ModelAnswer generates and stores the ideal answer for a question,
// returning the cached copy on subsequent calls.
func (s SessionService) ModelAnswer(ctx domain.Context, questionID string) (string, error) {
	if questionID == "" {
		return "", fmt.Errorf("%w: question id required", domain.ErrInvalidArgument)
	}
	q, err := s.Questions.GetInterview(ctx, questionID)
	if err != nil {
		return "", err
	}
	if q.ModelAnswer != "" {
		return q.ModelAnswer, nil
	}
	sess, err := s.Sessions.Get(ctx, q.SessionID)
	if err != nil {
		return "", err
	}
	text, err := s.Gen.ModelAnswer(ctx, q, sess)
	if err != nil {
		return "", err
	}
	if err := s.Questions.SaveModelAnswer(ctx, questionID, text); err != nil {
		return "", err
	}
	return text, nil
}
