package usecase

import (
	"fmt"
	"log/slog"

	"github.com/prepforge/prepai/internal/domain"
	"github.com/prepforge/prepai/internal/observability"
)

// BatchService is the worker-side counterpart of SessionService: it
// consumes generation tasks, runs the AI pipeline, and persists the
// resulting batches.
type BatchService struct {
	Sessions  domain.SessionRepository
	Questions domain.QuestionRepository
	Gen       GenerateService
}

// NewBatchService constructs a BatchService with its dependencies.
func NewBatchService(sr domain.SessionRepository, qr domain.QuestionRepository, g GenerateService) BatchService {
	return BatchService{Sessions: sr, Questions: qr, Gen: g}
}

// ProcessGenerate handles one generation task. A failed batch marks the
// whole session failed; the session flips to ready once both batches
// are stored.
func (s BatchService) ProcessGenerate(ctx domain.Context, payload domain.GenerateTaskPayload) error {
	sess, err := s.Sessions.Get(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("op=batch.ProcessGenerate: %w", err)
	}

	switch payload.Kind {
	case domain.BatchInterview:
		qs, err := s.Gen.InterviewQuestions(ctx, sess)
		if err != nil {
			return s.fail(ctx, payload, err)
		}
		if err := s.Questions.InsertInterviewBatch(ctx, sess.ID, qs); err != nil {
			return s.fail(ctx, payload, err)
		}
		observability.GenerationBatchSize.WithLabelValues(payload.Kind).Observe(float64(len(qs)))
	case domain.BatchCoding:
		qs, err := s.Gen.CodingQuestions(ctx, sess)
		if err != nil {
			return s.fail(ctx, payload, err)
		}
		if err := s.Questions.InsertCodingBatch(ctx, sess.ID, qs); err != nil {
			return s.fail(ctx, payload, err)
		}
		observability.GenerationBatchSize.WithLabelValues(payload.Kind).Observe(float64(len(qs)))
	default:
		return fmt.Errorf("%w: unknown batch kind %q", domain.ErrInvalidArgument, payload.Kind)
	}

	observability.GenerationTasksTotal.WithLabelValues(payload.Kind, "ok").Inc()
	return s.markReadyIfComplete(ctx, sess.ID)
}

func (s BatchService) fail(ctx domain.Context, payload domain.GenerateTaskPayload, cause error) error {
	observability.GenerationTasksTotal.WithLabelValues(payload.Kind, "error").Inc()
	slog.Error("generation task failed",
		slog.String("task_id", payload.TaskID),
		slog.String("session_id", payload.SessionID),
		slog.String("kind", payload.Kind),
		slog.Any("error", cause))
	if err := s.Sessions.UpdateStatus(ctx, payload.SessionID, domain.SessionFailed, cause.Error()); err != nil {
		slog.Error("session status update failed", slog.String("session_id", payload.SessionID), slog.Any("error", err))
	}
	return fmt.Errorf("op=batch.ProcessGenerate: kind=%s: %w", payload.Kind, cause)
}

// markReadyIfComplete flips the session to ready once both batches have
// landed. Races between the two workers are harmless: the update is
// idempotent.
func (s BatchService) markReadyIfComplete(ctx domain.Context, sessionID string) error {
	interview, err := s.Questions.ListInterview(ctx, sessionID, domain.QuestionFilter{})
	if err != nil {
		return err
	}
	if len(interview) == 0 {
		return nil
	}
	coding, err := s.Questions.ListCoding(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(coding) == 0 {
		return nil
	}
	return s.Sessions.UpdateStatus(ctx, sessionID, domain.SessionReady, "")
}
