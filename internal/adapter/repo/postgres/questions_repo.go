package postgres

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prepforge/prepai/internal/domain"
)

// QuestionRepo persists generated interview and coding questions,
// answers, and feedback.
type QuestionRepo struct{ Pool PgxPool }

// NewQuestionRepo constructs a QuestionRepo with the given pool.
func NewQuestionRepo(p PgxPool) *QuestionRepo { return &QuestionRepo{Pool: p} }

// InsertInterviewBatch stores a generated interview batch in one
// transaction so a half-written batch never becomes visible.
func (r *QuestionRepo) InsertInterviewBatch(ctx domain.Context, sessionID string, qs []domain.InterviewQuestion) error {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.InsertInterviewBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.sql.table", "interview_questions"),
		attribute.Int("batch.size", len(qs)),
	)
	if len(qs) == 0 {
		return fmt.Errorf("%w: empty batch", domain.ErrInvalidArgument)
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=questions.insert_interview: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO interview_questions (id, session_id, question, type, difficulty, category, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7)`
	now := time.Now().UTC()
	for _, item := range qs {
		id := item.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := tx.Exec(ctx, q, id, sessionID, item.Question, item.Type, item.Difficulty, item.Category, now); err != nil {
			return fmt.Errorf("op=questions.insert_interview: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=questions.insert_interview: %w", err)
	}
	return nil
}

// InsertCodingBatch stores a generated coding batch in one transaction.
func (r *QuestionRepo) InsertCodingBatch(ctx domain.Context, sessionID string, qs []domain.CodingQuestion) error {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.InsertCodingBatch")
	defer span.End()
	if len(qs) == 0 {
		return fmt.Errorf("%w: empty batch", domain.ErrInvalidArgument)
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=questions.insert_coding: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO coding_questions (id, session_id, title, difficulty, category, description, platform, url, tags, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	now := time.Now().UTC()
	for _, item := range qs {
		id := item.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := tx.Exec(ctx, q, id, sessionID, item.Title, item.Difficulty, item.Category, item.Description, item.Platform, item.URL, item.Tags, now); err != nil {
			return fmt.Errorf("op=questions.insert_coding: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=questions.insert_coding: %w", err)
	}
	return nil
}

// ListInterview returns a session's interview questions, narrowed by
// the optional filter fields, in insertion order.
func (r *QuestionRepo) ListInterview(ctx domain.Context, sessionID string, f domain.QuestionFilter) ([]domain.InterviewQuestion, error) {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.ListInterview")
	defer span.End()

	var sb strings.Builder
	sb.WriteString(`SELECT id, session_id, question, type, difficulty, category, COALESCE(answer,''), COALESCE(model_answer,''), answered_at
	      FROM interview_questions WHERE session_id=$1`)
	args := []any{sessionID}
	if f.Type != "" {
		args = append(args, f.Type)
		sb.WriteString(" AND type=$" + strconv.Itoa(len(args)))
	}
	if f.Difficulty != "" {
		args = append(args, f.Difficulty)
		sb.WriteString(" AND difficulty=$" + strconv.Itoa(len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		sb.WriteString(" AND category=$" + strconv.Itoa(len(args)))
	}
	sb.WriteString(" ORDER BY created_at, id")

	rows, err := r.Pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("op=questions.list_interview: %w", err)
	}
	defer rows.Close()

	var out []domain.InterviewQuestion
	for rows.Next() {
		var q domain.InterviewQuestion
		if err := rows.Scan(&q.ID, &q.SessionID, &q.Question, &q.Type, &q.Difficulty, &q.Category, &q.Answer, &q.ModelAnswer, &q.AnsweredAt); err != nil {
			return nil, fmt.Errorf("op=questions.list_interview: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=questions.list_interview: %w", err)
	}
	return out, nil
}

// ListCoding returns a session's coding questions in insertion order.
func (r *QuestionRepo) ListCoding(ctx domain.Context, sessionID string) ([]domain.CodingQuestion, error) {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.ListCoding")
	defer span.End()

	q := `SELECT id, session_id, title, difficulty, category, description, platform, url, tags
	      FROM coding_questions WHERE session_id=$1 ORDER BY created_at, id`
	rows, err := r.Pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=questions.list_coding: %w", err)
	}
	defer rows.Close()

	var out []domain.CodingQuestion
	for rows.Next() {
		var c domain.CodingQuestion
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Title, &c.Difficulty, &c.Category, &c.Description, &c.Platform, &c.URL, &c.Tags); err != nil {
			return nil, fmt.Errorf("op=questions.list_coding: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=questions.list_coding: %w", err)
	}
	return out, nil
}

// GetInterview loads one interview question by id.
func (r *QuestionRepo) GetInterview(ctx domain.Context, id string) (domain.InterviewQuestion, error) {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.GetInterview")
	defer span.End()

	q := `SELECT id, session_id, question, type, difficulty, category, COALESCE(answer,''), COALESCE(model_answer,''), answered_at
	      FROM interview_questions WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var out domain.InterviewQuestion
	if err := row.Scan(&out.ID, &out.SessionID, &out.Question, &out.Type, &out.Difficulty, &out.Category, &out.Answer, &out.ModelAnswer, &out.AnsweredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.InterviewQuestion{}, fmt.Errorf("op=questions.get_interview: %w", domain.ErrNotFound)
		}
		return domain.InterviewQuestion{}, fmt.Errorf("op=questions.get_interview: %w", err)
	}
	return out, nil
}

// SaveAnswer stores the user's answer and stamps answered_at.
func (r *QuestionRepo) SaveAnswer(ctx domain.Context, questionID, answer string) error {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.SaveAnswer")
	defer span.End()

	q := `UPDATE interview_questions SET answer=$2, answered_at=$3 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, questionID, answer, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=questions.save_answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=questions.save_answer: %w", domain.ErrNotFound)
	}
	return nil
}

// SaveModelAnswer stores the generated ideal answer.
func (r *QuestionRepo) SaveModelAnswer(ctx domain.Context, questionID, modelAnswer string) error {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.SaveModelAnswer")
	defer span.End()

	q := `UPDATE interview_questions SET model_answer=$2 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, questionID, modelAnswer)
	if err != nil {
		return fmt.Errorf("op=questions.save_model_answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=questions.save_model_answer: %w", domain.ErrNotFound)
	}
	return nil
}

// ReplaceFeedback upserts the feedback row for a question; a
// resubmitted answer overwrites the prior analysis.
func (r *QuestionRepo) ReplaceFeedback(ctx domain.Context, questionID string, fb domain.Feedback) error {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.ReplaceFeedback")
	defer span.End()

	q := `INSERT INTO question_feedback (question_id, score, strengths, improvements, improved_answer, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6)
	      ON CONFLICT (question_id) DO UPDATE
	      SET score=EXCLUDED.score, strengths=EXCLUDED.strengths, improvements=EXCLUDED.improvements,
	          improved_answer=EXCLUDED.improved_answer, updated_at=EXCLUDED.updated_at`
	_, err := r.Pool.Exec(ctx, q, questionID, fb.Score, fb.Strengths, fb.Improvements, fb.ImprovedAnswer, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=questions.replace_feedback: %w", err)
	}
	return nil
}

// GetFeedback loads the stored feedback for a question.
func (r *QuestionRepo) GetFeedback(ctx domain.Context, questionID string) (domain.Feedback, error) {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.GetFeedback")
	defer span.End()

	q := `SELECT score, strengths, improvements, improved_answer FROM question_feedback WHERE question_id=$1`
	row := r.Pool.QueryRow(ctx, q, questionID)
	var fb domain.Feedback
	if err := row.Scan(&fb.Score, &fb.Strengths, &fb.Improvements, &fb.ImprovedAnswer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Feedback{}, fmt.Errorf("op=questions.get_feedback: %w", domain.ErrNotFound)
		}
		return domain.Feedback{}, fmt.Errorf("op=questions.get_feedback: %w", err)
	}
	return fb, nil
}

// Progress aggregates answered/total for a session's interview batch.
func (r *QuestionRepo) Progress(ctx domain.Context, sessionID string) (domain.Progress, error) {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.Progress")
	defer span.End()

	q := `SELECT COUNT(*) FILTER (WHERE COALESCE(answer,'') <> ''), COUNT(*) FROM interview_questions WHERE session_id=$1`
	row := r.Pool.QueryRow(ctx, q, sessionID)
	var p domain.Progress
	if err := row.Scan(&p.Answered, &p.Total); err != nil {
		return domain.Progress{}, fmt.Errorf("op=questions.progress: %w", err)
	}
	if p.Total > 0 {
		p.Percent = p.Answered * 100 / p.Total
	}
	return p, nil
}
