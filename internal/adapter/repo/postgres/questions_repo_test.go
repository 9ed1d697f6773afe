package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/prepai/internal/adapter/repo/postgres"
	"github.com/prepforge/prepai/internal/domain"
)

func interviewBatch(n int) []domain.InterviewQuestion {
	out := make([]domain.InterviewQuestion, n)
	for i := range out {
		out[i] = domain.InterviewQuestion{
			Question:   "Q",
			Type:       domain.QuestionTechnical,
			Difficulty: domain.DifficultyEasy,
			Category:   "Go",
		}
	}
	return out
}

func TestQuestionRepo_InsertInterviewBatch(t *testing.T) {
	tx := &txStub{}
	pool := &poolStub{tx: tx}
	repo := postgres.NewQuestionRepo(pool)

	err := repo.InsertInterviewBatch(context.Background(), "sess-1", interviewBatch(3))
	require.NoError(t, err)
	assert.Len(t, tx.execSQL, 3)
	assert.True(t, tx.committed)
}

func TestQuestionRepo_InsertInterviewBatch_Empty(t *testing.T) {
	repo := postgres.NewQuestionRepo(&poolStub{})
	err := repo.InsertInterviewBatch(context.Background(), "sess-1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestQuestionRepo_InsertInterviewBatch_ExecError(t *testing.T) {
	tx := &txStub{execErr: assert.AnError}
	pool := &poolStub{tx: tx}
	repo := postgres.NewQuestionRepo(pool)

	err := repo.InsertInterviewBatch(context.Background(), "sess-1", interviewBatch(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=questions.insert_interview")
	assert.True(t, tx.rolled)
	assert.False(t, tx.committed)
}

func TestQuestionRepo_InsertCodingBatch(t *testing.T) {
	tx := &txStub{}
	pool := &poolStub{tx: tx}
	repo := postgres.NewQuestionRepo(pool)

	err := repo.InsertCodingBatch(context.Background(), "sess-1", []domain.CodingQuestion{
		{Title: "Two Sum", Difficulty: domain.DifficultyEasy, Category: "Array", Description: "classic", Platform: "leetcode", URL: "u", Tags: []string{"array"}},
	})
	require.NoError(t, err)
	assert.Len(t, tx.execSQL, 1)
	assert.Contains(t, tx.execSQL[0], "INSERT INTO coding_questions")
	assert.True(t, tx.committed)
}

func TestQuestionRepo_InsertBatch_BeginError(t *testing.T) {
	pool := &poolStub{beginErr: assert.AnError}
	repo := postgres.NewQuestionRepo(pool)

	err := repo.InsertInterviewBatch(context.Background(), "sess-1", interviewBatch(1))
	require.Error(t, err)
}

func interviewRowScan(id string) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = id
		*dest[1].(*string) = "sess-1"
		*dest[2].(*string) = "Explain goroutines"
		*dest[3].(*string) = domain.QuestionTechnical
		*dest[4].(*string) = domain.DifficultyEasy
		*dest[5].(*string) = "Go"
		*dest[6].(*string) = ""
		*dest[7].(*string) = ""
		*dest[8].(**time.Time) = nil
		return nil
	}
}

func TestQuestionRepo_ListInterview(t *testing.T) {
	pool := &poolStub{rows: &rowsStub{scans: []func(dest ...any) error{
		interviewRowScan("q-1"),
		interviewRowScan("q-2"),
	}}}
	repo := postgres.NewQuestionRepo(pool)

	qs, err := repo.ListInterview(context.Background(), "sess-1", domain.QuestionFilter{})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "q-1", qs[0].ID)
	require.Len(t, pool.querySQL, 1)
	assert.NotContains(t, pool.querySQL[0], "AND type")
}

func TestQuestionRepo_ListInterview_FilterSQL(t *testing.T) {
	pool := &poolStub{rows: &rowsStub{}}
	repo := postgres.NewQuestionRepo(pool)

	_, err := repo.ListInterview(context.Background(), "sess-1", domain.QuestionFilter{
		Type:       domain.QuestionBehavioral,
		Difficulty: domain.DifficultyHard,
		Category:   "Leadership",
	})
	require.NoError(t, err)
	require.Len(t, pool.querySQL, 1)
	sql := pool.querySQL[0]
	assert.Contains(t, sql, "AND type=$2")
	assert.Contains(t, sql, "AND difficulty=$3")
	assert.Contains(t, sql, "AND category=$4")
}

func TestQuestionRepo_ListCoding(t *testing.T) {
	pool := &poolStub{rows: &rowsStub{scans: []func(dest ...any) error{
		func(dest ...any) error {
			*dest[0].(*string) = "c-1"
			*dest[1].(*string) = "sess-1"
			*dest[2].(*string) = "Two Sum"
			*dest[3].(*string) = domain.DifficultyEasy
			*dest[4].(*string) = "Array"
			*dest[5].(*string) = "classic"
			*dest[6].(*string) = "leetcode"
			*dest[7].(*string) = "https://leetcode.com/problems/two-sum/"
			*dest[8].(*[]string) = []string{"array"}
			return nil
		},
	}}}
	repo := postgres.NewQuestionRepo(pool)

	qs, err := repo.ListCoding(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "Two Sum", qs[0].Title)
	assert.Equal(t, []string{"array"}, qs[0].Tags)
}

func TestQuestionRepo_GetInterview_NotFound(t *testing.T) {
	pool := &poolStub{row: rowStub{scan: func(_ ...any) error { return pgx.ErrNoRows }}}
	repo := postgres.NewQuestionRepo(pool)

	_, err := repo.GetInterview(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuestionRepo_SaveAnswer(t *testing.T) {
	pool := &poolStub{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := postgres.NewQuestionRepo(pool)

	require.NoError(t, repo.SaveAnswer(context.Background(), "q-1", "my answer"))
	require.Len(t, pool.execSQL, 1)
	assert.Contains(t, pool.execSQL[0], "answered_at")
}

func TestQuestionRepo_SaveAnswer_NotFound(t *testing.T) {
	pool := &poolStub{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo := postgres.NewQuestionRepo(pool)

	err := repo.SaveAnswer(context.Background(), "missing", "my answer")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuestionRepo_ReplaceFeedback(t *testing.T) {
	pool := &poolStub{execTag: pgconn.NewCommandTag("INSERT 0 1")}
	repo := postgres.NewQuestionRepo(pool)

	fb := domain.Feedback{Score: 8, Strengths: []string{"Clear"}, Improvements: []string{"Depth"}, ImprovedAnswer: "Better."}
	require.NoError(t, repo.ReplaceFeedback(context.Background(), "q-1", fb))
	require.Len(t, pool.execSQL, 1)
	assert.Contains(t, pool.execSQL[0], "ON CONFLICT (question_id) DO UPDATE")
}

func TestQuestionRepo_GetFeedback_NotFound(t *testing.T) {
	pool := &poolStub{row: rowStub{scan: func(_ ...any) error { return pgx.ErrNoRows }}}
	repo := postgres.NewQuestionRepo(pool)

	_, err := repo.GetFeedback(context.Background(), "q-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuestionRepo_Progress(t *testing.T) {
	pool := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*dest[0].(*int) = 17
		*dest[1].(*int) = 85
		return nil
	}}}
	repo := postgres.NewQuestionRepo(pool)

	p, err := repo.Progress(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 17, p.Answered)
	assert.Equal(t, 85, p.Total)
	assert.Equal(t, 20, p.Percent)
}
