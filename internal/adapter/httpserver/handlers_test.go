package httpserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/prepai/internal/adapter/ai"
	"github.com/prepforge/prepai/internal/adapter/ai/prompt"
	"github.com/prepforge/prepai/internal/adapter/ai/stub"
	"github.com/prepforge/prepai/internal/adapter/httpserver"
	"github.com/prepforge/prepai/internal/config"
	"github.com/prepforge/prepai/internal/domain"
	"github.com/prepforge/prepai/internal/domain/mocks"
	"github.com/prepforge/prepai/internal/usecase"
)

type fixture struct {
	sessions  *mocks.MockSessionRepository
	questions *mocks.MockQuestionRepository
	queue     *mocks.MockQueue
	router    chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sr := &mocks.MockSessionRepository{}
	qr := &mocks.MockQuestionRepository{}
	q := &mocks.MockQueue{}

	gen := usecase.NewGenerateService(stub.New(), prompt.NewBuilder(prompt.NewKeywordClassifier()), ai.NewResponseParser(), 1, 0)
	svc := usecase.NewSessionService(sr, qr, q, gen)
	srv := httpserver.NewServer(config.Config{AppEnv: "test"}, svc, nil, nil, nil, nil)

	r := chi.NewRouter()
	r.Post("/v1/sessions", srv.CreateSessionHandler())
	r.Get("/v1/sessions/{id}", srv.GetSessionHandler())
	r.Get("/v1/sessions/{id}/questions", srv.ListInterviewHandler())
	r.Get("/v1/sessions/{id}/coding", srv.ListCodingHandler())
	r.Get("/v1/sessions/{id}/progress", srv.ProgressHandler())
	r.Post("/v1/questions/{id}/answer", srv.SubmitAnswerHandler())
	r.Get("/v1/questions/{id}/feedback", srv.FeedbackHandler())
	r.Post("/v1/questions/{id}/model-answer", srv.ModelAnswerHandler())

	return &fixture{sessions: sr, questions: qr, queue: q, router: r}
}

func doJSON(t *testing.T, router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateSession_Accepted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s domain.Session) bool {
		return s.JobTitle == "Backend Engineer" && s.Company == "Google" && s.Status == domain.SessionGenerating
	})).Return("sess-1", nil).Once()
	f.queue.On("EnqueueGenerate", mock.Anything, mock.MatchedBy(func(p domain.GenerateTaskPayload) bool {
		return p.Kind == domain.BatchInterview
	})).Return("task-1", nil).Once()
	f.queue.On("EnqueueGenerate", mock.Anything, mock.MatchedBy(func(p domain.GenerateTaskPayload) bool {
		return p.Kind == domain.BatchCoding
	})).Return("task-2", nil).Once()
	f.sessions.On("Get", mock.Anything, "sess-1").Return(domain.Session{
		ID:       "sess-1",
		JobTitle: "Backend Engineer",
		Company:  "Google",
		Status:   domain.SessionGenerating,
	}, nil).Once()

	rec := doJSON(t, f.router, http.MethodPost, "/v1/sessions",
		`{"job_title":"Backend Engineer","company":"Google"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"sess-1"`)
	assert.Contains(t, rec.Body.String(), `"status":"generating"`)
	f.sessions.AssertExpectations(t)
	f.queue.AssertExpectations(t)
}

func TestCreateSession_ValidationFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodPost, "/v1/sessions", `{"company":"Google"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
	assert.Contains(t, rec.Body.String(), "jobtitle")
}

func TestCreateSession_InvalidJSON(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodPost, "/v1/sessions", `{not json`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid json")
}

func TestCreateSession_NotAcceptable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{}`))
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestGetSession_OK(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.sessions.On("Get", mock.Anything, "sess-1").Return(domain.Session{
		ID:     "sess-1",
		Status: domain.SessionReady,
	}, nil).Once()
	f.questions.On("Progress", mock.Anything, "sess-1").Return(domain.Progress{Answered: 5, Total: 85, Percent: 5}, nil).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/v1/sessions/sess-1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session"`)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
	assert.Contains(t, rec.Body.String(), `"answered":5`)
}

func TestGetSession_NotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.sessions.On("Get", mock.Anything, "missing").Return(domain.Session{}, domain.ErrNotFound).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/v1/sessions/missing", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestGetSession_InvalidID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodGet, "/v1/sessions/bad%20id", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInterview_FiltersPassedThrough(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.questions.On("ListInterview", mock.Anything, "sess-1", domain.QuestionFilter{
		Type:       domain.QuestionTechnical,
		Difficulty: domain.DifficultyEasy,
		Category:   "DSA",
	}).Return([]domain.InterviewQuestion{
		{ID: "q1", Question: "Explain binary search.", Type: domain.QuestionTechnical, Difficulty: domain.DifficultyEasy, Category: "DSA"},
	}, nil).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/v1/sessions/sess-1/questions?type=technical&difficulty=Easy&category=DSA", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.Contains(t, rec.Body.String(), "binary search")
	f.questions.AssertExpectations(t)
}

func TestListInterview_InvalidDifficulty(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodGet, "/v1/sessions/sess-1/questions?difficulty=impossible", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "difficulty")
}

func TestListCoding_OK(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.questions.On("ListCoding", mock.Anything, "sess-1").Return([]domain.CodingQuestion{
		{ID: "c1", Title: "Two Sum", Difficulty: domain.DifficultyEasy, Category: "Arrays"},
	}, nil).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/v1/sessions/sess-1/coding", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Two Sum")
}

func TestProgress_OK(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.questions.On("Progress", mock.Anything, "sess-1").Return(domain.Progress{Answered: 17, Total: 85, Percent: 20}, nil).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/v1/sessions/sess-1/progress", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"answered":17`)
	assert.Contains(t, rec.Body.String(), `"percent":20`)
}

func TestSubmitAnswer_ReturnsFeedback(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	q := domain.InterviewQuestion{
		ID:         "q1",
		SessionID:  "sess-1",
		Question:   "Explain binary search.",
		Type:       domain.QuestionTechnical,
		Difficulty: domain.DifficultyEasy,
		Category:   "DSA",
	}
	f.questions.On("GetInterview", mock.Anything, "q1").Return(q, nil).Once()
	f.sessions.On("Get", mock.Anything, "sess-1").Return(domain.Session{
		ID: "sess-1", JobTitle: "Backend Engineer", Company: "Google",
		CompanyType: domain.ArchetypeProduct, Status: domain.SessionReady,
	}, nil).Once()
	f.questions.On("SaveAnswer", mock.Anything, "q1", "It halves the search space each step.").Return(nil).Once()
	f.questions.On("ReplaceFeedback", mock.Anything, "q1", mock.MatchedBy(func(fb domain.Feedback) bool {
		return fb.Score == 7
	})).Return(nil).Once()

	rec := doJSON(t, f.router, http.MethodPost, "/v1/questions/q1/answer",
		`{"answer":"It halves the search space each step."}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"score":7`)
	f.questions.AssertExpectations(t)
}

func TestSubmitAnswer_MissingAnswer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodPost, "/v1/questions/q1/answer", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "answer")
}

func TestFeedback_NotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.questions.On("GetFeedback", mock.Anything, "q1").Return(domain.Feedback{}, domain.ErrNotFound).Once()

	rec := doJSON(t, f.router, http.MethodGet, "/v1/questions/q1/feedback", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelAnswer_CachedCopy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.questions.On("GetInterview", mock.Anything, "q1").Return(domain.InterviewQuestion{
		ID: "q1", SessionID: "sess-1", Question: "Explain binary search.",
		Type: domain.QuestionTechnical, ModelAnswer: "Halve the space each step.",
	}, nil).Once()

	rec := doJSON(t, f.router, http.MethodPost, "/v1/questions/q1/model-answer", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Halve the space each step.")
	f.questions.AssertExpectations(t)
}

type denyLimiter struct{ retryAfter time.Duration }

func (d denyLimiter) Allow(_ context.Context, _, _ string, _ int64) (bool, time.Duration, error) {
	return false, d.retryAfter, nil
}

func TestCreateSession_RateLimited(t *testing.T) {
	t.Parallel()

	sr := &mocks.MockSessionRepository{}
	qr := &mocks.MockQuestionRepository{}
	q := &mocks.MockQueue{}
	gen := usecase.NewGenerateService(stub.New(), prompt.NewBuilder(prompt.NewKeywordClassifier()), ai.NewResponseParser(), 1, 0)
	svc := usecase.NewSessionService(sr, qr, q, gen)
	srv := httpserver.NewServer(config.Config{AppEnv: "test"}, svc, denyLimiter{retryAfter: 30 * time.Second}, nil, nil, nil)

	r := chi.NewRouter()
	r.Post("/v1/sessions", srv.CreateSessionHandler())

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions", `{"job_title":"SRE","company":"Acme"}`)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
	sr.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	bad := func(context.Context) error { return errors.New("connection refused") }

	srv := httpserver.NewServer(config.Config{AppEnv: "test"}, usecase.SessionService{}, nil, ok, ok, ok)
	rec := httptest.NewRecorder()
	srv.ReadyzHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	srv = httpserver.NewServer(config.Config{AppEnv: "test"}, usecase.SessionService{}, nil, bad, ok, ok)
	rec = httptest.NewRecorder()
	srv.ReadyzHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
