package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/prepforge/prepai/internal/config"
	"github.com/prepforge/prepai/internal/domain"
	"github.com/prepforge/prepai/internal/service/ratelimiter"
	"github.com/prepforge/prepai/internal/usecase"
)

// Rate limiter buckets for generation-triggering endpoints.
const (
	BucketCreateSession = "create-session"
	BucketAnalyze       = "analyze"
	BucketModelAnswer   = "model-answer"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Sessions   usecase.SessionService
	Limiter    ratelimiter.Limiter
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	KafkaCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, sessions usecase.SessionService, limiter ratelimiter.Limiter, dbCheck, redisCheck, kafkaCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Sessions: sessions, Limiter: limiter, DBCheck: dbCheck, RedisCheck: redisCheck, KafkaCheck: kafkaCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// acceptsJSON enforces JSON-only content negotiation. It writes the 406
// itself and reports whether the handler may continue.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || a == "*/*" || strings.Contains(a, "application/json") {
		return true
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
		Code:    "INVALID_ARGUMENT",
		Message: "not acceptable",
		Details: map[string]any{"accept": a},
	}})
	return false
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// allow consults the generation rate limiter for the given bucket. It
// writes the 429 itself and reports whether the handler may continue.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, bucket string) bool {
	if s.Limiter == nil {
		return true
	}
	allowed, retryAfter, err := s.Limiter.Allow(r.Context(), bucket, clientIP(r), 1)
	if err != nil || allowed {
		// limiter errors fail open
		return true
	}
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, r, fmt.Errorf("%w: try again in %ds", domain.ErrRateLimited, secs), map[string]any{"retry_after_seconds": secs})
	return false
}

func validationDetails(err error) map[string]string {
	verrs := map[string]string{}
	if ve, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ve {
			verrs[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return verrs
}

// CreateSessionHandler starts a prep session and enqueues both
// generation batches.
func (s *Server) CreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		if !s.allow(w, r, BucketCreateSession) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req struct {
			JobTitle     string `json:"job_title" validate:"required,max=200"`
			Company      string `json:"company" validate:"required,max=200"`
			Description  string `json:"description" validate:"max=10000"`
			Requirements string `json:"requirements" validate:"max=10000"`
			Resume       string `json:"resume" validate:"max=20000"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}

		sess, err := s.Sessions.Create(r.Context(), usecase.CreateSessionInput{
			JobTitle:     SanitizeString(req.JobTitle, 200),
			Company:      SanitizeString(req.Company, 200),
			Description:  SanitizeString(req.Description, 10000),
			Requirements: SanitizeString(req.Requirements, 10000),
			Resume:       SanitizeString(req.Resume, 20000),
		})
		if err != nil {
			writeError(w, r, fmt.Errorf("create session: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusAccepted, sess)
	}
}

// GetSessionHandler returns session status and metadata.
func (s *Server) GetSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if vr := ValidateID("id", id); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid session id", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		sess, err := s.Sessions.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		prog, err := s.Sessions.Progress(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session":  sess,
			"progress": prog,
		})
	}
}

// ListInterviewHandler returns a session's interview questions with
// optional type, difficulty, and category filters.
func (s *Server) ListInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if vr := ValidateID("id", id); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid session id", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		f := domain.QuestionFilter{
			Type:       r.URL.Query().Get("type"),
			Difficulty: r.URL.Query().Get("difficulty"),
			Category:   r.URL.Query().Get("category"),
		}
		if vr := ValidateQuestionFilter(f); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid filter", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		qs, err := s.Sessions.ListInterview(r.Context(), id, f)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": qs, "count": len(qs)})
	}
}

// ListCodingHandler returns a session's coding questions.
func (s *Server) ListCodingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if vr := ValidateID("id", id); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid session id", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		qs, err := s.Sessions.ListCoding(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": qs, "count": len(qs)})
	}
}

// ProgressHandler returns the answered/total aggregate for a session.
func (s *Server) ProgressHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if vr := ValidateID("id", id); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid session id", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		p, err := s.Sessions.Progress(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// SubmitAnswerHandler stores the user's answer and returns fresh
// feedback. Resubmitting replaces earlier feedback.
func (s *Server) SubmitAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		if !s.allow(w, r, BucketAnalyze) {
			return
		}
		id := chi.URLParam(r, "id")
		if vr := ValidateID("id", id); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid question id", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req struct {
			Answer string `json:"answer" validate:"required,max=20000"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		fb, err := s.Sessions.SubmitAnswer(r.Context(), id, SanitizeString(req.Answer, 20000))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, fb)
	}
}

// FeedbackHandler returns the stored feedback for a question.
func (s *Server) FeedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if vr := ValidateID("id", id); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid question id", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		fb, err := s.Sessions.Feedback(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, fb)
	}
}

// ModelAnswerHandler generates the ideal answer for a question, caching
// it for subsequent calls.
func (s *Server) ModelAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		if !s.allow(w, r, BucketModelAnswer) {
			return
		}
		id := chi.URLParam(r, "id")
		if vr := ValidateID("id", id); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid question id", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		answer, err := s.Sessions.ModelAnswer(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"question_id": id, "model_answer": answer})
	}
}

// ReadyzHandler returns a readiness handler that probes Postgres, Redis,
// and Kafka.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 3)
		if s.DBCheck != nil {
			if err := s.DBCheck(ctx); err != nil {
				checks = append(checks, check{Name: "db", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "db", OK: true})
			}
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}
		if s.KafkaCheck != nil {
			if err := s.KafkaCheck(ctx); err != nil {
				checks = append(checks, check{Name: "kafka", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "kafka", OK: true})
			}
		}
		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
