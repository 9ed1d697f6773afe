package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
	// ErrTransport marks failures to obtain any usable completion from the
	// AI provider after the transport's own retries are exhausted.
	ErrTransport = errors.New("ai transport failure")
	// ErrParse marks model output that could not be coerced into the
	// expected shape by any recovery tier.
	ErrParse    = errors.New("ai response unparseable")
	ErrInternal = errors.New("internal error")
)

// Message roles for AI conversations.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single role-tagged entry in a Conversation.
type Message struct {
	Role    string
	Content string
}

// Conversation is an ordered, non-empty message sequence; the first
// message is conventionally the system message.
type Conversation []Message

// Question type and difficulty enumerations.
const (
	QuestionTechnical  = "technical"
	QuestionBehavioral = "behavioral"

	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// Company archetypes used to steer prompt content.
const (
	ArchetypeProduct = "Product-based"
	ArchetypeService = "Service-based"
	ArchetypeStartup = "Startup"
)

// InterviewQuestion is one generated interview question. Batches are
// requested as 85 items (60 technical, 25 behavioral) but callers must
// tolerate fewer after recovery.
type InterviewQuestion struct {
	ID          string     `json:"id,omitempty"`
	SessionID   string     `json:"session_id,omitempty"`
	Question    string     `json:"question"`
	Type        string     `json:"type"`
	Difficulty  string     `json:"difficulty"`
	Category    string     `json:"category"`
	Answer      string     `json:"answer,omitempty"`
	ModelAnswer string     `json:"model_answer,omitempty"`
	AnsweredAt  *time.Time `json:"answered_at,omitempty"`
}

// CodingQuestion is one generated coding/DSA problem, requested in
// batches of 30.
type CodingQuestion struct {
	ID          string   `json:"id,omitempty"`
	SessionID   string   `json:"session_id,omitempty"`
	Title       string   `json:"title"`
	Difficulty  string   `json:"difficulty"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Platform    string   `json:"platform"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
}

// Feedback is the analysis of one (question, answer) pair. A new
// submission replaces the prior Feedback; no history is retained.
type Feedback struct {
	Score          int      `json:"score"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	ImprovedAnswer string   `json:"improvedAnswer"`
}

// SessionStatus tracks batch generation progress for a prep session.
type SessionStatus string

const (
	SessionGenerating SessionStatus = "generating"
	SessionReady      SessionStatus = "ready"
	SessionFailed     SessionStatus = "failed"
)

// Session is one interview-preparation session: the job details a user
// submitted plus the generation state of its question batches.
type Session struct {
	ID           string        `json:"id"`
	JobTitle     string        `json:"job_title"`
	Company      string        `json:"company"`
	Description  string        `json:"description"`
	Requirements string        `json:"requirements"`
	Resume       string        `json:"resume"`
	CompanyType  string        `json:"company_type"`
	Status       SessionStatus `json:"status"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Progress is the answered/total aggregate for a session.
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
	Percent  int `json:"percent"`
}

// Generation batch kinds carried on queue payloads.
const (
	BatchInterview = "interview"
	BatchCoding    = "coding"
)

// GenerateTaskPayload is the queue message for one batch generation job.
type GenerateTaskPayload struct {
	TaskID    string `json:"task_id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
}

// Repositories (ports)

type SessionRepository interface {
	Create(ctx Context, s Session) (string, error)
	Get(ctx Context, id string) (Session, error)
	UpdateStatus(ctx Context, id string, status SessionStatus, errMsg string) error
}

type QuestionRepository interface {
	InsertInterviewBatch(ctx Context, sessionID string, qs []InterviewQuestion) error
	InsertCodingBatch(ctx Context, sessionID string, qs []CodingQuestion) error
	ListInterview(ctx Context, sessionID string, f QuestionFilter) ([]InterviewQuestion, error)
	ListCoding(ctx Context, sessionID string) ([]CodingQuestion, error)
	GetInterview(ctx Context, id string) (InterviewQuestion, error)
	SaveAnswer(ctx Context, questionID, answer string) error
	SaveModelAnswer(ctx Context, questionID, modelAnswer string) error
	// ReplaceFeedback overwrites any prior feedback for the question.
	ReplaceFeedback(ctx Context, questionID string, fb Feedback) error
	GetFeedback(ctx Context, questionID string) (Feedback, error)
	Progress(ctx Context, sessionID string) (Progress, error)
}

// QuestionFilter narrows interview-question listings.
type QuestionFilter struct {
	Type       string
	Difficulty string
	Category   string
}

// Queue (port)

type Queue interface {
	EnqueueGenerate(ctx Context, payload GenerateTaskPayload) (string, error)
}

// AIClient (port). Chat returns the raw completion text for a
// conversation; implementations own credential rotation, retries and
// truncation detection.
type AIClient interface {
	Chat(ctx Context, conv Conversation) (string, error)
}

// Context aliases std context; adapters and usecases pass it through.
type Context = context.Context
