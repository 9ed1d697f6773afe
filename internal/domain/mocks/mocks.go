// Package mocks provides testify mocks for the domain ports.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/prepforge/prepai/internal/domain"
)

// MockSessionRepository mocks domain.SessionRepository.
type MockSessionRepository struct{ mock.Mock }

func (m *MockSessionRepository) Create(ctx domain.Context, s domain.Session) (string, error) {
	args := m.Called(ctx, s)
	return args.String(0), args.Error(1)
}

func (m *MockSessionRepository) Get(ctx domain.Context, id string) (domain.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *MockSessionRepository) UpdateStatus(ctx domain.Context, id string, status domain.SessionStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

// MockQuestionRepository mocks domain.QuestionRepository.
type MockQuestionRepository struct{ mock.Mock }

func (m *MockQuestionRepository) InsertInterviewBatch(ctx domain.Context, sessionID string, qs []domain.InterviewQuestion) error {
	args := m.Called(ctx, sessionID, qs)
	return args.Error(0)
}

func (m *MockQuestionRepository) InsertCodingBatch(ctx domain.Context, sessionID string, qs []domain.CodingQuestion) error {
	args := m.Called(ctx, sessionID, qs)
	return args.Error(0)
}

func (m *MockQuestionRepository) ListInterview(ctx domain.Context, sessionID string, f domain.QuestionFilter) ([]domain.InterviewQuestion, error) {
	args := m.Called(ctx, sessionID, f)
	if v := args.Get(0); v != nil {
		return v.([]domain.InterviewQuestion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestionRepository) ListCoding(ctx domain.Context, sessionID string) ([]domain.CodingQuestion, error) {
	args := m.Called(ctx, sessionID)
	if v := args.Get(0); v != nil {
		return v.([]domain.CodingQuestion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestionRepository) GetInterview(ctx domain.Context, id string) (domain.InterviewQuestion, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.InterviewQuestion), args.Error(1)
}

func (m *MockQuestionRepository) SaveAnswer(ctx domain.Context, questionID, answer string) error {
	args := m.Called(ctx, questionID, answer)
	return args.Error(0)
}

func (m *MockQuestionRepository) SaveModelAnswer(ctx domain.Context, questionID, modelAnswer string) error {
	args := m.Called(ctx, questionID, modelAnswer)
	return args.Error(0)
}

func (m *MockQuestionRepository) ReplaceFeedback(ctx domain.Context, questionID string, fb domain.Feedback) error {
	args := m.Called(ctx, questionID, fb)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetFeedback(ctx domain.Context, questionID string) (domain.Feedback, error) {
	args := m.Called(ctx, questionID)
	return args.Get(0).(domain.Feedback), args.Error(1)
}

func (m *MockQuestionRepository) Progress(ctx domain.Context, sessionID string) (domain.Progress, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.Progress), args.Error(1)
}

// MockQueue mocks domain.Queue.
type MockQueue struct{ mock.Mock }

func (m *MockQueue) EnqueueGenerate(ctx domain.Context, payload domain.GenerateTaskPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

// MockAIClient mocks domain.AIClient.
type MockAIClient struct{ mock.Mock }

func (m *MockAIClient) Chat(ctx domain.Context, conv domain.Conversation) (string, error) {
	args := m.Called(ctx, conv)
	return args.String(0), args.Error(1)
}
