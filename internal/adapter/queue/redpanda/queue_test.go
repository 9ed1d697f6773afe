package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/prepforge/prepai/internal/domain"
)

type handlerStub struct {
	payloads []domain.GenerateTaskPayload
	err      error
}

func (h *handlerStub) ProcessGenerate(_ domain.Context, payload domain.GenerateTaskPayload) error {
	h.payloads = append(h.payloads, payload)
	return h.err
}

type markerStub struct {
	marked []*kgo.Record
}

func (m *markerStub) MarkCommitRecords(rs ...*kgo.Record) {
	m.marked = append(m.marked, rs...)
}

func TestNewProducer_NoBrokers(t *testing.T) {
	t.Parallel()
	p, err := NewProducer(nil)
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "no seed brokers")
}

func TestNewConsumer_Validation(t *testing.T) {
	t.Parallel()

	c, err := NewConsumer(nil, "group", &handlerStub{}, 2)
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "no seed brokers")

	c, err = NewConsumerWithTopic([]string{"localhost:9092"}, "", "txn", &handlerStub{}, 2, "topic")
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "group ID")
}

func TestProcessRecord_DispatchesPayload(t *testing.T) {
	t.Parallel()

	h := &handlerStub{}
	c := &Consumer{handler: h, topic: TopicGenerate}

	payload := domain.GenerateTaskPayload{
		TaskID:    "task-1",
		SessionID: "sess-1",
		Kind:      "interview",
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)

	err = c.processRecord(context.Background(), &kgo.Record{Topic: TopicGenerate, Value: b})
	require.NoError(t, err)
	require.Len(t, h.payloads, 1)
	assert.Equal(t, payload, h.payloads[0])
}

func TestProcessRecord_InvalidJSON(t *testing.T) {
	t.Parallel()

	h := &handlerStub{}
	c := &Consumer{handler: h, topic: TopicGenerate}

	err := c.processRecord(context.Background(), &kgo.Record{Value: []byte("{not json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal payload")
	assert.Empty(t, h.payloads)
}

func TestProcessRecord_HandlerErrorPropagates(t *testing.T) {
	t.Parallel()

	want := errors.New("session lookup failed")
	h := &handlerStub{err: want}
	c := &Consumer{handler: h, topic: TopicGenerate}

	b, err := json.Marshal(domain.GenerateTaskPayload{TaskID: "task-2", SessionID: "sess-2", Kind: "coding"})
	require.NoError(t, err)

	err = c.processRecord(context.Background(), &kgo.Record{Value: b})
	require.ErrorIs(t, err, want)
	require.Len(t, h.payloads, 1)
}

func TestHandleRecord_MarksProcessedRecords(t *testing.T) {
	t.Parallel()

	m := &markerStub{}
	c := &Consumer{handler: &handlerStub{}, marks: m, topic: TopicGenerate}

	b, err := json.Marshal(domain.GenerateTaskPayload{TaskID: "task-1", SessionID: "sess-1", Kind: "interview"})
	require.NoError(t, err)

	rec := &kgo.Record{Topic: TopicGenerate, Value: b, Offset: 7}
	c.handleRecord(context.Background(), 0, rec)

	require.Len(t, m.marked, 1)
	assert.Same(t, rec, m.marked[0])
}

func TestHandleRecord_HandlerFailureLeftUnmarked(t *testing.T) {
	t.Parallel()

	m := &markerStub{}
	c := &Consumer{handler: &handlerStub{err: errors.New("db down")}, marks: m, topic: TopicGenerate}

	b, err := json.Marshal(domain.GenerateTaskPayload{TaskID: "task-2", SessionID: "sess-2", Kind: "coding"})
	require.NoError(t, err)

	c.handleRecord(context.Background(), 0, &kgo.Record{Topic: TopicGenerate, Value: b})

	assert.Empty(t, m.marked)
}

func TestHandleRecord_MarksMalformedRecords(t *testing.T) {
	t.Parallel()

	m := &markerStub{}
	h := &handlerStub{}
	c := &Consumer{handler: h, marks: m, topic: TopicGenerate}

	c.handleRecord(context.Background(), 0, &kgo.Record{Topic: TopicGenerate, Value: []byte("{not json")})

	require.Len(t, m.marked, 1)
	assert.Empty(t, h.payloads)
}
