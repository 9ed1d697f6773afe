// Package redpanda provides Redpanda/Kafka queue integration for
// question-batch generation tasks. Publishing is transactional so a
// session never gets a half-enqueued pair of batch tasks.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/prepforge/prepai/internal/domain"
)

const (
	// TopicGenerate is the Kafka topic for batch generation tasks.
	TopicGenerate = "generate-tasks"
)

// Producer wraps a transactional Kafka producer and implements
// domain.Queue.
type Producer struct {
	client *kgo.Client
	// serializes transactions across concurrent enqueues
	transactionChan chan struct{}
}

// NewProducer constructs a Producer with exactly-once semantics.
func NewProducer(brokers []string) (*Producer, error) {
	return NewProducerWithTransactionalID(brokers, "prepai-producer")
}

// NewProducerWithTransactionalID constructs a Producer with a custom
// transactional ID, useful for test isolation.
func NewProducerWithTransactionalID(brokers []string, transactionalID string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, TopicGenerate, 1, 1); err != nil {
		// topic may already exist; the produce path will surface real failures
		slog.Warn("failed to create topic", slog.String("topic", TopicGenerate), slog.Any("error", err))
	}

	slog.Info("redpanda producer created", slog.Any("brokers", brokers), slog.String("transactional_id", transactionalID))
	return &Producer{
		client:          client,
		transactionChan: make(chan struct{}, 1),
	}, nil
}

// EnqueueGenerate enqueues a batch generation task with exactly-once
// semantics.
func (p *Producer) EnqueueGenerate(ctx domain.Context, payload domain.GenerateTaskPayload) (string, error) {
	return p.EnqueueGenerateToTopic(ctx, payload, TopicGenerate)
}

// EnqueueGenerateToTopic enqueues to a specific topic so tests can use
// unique topics for isolation.
func (p *Producer) EnqueueGenerateToTopic(ctx domain.Context, payload domain.GenerateTaskPayload, topic string) (string, error) {
	select {
	case p.transactionChan <- struct{}{}:
		defer func() { <-p.transactionChan }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := p.client.BeginTransaction(); err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		// session ID as key keeps a session's tasks ordered
		Key:   []byte(payload.SessionID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "task_id", Value: []byte(payload.TaskID)},
			{Key: "session_id", Value: []byte(payload.SessionID)},
			{Key: "kind", Value: []byte(payload.Kind)},
		},
	}

	e := kgo.AbortingFirstErrPromise(p.client)
	p.client.Produce(ctx, record, e.Promise())
	if err := e.Err(); err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("produce: %w", err)
	}

	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("generation task enqueued",
		slog.String("topic", topic),
		slog.String("task_id", payload.TaskID),
		slog.String("session_id", payload.SessionID),
		slog.String("kind", payload.Kind))
	return payload.TaskID, nil
}

// Close closes the producer.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
