package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/prepforge/prepai/internal/domain"
)

// GenerateHandler processes a single batch generation task.
type GenerateHandler interface {
	ProcessGenerate(ctx domain.Context, payload domain.GenerateTaskPayload) error
}

// recordMarker marks records as processed so the autocommitter can
// advance the group's offsets past them.
type recordMarker interface {
	MarkCommitRecords(rs ...*kgo.Record)
}

// errBadRecord tags records whose payload cannot be decoded. They are
// marked as processed so a poison message cannot pin the group offset.
var errBadRecord = errors.New("malformed task record")

// Consumer wraps a Kafka consumer with exactly-once processing semantics
// and a fixed-size worker pool.
type Consumer struct {
	session *kgo.GroupTransactSession
	handler GenerateHandler
	marks   recordMarker

	groupID     string
	topic       string
	concurrency int
	records     chan *kgo.Record
	shutdown    chan struct{}
}

// NewConsumer constructs a Consumer with exactly-once semantics.
func NewConsumer(brokers []string, groupID string, handler GenerateHandler, concurrency int) (*Consumer, error) {
	return NewConsumerWithTopic(brokers, groupID, "prepai-consumer", handler, concurrency, TopicGenerate)
}

// NewConsumerWithTopic constructs a Consumer reading from a specific
// topic, useful for test isolation.
func NewConsumerWithTopic(brokers []string, groupID, transactionalID string, handler GenerateHandler, concurrency int, topic string) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx := context.Background()
	tempClient, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("temp client: %w", err)
	}
	defer tempClient.Close()
	if err := createTopicIfNotExists(ctx, tempClient, topic, 1, 1); err != nil {
		slog.Warn("failed to create topic", slog.String("topic", topic), slog.Any("error", err))
	}

	kotelTracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	kotelService := kotel.NewKotel(kotel.WithTracer(kotelTracer))

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.RequireStableFetchOffsets(),
		kgo.WithHooks(kotelService.Hooks()...),

		kgo.DialTimeout(10 * time.Second),
		kgo.SessionTimeout(30 * time.Second),
		kgo.HeartbeatInterval(3 * time.Second),
		kgo.RebalanceTimeout(10 * time.Second),
		kgo.FetchMaxWait(5 * time.Second),

		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(1 * time.Second),
	}
	session, err := kgo.NewGroupTransactSession(opts...)
	if err != nil {
		return nil, fmt.Errorf("redpanda transactional session: %w", err)
	}

	slog.Info("redpanda consumer created",
		slog.Any("brokers", brokers),
		slog.String("group_id", groupID),
		slog.String("topic", topic),
		slog.Int("concurrency", concurrency))
	return &Consumer{
		session:     session,
		handler:     handler,
		marks:       session.Client(),
		groupID:     groupID,
		topic:       topic,
		concurrency: concurrency,
		records:     make(chan *kgo.Record, concurrency*2),
		shutdown:    make(chan struct{}),
	}, nil
}

// Start begins consuming generation tasks. It blocks until ctx is
// cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("starting redpanda consumer",
		slog.String("group_id", c.groupID),
		slog.String("topic", c.topic),
		slog.Int("workers", c.concurrency))

	for i := 0; i < c.concurrency; i++ {
		go c.worker(ctx, i)
	}
	go c.fetchLoop(ctx)

	<-ctx.Done()
	slog.Info("redpanda consumer shutting down")
	close(c.shutdown)
	return ctx.Err()
}

func (c *Consumer) fetchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		default:
		}

		fetches := c.session.PollFetches(ctx)
		if errs := fetches.Errors(); len(errs) > 0 {
			fatal := false
			for _, ferr := range errs {
				slog.Error("fetch error",
					slog.String("topic", ferr.Topic),
					slog.Int("partition", int(ferr.Partition)),
					slog.Any("error", ferr.Err))
				if ferr.Err != nil && ferr.Err.Error() == "context canceled" {
					fatal = true
				}
			}
			if fatal {
				return
			}
			time.Sleep(2 * time.Second)
			continue
		}

		fetches.EachRecord(func(record *kgo.Record) {
			select {
			case c.records <- record:
			case <-ctx.Done():
			}
		})
	}
}

func (c *Consumer) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case record := <-c.records:
			if record == nil {
				return
			}
			c.handleRecord(ctx, id, record)
		}
	}
}

// handleRecord processes one record and, when the outcome is final,
// marks it so the group offset can advance. Handler failures stay
// unmarked and are redelivered after a restart.
func (c *Consumer) handleRecord(ctx context.Context, workerID int, record *kgo.Record) {
	err := c.processRecord(ctx, record)
	if err != nil {
		slog.Error("failed to process record",
			slog.Int("worker_id", workerID),
			slog.Int64("offset", record.Offset),
			slog.Int("partition", int(record.Partition)),
			slog.Any("error", err))
	}
	if err == nil || errors.Is(err, errBadRecord) {
		c.markProcessed(record)
	}
}

func (c *Consumer) markProcessed(record *kgo.Record) {
	if c.marks == nil {
		return
	}
	c.marks.MarkCommitRecords(record)
}

// processRecord unmarshals a generation task and hands it to the
// handler.
func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) error {
	tracer := otel.Tracer("queue.consumer")
	ctx, span := tracer.Start(ctx, "ProcessGenerateTask")
	defer span.End()

	var payload domain.GenerateTaskPayload
	if err := json.Unmarshal(record.Value, &payload); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %v", errBadRecord, err)
	}

	lg := slog.With(
		slog.String("task_id", payload.TaskID),
		slog.String("session_id", payload.SessionID),
		slog.String("kind", payload.Kind))
	lg.Info("processing generation task", slog.Int64("offset", record.Offset))

	if err := c.handler.ProcessGenerate(ctx, payload); err != nil {
		lg.Error("generation task failed", slog.Any("error", err))
		return err
	}
	lg.Info("generation task completed")
	return nil
}

// Close closes the consumer session and channels.
func (c *Consumer) Close() error {
	if c.session != nil {
		c.session.Close()
	}
	select {
	case <-c.shutdown:
	default:
		close(c.shutdown)
	}
	return nil
}
