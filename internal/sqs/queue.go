// Package sqs provides the optional durable dispatch queue. When a
// queue URL is configured, notify events survive process restarts at
// the cost of an extra network hop; the default in-process pool accepts
// the restart loss window instead.
package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/veloship/leadrelay/internal/notify"
)

// Config holds SQS configuration.
type Config struct {
	Region   string
	QueueURL string
}

// envelope is the payload carried on the queue for one notify event.
type envelope struct {
	FormType     string            `json:"form_type"`
	SubmissionID string            `json:"submission_id,omitempty"`
	Payload      map[string]string `json:"payload"`
	EnqueuedAt   int64             `json:"enqueued_at"`
}

// Queue sends notify events to SQS. It implements notify.Queue.
type Queue struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
}

// NewQueue creates an SQS-backed dispatch queue.
func NewQueue(ctx context.Context, cfg Config, logger *zap.Logger) (*Queue, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("sqs dispatch queue initialized",
		zap.String("queue_url", cfg.QueueURL),
	)

	return &Queue{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: cfg.QueueURL,
		logger:   logger,
	}, nil
}

// Enqueue submits one notify event for asynchronous dispatch.
func (q *Queue) Enqueue(ctx context.Context, event notify.SubmissionEvent) error {
	body, err := json.Marshal(envelope{
		FormType:     event.FormType,
		SubmissionID: event.SubmissionID,
		Payload:      event.Payload,
		EnqueuedAt:   time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		q.logger.Error("failed to send event to sqs",
			zap.Error(err),
			zap.String("submission_id", event.SubmissionID),
		)
		return fmt.Errorf("sqs send failed: %w", err)
	}

	q.logger.Debug("event enqueued to sqs",
		zap.String("submission_id", event.SubmissionID),
		zap.String("sqs_message_id", *result.MessageId),
	)

	return nil
}

// Consumer reads notify events from SQS and feeds them through the
// shared dispatcher. SQS is at-least-once; the dispatch dedup guard
// collapses redeliveries to a single attempt per event.
type Consumer struct {
	client     *sqs.Client
	queueURL   string
	dispatcher *notify.Dispatcher
	guard      notify.DispatchGuard
	logger     *zap.Logger
}

// NewConsumer creates an SQS consumer bound to the shared dispatcher.
func NewConsumer(ctx context.Context, cfg Config, dispatcher *notify.Dispatcher, guard notify.DispatchGuard, logger *zap.Logger) (*Consumer, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("sqs consumer initialized",
		zap.String("queue_url", cfg.QueueURL),
	)

	return &Consumer{
		client:     sqs.NewFromConfig(awsCfg),
		queueURL:   cfg.QueueURL,
		dispatcher: dispatcher,
		guard:      guard,
		logger:     logger,
	}, nil
}

// Run polls the queue until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("sqs consumer stopping")
			return
		default:
		}

		if err := c.pollOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("sqs poll failed", zap.Error(err))
			time.Sleep(5 * time.Second)
		}
	}
}

func (c *Consumer) pollOnce(ctx context.Context) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   60,
	})
	if err != nil {
		return fmt.Errorf("sqs receive failed: %w", err)
	}

	for _, raw := range result.Messages {
		var env envelope
		if err := json.Unmarshal([]byte(*raw.Body), &env); err != nil {
			// A malformed body will never parse on redelivery either;
			// drop it so it does not poison the queue.
			c.logger.Error("invalid sqs message body, deleting", zap.Error(err))
			c.delete(ctx, *raw.ReceiptHandle)
			continue
		}

		event := notify.SubmissionEvent{
			FormType:     env.FormType,
			SubmissionID: env.SubmissionID,
			Payload:      env.Payload,
		}

		// Leave the message visible for redelivery only when dispatch
		// escalated before any recipient work (settings store or render
		// failure); per-recipient outcomes are already recorded.
		if err := notify.ProcessEvent(ctx, c.dispatcher, c.guard, event, c.logger); err != nil {
			continue
		}

		c.delete(ctx, *raw.ReceiptHandle)
	}

	return nil
}

func (c *Consumer) delete(ctx context.Context, receiptHandle string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		c.logger.Warn("sqs delete failed", zap.Error(err))
	}
}
