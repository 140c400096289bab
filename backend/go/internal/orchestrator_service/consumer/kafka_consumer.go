package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const fetchRetryDelay = time.Second

// MessageReader is the subset of *kafka.Reader used by TaskIntakeConsumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Submitter accepts a task description for processing.
type Submitter interface {
	Submit(ctx context.Context, description string) (*models.Task, error)
}

// IntakeMessage is the payload expected on the intake topic.
type IntakeMessage struct {
	Description string `json:"description"`
}

// TaskIntakeConsumer turns Kafka messages into task submissions.
type TaskIntakeConsumer struct {
	reader    MessageReader
	submitter Submitter
	logger    *logger.Logger
	done      chan struct{}
}

// NewTaskIntakeConsumer creates a new TaskIntakeConsumer.
func NewTaskIntakeConsumer(reader MessageReader, submitter Submitter, logger *logger.Logger) *TaskIntakeConsumer {
	return &TaskIntakeConsumer{
		reader:    reader,
		submitter: submitter,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start begins consuming messages until ctx is cancelled.
func (c *TaskIntakeConsumer) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					c.logger.Info("Stopping Kafka intake consumer...")
					return
				}
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error fetching message from Kafka")
				select {
				case <-ctx.Done():
				case <-time.After(fetchRetryDelay):
				}
				continue
			}

			if err := c.Handle(ctx, msg); err != nil {
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Error("Error handling Kafka message")
			}

			// Malformed messages are committed too; redelivering them cannot succeed.
			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to commit Kafka message")
			}
		}
	}()
}

// Handle submits the task carried by msg.
func (c *TaskIntakeConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	var in IntakeMessage
	if err := json.Unmarshal(msg.Value, &in); err != nil {
		return fmt.Errorf("decode intake message: %w", err)
	}
	task, err := c.submitter.Submit(ctx, in.Description)
	if err != nil {
		return fmt.Errorf("submit task: %w", err)
	}
	c.logger.WithTask(task.ID).WithPayload(map[string]interface{}{"offset": msg.Offset}).Info("Task submitted from Kafka")
	return nil
}

// Done is closed once the consume loop has exited.
func (c *TaskIntakeConsumer) Done() <-chan struct{} {
	return c.done
}

// Close closes the underlying Kafka reader.
func (c *TaskIntakeConsumer) Close() error {
	return c.reader.Close()
}
