package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"AgentHub/backend/go/internal/models"

	"github.com/go-redis/redis/v8"
)

// RedisClient is the subset of *redis.Client used by RedisPublisher.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes task events on a per-task pub/sub channel
// named <prefix><taskID>.
type RedisPublisher struct {
	client RedisClient
	prefix string
}

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(client RedisClient, channelPrefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: channelPrefix}
}

// Channel returns the pub/sub channel for a task.
func (p *RedisPublisher) Channel(taskID string) string {
	return p.prefix + taskID
}

// Publish sends event on the task's channel.
func (p *RedisPublisher) Publish(ctx context.Context, event *models.TaskEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal task event: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(event.TaskID), payload).Err(); err != nil {
		return fmt.Errorf("publish to redis channel %s: %w", p.Channel(event.TaskID), err)
	}
	return nil
}

// Close closes the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
