package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const publishTimeout = 500 * time.Millisecond

// RedisPublisher forwards events to Redis pub/sub as JSON on "<prefix>:<event type>".
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisPublisher builds a publisher. An empty prefix defaults to "tickets".
func NewRedisPublisher(client redis.UniversalClient, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "tickets"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Register subscribes the publisher to every event type.
func (p *RedisPublisher) Register(d Dispatcher) {
	for _, t := range AllEventTypes {
		d.Subscribe(t, p.Handle)
	}
}

// Channel returns the channel an event type is published on.
func (p *RedisPublisher) Channel(t EventType) string {
	return p.prefix + ":" + string(t)
}

// Handle publishes a single event.
func (p *RedisPublisher) Handle(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.Channel(event.Type), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
