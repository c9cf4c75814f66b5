package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultChannelPrefix is prepended to the user id to form the pub/sub channel.
const DefaultChannelPrefix = "livereps:sessions"

// RedisSink publishes events as JSON on a per-user Redis channel so any
// connected UI process can follow the live session.
type RedisSink struct {
	client *redis.Client
	prefix string
}

func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisSink{client: client, prefix: prefix}
}

// Channel returns the channel events for userID are published on.
func (s *RedisSink) Channel(userID int) string {
	return fmt.Sprintf("%s:%d", s.prefix, userID)
}

func (s *RedisSink) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.client.Publish(ctx, s.Channel(ev.UserID), string(payload)).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.Type, err)
	}
	return nil
}
