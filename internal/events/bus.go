// Package events carries post-change notifications between the
// workflow and connected real-time clients over Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/feedpost/backend/internal/models"
)

// Channel is the pub/sub channel all post events travel on.
const Channel = "posts"

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// PostEvent is a post-change broadcast. Create and update carry the
// post with its creator embedded; delete carries only the post id.
type PostEvent struct {
	Action string       `json:"action"`
	Post   *models.Post `json:"post,omitempty"`
	PostID string       `json:"postId,omitempty"`
}

// Bus is an explicitly constructed publish/subscribe service. It must
// be built (and therefore connected) before any workflow that
// publishes is reachable.
type Bus struct {
	rdb *redis.Client
}

// NewBus connects and pings Redis with optional password auth.
func NewBus(ctx context.Context, addr, password string) (*Bus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return &Bus{rdb: rdb}, nil
}

func (b *Bus) Close() error { return b.rdb.Close() }

// Publish broadcasts an event to all current subscribers. Delivery is
// best-effort; missed events are not persisted.
func (b *Bus) Publish(ctx context.Context, ev PostEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal post event: %w", err)
	}
	if err := b.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish post event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of raw event payloads. It closes when
// the context is cancelled.
func (b *Bus) Subscribe(ctx context.Context) <-chan []byte {
	sub := b.rdb.Subscribe(ctx, Channel)
	out := make(chan []byte)

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
