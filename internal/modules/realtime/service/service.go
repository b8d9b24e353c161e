package service

import (
	"context"
	"encoding/json"
	"fmt"

	"anoa.com/isfportal/internal/entity"
	"github.com/redis/go-redis/v9"
)

// Publisher fans table changes out to realtime subscribers.
type Publisher interface {
	Publish(ctx context.Context, change entity.ChangeEvent) error
}

// Broker is the subscribe side used by the websocket handler.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, table string) (*redis.PubSub, error)
}

type redisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) Broker {
	return &redisBroker{rdb: rdb}
}

func (b *redisBroker) Publish(ctx context.Context, change entity.ChangeEvent) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	return b.rdb.Publish(ctx, entity.ChangeChannel(change.Table), payload).Err()
}

func (b *redisBroker) Subscribe(ctx context.Context, table string) (*redis.PubSub, error) {
	pubsub := b.rdb.Subscribe(ctx, entity.ChangeChannel(table))

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", table, err)
	}
	return pubsub, nil
}
