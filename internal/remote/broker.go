package remote

import (
	"context"

	"github.com/thejonthinator/frysen/pkg/redis"
)

// Stream is an open broker subscription.
type Stream interface {
	Messages() <-chan []byte
	Close() error
}

// Broker fans family snapshots out to every subscribed device.
type Broker interface {
	Channel(familyID string) string
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Stream, error)
}

// RedisBroker publishes over redis pub/sub.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Channel(familyID string) string {
	return b.client.FamilyChannel(familyID)
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload)
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (Stream, error) {
	sub, err := b.client.Subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
