package users

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ChangedChannel carries directory change notices.
const ChangedChannel = "users.changed"

// Broadcaster announces directory changes between processes over Redis
// pub/sub. A nil Broadcaster, or one without a client, does nothing.
type Broadcaster struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewBroadcaster wires a broadcaster to the given client.
func NewBroadcaster(client *redis.Client, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{client: client, channel: ChangedChannel, logger: logger}
}

// Announce publishes a change notice carrying the new record count.
func (b *Broadcaster) Announce(ctx context.Context, count int) error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Publish(ctx, b.channel, strconv.Itoa(count)).Err()
}

// Listen subscribes to change notices and calls fn for each one until ctx is
// done. It returns once the subscription is confirmed.
func (b *Broadcaster) Listen(ctx context.Context, fn func(count int)) error {
	if b == nil || b.client == nil {
		return nil
	}
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				count, err := strconv.Atoi(msg.Payload)
				if err != nil {
					b.logger.Warn("malformed users change notice", slog.String("payload", msg.Payload))
					count = -1
				}
				fn(count)
			}
		}
	}()
	return nil
}
