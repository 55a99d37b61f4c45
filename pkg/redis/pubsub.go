package redis

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

func (r *RedisRepositories) Publish(channel string, payload []byte, ctx context.Context) error {
	if err := r.Client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers payloads published on channel until ctx is done. The
// returned channel is closed when the subscription ends.
func (r *RedisRepositories) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := r.Client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					log.Warn().Str("component", "redis").Str("channel", channel).Msg("subscription closed")
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
	return out, nil
}
