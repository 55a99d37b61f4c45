package services

import (
	"context"
	"encoding/json"
	"fmt"

	"notebook-ai/internal/constants"
	"notebook-ai/pkg/redis"

	"github.com/rs/zerolog/log"
)

// CancelRequest asks whichever instance owns a submission to stop it.
type CancelRequest struct {
	MessageID  string `json:"message_id"`
	UserID     string `json:"user_id"`
	NotebookID string `json:"notebook_id"`
}

// CancelBus fans explicit stop requests out to every instance.
type CancelBus interface {
	Publish(ctx context.Context, req CancelRequest) error
	// Listen blocks, invoking handle for each request, until ctx is done.
	Listen(ctx context.Context, handle func(CancelRequest)) error
}

type redisCancelBus struct {
	redis   redis.IRedisRepositories
	channel string
}

func NewRedisCancelBus(redisRepo redis.IRedisRepositories) CancelBus {
	return &redisCancelBus{
		redis:   redisRepo,
		channel: constants.CancelChannel,
	}
}

func (b *redisCancelBus) Publish(ctx context.Context, req CancelRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode cancel request: %w", err)
	}
	return b.redis.Publish(b.channel, payload, ctx)
}

func (b *redisCancelBus) Listen(ctx context.Context, handle func(CancelRequest)) error {
	messages, err := b.redis.Subscribe(ctx, b.channel)
	if err != nil {
		return err
	}
	log.Info().Str("component", "cancel_bus").Str("channel", b.channel).Msg("listening for cancel requests")

	for payload := range messages {
		var req CancelRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			log.Warn().Err(err).Str("component", "cancel_bus").Msg("dropping malformed cancel request")
			continue
		}
		handle(req)
	}
	return ctx.Err()
}
