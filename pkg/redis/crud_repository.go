package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("redis key does not exist")

type RedisRepositories struct {
	Client *redis.Client
}

type IRedisRepositories interface {
	Set(key string, data []byte, expiredTime time.Duration, ctx context.Context) error
	Get(key string, ctx context.Context) (string, error)
	Del(key string, ctx context.Context) error
	TTL(key string, ctx context.Context) (time.Duration, error)
	StartPipeline(ctx context.Context) *Pipeline
	Publish(channel string, payload []byte, ctx context.Context) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

func NewRedisRepositories(client *redis.Client) *RedisRepositories {
	log.Info().Str("component", "redis").Msg("initialized redis repository")
	return &RedisRepositories{
		Client: client,
	}
}

func (r *RedisRepositories) Set(key string, data []byte, expiredTime time.Duration, ctx context.Context) error {
	if err := r.Client.Set(ctx, key, string(data), expiredTime).Err(); err != nil {
		log.Error().Err(err).Str("component", "redis").Str("key", key).Msg("set failed")
		return err
	}
	return nil
}

func (r *RedisRepositories) Get(key string, ctx context.Context) (string, error) {
	result, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	} else if err != nil {
		log.Error().Err(err).Str("component", "redis").Str("key", key).Msg("get failed")
		return "", err
	}
	return result, nil
}

func (r *RedisRepositories) Del(key string, ctx context.Context) error {
	if _, err := r.Client.Del(ctx, key).Result(); err != nil {
		log.Error().Err(err).Str("component", "redis").Str("key", key).Msg("delete failed")
		return err
	}
	return nil
}

func (r *RedisRepositories) TTL(key string, ctx context.Context) (time.Duration, error) {
	return r.Client.TTL(ctx, key).Result()
}

// Pipeline batches commands into one round trip.
type Pipeline struct {
	pipe redis.Pipeliner
}

func (r *RedisRepositories) StartPipeline(ctx context.Context) *Pipeline {
	return &Pipeline{
		pipe: r.Client.Pipeline(),
	}
}

func (p *Pipeline) Execute(ctx context.Context) error {
	_, err := p.pipe.Exec(ctx)
	return err
}

func (p *Pipeline) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	p.pipe.Set(ctx, key, value, expiration)
}

func (p *Pipeline) Del(ctx context.Context, keys ...string) {
	p.pipe.Del(ctx, keys...)
}
