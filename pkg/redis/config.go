package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func RedisClient(redisHost, redisPort, redisUsername, redisPassword string) (*redis.Client, error) {
	redisURL := fmt.Sprintf("%s:%s", redisHost, redisPort)

	client := redis.NewClient(&redis.Options{
		Addr:         redisURL,
		Username:     redisUsername,
		Password:     redisPassword,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", maxRetries).Msg("failed to connect to redis")
			if i == maxRetries-1 {
				return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxRetries, err)
			}
			time.Sleep(2 * time.Second)
			continue
		}
		log.Info().Str("addr", redisURL).Msg("connected to redis")
		return client, nil
	}

	return client, nil
}
