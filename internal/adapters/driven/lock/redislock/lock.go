// Package redislock serialises sync runs across processes with a Redis
// SET NX PX lock, so two webhook servers never run a full sync at once.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// DefaultTTL bounds how long a crashed holder can block other runs.
const DefaultTTL = 10 * time.Minute

const keyPrefix = "portfolio-rag:lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Lock implements driven.SyncLock on Redis.
type Lock struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ driven.SyncLock = (*Lock)(nil)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Lock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lock{client: client, ttl: ttl}
}

// Acquire sets the lock key if absent. The returned release only deletes
// the key while it still carries this holder's token.
func (l *Lock) Acquire(ctx context.Context, key string) (driven.ReleaseFunc, error) {
	token := uuid.NewString()
	redisKey := keyPrefix + key

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrSyncInProgress
	}

	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("releasing lock %s: %w", key, err)
		}
		return nil
	}, nil
}

// Close closes the Redis client.
func (l *Lock) Close() error {
	return l.client.Close()
}
