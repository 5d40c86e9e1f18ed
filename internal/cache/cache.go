package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionCache — минимальный контракт кэша refresh-сессий.
// Хранит по пользователю хэш последнего выданного refresh-токена.
// Зеркало заполняется best-effort и может отставать от БД, поэтому
// его содержимое — подсказка для наблюдаемости, а не основание для
// отказа; источником истины остаётся хранилище (compare-and-swap
// в postgres).
type SessionCache interface {
	// Get возвращает хэш текущей сессии и признак его наличия в кэше.
	Get(ctx context.Context, userID uuid.UUID) (string, bool, error)
	// Set сохраняет хэш с TTL (обычно TTL refresh-токена).
	Set(ctx context.Context, userID uuid.UUID, hash string, ttl time.Duration) error
	// Del удаляет запись о сессии (logout).
	Del(ctx context.Context, userID uuid.UUID) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:sess:".
func NewRedisCache(redisURL, prefix string) (SessionCache, error) {
	if prefix == "" {
		prefix = "auth:sess:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(userID uuid.UUID) string { return c.prefix + userID.String() }

func (c *redisCache) Get(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	hash, err := c.rdb.Get(ctx, c.key(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}

		return "", false, err
	}

	return hash, true, nil
}

func (c *redisCache) Set(ctx context.Context, userID uuid.UUID, hash string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(userID), hash, ttl).Err()
}

func (c *redisCache) Del(ctx context.Context, userID uuid.UUID) error {
	return c.rdb.Del(ctx, c.key(userID)).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
