package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/seatbooking/config"
	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds the flights schedule cache, short seat locks taken while a booking
// is being written and the processed-message markers of the Kafka consumers.
type RedisCache struct {
	client         *redis.Client
	flightsTTL     time.Duration
	idempotencyTTL time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

func NewRedisCache(client *redis.Client, flightsTTL, idempotencyTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         client,
		flightsTTL:     flightsTTL,
		idempotencyTTL: idempotencyTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

func (c *RedisCache) AcquireSeatLock(ctx context.Context, flightID int64, seat string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, seatLockKey(flightID, seat), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseSeatLock(ctx context.Context, flightID int64, seat string) error {
	return c.client.Del(ctx, seatLockKey(flightID, seat)).Err()
}

// Seen marks key as processed and reports whether it had been marked before.
func (c *RedisCache) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := c.client.SetNX(ctx, key, "1", c.idempotencyTTL).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func flightsKey() string {
	return "cache:flights"
}

func seatLockKey(flightID int64, seat string) string {
	return fmt.Sprintf("lock:flight:%d:seat:%s", flightID, seat)
}
