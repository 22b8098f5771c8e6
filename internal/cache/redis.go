package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rapidlab/labbooking/config"
	"github.com/rapidlab/labbooking/internal/domain"
)

type RedisCache struct {
	client     *redis.Client
	catalogTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, catalogTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		catalogTTL: catalogTTL,
	}
}

// NewRedisCacheWithClient allows injecting a client for tests.
func NewRedisCacheWithClient(client *redis.Client, catalogTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, catalogTTL: catalogTTL}
}

// AcquireSlotLock holds (labName, date, slot) for userID until the TTL runs
// out. Exactly one user can hold a slot at a time; re-acquiring a slot one
// already holds succeeds, so a user re-selecting their own held slot is not
// treated as a race loss. Locks are never released by clients, only by TTL
// expiry or by ReleaseSlotLock after the booking is persisted.
func (c *RedisCache) AcquireSlotLock(ctx context.Context, labName, date, slot, userID string, ttl time.Duration) (bool, error) {
	key := slotLockKey(labName, date, slot)
	ok, err := c.client.SetNX(ctx, key, userID, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	holder, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Holder expired between SetNX and Get; retry once.
			return c.client.SetNX(ctx, key, userID, ttl).Result()
		}
		return false, err
	}
	return holder == userID, nil
}

func (c *RedisCache) ReleaseSlotLock(ctx context.Context, labName, date, slot string) error {
	return c.client.Del(ctx, slotLockKey(labName, date, slot)).Err()
}

func (c *RedisCache) GetLabs(ctx context.Context) ([]domain.Lab, error) {
	data, err := c.client.Get(ctx, labsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var labs []domain.Lab
	if err := json.Unmarshal(data, &labs); err != nil {
		return nil, err
	}
	return labs, nil
}

func (c *RedisCache) SetLabs(ctx context.Context, labs []domain.Lab) error {
	payload, err := json.Marshal(labs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, labsKey(), payload, c.catalogTTL).Err()
}

func (c *RedisCache) GetTests(ctx context.Context) ([]domain.DiagnosticTest, error) {
	data, err := c.client.Get(ctx, testsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var tests []domain.DiagnosticTest
	if err := json.Unmarshal(data, &tests); err != nil {
		return nil, err
	}
	return tests, nil
}

func (c *RedisCache) SetTests(ctx context.Context, tests []domain.DiagnosticTest) error {
	payload, err := json.Marshal(tests)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, testsKey(), payload, c.catalogTTL).Err()
}

func labsKey() string {
	return "cache:labs"
}

func testsKey() string {
	return "cache:tests"
}

func slotLockKey(labName, date, slot string) string {
	return fmt.Sprintf("lock:slot:%s:%s:%s", labName, date, slot)
}
