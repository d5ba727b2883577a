package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/route-scheduler/internal/domain/geo"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "routesched:geocode:"

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) (geo.Location, bool, error) {
	b, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return geo.Location{}, false, nil
	}
	if err != nil {
		return geo.Location{}, false, fmt.Errorf("redis get: %w", err)
	}
	var loc geo.Location
	if err := json.Unmarshal(b, &loc); err != nil {
		return geo.Location{}, false, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return loc, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, loc geo.Location) error {
	b, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, keyPrefix+key, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
