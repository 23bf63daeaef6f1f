package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"community-blog-api/models"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

type RedisCache struct {
	Cli *redis.Client
	TTL time.Duration
}

func New(addr string, db int, ttlSeconds int) *RedisCache {
	return &RedisCache{
		Cli: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		TTL: time.Duration(ttlSeconds) * time.Second,
	}
}

func PostKey(id int) string { return "post:" + strconv.Itoa(id) }

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.Cli.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (r *RedisCache) Set(ctx context.Context, key string, val string) error {
	return r.Cli.Set(ctx, key, val, r.TTL).Err()
}

func (r *RedisCache) Del(ctx context.Context, key string) error {
	return r.Cli.Del(ctx, key).Err()
}

// GetPost returns the cached post or ErrMiss. An undecodable entry counts
// as a miss.
func (r *RedisCache) GetPost(ctx context.Context, id int) (*models.Post, error) {
	val, err := r.Get(ctx, PostKey(id))
	if err != nil {
		return nil, err
	}
	var p models.Post
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, ErrMiss
	}
	return &p, nil
}

func (r *RedisCache) SetPost(ctx context.Context, p *models.Post) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.Set(ctx, PostKey(p.ID), string(b))
}

func (r *RedisCache) InvalidatePost(ctx context.Context, id int) error {
	return r.Del(ctx, PostKey(id))
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.Cli.Ping(ctx).Err()
}

func (r *RedisCache) Close() error { return r.Cli.Close() }
