package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client owns the connection used for shared rate limit counters.
type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
	// PoolSize <= 0 keeps go-redis's per-CPU default.
	PoolSize int
}

// Counters sit on the login path, so timeouts are short: the limiter fails
// open and a slow redis must not hold requests.
const (
	dialTimeout = 2 * time.Second
	ioTimeout   = 300 * time.Millisecond
)

func New(cfg Config) *Client {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	return &Client{redisdb: redis.NewClient(opts)}
}

// Ping is registered as the "redis" readiness check.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.redisdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.redisdb.Options().Addr, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

func (c *Client) Raw() *redis.Client {
	return c.redisdb
}
