// Package redis holds the live-run lock that keeps one writer per record store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"
)

const defaultDialTimeout = 5 * time.Second

// Config locates the lock server. Addr is host:port.
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

func (c Config) options() *redis.Options {
	timeout := c.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	return &redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: timeout,
		PoolSize:    4,
	}
}

// Client is a connected lock server.
type Client struct {
	rdb    *redis.Client
	logger ectologger.Logger
}

// NewClient connects and pings once; an unreachable server is an error rather than a lazy
// failure on the first lock call.
func NewClient(ctx context.Context, cfg Config, logger ectologger.Logger) (*Client, error) {
	opts := cfg.options()
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis at %s is unreachable: %w", cfg.Addr, err)
	}

	logger.WithContext(ctx).WithFields(map[string]any{
		"addr": cfg.Addr,
		"db":   cfg.DB,
	}).Info("Connected to Redis")
	return &Client{rdb: rdb, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping backs the readiness check of the admin API.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
