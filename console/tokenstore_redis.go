package console

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTokenKey = "library-admin:session:" + TokenKey

// RedisTokenStore shares one admin session between hosts through Redis.
type RedisTokenStore struct {
	rdb    *redis.Client
	key    string
	sealer *Sealer
}

// NewRedisTokenStore connects using a redis:// or rediss:// URL and fails
// fast when the server is not reachable.
func NewRedisTokenStore(ctx context.Context, rawURL string, sealer *Sealer) (*RedisTokenStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if strings.HasPrefix(rawURL, "rediss://") && opt.TLSConfig == nil {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	opt.DialTimeout = 2 * time.Second
	opt.ReadTimeout = 500 * time.Millisecond
	opt.WriteTimeout = 500 * time.Millisecond

	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisTokenStoreFromClient(rdb, sealer), nil
}

// NewRedisTokenStoreFromClient wraps an existing client.
func NewRedisTokenStoreFromClient(rdb *redis.Client, sealer *Sealer) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb, key: redisTokenKey, sealer: sealer}
}

func (s *RedisTokenStore) LoadToken(ctx context.Context) (string, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return unsealToken(s.sealer, raw)
}

func (s *RedisTokenStore) SaveToken(ctx context.Context, token string) error {
	raw, err := sealToken(s.sealer, token)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) ClearToken(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Close() error { return s.rdb.Close() }
