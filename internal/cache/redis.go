package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/freekieb7/neurovault-users/internal/errors"
	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("cache miss")
)

// Service provides caching functionality using Redis
type Service struct {
	client clientInterface
	logger *slog.Logger
	prefix string
}

// clientInterface abstracts the Redis operations we actually use
type clientInterface interface {
	set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	get(ctx context.Context, key string) ([]byte, error)
	del(ctx context.Context, keys ...string) error
	ping(ctx context.Context) error
}

// Config holds Redis cache configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Prefix       string
	Enabled      bool
}

// DefaultConfig returns default Redis configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		Prefix:       "nvusers:",
		Enabled:      true,
	}
}

// NewService creates a new Redis cache service. A disabled config yields a
// service that misses on every read.
func NewService(ctx context.Context, config *Config, logger *slog.Logger) (*Service, error) {
	if !config.Enabled {
		return &Service{
			client: noOpClient{},
			logger: logger,
			prefix: config.Prefix,
		}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.ErrorContext(ctx, "Failed to connect to Redis", "error", err, "addr", config.Addr)
		_ = redisClient.Close()
		return nil, apperrors.CacheUnavailableError("failed to connect to Redis", err)
	}

	logger.InfoContext(ctx, "Connected to Redis cache", "addr", config.Addr, "db", config.DB)

	return &Service{
		client: &redisClientWrapper{client: redisClient},
		logger: logger,
		prefix: config.Prefix,
	}, nil
}

func (s *Service) buildKey(key string) string {
	return s.prefix + key
}

// Set stores a JSON encoded value with expiration
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if err := s.client.set(ctx, s.buildKey(key), data, ttl); err != nil {
		s.logger.WarnContext(ctx, "Cache set failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Get decodes a cached value into dest, returning ErrCacheMiss when absent
func (s *Service) Get(ctx context.Context, key string, dest any) error {
	val, err := s.client.get(ctx, s.buildKey(key))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return ErrCacheMiss
		}
		s.logger.WarnContext(ctx, "Cache get failed", "key", key, "error", err)
		return err
	}

	if err := json.Unmarshal(val, dest); err != nil {
		s.logger.WarnContext(ctx, "Cache unmarshal failed", "key", key, "error", err)
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Delete removes values from cache
func (s *Service) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.buildKey(key)
	}

	if err := s.client.del(ctx, prefixed...); err != nil {
		s.logger.WarnContext(ctx, "Cache delete failed", "keys", keys, "error", err)
		return err
	}
	return nil
}

// Health checks the health of the cache service
func (s *Service) Health(ctx context.Context) error {
	return s.client.ping(ctx)
}

// Close closes the cache service
func (s *Service) Close() error {
	if wrapper, ok := s.client.(*redisClientWrapper); ok {
		return wrapper.client.Close()
	}
	return nil
}

type redisClientWrapper struct {
	client *redis.Client
}

func (r *redisClientWrapper) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisClientWrapper) get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return val, nil
}

func (r *redisClientWrapper) del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisClientWrapper) ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type noOpClient struct{}

func (noOpClient) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (noOpClient) get(ctx context.Context, key string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (noOpClient) del(ctx context.Context, keys ...string) error {
	return nil
}

func (noOpClient) ping(ctx context.Context) error {
	return nil
}
