package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter counts security-sensitive attempts (failed OTP checks,
// invite resends) per key within a rolling window. It is the backing store
// for brute-force protection on the invite acceptance flow.
type AttemptLimiter interface {
	// Increment records one attempt for the key and returns the count in
	// the current window. The window starts at the first attempt.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// Count returns the current attempt count without recording one
	Count(ctx context.Context, key string) (int64, error)

	// Reset clears the counter for a key, used after a successful attempt
	Reset(ctx context.Context, key string) error
}

// RedisAttemptLimiter implements AttemptLimiter using Redis
type RedisAttemptLimiter struct {
	client    *redis.Client
	keyPrefix string
}

// RedisAttemptLimiterConfig holds configuration for the Redis limiter
type RedisAttemptLimiterConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisAttemptLimiter creates a new Redis-based attempt limiter
func NewRedisAttemptLimiter(cfg RedisAttemptLimiterConfig) (*RedisAttemptLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis for attempt limiter: %w", err)
	}

	return &RedisAttemptLimiter{
		client:    client,
		keyPrefix: "access:attempts:",
	}, nil
}

// NewRedisAttemptLimiterWithClient creates a limiter with an existing Redis client
func NewRedisAttemptLimiterWithClient(client *redis.Client) *RedisAttemptLimiter {
	return &RedisAttemptLimiter{
		client:    client,
		keyPrefix: "access:attempts:",
	}
}

func (l *RedisAttemptLimiter) key(key string) string {
	return l.keyPrefix + key
}

// Increment records one attempt and returns the count in the current window.
// The TTL is set only when the key is created, so the window is anchored at
// the first attempt rather than sliding.
func (l *RedisAttemptLimiter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := l.key(key)

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempt counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, k, window).Err(); err != nil {
			return count, fmt.Errorf("failed to set attempt counter window: %w", err)
		}
	}

	return count, nil
}

// Count returns the current attempt count for a key
func (l *RedisAttemptLimiter) Count(ctx context.Context, key string) (int64, error) {
	count, err := l.client.Get(ctx, l.key(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read attempt counter: %w", err)
	}
	return count, nil
}

// Reset clears the counter for a key
func (l *RedisAttemptLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset attempt counter: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisAttemptLimiter) Close() error {
	return l.client.Close()
}

// Ensure RedisAttemptLimiter implements AttemptLimiter
var _ AttemptLimiter = (*RedisAttemptLimiter)(nil)

// InMemoryAttemptLimiter provides an in-memory implementation for testing
// and single-instance deployments.
type InMemoryAttemptLimiter struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Time
}

// NewInMemoryAttemptLimiter creates a new in-memory attempt limiter
func NewInMemoryAttemptLimiter() *InMemoryAttemptLimiter {
	return &InMemoryAttemptLimiter{
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
	}
}

// Increment records one attempt for the key
func (l *InMemoryAttemptLimiter) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.expireLocked(key)

	l.counts[key]++
	if l.counts[key] == 1 {
		l.expires[key] = time.Now().Add(window)
	}

	return l.counts[key], nil
}

// Count returns the current attempt count for a key
func (l *InMemoryAttemptLimiter) Count(_ context.Context, key string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.expireLocked(key)

	return l.counts[key], nil
}

// Reset clears the counter for a key
func (l *InMemoryAttemptLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.counts, key)
	delete(l.expires, key)
	return nil
}

func (l *InMemoryAttemptLimiter) expireLocked(key string) {
	if exp, ok := l.expires[key]; ok && time.Now().After(exp) {
		delete(l.counts, key)
		delete(l.expires, key)
	}
}

// Ensure InMemoryAttemptLimiter implements AttemptLimiter
var _ AttemptLimiter = (*InMemoryAttemptLimiter)(nil)
