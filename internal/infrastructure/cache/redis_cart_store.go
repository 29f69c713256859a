package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robotshop/cart/internal/domain/cart"
	"github.com/robotshop/cart/internal/domain/shared"
	"go.uber.org/zap"
)

// ConnState describes the store connection lifecycle. It feeds the health
// endpoint; cart operations never block on it and simply surface whatever
// error the call returns.
type ConnState int32

const (
	// ConnDisconnected means the last probe failed.
	ConnDisconnected ConnState = iota
	// ConnConnecting means no probe has completed yet.
	ConnConnecting
	// ConnReady means the last probe succeeded.
	ConnReady
)

// String implements fmt.Stringer.
func (s ConnState) String() string {
	switch s {
	case ConnDisconnected:
		return "disconnected"
	case ConnConnecting:
		return "connecting"
	case ConnReady:
		return "ready"
	default:
		return "unknown"
	}
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisCartStore persists carts in Redis as JSON values keyed by the raw
// cart id, with a fixed expiry refreshed on every write. Expiry is
// enforced entirely by Redis; an expired cart is indistinguishable from an
// absent one.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	state  atomic.Int32
}

// NewRedisCartStore creates a Redis-backed cart store. The connection is
// established lazily: the service starts even when Redis is down and the
// health endpoint reports the store as not ready until the monitor's first
// successful probe.
func NewRedisCartStore(cfg RedisConfig, ttl time.Duration, logger *zap.Logger) *RedisCartStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisCartStoreWithClient(client, ttl, logger)
}

// NewRedisCartStoreWithClient creates a store with an existing Redis
// client. This is useful for testing or when sharing a client across
// components.
func NewRedisCartStoreWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCartStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &RedisCartStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
	s.state.Store(int32(ConnConnecting))
	return s
}

// Get returns the cart stored under id, or shared.ErrCartNotFound when the
// key is absent or has expired.
func (s *RedisCartStore) Get(ctx context.Context, id string) (*cart.Cart, error) {
	raw, err := s.client.Get(ctx, id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, shared.ErrCartNotFound
		}
		s.markDown(err)
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	var c cart.Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("corrupt cart record %q: %w", id, err)
	}
	return &c, nil
}

// Save overwrites the cart under id and resets its TTL.
func (s *RedisCartStore) Save(ctx context.Context, id string, c *cart.Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize cart: %w", err)
	}
	if err := s.client.Set(ctx, id, raw, s.ttl).Err(); err != nil {
		s.markDown(err)
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// Delete removes the cart under id, reporting whether a key was removed.
func (s *RedisCartStore) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.client.Del(ctx, id).Result()
	if err != nil {
		s.markDown(err)
		return false, fmt.Errorf("failed to delete cart: %w", err)
	}
	return removed > 0, nil
}

// Count returns a snapshot count of active carts via a cursor scan. The
// result is coarse: keys can expire or appear while the scan runs.
func (s *RedisCartStore) Count(ctx context.Context) (int64, error) {
	var count int64
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "*", 100).Result()
		if err != nil {
			s.markDown(err)
			return 0, fmt.Errorf("failed to scan carts: %w", err)
		}
		count += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

// State returns the current connection state.
func (s *RedisCartStore) State() ConnState {
	return ConnState(s.state.Load())
}

// Ready reports whether the last probe reached Redis.
func (s *RedisCartStore) Ready() bool {
	return s.State() == ConnReady
}

// Monitor probes the connection at the given interval until ctx is
// cancelled, maintaining the readiness flag and logging an active-cart
// snapshot on every successful probe. Run it in its own goroutine.
func (s *RedisCartStore) Monitor(ctx context.Context, interval time.Duration) {
	s.probe(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *RedisCartStore) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.client.Ping(pingCtx).Err(); err != nil {
		s.markDown(err)
		return
	}

	if ConnState(s.state.Swap(int32(ConnReady))) != ConnReady {
		s.logger.Info("redis ready")
	}

	if count, err := s.Count(ctx); err == nil {
		s.logger.Debug("active carts", zap.Int64("count", count))
	}
}

func (s *RedisCartStore) markDown(err error) {
	if ConnState(s.state.Swap(int32(ConnDisconnected))) != ConnDisconnected {
		s.logger.Error("redis connection lost", zap.Error(err))
	}
}

// Close closes the Redis client.
func (s *RedisCartStore) Close() error {
	return s.client.Close()
}

// Ensure RedisCartStore implements cart.Repository
var _ cart.Repository = (*RedisCartStore)(nil)
